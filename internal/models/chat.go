package models

// ChatMessage is one transcript entry. Insertion order is the transcript
// order; the profile system stores the slice verbatim.
type ChatMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"` // user, assistant or system
	Content string `json:"content"`
}

// Conversation status values as stored by the profile system.
const (
	StatusOngoing  = "ongoing"
	StatusComplete = "complete"
)

// IkigaiDetails is the structured result of a completed Ikigai chat.
type IkigaiDetails struct {
	WhatYouLove         string `json:"what_you_love"`
	WhatYouAreGoodAt    string `json:"what_you_are_good_at"`
	WhatWorldNeeds      string `json:"what_world_needs"`
	WhatYouCanBePaidFor string `json:"what_you_can_be_paid_for"`
	YourIkigai          string `json:"your_ikigai"`
	Explanation         string `json:"explanation"`
	NextSteps           string `json:"next_steps"`
	Status              string `json:"status,omitempty"`
}

// ProjectIdea is the structured result of an ideation chat for one module.
type ProjectIdea struct {
	ID               string        `json:"id,omitempty"`
	ModuleName       string        `json:"module_name,omitempty"`
	ProblemStatement string        `json:"problem_statement"`
	Solution         string        `json:"solution"`
	Features         []string      `json:"features"`
	ChatHistory      []ChatMessage `json:"chat_history,omitempty"`
}
