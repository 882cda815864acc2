// Package modules holds the four fixed cohort learning modules and the
// prompt assembly for per-module ideation chats.
package modules

import (
	"fmt"
	"strings"

	"github.com/100xengineers/self-discovery-backend/internal/models"
	"github.com/100xengineers/self-discovery-backend/internal/profile"
)

// Module describes one cohort learning module. The set is fixed; each
// module owns its own ideation credit bucket.
type Module struct {
	Number           int            `json:"number"`
	Key              string         `json:"key"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	LearningOutcomes []string       `json:"learning_outcomes"`
	TopicsCovered    []string       `json:"topics_covered"`
	Bucket           profile.Bucket `json:"balance_type"`
}

// ProjectSample is an example idea shown to the model for grounding.
type ProjectSample struct {
	Title            string `json:"title"`
	ProblemStatement string `json:"problem_statement"`
	Solution         string `json:"solution"`
}

var all = []Module{
	{
		Number:      1,
		Key:         "diffusion-models",
		Name:        "Module 1: Diffusion Models (Weeks 1-6)",
		Description: "Learn about Diffusion Models and their applications.",
		LearningOutcomes: []string{
			"Understanding of GenAI landscape and fundamentals",
			"Grasp of diffusion model principles",
			"Mastery of prompt crafting for desired outputs",
			"Ability to train custom models",
			"Production-ready workflow creation",
		},
		TopicsCovered: []string{
			"Evolution of GenAI, key milestones",
			"How diffusion models work",
			"SDXL architecture, basic implementations",
			"Custom model training, LoRA optimization",
			"ComfyUI workflows, scaling solutions",
		},
		Bucket: profile.BucketIdeation1,
	},
	{
		Number:      2,
		Key:         "full-stack",
		Name:        "Module 2: Full Stack Development (Weeks 7-12)",
		Description: "Learn full-stack development with a focus on AI applications.",
		LearningOutcomes: []string{
			"Strong programming foundation",
			"Functional UI creation ability",
			"Complete API development skills",
			"Full stack implementation ability",
			"Production deployment skills",
		},
		TopicsCovered: []string{
			"Programming fundamentals, AI tech stack",
			"React.js and Next.js fundamentals",
			"API principles, architecture, design",
			"FastAPI, CRUD operations",
			"Serverless deployment, optimization",
		},
		Bucket: profile.BucketIdeation2,
	},
	{
		Number:      3,
		Key:         "llms",
		Name:        "Module 3: Large Language Models (Weeks 13-18)",
		Description: "Explore the foundations, advanced concepts, and implementation of Large Language Models.",
		LearningOutcomes: []string{
			"Understanding of LLM ecosystem",
			"Expert prompt engineering skills",
			"RAG implementation ability",
			"Expert fine-tuning skills",
			"Production readiness",
		},
		TopicsCovered: []string{
			"AI, ML, and deep learning fundamentals",
			"LLM architecture, capabilities, limitations",
			"LangChain architecture, components",
			"RAG architecture, vector embeddings",
			"PEFT, optimization techniques",
		},
		Bucket: profile.BucketIdeation3,
	},
	{
		Number:      4,
		Key:         "ai-agents",
		Name:        "Module 4: AI Agents (Weeks 19-22)",
		Description: "Delve into AI Agents, multi-agent systems, and their production implementation.",
		LearningOutcomes: []string{
			"Understanding of agent architecture",
			"Multi-agent development skills",
			"Agentic RAG implementation",
			"Production deployment skills",
		},
		TopicsCovered: []string{
			"Agent fundamentals, design patterns",
			"Multi-agent systems, coordination",
			"RAG in agent systems",
			"Production considerations",
		},
		Bucket: profile.BucketIdeation4,
	},
}

var samples = []ProjectSample{
	{
		Title:            "AI-Powered Study Buddy",
		ProblemStatement: "Students struggle with personalized learning experiences and efficient study techniques.",
		Solution:         "An AI study buddy that provides personalized learning paths, intelligent Q&A and progress tracking.",
	},
	{
		Title:            "Smart Home Energy Optimizer",
		ProblemStatement: "Homeowners struggle to manage energy consumption efficiently, leading to high bills and waste.",
		Solution:         "A system that learns usage patterns, predicts consumption and adjusts smart devices automatically.",
	},
}

// All returns the fixed module list.
func All() []Module {
	return all
}

// ByKey finds a module by its URL key.
func ByKey(key string) (Module, error) {
	for _, m := range all {
		if m.Key == key {
			return m, nil
		}
	}
	return Module{}, fmt.Errorf("unknown module: %s", key)
}

// ByBucket finds the module owning an ideation bucket.
func ByBucket(bucket profile.Bucket) (Module, error) {
	for _, m := range all {
		if m.Bucket == bucket {
			return m, nil
		}
	}
	return Module{}, fmt.Errorf("no module for bucket %s", bucket)
}

// IdeationPrompt builds the per-module system prompt from module metadata,
// the mentee's Ikigai data when available, and the sample ideas. The text
// instructs the model to emit the save sentinel when the mentee agrees.
func IdeationPrompt(m Module, ikigai *models.IkigaiDetails) string {
	var b strings.Builder

	b.WriteString("You are an AI assistant helping a mentee ideate a project problem statement and solution. ")
	b.WriteString("Help them refine their ideas so they are concise, clear, and address a real-world need, ")
	b.WriteString("and help them define a list of features. ")
	b.WriteString("If the mentee agrees to save a project idea, you MUST respond with the keyword ")
	b.WriteString("PROJECT_IDEA_AGREED_TO_SAVE followed by a JSON object containing the problemStatement, ")
	b.WriteString("solution, and a comma-separated string of features. For example: ")
	b.WriteString(`PROJECT_IDEA_AGREED_TO_SAVE: { "problemStatement": "...", "solution": "...", "features": "feature1, feature2" }`)
	b.WriteString("\n\n")

	if ikigai != nil {
		b.WriteString("Mentee's Ikigai Data:\n")
		fmt.Fprintf(&b, "  - What they love: %s\n", ikigai.WhatYouLove)
		fmt.Fprintf(&b, "  - What they are good at: %s\n", ikigai.WhatYouAreGoodAt)
		fmt.Fprintf(&b, "  - What the world needs: %s\n", ikigai.WhatWorldNeeds)
		fmt.Fprintf(&b, "  - What they can be paid for: %s\n", ikigai.WhatYouCanBePaidFor)
		if ikigai.Status == models.StatusComplete {
			fmt.Fprintf(&b, "  - Their Ikigai: %s\n", ikigai.YourIkigai)
			fmt.Fprintf(&b, "  - Explanation: %s\n", ikigai.Explanation)
		}
		b.WriteString("\n")
	}

	b.WriteString("Module Context:\n")
	fmt.Fprintf(&b, "  - Module Name: %s\n", m.Name)
	fmt.Fprintf(&b, "  - Description: %s\n", m.Description)
	fmt.Fprintf(&b, "  - Learning Outcomes: %s\n", strings.Join(m.LearningOutcomes, ", "))
	fmt.Fprintf(&b, "  - Topics Covered: %s\n", strings.Join(m.TopicsCovered, ", "))
	b.WriteString("\n")

	for i, sample := range samples {
		fmt.Fprintf(&b, "Project Sample %d:\n", i+1)
		fmt.Fprintf(&b, "  - Title: %s\n", sample.Title)
		fmt.Fprintf(&b, "  - Problem Statement: %s\n", sample.ProblemStatement)
		fmt.Fprintf(&b, "  - Solution: %s\n", sample.Solution)
	}

	return b.String()
}

// IkigaiPrompt is the fixed system prompt for the guided Ikigai chat. It is
// prepended server-side; the client never sees it.
const IkigaiPrompt = `You are a warm, thoughtful guide helping a mentee discover their Ikigai. ` +
	`Walk them through the four elements one at a time: what they love, what they are good at, ` +
	`what the world needs, and what they can be paid for. Ask one question at a time and dig ` +
	`deeper into their answers before moving on. Once all four elements are explored, synthesize ` +
	`their Ikigai and respond with the keyword IKIGAI_FINAL_SUMMARY: followed by a JSON object ` +
	`with the fields what_you_love, what_you_are_good_at, what_world_needs, what_you_can_be_paid_for, ` +
	`your_ikigai, explanation and next_steps.`
