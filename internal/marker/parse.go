package marker

import (
	"encoding/json"
	"strings"

	"github.com/100xengineers/self-discovery-backend/internal/models"
)

// ParseIkigaiSummary scans assistant text for the Ikigai summary marker and
// returns the validated chart fields. All seven fields must be present as
// non-empty strings; anything less yields ok=false and the conversation
// stays ongoing.
func ParseIkigaiSummary(text string) (*models.IkigaiDetails, bool) {
	fields, ok := extractObject(text, IkigaiSummaryMarker)
	if !ok {
		return nil, false
	}

	required := []string{
		"what_you_love",
		"what_you_are_good_at",
		"what_world_needs",
		"what_you_can_be_paid_for",
		"your_ikigai",
		"explanation",
		"next_steps",
	}
	values := make(map[string]string, len(required))
	for _, key := range required {
		s, ok := stringField(fields, key)
		if !ok {
			return nil, false
		}
		values[key] = s
	}

	return &models.IkigaiDetails{
		WhatYouLove:         values["what_you_love"],
		WhatYouAreGoodAt:    values["what_you_are_good_at"],
		WhatWorldNeeds:      values["what_world_needs"],
		WhatYouCanBePaidFor: values["what_you_can_be_paid_for"],
		YourIkigai:          values["your_ikigai"],
		Explanation:         values["explanation"],
		NextSteps:           values["next_steps"],
	}, true
}

// ParseProjectIdea scans assistant text for the project-idea marker and
// returns the validated idea. Features may be a JSON list or a
// comma-separated string.
func ParseProjectIdea(text string) (*models.ProjectIdea, bool) {
	fields, ok := extractObject(text, ProjectIdeaMarker)
	if !ok {
		return nil, false
	}

	problem, ok := stringField(fields, "problemStatement")
	if !ok {
		return nil, false
	}
	solution, ok := stringField(fields, "solution")
	if !ok {
		return nil, false
	}

	features, ok := featureList(fields["features"])
	if !ok {
		return nil, false
	}

	return &models.ProjectIdea{
		ProblemStatement: problem,
		Solution:         solution,
		Features:         features,
	}, true
}

// extractObject pulls the balanced span after the marker and parses it,
// applying the repair pass only when strict parsing fails.
func extractObject(text, m string) (map[string]interface{}, bool) {
	span, ok := Extract(text, m)
	if !ok {
		return nil, false
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		repaired := Repair(span)
		if err := json.Unmarshal([]byte(repaired), &fields); err != nil {
			return nil, false
		}
	}
	return fields, true
}

func stringField(fields map[string]interface{}, key string) (string, bool) {
	v, present := fields[key]
	if !present {
		return "", false
	}
	s, isString := v.(string)
	if !isString || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func featureList(v interface{}) ([]string, bool) {
	switch value := v.(type) {
	case string:
		parts := strings.Split(value, ",")
		features := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				features = append(features, trimmed)
			}
		}
		return features, true
	case []interface{}:
		features := make([]string, 0, len(value))
		for _, item := range value {
			s, isString := item.(string)
			if !isString {
				return nil, false
			}
			features = append(features, s)
		}
		return features, true
	default:
		return nil, false
	}
}
