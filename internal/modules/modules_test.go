package modules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/100xengineers/self-discovery-backend/internal/models"
	"github.com/100xengineers/self-discovery-backend/internal/profile"
)

func TestModules_FixedSetWithDistinctBuckets(t *testing.T) {
	all := All()
	require.Len(t, all, 4)

	buckets := make(map[profile.Bucket]bool)
	for i, m := range all {
		assert.Equal(t, i+1, m.Number)
		assert.True(t, m.Bucket.IsIdeation())
		assert.False(t, buckets[m.Bucket], "bucket %s reused", m.Bucket)
		buckets[m.Bucket] = true
	}
}

func TestByKey(t *testing.T) {
	m, err := ByKey("llms")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Number)
	assert.Equal(t, profile.BucketIdeation3, m.Bucket)

	_, err = ByKey("quantum")
	assert.Error(t, err)
}

func TestByBucket(t *testing.T) {
	m, err := ByBucket(profile.BucketIdeation2)
	require.NoError(t, err)
	assert.Equal(t, "full-stack", m.Key)

	_, err = ByBucket(profile.BucketIkigai)
	assert.Error(t, err)
}

func TestIdeationPrompt_ContainsModuleAndSaveInstruction(t *testing.T) {
	m, err := ByKey("ai-agents")
	require.NoError(t, err)

	prompt := IdeationPrompt(m, nil)
	assert.Contains(t, prompt, "PROJECT_IDEA_AGREED_TO_SAVE")
	assert.Contains(t, prompt, m.Name)
	assert.Contains(t, prompt, "Project Sample 1")
	assert.NotContains(t, prompt, "Ikigai Data")
}

func TestIdeationPrompt_IncludesIkigaiWhenPresent(t *testing.T) {
	m, err := ByKey("diffusion-models")
	require.NoError(t, err)

	ikigai := &models.IkigaiDetails{
		WhatYouLove:         "teaching",
		WhatYouAreGoodAt:    "writing",
		WhatWorldNeeds:      "clarity",
		WhatYouCanBePaidFor: "courses",
		YourIkigai:          "teach writing",
		Explanation:         "it fits",
		Status:              models.StatusComplete,
	}

	prompt := IdeationPrompt(m, ikigai)
	assert.Contains(t, prompt, "teaching")
	assert.Contains(t, prompt, "teach writing")
}

func TestIdeationPrompt_OngoingIkigaiOmitsSynthesis(t *testing.T) {
	m, err := ByKey("diffusion-models")
	require.NoError(t, err)

	ikigai := &models.IkigaiDetails{
		WhatYouLove: "teaching",
		Status:      models.StatusOngoing,
	}

	prompt := IdeationPrompt(m, ikigai)
	assert.Contains(t, prompt, "teaching")
	assert.False(t, strings.Contains(prompt, "Their Ikigai:"))
}

func TestIkigaiPrompt_InstructsSummaryMarker(t *testing.T) {
	assert.Contains(t, IkigaiPrompt, "IKIGAI_FINAL_SUMMARY:")
	for _, field := range []string{
		"what_you_love", "what_you_are_good_at", "what_world_needs",
		"what_you_can_be_paid_for", "your_ikigai", "explanation", "next_steps",
	} {
		assert.Contains(t, IkigaiPrompt, field)
	}
}
