package convert

import (
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
)

func respWith(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: parts}},
		},
	}
}

func TestExtractMarkdown(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		got := extractMarkdown(respWith(genai.Text("# Report\n\nBody.")))
		assert.Equal(t, "# Report\n\nBody.", got)
	})

	t.Run("strips markdown fence", func(t *testing.T) {
		got := extractMarkdown(respWith(genai.Text("```markdown\n# Report\n```")))
		assert.Equal(t, "# Report", got)
	})

	t.Run("strips bare fence", func(t *testing.T) {
		got := extractMarkdown(respWith(genai.Text("```\n# Report\n```")))
		assert.Equal(t, "# Report", got)
	})

	t.Run("concatenates text parts", func(t *testing.T) {
		got := extractMarkdown(respWith(genai.Text("# Report\n"), genai.Text("Second part.")))
		assert.Equal(t, "# Report\nSecond part.", got)
	})

	t.Run("empty response shapes", func(t *testing.T) {
		assert.Equal(t, "", extractMarkdown(nil))
		assert.Equal(t, "", extractMarkdown(&genai.GenerateContentResponse{}))
		assert.Equal(t, "", extractMarkdown(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: nil}},
		}))
	})
}

func TestRefused(t *testing.T) {
	assert.True(t, refused("I am unable to process this document."))
	assert.True(t, refused("As a large language model, I..."))
	assert.False(t, refused("# Quarterly Report\n\nRevenue was up."))
}

func TestConversionError(t *testing.T) {
	plain := &ConversionError{Reason: "engine returned no Markdown output"}
	assert.Equal(t, "engine returned no Markdown output", plain.Error())

	cause := errors.New("corrupt zip")
	wrapped := &ConversionError{Reason: "input failed PDF validation", Err: cause}
	assert.Equal(t, "input failed PDF validation: corrupt zip", wrapped.Error())
	assert.True(t, errors.Is(wrapped, cause))
}
