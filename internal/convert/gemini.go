package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/mdrelay/mdrelay/internal/keys"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const converterSystemPrompt = "You are a document parser and Markdown converter. Your task is to parse the full content of a document and render it as Markdown. Accuracy, detail, and information preservation are of utmost importance."

const converterUserPrompt = `You will be provided with a document (PDF or DOCX):

Follow these instructions to convert its content into Markdown:

Text: Render all text content directly as Markdown text.
Lists: Render all lists as Markdown lists, preserving the original structure.
Images: Replace each image with a detailed textual description of its content.
Tables: Render all tables as Markdown tables. If a table contains merged cells, normalize it by copying parent-cell content into the child cells so no information is lost.
Headers and Footers: Ignore page furniture such as logos, addresses, and page numbers; preserve the core content.

Maintain the integrity and completeness of the document's content in the Markdown output. Return only the Markdown, without surrounding commentary or code fences.`

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// GeminiConfig holds the Vertex AI settings for the production engine.
type GeminiConfig struct {
	ProjectID string
	Region    string
	Model     string
}

// GeminiEngine converts documents by sending them inline to a Gemini model.
type GeminiEngine struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiEngine(ctx context.Context, cfg GeminiConfig) (*GeminiEngine, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewGeminiEngine: projectID and region cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro"
	}
	if err := Bootstrap(); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	m := client.GenerativeModel(cfg.Model)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(converterSystemPrompt)},
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	slog.Info("Gemini engine initialized.", "model", cfg.Model, "region", cfg.Region)
	return &GeminiEngine{client: client, model: m}, nil
}

func (e *GeminiEngine) Close() error {
	return e.client.Close()
}

// Convert validates the input where it can, sends the bytes to the model and
// extracts the Markdown from the response. All failures come back as a
// *ConversionError so the caller can write the diagnostic verbatim.
func (e *GeminiEngine) Convert(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		if err := validatePDF(path); err != nil {
			return "", &ConversionError{Reason: "input failed PDF validation", Err: err}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ConversionError{Reason: "failed to read input file", Err: err}
	}

	filePart := genai.Blob{MIMEType: keys.ContentType(path), Data: data}
	resp, err := e.model.GenerateContent(ctx, filePart, genai.Text(converterUserPrompt))
	if err != nil {
		return "", &ConversionError{Reason: "model call failed", Err: err}
	}

	md := extractMarkdown(resp)
	if md == "" {
		return "", &ConversionError{Reason: "engine returned no Markdown output"}
	}
	if refused(md) {
		return "", &ConversionError{Reason: "model refused to convert the document"}
	}
	return md, nil
}

func validatePDF(path string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, cfg); err != nil {
		return err
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return err
	}
	slog.Info("Validated PDF input.", "path", path, "pages", pages)
	return nil
}

// extractMarkdown concatenates the text parts of the first candidate and
// strips any code fence the model wrapped the document in.
func extractMarkdown(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	s := strings.TrimSpace(b.String())
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func refused(md string) bool {
	lower := strings.ToLower(md)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
