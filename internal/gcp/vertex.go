// Package gcp wraps the Vertex AI client used to derive filenames from
// document content.
package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// --- Namer Model Prompts ---
const NamerSystemPrompt = "You are a document naming assistant. You are shown the first page of a scanned document and must propose a clear, concise filename based on its content."
const NamerUserPrompt = `Suggest a filename for this scanned document. The filename should be descriptive and include key information like document type, company names, dates, or subject matter. Use underscores instead of spaces. Do NOT include the file extension. Respond with ONLY the suggested filename, no explanations or additional text.`

// suggestTimeout bounds a single naming call.
const suggestTimeout = 60 * time.Second

// VertexConfig holds the settings needed to reach the model.
type VertexConfig struct {
	ProjectID       string
	Region          string
	Model           string
	CredentialsFile string // optional; falls back to application default credentials
}

// VertexClient holds the pre-configured naming model.
type VertexClient struct {
	NamerModel *genai.GenerativeModel
	baseClient *genai.Client
}

// NewVertexClient creates a client with the naming model ready to use.
func NewVertexClient(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	baseClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	namerModel := baseClient.GenerativeModel(cfg.Model)
	namerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(NamerSystemPrompt)},
	}
	namerModel.GenerationConfig = genai.GenerationConfig{
		// A filename is a handful of tokens; anything longer is noise.
		MaxOutputTokens: genai.Ptr[int32](50),
		Temperature:     genai.Ptr[float32](0.3),
	}
	namerModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		NamerModel: namerModel,
		baseClient: baseClient,
	}, nil
}

// SuggestName sends first-page bytes to the model and returns its filename
// suggestion. The returned string is free text: it may be empty, contain
// filesystem-hostile characters, or be overlong. Callers sanitize it.
func (c *VertexClient) SuggestName(ctx context.Context, mime string, data []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, suggestTimeout)
	defer cancel()

	page := genai.Blob{MIMEType: mime, Data: data}
	resp, err := c.NamerModel.GenerateContent(callCtx, page, genai.Text(NamerUserPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	suggestion := extractSuggestion(resp)

	// Sanity check for LLM refusal; a refusal is useless as a filename.
	lowerSuggestion := strings.ToLower(suggestion)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lowerSuggestion, phrase) {
			return "", fmt.Errorf("gemini response indicates refusal: %q", suggestion)
		}
	}
	return suggestion, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// extractSuggestion pulls the text parts out of the model response and
// strips any code fencing the model wrapped them in.
func extractSuggestion(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var out strings.Builder
	var textPartsFound int
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
			textPartsFound++
		}
	}
	if textPartsFound > 1 {
		slog.Warn("Gemini response contained multiple text parts; they have been concatenated.", "parts", textPartsFound)
	}

	suggestion := strings.TrimSpace(out.String())
	suggestion = strings.TrimPrefix(suggestion, "```text")
	suggestion = strings.TrimPrefix(suggestion, "```")
	suggestion = strings.TrimSuffix(suggestion, "```")
	return strings.TrimSpace(suggestion)
}
