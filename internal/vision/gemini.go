package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/shelfsnap/apiserver/config"
	"google.golang.org/api/option"
)

const analysisPrompt = `You are cataloging a personal inventory. Look at the photo and respond
with a single JSON object, no markdown fences, with exactly these fields:
  name: short item name
  description: one or two sentences describing the item
  category: a single broad category such as Electronics, Furniture, Kitchen, Clothing, Books, Tools
  tags: up to five lowercase keyword strings
  estimatedValue: estimated resale value in USD as a decimal string, or null if you cannot estimate
  confidence: "high", "medium" or "low" for the value estimate, or null
  rationale: one sentence explaining the estimate, or null`

// GeminiAnalyzer implements Analyzer with Google Gemini.
type GeminiAnalyzer struct {
	apiKey string
	model  string
}

// NewGeminiAnalyzer constructs a Gemini-backed analyzer from config.
func NewGeminiAnalyzer(cfg config.GeminiConfig) (*GeminiAnalyzer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiAnalyzer{apiKey: cfg.APIKey, model: model}, nil
}

// AnalyzeImage sends the image to Gemini and parses the structured reply.
func (g *GeminiAnalyzer) AnalyzeImage(ctx context.Context, data []byte, format string) (Analysis, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(format, data),
		genai.Text(analysisPrompt),
	)
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return Analysis{}, err
	}
	return parseAnalysis(text)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned from gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("empty content returned from gemini")
	}
	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", errors.New("unexpected response format from gemini")
}

// parseAnalysis tolerates models that wrap JSON in markdown fences despite
// the prompt.
func parseAnalysis(text string) (Analysis, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var analysis Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("unparseable analysis response: %w", err)
	}
	if strings.TrimSpace(analysis.Name) == "" {
		analysis.Name = Placeholder().Name
	}
	if strings.TrimSpace(analysis.Category) == "" {
		analysis.Category = Placeholder().Category
	}
	return analysis, nil
}
