package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const geminiModel = "gemini-3-flash-preview"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.50
	geminiOutputPricePerMillion = 3.00
)

const receiptPrompt = `You are a carbon footprint analyst. Extract the purchased items from this receipt and estimate their CO2 emissions.

Use these emission factors (kg CO2e per kg unless noted):
- Beef: 27, Lamb: 24, Pork: 12, Chicken: 6.9
- Cheese: 13.5, Milk: 1.9 (per liter), Eggs: 4.8 (per dozen)
- Rice: 2.7, Bread: 0.8, Pasta: 1.2
- Vegetables: 0.4, Fruits: 0.5

Scale each estimate by the quantity printed on the receipt.

Respond in JSON format:
{"items": [{"name": "item as printed", "carbonKg": number, "category": "%s", "quantity": number, "unit": "kg|l|pcs"}]}

Omit quantity and unit if they are not printed. Skip totals, taxes, discounts, deposits and bag fees.

Respond ONLY with the JSON object, no markdown or other text.`

const multiReceiptNote = `

The images are parts of the same receipt or several receipts from one shopping trip. List every item exactly once.`

// GeminiAnalyzer uses Google's Gemini API to read receipts.
type GeminiAnalyzer struct {
	client *genai.Client
}

// NewGeminiAnalyzer creates a new Gemini-based receipt analyzer.
func NewGeminiAnalyzer(ctx context.Context, apiKey string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client}, nil
}

func buildReceiptPrompt(imageCount int) string {
	labels := make([]string, len(carbon.Categories))
	for i, c := range carbon.Categories {
		labels[i] = string(c)
	}
	prompt := fmt.Sprintf(receiptPrompt, strings.Join(labels, "|"))
	if imageCount > 1 {
		prompt += multiReceiptNote
	}
	return prompt
}

// AnalyzeReceipt sends the receipt photos to Gemini and parses the item list.
func (g *GeminiAnalyzer) AnalyzeReceipt(ctx context.Context, images [][]byte) (*ReceiptAnalysis, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}
	if len(images) > maxImages {
		images = images[:maxImages]
	}

	parts := []*genai.Part{
		genai.NewPartFromText(buildReceiptPrompt(len(images))),
	}
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img, MIMEType: detectImageMIME(img)},
		})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.3),
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	items, err := parseReceiptItems(result.Text())
	if err != nil {
		return nil, err
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	log.Info().
		Str("model", geminiModel).
		Int("imageCount", len(images)).
		Int("itemCount", len(items)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("receipt llm call")

	return &ReceiptAnalysis{Items: items, Usage: usage}, nil
}

func calculateCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

// detectImageMIME sniffs the image type, defaulting to JPEG which is what
// Telegram serves for photos.
func detectImageMIME(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

// receiptItem mirrors one model-reported item. Numeric fields stay raw so a
// string or null from the model becomes "unknown" instead of a decode error.
type receiptItem struct {
	Name     string          `json:"name"`
	CarbonKg json.RawMessage `json:"carbonKg"`
	Category string          `json:"category"`
	Quantity json.RawMessage `json:"quantity"`
	Unit     string          `json:"unit"`
}

func parseReceiptItems(text string) ([]carbon.ItemInput, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	var resp struct {
		Items []receiptItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}
	if len(resp.Items) == 0 {
		return nil, ErrNoItems
	}

	items := make([]carbon.ItemInput, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, carbon.ItemInput{
			Name:     it.Name,
			CarbonKg: rawNumber(it.CarbonKg),
			Category: it.Category,
			Quantity: rawNumber(it.Quantity),
			Unit:     it.Unit,
		})
	}
	return items, nil
}

// rawNumber returns the value of a JSON number, or nil for anything else.
func rawNumber(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
