package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

const openaiModel = openai.ChatModelGPT4o

// GPT-4o pricing (per million tokens)
const (
	openaiInputPricePerMillion  = 2.50
	openaiOutputPricePerMillion = 10.00
)

const openaiMaxTokens = 1500

// OpenAIAnalyzer reads receipts with OpenAI's vision models.
type OpenAIAnalyzer struct {
	client openai.Client
}

// NewOpenAIAnalyzer creates a new OpenAI-based receipt analyzer.
func NewOpenAIAnalyzer(apiKey string, opts ...option.RequestOption) *OpenAIAnalyzer {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIAnalyzer{client: openai.NewClient(opts...)}
}

// AnalyzeReceipt sends the receipt photos as data URLs and parses the item list.
func (o *OpenAIAnalyzer) AnalyzeReceipt(ctx context.Context, images [][]byte) (*ReceiptAnalysis, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}
	if len(images) > maxImages {
		images = images[:maxImages]
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(buildReceiptPrompt(len(images))),
	}
	for _, img := range images {
		dataURL := fmt.Sprintf("data:%s;base64,%s", detectImageMIME(img), base64.StdEncoding.EncodeToString(img))
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL,
		}))
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openaiModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		MaxCompletionTokens: openai.Int(openaiMaxTokens),
		Temperature:         openai.Float(0.3),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	items, err := parseReceiptItems(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	usage := Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		CostUSD:      calculateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, openaiInputPricePerMillion, openaiOutputPricePerMillion),
	}

	log.Info().
		Str("model", string(openaiModel)).
		Int("imageCount", len(images)).
		Int("itemCount", len(items)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("receipt llm call")

	return &ReceiptAnalysis{Items: items, Usage: usage}, nil
}
