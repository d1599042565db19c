package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// LLMClient is the interface both extraction backends satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
	GenerateFromImage(ctx context.Context, systemPrompt string, userPrompt string, mediaType string, imageBase64 string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Generator wraps an LLMClient and adds card-extraction batch methods.
type Generator struct {
	llm   LLMClient
	model string
}

func NewGenerator() *Generator {
	var llm LLMClient
	model := "mock"

	if os.Getenv("MOCK_GENERATOR") == "true" {
		llm = NewMockClient()
		log.Println("Generator using mock data")
	} else {
		model = os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-sonnet-4-5"
		}
		llm = NewAPIClient(model)
		log.Println("Generator using Anthropic API:", model)
	}

	return &Generator{llm: llm, model: model}
}

func (g *Generator) ModelName() string {
	return g.model
}

// ExtractFromText turns raw pasted text into structured vocabulary cards.
func (g *Generator) ExtractFromText(ctx context.Context, languageCode, text string) (*ExtractedBatch, *LLMResponse, error) {
	systemPrompt := ExtractionSystemPrompt()
	userPrompt := BuildTextUserPrompt(languageCode, text)

	resp, err := g.llm.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, nil, fmt.Errorf("extract from text: %w", err)
	}

	batch, err := ParseResponse(resp.Content)
	if err != nil {
		return nil, resp, fmt.Errorf("parse extraction response: %w", err)
	}

	return batch, resp, nil
}

// ExtractFromImage turns a photographed page or screenshot into cards.
func (g *Generator) ExtractFromImage(ctx context.Context, languageCode, mediaType, imageBase64 string) (*ExtractedBatch, *LLMResponse, error) {
	systemPrompt := ExtractionSystemPrompt()
	userPrompt := BuildImageUserPrompt(languageCode)

	resp, err := g.llm.GenerateFromImage(ctx, systemPrompt, userPrompt, mediaType, imageBase64)
	if err != nil {
		return nil, nil, fmt.Errorf("extract from image: %w", err)
	}

	batch, err := ParseResponse(resp.Content)
	if err != nil {
		return nil, resp, fmt.Errorf("parse extraction response: %w", err)
	}

	return batch, resp, nil
}

// ── APIClient — Anthropic SDK (Production) ─────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: param.NewOpt(0.2),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	return c.call(ctx, params)
}

func (c *APIClient) GenerateFromImage(ctx context.Context, systemPrompt string, userPrompt string, mediaType string, imageBase64 string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: param.NewOpt(0.2),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, imageBase64),
				anthropic.NewTextBlock(userPrompt),
			),
		},
	}
	return c.call(ctx, params)
}

func (c *APIClient) call(ctx context.Context, params anthropic.MessageNewParams) (*LLMResponse, error) {
	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("Retrying Anthropic API call in %v (attempt %d)", sleepDuration, attempt+1)
			time.Sleep(sleepDuration)
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient — Local Development ─────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	return &LLMResponse{
		Content:      buildMockJSON(),
		PromptTokens: 800,
		OutputTokens: 400,
	}, nil
}

func (m *MockClient) GenerateFromImage(ctx context.Context, systemPrompt string, userPrompt string, mediaType string, imageBase64 string) (*LLMResponse, error) {
	return m.Generate(ctx, systemPrompt, userPrompt)
}

func buildMockJSON() string {
	entries := []struct{ term, reading, translation, notes string }{
		{"猫", "ねこ", "cat", "common noun"},
		{"犬", "いぬ", "dog", ""},
		{"食べる", "たべる", "to eat", "ichidan verb"},
		{"図書館", "としょかん", "library", ""},
	}

	cards := "["
	for i, e := range entries {
		if i > 0 {
			cards += ","
		}
		cards += fmt.Sprintf(`{"term":"%s","reading":"%s","translation":"[Mock] %s","notes":"%s"}`,
			e.term, e.reading, e.translation, e.notes)
	}
	cards += "]"

	return fmt.Sprintf(`{"cards":%s}`, cards)
}
