package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	aistudio "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Lllllllleong/deckscreen/internal/gcp"
	"github.com/Lllllllleong/deckscreen/internal/models"
)

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini judges slides through the Gemini API with an API key, for running
// outside Google Cloud.
type Gemini struct {
	client *aistudio.Client
	model  *aistudio.GenerativeModel
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := aistudio.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	m := client.GenerativeModel(modelName)
	m.GenerationConfig = aistudio.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &aistudio.Content{
		Parts: []aistudio.Part{aistudio.Text(gcp.SlideJudgeSystemPrompt)},
	}
	return &Gemini{client: client, model: m}, nil
}

func (g *Gemini) Analyze(ctx context.Context, image []byte, slideNumber int) (*models.SlideJudgment, error) {
	resp, err := g.model.GenerateContent(ctx,
		aistudio.Text(UserPrompt(slideNumber)),
		aistudio.ImageData("png", image),
	)
	if err != nil {
		if gcp.IsTransient(err) {
			return nil, &TransientError{Err: err}
		}
		return nil, contextTransient(err)
	}
	return ParseJudgment(geminiText(resp), slideNumber)
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func geminiText(resp *aistudio.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(aistudio.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

func ptrFloat32(v float32) *float32 { return &v }
