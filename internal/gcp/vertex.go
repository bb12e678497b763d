package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Slide Judge Model Prompts ---
const SlideJudgeSystemPrompt = "You are a presentation reviewer. You look at one rendered slide of a pitch deck at a time and describe it as a single JSON object. You never add text outside the JSON object."

// SlideJudgeUserPrompt is formatted with the 1-based slide number.
const SlideJudgeUserPrompt = `Analyze slide number %d of a presentation and provide the following information:
1. Is this a title slide? (true/false)
2. How many bullet points are present?
3. Are there any images or graphics? If so, how many?
4. Does the slide adhere to best practices for presentations? (minimal text, visual emphasis)
5. Any suggestions for improvement?

Respond with a JSON object without any code fences or additional text, using exactly this schema:
{
  "is_title_slide": true or false,
  "bullet_points": integer,
  "images": integer,
  "adheres_to_best_practices": true or false,
  "suggestions": string
}`

// DefaultJudgeModel is used when JUDGE_MODEL is not set for the Vertex provider.
const DefaultJudgeModel = "gemini-1.5-flash"

// VertexClient holds the pre-configured slide judge model.
type VertexClient struct {
	JudgeModel *genai.GenerativeModel
	baseClient *genai.Client
}

// NewVertexClient creates a client whose JudgeModel always answers in JSON.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultJudgeModel
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	judgeModel := baseClient.GenerativeModel(modelName)
	judgeModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SlideJudgeSystemPrompt)},
	}
	judgeModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
		MaxOutputTokens:  genai.Ptr[int32](500),
	}

	return &VertexClient{
		JudgeModel: judgeModel,
		baseClient: baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
