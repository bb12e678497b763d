package judge

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/deckscreen/internal/gcp"
	"github.com/Lllllllleong/deckscreen/internal/models"
)

// Vertex judges slides with a Gemini model served by Vertex AI.
type Vertex struct {
	client *gcp.VertexClient
}

func NewVertex(ctx context.Context, cfg Config) (*Vertex, error) {
	client, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.Region, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return &Vertex{client: client}, nil
}

func (v *Vertex) Analyze(ctx context.Context, image []byte, slideNumber int) (*models.SlideJudgment, error) {
	resp, err := v.client.JudgeModel.GenerateContent(ctx,
		genai.Text(UserPrompt(slideNumber)),
		genai.ImageData("png", image),
	)
	if err != nil {
		return nil, classifyGRPC(err)
	}
	return ParseJudgment(vertexText(resp), slideNumber)
}

func (v *Vertex) Close() error {
	return v.client.Close()
}

func vertexText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

func classifyGRPC(err error) error {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
			return &TransientError{Err: err}
		}
	}
	return contextTransient(err)
}
