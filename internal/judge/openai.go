package judge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Lllllllleong/deckscreen/internal/gcp"
	"github.com/Lllllllleong/deckscreen/internal/models"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// OpenAI judges slides through an OpenAI-compatible chat completions API.
type OpenAI struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

func NewOpenAI(cfg Config) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.OpenAIAPIKey)
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is empty")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAI{
		// Per-call deadlines come from the caller's context.
		httpClient: &http.Client{},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Analyze(ctx context.Context, image []byte, slideNumber int) (*models.SlideJudgment, error) {
	payload := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: gcp.SlideJudgeSystemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: UserPrompt(slideNumber)},
				{Type: "image_url", ImageURL: &imageURL{URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)}},
			}},
		},
		MaxTokens: 500,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, contextTransient(ctx.Err())
		}
		return nil, &TransientError{Err: fmt.Errorf("openai request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &TransientError{Err: err}
		}
		return nil, err
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &MalformedResponseError{Reason: "decode response: " + err.Error()}
	}
	if len(decoded.Choices) == 0 {
		return nil, &MalformedResponseError{Reason: "no choices in response"}
	}
	return ParseJudgment(decoded.Choices[0].Message.Content, slideNumber)
}
