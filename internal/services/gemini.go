package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"examportal-backend/internal/models"
)

// Generator is a synchronous chat completion: role-tagged messages in, one
// text completion out.
type Generator interface {
	Chat(ctx context.Context, messages []models.ChatMessage) (string, error)
}

type GeminiService struct {
	client    *genai.Client
	modelName string
	rateChan  chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:    client,
		modelName: modelName,
		rateChan:  rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Chat sends the conversation to Gemini. System messages become the system
// instruction; everything before the final user turn becomes chat history.
func (s *GeminiService) Chat(ctx context.Context, messages []models.ChatMessage) (string, error) {
	system, turns := toGeminiContents(messages)
	if len(turns) == 0 || turns[len(turns)-1].Role != "user" {
		return "", fmt.Errorf("conversation must end with a user message")
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	// GenerativeModel is a plain value holder; a fresh one per call keeps
	// the system instruction from leaking between concurrent pipelines.
	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(0.4)
	model.SetTopP(0.95)
	if system != nil {
		model.SystemInstruction = system
	}

	cs := model.StartChat()
	cs.History = turns[:len(turns)-1]

	resp, err := cs.SendMessage(ctx, turns[len(turns)-1].Parts...)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("Gemini returned empty text")
	}
	return text, nil
}

// toGeminiContents folds adjacent messages with the same role into one
// Content, since Gemini expects user and model turns to alternate.
func toGeminiContents(messages []models.ChatMessage) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	var turns []*genai.Content

	for _, m := range messages {
		part := genai.Text(m.Content)

		if m.Role == models.ChatRoleSystem {
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, part)
			continue
		}

		role := "user"
		if m.Role == models.ChatRoleAssistant {
			role = "model"
		}

		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Parts = append(turns[n-1].Parts, part)
			continue
		}
		turns = append(turns, &genai.Content{Role: role, Parts: []genai.Part{part}})
	}

	return system, turns
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
