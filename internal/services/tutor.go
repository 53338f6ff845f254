package services

import (
	"context"
	"fmt"
	"strings"

	"examportal-backend/internal/models"
)

const tutorSystemPrompt = "You are a helpful GATE tutor."

// Attachment is a file a student uploaded alongside a tutor question.
type Attachment struct {
	Name string // original file name shown to the model
	Path string // where the upload was stored
}

// TutorService answers free-form student questions, optionally grounded in
// attached files.
type TutorService struct {
	extractor  *TextExtractor
	generator  Generator
	fileBudget int
}

func NewTutorService(extractor *TextExtractor, generator Generator, fileBudget int) *TutorService {
	if fileBudget <= 0 {
		fileBudget = 3000
	}
	return &TutorService{extractor: extractor, generator: generator, fileBudget: fileBudget}
}

func (s *TutorService) Ask(ctx context.Context, question string, attachments []Attachment) (string, error) {
	if strings.TrimSpace(question) == "" && len(attachments) == 0 {
		return "", &ValidationError{Fields: map[string]string{"message": "Message is required"}}
	}

	reply, err := s.generator.Chat(ctx, []models.ChatMessage{
		{Role: models.ChatRoleSystem, Content: tutorSystemPrompt},
		{Role: models.ChatRoleUser, Content: s.buildQuestion(question, attachments)},
	})
	if err != nil {
		return "", fmt.Errorf("tutor request failed: %w", err)
	}
	return reply, nil
}

func (s *TutorService) buildQuestion(question string, attachments []Attachment) string {
	var b strings.Builder
	b.WriteString("Student Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAttached Content:\n")

	for _, a := range attachments {
		text := truncateRunes(s.extractor.Extract(a.Path), s.fileBudget)
		fmt.Fprintf(&b, "--- File: %s ---\n%s\n", a.Name, text)
	}
	return b.String()
}
