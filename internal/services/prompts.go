package services

import (
	"fmt"
	"strings"

	"examportal-backend/internal/models"
)

// Variant is one of the parallel assignments generated from a single upload.
type Variant struct {
	Label string // appended to the topic, e.g. "Set A"
	Style string // question-style bias passed to the quiz prompt
}

var DefaultVariants = []Variant{
	{Label: "Set A", Style: "Set A (Conceptual & Theory)"},
	{Label: "Set B", Style: "Set B (Applied & Numerical)"},
}

func aiTutorContext(job models.GenerationJob) string {
	return fmt.Sprintf("No source document provided. You are the AI Tutor. Generate comprehensive, high-quality content based entirely on the GATE syllabus for: %s > %s > %s.",
		job.Subject, job.Chapter, job.Topic)
}

func buildNotesPrompt(job models.GenerationJob, contextText string) string {
	var b strings.Builder

	b.WriteString("Analyze the provided text and context.\n")
	b.WriteString(fmt.Sprintf("Context: Subject='%s', Chapter='%s', Topic='%s'.\n\n", job.Subject, job.Chapter, job.Topic))
	b.WriteString("Create concise HTML study notes for GATE.\n")
	b.WriteString("Structure:\n")
	b.WriteString("1. <strong>Key Topics in this Document:</strong> list the topics found in the text or relevant to the chapter and topic.\n")
	b.WriteString(fmt.Sprintf("2. <strong>Detailed Summary:</strong> a detailed explanation of '%s' within '%s'. ", job.Topic, job.Chapter))
	b.WriteString("Summarize the document when its text is sufficient; when it is sparse, use the standard GATE syllabus for this topic.\n")
	b.WriteString("3. Study Notes using <h3>, <ul> and <b>.\n")

	b.WriteString("\n---TEXT CONTENT---\n")
	b.WriteString(contextText)
	b.WriteString("\n---END---\n")

	return b.String()
}

func buildQuizPrompt(job models.GenerationJob, contextText string, count int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Generate exactly %d Basic Level multiple choice questions (MCQs).\n", count))
	b.WriteString(fmt.Sprintf("Context: Subject='%s', Chapter='%s', Topic='%s'.\n", job.Subject, job.Chapter, job.Topic))
	if job.Variation != "" {
		b.WriteString(fmt.Sprintf("Variation: %s (make the questions distinct from other sets).\n", job.Variation))
	}

	b.WriteString(`
Instructions:
- Return ONLY a valid JSON array. No preamble, no markdown.
- JSON schema per question: {"q": "Question?", "options": ["A", "B", "C", "D"], "correct_index": 0}
- Exactly 4 options per question; correct_index is the zero-based index of the correct option.
- If the Text Content is sufficient, generate the questions from it.
`)
	b.WriteString(fmt.Sprintf("- CRITICAL: If the text is empty or too brief, generate the questions from the standard GATE syllabus for '%s' > '%s' > '%s'. Do NOT return 'undefined' questions or questions about missing text.\n",
		job.Subject, job.Chapter, job.Topic))

	b.WriteString("\n---TEXT CONTENT---\n")
	b.WriteString(contextText)
	b.WriteString("\n---END---\n")

	return b.String()
}

// buildTopUpMessages asks for the shortfall, grounded in the same context.
func buildTopUpMessages(contextText string, missing int) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "Text: " + contextText},
		{Role: models.ChatRoleUser, Content: fmt.Sprintf(
			`Generate %d more Basic Level MCQs strictly from the text provided. JSON format only: [{"q": "Question?", "options": ["A", "B", "C", "D"], "correct_index": 0}]`,
			missing)},
	}
}

// truncateRunes keeps the first n characters of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
