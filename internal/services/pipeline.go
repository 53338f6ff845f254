package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"examportal-backend/internal/models"
)

// AssignmentStore receives the single outcome of a generation run.
type AssignmentStore interface {
	CompleteGeneration(ctx context.Context, id uuid.UUID, notes string, quiz []models.Question) error
	FailGeneration(ctx context.Context, id uuid.UUID, errMsg string) error
}

type PipelineConfig struct {
	ContextBudget int // characters of source text placed in any prompt
	QuizSize      int
}

// ContentPipeline turns an assignment's source files into study notes and a
// quiz, then moves the assignment from PENDING to READY or ERROR.
type ContentPipeline struct {
	extractor *TextExtractor
	generator Generator
	store     AssignmentStore
	cfg       PipelineConfig
}

func NewContentPipeline(extractor *TextExtractor, generator Generator, store AssignmentStore, cfg PipelineConfig) *ContentPipeline {
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = 12000
	}
	if cfg.QuizSize <= 0 {
		cfg.QuizSize = 10
	}
	return &ContentPipeline{
		extractor: extractor,
		generator: generator,
		store:     store,
		cfg:       cfg,
	}
}

// Run executes the whole flow once. The returned error is for the caller's
// bookkeeping only: by the time Run returns, the failure is already recorded
// on the assignment as ERROR.
func (p *ContentPipeline) Run(ctx context.Context, job models.GenerationJob) (err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panicked: %v", r)
		}
		if err != nil {
			p.markFailed(job.AssignmentID, err)
		}
	}()

	notes, quiz, err := p.generate(ctx, job)
	if err != nil {
		return err
	}

	if err := p.store.CompleteGeneration(ctx, job.AssignmentID, notes, quiz); err != nil {
		return fmt.Errorf("failed to persist generated content: %w", err)
	}

	log.Printf("Assignment %s ready: %d questions, %d chars of notes (%s)",
		job.AssignmentID, len(quiz), len(notes), time.Since(start).Round(time.Millisecond))
	return nil
}

func (p *ContentPipeline) generate(ctx context.Context, job models.GenerationJob) (string, []models.Question, error) {
	contextText := p.buildContext(job)

	notes, err := p.generator.Chat(ctx, []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: buildNotesPrompt(job, contextText)},
	})
	if err != nil {
		return "", nil, fmt.Errorf("notes generation failed: %w", err)
	}

	rawQuiz, err := p.generator.Chat(ctx, []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: buildQuizPrompt(job, contextText, p.cfg.QuizSize)},
	})
	if err != nil {
		return "", nil, fmt.Errorf("quiz generation failed: %w", err)
	}

	quiz, rejected := SanitizeQuizReport(rawQuiz)
	if len(rejected) > 0 {
		log.Printf("Assignment %s: dropped %d malformed quiz items (first: %s)",
			job.AssignmentID, len(rejected), rejected[0].Reason)
	}

	if missing := p.cfg.QuizSize - len(quiz); missing > 0 {
		quiz = append(quiz, p.topUp(ctx, job.AssignmentID, contextText, missing)...)
	}

	if len(quiz) > p.cfg.QuizSize {
		quiz = quiz[:p.cfg.QuizSize]
	}
	if len(quiz) == 0 {
		return "", nil, fmt.Errorf("model produced no usable quiz questions")
	}

	return notes, quiz, nil
}

// buildContext extracts and bounds the source text, falling back to a
// syllabus-only instruction when nothing usable was extracted.
func (p *ContentPipeline) buildContext(job models.GenerationJob) string {
	full := p.extractor.ExtractAll(job.SourcePaths)
	contextText := truncateRunes(full, p.cfg.ContextBudget)

	if strings.TrimSpace(contextText) == "" {
		log.Printf("Assignment %s: no extractable source text, using AI tutor mode", job.AssignmentID)
		return aiTutorContext(job)
	}
	return contextText
}

// topUp makes the single supplementary request for missing questions.
// Failures are logged and yield nothing.
func (p *ContentPipeline) topUp(ctx context.Context, assignmentID uuid.UUID, contextText string, missing int) []models.Question {
	raw, err := p.generator.Chat(ctx, buildTopUpMessages(contextText, missing))
	if err != nil {
		log.Printf("Assignment %s: top-up request for %d questions failed: %v", assignmentID, missing, err)
		return nil
	}

	extra := SanitizeQuiz(raw)
	log.Printf("Assignment %s: top-up returned %d of %d missing questions", assignmentID, len(extra), missing)
	return extra
}

func (p *ContentPipeline) markFailed(id uuid.UUID, cause error) {
	log.Printf("Assignment %s generation failed: %v", id, cause)

	// The run's own context may be what failed; record the outcome regardless.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.store.FailGeneration(ctx, id, cause.Error()); err != nil {
		log.Printf("Assignment %s: failed to record ERROR status: %v", id, err)
	}
}
