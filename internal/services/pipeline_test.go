package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examportal-backend/internal/models"
	"examportal-backend/internal/repository"
)

type scriptedGenerator struct {
	mu      sync.Mutex
	calls   [][]models.ChatMessage
	respond func(call int, msgs []models.ChatMessage) (string, error)
}

func (g *scriptedGenerator) Chat(ctx context.Context, msgs []models.ChatMessage) (string, error) {
	g.mu.Lock()
	call := len(g.calls)
	g.calls = append(g.calls, msgs)
	g.mu.Unlock()
	return g.respond(call, msgs)
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// sequence answers call i with replies[i].
func sequence(replies ...string) func(int, []models.ChatMessage) (string, error) {
	return func(call int, _ []models.ChatMessage) (string, error) {
		if call >= len(replies) {
			return "", fmt.Errorf("unexpected call %d", call)
		}
		return replies[call], nil
	}
}

type completion struct {
	notes string
	quiz  []models.Question
}

type memAssignmentStore struct {
	mu          sync.Mutex
	completed   map[uuid.UUID]completion
	failed      map[uuid.UUID]string
	completeErr error
}

func newMemAssignmentStore() *memAssignmentStore {
	return &memAssignmentStore{completed: map[uuid.UUID]completion{}, failed: map[uuid.UUID]string{}}
}

func (s *memAssignmentStore) CompleteGeneration(ctx context.Context, id uuid.UUID, notes string, quiz []models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return s.completeErr
	}
	s.completed[id] = completion{notes: notes, quiz: quiz}
	return nil
}

func (s *memAssignmentStore) FailGeneration(ctx context.Context, id uuid.UUID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = errMsg
	return nil
}

func quizJSON(n int, prefix string) string {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{
			Prompt:       fmt.Sprintf("%s question %d?", prefix, i+1),
			Options:      []string{"A", "B", "C", "D"},
			CorrectIndex: i % 4,
		}
	}
	b, _ := json.Marshal(qs)
	return string(b)
}

func testJob(paths ...string) models.GenerationJob {
	return models.GenerationJob{
		AssignmentID: uuid.New(),
		SourcePaths:  paths,
		Subject:      "Operating System",
		Chapter:      "Memory Management",
		Topic:        "Paging - Set A",
		Variation:    "Set A (Conceptual & Theory)",
	}
}

func newTestPipeline(gen Generator, store AssignmentStore) *ContentPipeline {
	return NewContentPipeline(NewTextExtractor(), gen, store, PipelineConfig{ContextBudget: 12000, QuizSize: 10})
}

func TestPipeline_HappyPath(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "paging.txt", []byte("Paging divides memory into fixed-size frames."))

	gen := &scriptedGenerator{respond: sequence("<h3>Paging</h3>", "```json\n"+quizJSON(10, "P")+"\n```")}
	store := newMemAssignmentStore()
	job := testJob(src)

	require.NoError(t, newTestPipeline(gen, store).Run(context.Background(), job))

	got, ok := store.completed[job.AssignmentID]
	require.True(t, ok)
	assert.Equal(t, "<h3>Paging</h3>", got.notes)
	assert.Len(t, got.quiz, 10)
	assert.Empty(t, store.failed)
	assert.Equal(t, 2, gen.callCount())

	// notes first, then quiz; both carry the source text
	assert.Contains(t, gen.calls[0][0].Content, "HTML study notes")
	assert.Contains(t, gen.calls[1][0].Content, "Generate exactly 10")
	assert.Contains(t, gen.calls[1][0].Content, "Set A (Conceptual & Theory)")
	for _, call := range gen.calls {
		assert.Contains(t, call[0].Content, "fixed-size frames")
	}
}

func TestPipeline_TruncatesSourceText(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "long.txt", []byte(strings.Repeat("é", 13000)))

	gen := &scriptedGenerator{respond: sequence("notes", quizJSON(10, "T"))}
	store := newMemAssignmentStore()

	require.NoError(t, newTestPipeline(gen, store).Run(context.Background(), testJob(src)))

	for _, call := range gen.calls {
		assert.Equal(t, 12000, strings.Count(call[0].Content, "é"))
	}
}

func TestPipeline_TutorModeWithoutSourceText(t *testing.T) {
	dir := t.TempDir()
	blank := writeFile(t, dir, "blank.txt", []byte(" \n\t "))

	for name, paths := range map[string][]string{"no files": nil, "blank file": {blank}} {
		t.Run(name, func(t *testing.T) {
			gen := &scriptedGenerator{respond: sequence("notes", quizJSON(10, "S"))}
			store := newMemAssignmentStore()

			require.NoError(t, newTestPipeline(gen, store).Run(context.Background(), testJob(paths...)))

			notesPrompt := gen.calls[0][0].Content
			assert.Contains(t, notesPrompt, "No source document provided. You are the AI Tutor.")
			assert.Contains(t, notesPrompt, "Operating System > Memory Management > Paging - Set A")
			assert.Len(t, store.completed, 1)
		})
	}
}

func TestPipeline_TopUpFillsShortfallOnce(t *testing.T) {
	gen := &scriptedGenerator{respond: sequence("notes", quizJSON(7, "First"), quizJSON(5, "Extra"))}
	store := newMemAssignmentStore()
	job := testJob()

	require.NoError(t, newTestPipeline(gen, store).Run(context.Background(), job))

	got := store.completed[job.AssignmentID]
	require.Len(t, got.quiz, 10)
	assert.Equal(t, "First question 1?", got.quiz[0].Prompt)
	assert.Equal(t, "Extra question 3?", got.quiz[9].Prompt)

	require.Equal(t, 3, gen.callCount())
	topUp := gen.calls[2]
	require.Len(t, topUp, 2)
	assert.True(t, strings.HasPrefix(topUp[0].Content, "Text: No source document provided."))
	assert.Contains(t, topUp[1].Content, "Generate 3 more Basic Level MCQs")
}

func TestPipeline_TopUpFailureKeepsWhatItHas(t *testing.T) {
	gen := &scriptedGenerator{respond: func(call int, _ []models.ChatMessage) (string, error) {
		switch call {
		case 0:
			return "notes", nil
		case 1:
			return quizJSON(4, "Q"), nil
		default:
			return "", errors.New("quota exceeded")
		}
	}}
	store := newMemAssignmentStore()
	job := testJob()

	require.NoError(t, newTestPipeline(gen, store).Run(context.Background(), job))

	assert.Len(t, store.completed[job.AssignmentID].quiz, 4)
	assert.Equal(t, 3, gen.callCount())
}

func TestPipeline_CapsQuizSize(t *testing.T) {
	gen := &scriptedGenerator{respond: sequence("notes", quizJSON(13, "Q"))}
	store := newMemAssignmentStore()
	job := testJob()

	require.NoError(t, newTestPipeline(gen, store).Run(context.Background(), job))

	assert.Len(t, store.completed[job.AssignmentID].quiz, 10)
	assert.Equal(t, 2, gen.callCount())
}

func TestPipeline_FailuresMarkError(t *testing.T) {
	tests := []struct {
		name    string
		respond func(int, []models.ChatMessage) (string, error)
		calls   int
	}{
		{
			name: "notes call fails",
			respond: func(int, []models.ChatMessage) (string, error) {
				return "", errors.New("service unavailable")
			},
			calls: 1,
		},
		{
			name: "quiz call fails",
			respond: func(call int, _ []models.ChatMessage) (string, error) {
				if call == 0 {
					return "notes", nil
				}
				return "", errors.New("deadline exceeded")
			},
			calls: 2,
		},
		{
			name:    "no usable questions",
			respond: sequence("notes", "I cannot help with that", "[]"),
			calls:   3,
		},
		{
			name: "generator panics",
			respond: func(int, []models.ChatMessage) (string, error) {
				panic("boom")
			},
			calls: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &scriptedGenerator{respond: tc.respond}
			store := newMemAssignmentStore()
			job := testJob()

			err := newTestPipeline(gen, store).Run(context.Background(), job)

			require.Error(t, err)
			assert.Empty(t, store.completed)
			assert.NotEmpty(t, store.failed[job.AssignmentID])
			assert.Equal(t, tc.calls, gen.callCount())
		})
	}
}

func TestPipeline_PersistFailureMarksError(t *testing.T) {
	gen := &scriptedGenerator{respond: sequence("notes", quizJSON(10, "Q"))}
	store := newMemAssignmentStore()
	store.completeErr = errors.New("connection reset")
	job := testJob()

	err := newTestPipeline(gen, store).Run(context.Background(), job)

	require.Error(t, err)
	assert.Contains(t, store.failed[job.AssignmentID], "connection reset")
}

func TestPipeline_AlreadyFinishedAssignmentIsLeftAlone(t *testing.T) {
	gen := &scriptedGenerator{respond: sequence("notes", quizJSON(10, "Q"))}
	store := newMemAssignmentStore()
	store.completeErr = repository.ErrNotPending

	err := newTestPipeline(gen, store).Run(context.Background(), testJob())

	assert.ErrorIs(t, err, repository.ErrNotPending)
}

func TestPipeline_VariantsRunIndependently(t *testing.T) {
	gen := &scriptedGenerator{respond: func(_ int, msgs []models.ChatMessage) (string, error) {
		prompt := msgs[0].Content
		label := "A"
		if strings.Contains(prompt, "Set B") {
			label = "B"
		}
		if strings.Contains(prompt, "Generate exactly") {
			return quizJSON(10, "Set "+label), nil
		}
		return "notes " + label, nil
	}}
	store := newMemAssignmentStore()
	p := newTestPipeline(gen, store)

	jobs := make([]models.GenerationJob, len(DefaultVariants))
	for i, v := range DefaultVariants {
		jobs[i] = testJob()
		jobs[i].Topic = "Paging - " + v.Label
		jobs[i].Variation = v.Style
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job models.GenerationJob) {
			defer wg.Done()
			assert.NoError(t, p.Run(context.Background(), job))
		}(job)
	}
	wg.Wait()

	require.Len(t, store.completed, 2)
	assert.Equal(t, "notes A", store.completed[jobs[0].AssignmentID].notes)
	assert.Equal(t, "notes B", store.completed[jobs[1].AssignmentID].notes)
	assert.Equal(t, "Set A question 1?", store.completed[jobs[0].AssignmentID].quiz[0].Prompt)
	assert.Equal(t, "Set B question 1?", store.completed[jobs[1].AssignmentID].quiz[0].Prompt)
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"abc", 0, ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, truncateRunes(tc.in, tc.n))
	}
}
