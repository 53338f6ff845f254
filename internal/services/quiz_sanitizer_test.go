package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoQuestions = `[
  {"q": "Which page replacement policy suffers from Belady's anomaly?", "options": ["FIFO", "LRU", "Optimal", "LFU"], "correct_index": 0},
  {"q": "A TLB caches", "options": ["page table entries", "disk blocks", "inodes", "sockets"], "correct_index": 0}
]`

func TestSanitizeQuiz_FencesAreIgnored(t *testing.T) {
	plain := SanitizeQuiz(twoQuestions)
	require.Len(t, plain, 2)

	for _, raw := range []string{
		"```json\n" + twoQuestions + "\n```",
		"```\n" + twoQuestions + "```",
		"  \n" + twoQuestions + "\n\n",
	} {
		assert.Equal(t, plain, SanitizeQuiz(raw))
	}
}

func TestSanitizeQuiz_NonArrayYieldsEmpty(t *testing.T) {
	tests := []string{"", "not json", "{}", `{"q": "x"}`, "null", "```json\n```"}

	for _, raw := range tests {
		got := SanitizeQuiz(raw)
		assert.NotNil(t, got, "input %q", raw)
		assert.Empty(t, got, "input %q", raw)
	}
}

func TestSanitizeQuizReport_DropsInvalidElements(t *testing.T) {
	raw := `[
		{"q": "Valid?", "options": ["a", "b", "c", "d"], "correct_index": 2},
		{"q": "Three options", "options": ["a", "b", "c"], "correct_index": 0},
		{"q": "Index out of range", "options": ["a", "b", "c", "d"], "correct_index": 4},
		{"q": "   ", "options": ["a", "b", "c", "d"], "correct_index": 0},
		{"q": "Blank option", "options": ["a", " ", "c", "d"], "correct_index": 0},
		{"options": ["a", "b", "c", "d"], "correct_index": 1},
		"just a string",
		{"q": 42, "options": ["a", "b", "c", "d"], "correct_index": 1},
		{"q": "No answer key", "options": ["a", "b", "c", "d"]},
		{"q": "Null answer key", "options": ["a", "b", "c", "d"], "correct_index": null}
	]`

	questions, rejected := SanitizeQuizReport(raw)

	require.Len(t, questions, 1)
	assert.Equal(t, "Valid?", questions[0].Prompt)
	assert.Equal(t, 2, questions[0].CorrectIndex)

	require.Len(t, rejected, 9)
	assert.Contains(t, rejected[7].Reason, "CorrectIndex")
	for i, r := range rejected {
		assert.Equal(t, i+1, r.Index)
		assert.NotEmpty(t, r.Reason)
	}
}

func TestSanitizeQuiz_TrimsPrompt(t *testing.T) {
	got := SanitizeQuiz(`[{"q": "  What is a semaphore?\n", "options": ["a", "b", "c", "d"], "correct_index": 1}]`)
	require.Len(t, got, 1)
	assert.Equal(t, "What is a semaphore?", got[0].Prompt)
}
