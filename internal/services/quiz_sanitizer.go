package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"examportal-backend/internal/models"
)

var (
	codeFencePattern = regexp.MustCompile("```[a-zA-Z]*\\s*|```")
	questionValidate = newQuestionValidator()
)

func newQuestionValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// QuizRejection records why one element of the model output was dropped.
type QuizRejection struct {
	Index  int
	Reason string
}

// SanitizeQuiz parses raw model output into well-formed questions. It never
// fails; malformed input yields an empty, non-nil slice.
func SanitizeQuiz(raw string) []models.Question {
	questions, _ := SanitizeQuizReport(raw)
	return questions
}

// SanitizeQuizReport is SanitizeQuiz plus the reason each dropped element
// was rejected. A whole-document failure is reported with Index -1.
func SanitizeQuizReport(raw string) ([]models.Question, []QuizRejection) {
	questions := []models.Question{}

	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return questions, []QuizRejection{{Index: -1, Reason: "empty response"}}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &elements); err != nil {
		return questions, []QuizRejection{{Index: -1, Reason: "not a JSON array: " + err.Error()}}
	}

	var rejected []QuizRejection
	for i, el := range elements {
		q, err := decodeQuestion(el)
		if err != nil {
			rejected = append(rejected, QuizRejection{Index: i, Reason: err.Error()})
			continue
		}
		questions = append(questions, q)
	}

	return questions, rejected
}

func stripCodeFences(raw string) string {
	return strings.TrimSpace(codeFencePattern.ReplaceAllString(raw, ""))
}

// rawQuestion mirrors models.Question with a pointer answer so an absent
// correct_index is rejected instead of decoding to option A.
type rawQuestion struct {
	Prompt       string   `json:"q" validate:"required,notblank"`
	Options      []string `json:"options" validate:"len=4,dive,required,notblank"`
	CorrectIndex *int     `json:"correct_index" validate:"required,min=0,max=3"`
}

func decodeQuestion(el json.RawMessage) (models.Question, error) {
	var rq rawQuestion
	if err := json.Unmarshal(el, &rq); err != nil {
		return models.Question{}, fmt.Errorf("malformed question: %w", err)
	}

	if err := questionValidate.Struct(rq); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return models.Question{}, fmt.Errorf("field %s failed %q", fe.Namespace(), fe.Tag())
		}
		return models.Question{}, err
	}

	return models.Question{
		Prompt:       strings.TrimSpace(rq.Prompt),
		Options:      rq.Options,
		CorrectIndex: *rq.CorrectIndex,
	}, nil
}
