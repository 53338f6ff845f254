package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"examportal-backend/internal/models"
	"examportal-backend/internal/repository"
)

const (
	msgAlreadyAttempted = "Exam already attempted or terminated due to malpractice."
	msgAssignmentGone   = "Assignment not found."
	msgStillProcessing  = "Assignment is still being processed. Please wait."
	msgGenerationFailed = "Assignment generation failed. Please contact teacher."
	msgQuizUnavailable  = "Quiz data is not available. Please contact teacher."
)

type AssignmentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	ListAll(ctx context.Context) ([]*models.Assignment, error)
}

type ResultStore interface {
	Create(ctx context.Context, res *models.Result) error
	Exists(ctx context.Context, studentID, assignmentID uuid.UUID) (bool, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Result, error)
	ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]*models.ResultWithStudent, error)
}

type ExamService struct {
	assignments AssignmentReader
	results     ResultStore
	validate    *validator.Validate
}

func NewExamService(assignments AssignmentReader, results ResultStore) *ExamService {
	return &ExamService{
		assignments: assignments,
		results:     results,
		validate:    validator.New(),
	}
}

// Enter admits a student to an assignment's quiz. Checks run in a fixed
// order so a student with a result never learns anything else about it.
func (s *ExamService) Enter(ctx context.Context, studentID, assignmentID uuid.UUID) (*models.ExamSession, error) {
	attempted, err := s.results.Exists(ctx, studentID, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check prior attempt: %w", err)
	}
	if attempted {
		return nil, &ConflictError{Message: msgAlreadyAttempted}
	}

	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: msgAssignmentGone}
		}
		return nil, err
	}

	switch a.Status {
	case models.AssignmentReady:
	case models.AssignmentError:
		return nil, &NotReadyError{Message: msgGenerationFailed}
	default:
		return nil, &NotReadyError{Message: msgStillProcessing}
	}

	if len(a.Quiz) == 0 {
		return nil, &NotReadyError{Message: msgQuizUnavailable}
	}

	questions := make([]models.StudentQuestion, len(a.Quiz))
	for i, q := range a.Quiz {
		questions[i] = models.StudentQuestion{Prompt: q.Prompt, Options: q.Options}
	}

	return &models.ExamSession{
		AssignmentID: a.ID,
		Subject:      a.Subject,
		Topic:        a.Topic,
		Questions:    questions,
		Total:        len(questions),
	}, nil
}

// Submit records the single result of an attempt. Reports carrying answers
// are graded against the stored quiz; otherwise the client's raw score is
// taken as reported.
func (s *ExamService) Submit(ctx context.Context, studentID uuid.UUID, report models.ExamReport) (*models.Result, error) {
	if err := s.validate.Struct(report); err != nil {
		return nil, reportValidationError(err)
	}

	a, err := s.assignments.GetByID(ctx, report.AssignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: msgAssignmentGone}
		}
		return nil, err
	}

	switch a.Status {
	case models.AssignmentReady:
	case models.AssignmentError:
		return nil, &NotReadyError{Message: msgGenerationFailed}
	default:
		return nil, &NotReadyError{Message: msgStillProcessing}
	}

	raw, total := report.RawScore, report.Total
	if report.Answers != nil {
		if len(report.Answers) > len(a.Quiz) {
			return nil, &ValidationError{Fields: map[string]string{"answers": "More answers than questions"}}
		}
		raw, total = gradeAnswers(a.Quiz, report.Answers), len(a.Quiz)
	}
	if total == 0 {
		total = len(a.Quiz)
	}
	if raw > total {
		return nil, &ValidationError{Fields: map[string]string{"raw_score": "Raw score cannot exceed total"}}
	}

	reported := normalizeStatus(report.Status)
	status := models.ResultTerminated
	if reported == string(models.ResultCompleted) {
		status = models.ResultCompleted
	}

	res := &models.Result{
		StudentID:    studentID,
		AssignmentID: a.ID,
		Score:        ComputeScore(reported, raw, total),
		RawScore:     raw,
		Total:        total,
		Status:       status,
	}

	if err := s.results.Create(ctx, res); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: msgAlreadyAttempted}
		}
		return nil, fmt.Errorf("failed to store result: %w", err)
	}

	return res, nil
}

// ComputeScore scales a completed attempt to 0-10, rounded to two decimals.
// An empty status counts as COMPLETED; any other status scores zero.
func ComputeScore(status string, raw, total int) float64 {
	if normalizeStatus(status) != string(models.ResultCompleted) || total <= 0 {
		return 0
	}
	return round2(float64(raw) / float64(total) * 10)
}

func normalizeStatus(status string) string {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		return string(models.ResultCompleted)
	}
	return status
}

// gradeAnswers counts answers matching the quiz key. Missing trailing
// answers count as unanswered.
func gradeAnswers(quiz []models.Question, answers []int) int {
	correct := 0
	for i, choice := range answers {
		if choice == quiz[i].CorrectIndex {
			correct++
		}
	}
	return correct
}

func (s *ExamService) StudentDashboard(ctx context.Context, studentID uuid.UUID) (*models.StudentDashboard, error) {
	assignments, err := s.assignments.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	scores := make(map[uuid.UUID]float64, len(results))
	for _, r := range results {
		scores[r.AssignmentID] = r.Score
	}

	views := make([]models.StudentAssignmentView, 0, len(assignments))
	for _, a := range assignments {
		v := models.StudentAssignmentView{
			ID:        a.ID,
			Subject:   a.Subject,
			Topic:     a.Topic,
			CreatedAt: a.CreatedAt,
		}
		if score, done := scores[a.ID]; done {
			v.State = models.DashboardDone
			v.Score = score
		} else if a.Status == models.AssignmentReady {
			v.State = models.DashboardOpen
		} else {
			v.State = models.DashboardWait
		}
		views = append(views, v)
	}

	return &models.StudentDashboard{
		Assignments: views,
		CGPA:        cgpa(results),
	}, nil
}

// AssignmentResults lists every attempt on an assignment owned by teacherID,
// best score first.
func (s *ExamService) AssignmentResults(ctx context.Context, teacherID, assignmentID uuid.UUID) ([]*models.ResultWithStudent, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: msgAssignmentGone}
		}
		return nil, err
	}
	if a.TeacherID != teacherID {
		return nil, &ForbiddenError{Message: "You do not own this assignment"}
	}

	results, err := s.results.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	if results == nil {
		results = []*models.ResultWithStudent{}
	}
	return results, nil
}

func cgpa(results []*models.Result) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	return round2(sum / float64(len(results)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func reportValidationError(err error) error {
	fields := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fmt.Sprintf("failed %s validation", fe.Tag())
		}
	} else {
		fields["request"] = err.Error()
	}
	return &ValidationError{Fields: fields}
}
