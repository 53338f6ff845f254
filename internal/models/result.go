package models

import (
	"time"

	"github.com/google/uuid"
)

type ResultStatus string

const (
	ResultCompleted  ResultStatus = "COMPLETED"
	ResultTerminated ResultStatus = "TERMINATED"
)

type Result struct {
	ID           uuid.UUID    `json:"id"`
	StudentID    uuid.UUID    `json:"student_id"`
	AssignmentID uuid.UUID    `json:"assignment_id"`
	Score        float64      `json:"score"`
	RawScore     int          `json:"raw_score"`
	Total        int          `json:"total"`
	Status       ResultStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ResultWithStudent is a result row joined with the student who produced it.
type ResultWithStudent struct {
	Result
	StudentName string `json:"name"`
	RollNo      string `json:"roll_no"`
}

// ExamReport is what the exam client submits when the attempt ends.
// Status is COMPLETED (the default when empty) or any malpractice marker
// (e.g. "TERMINATED", "CHEATING"). When Answers is present it holds the
// chosen option per question, -1 for unanswered, and RawScore/Total are
// ignored in favour of grading against the stored quiz.
type ExamReport struct {
	AssignmentID uuid.UUID `json:"assign_id" validate:"required"`
	Status       string    `json:"status"`
	RawScore     int       `json:"raw_score" validate:"min=0"`
	Total        int       `json:"total" validate:"min=0"`
	Answers      []int     `json:"answers,omitempty" validate:"omitempty,dive,min=-1,max=3"`
}

type ExamSession struct {
	AssignmentID uuid.UUID         `json:"assignment_id"`
	Subject      string            `json:"subject"`
	Topic        string            `json:"topic"`
	Questions    []StudentQuestion `json:"questions"`
	Total        int               `json:"total"`
}

// Dashboard entry states as seen by a student.
const (
	DashboardOpen = "OPEN"
	DashboardWait = "WAIT"
	DashboardDone = "DONE"
)

type StudentAssignmentView struct {
	ID        uuid.UUID `json:"id"`
	Subject   string    `json:"subject"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"created_at"`
	State     string    `json:"status"`
	Score     float64   `json:"score"`
}

type StudentDashboard struct {
	Assignments []StudentAssignmentView `json:"assignments"`
	CGPA        float64                 `json:"cgpa"`
}
