package models

import (
	"time"

	"github.com/google/uuid"
)

type AssignmentStatus string

const (
	AssignmentPending AssignmentStatus = "PENDING"
	AssignmentReady   AssignmentStatus = "READY"
	AssignmentError   AssignmentStatus = "ERROR"
)

type Assignment struct {
	ID           uuid.UUID        `json:"id"`
	TeacherID    uuid.UUID        `json:"teacher_id"`
	Subject      string           `json:"subject"`
	Chapter      string           `json:"chapter"`
	Topic        string           `json:"topic"`
	Variation    string           `json:"variation"`
	SourcePaths  []string         `json:"source_paths"`
	Notes        *string          `json:"notes"`
	Quiz         []Question       `json:"quiz"`
	Status       AssignmentStatus `json:"status"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Question is one multiple-choice item. JSON keys match what the model is
// asked to produce.
type Question struct {
	Prompt       string   `json:"q"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// StudentQuestion is a Question with the answer key removed.
type StudentQuestion struct {
	Prompt  string   `json:"q"`
	Options []string `json:"options"`
}

type CreateAssignmentRequest struct {
	Subject string `validate:"required"`
	Chapter string `validate:"required"`
	Topic   string `validate:"required"`
}

type AssignmentStatusResponse struct {
	ID     uuid.UUID        `json:"id"`
	Topic  string           `json:"topic"`
	Status AssignmentStatus `json:"status"`
}
