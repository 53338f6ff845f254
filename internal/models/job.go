package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const JobTypeAssignmentGeneration = "assignment-generation"

type Job struct {
	ID           uuid.UUID       `json:"id"`
	TeacherID    uuid.UUID       `json:"teacher_id"`
	Type         string          `json:"type"`
	AssignmentID uuid.UUID       `json:"assignment_id"`
	PayloadJSON  json.RawMessage `json:"payload"`
	Status       string          `json:"status"` // "pending" | "processing" | "completed" | "failed"
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// GenerationJob is the payload of an assignment-generation job.
type GenerationJob struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	SourcePaths  []string  `json:"source_paths"`
	Subject      string    `json:"subject"`
	Chapter      string    `json:"chapter"`
	Topic        string    `json:"topic"`
	Variation    string    `json:"variation"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
