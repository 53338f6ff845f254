package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"examportal-backend/internal/middleware"
	"examportal-backend/internal/models"
)

type examService interface {
	Enter(ctx context.Context, studentID, assignmentID uuid.UUID) (*models.ExamSession, error)
	Submit(ctx context.Context, studentID uuid.UUID, report models.ExamReport) (*models.Result, error)
	StudentDashboard(ctx context.Context, studentID uuid.UUID) (*models.StudentDashboard, error)
}

type ExamHandler struct {
	exams examService
}

func NewExamHandler(exams examService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

func (h *ExamHandler) Enter(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid assignment ID", r))
		return
	}

	session, err := h.exams.Enter(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *ExamHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var report models.ExamReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	result, err := h.exams.Submit(r.Context(), middleware.GetUserID(r.Context()), report)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
