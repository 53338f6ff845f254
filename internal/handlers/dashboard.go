package handlers

import (
	"net/http"

	"examportal-backend/internal/config"
	"examportal-backend/internal/middleware"
)

type DashboardHandler struct {
	exams    examService
	syllabus config.Syllabus
}

func NewDashboardHandler(exams examService, syllabus config.Syllabus) *DashboardHandler {
	return &DashboardHandler{exams: exams, syllabus: syllabus}
}

// Student lists every assignment with its OPEN/WAIT/DONE state and the
// student's CGPA.
func (h *DashboardHandler) Student(w http.ResponseWriter, r *http.Request) {
	dash, err := h.exams.StudentDashboard(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *DashboardHandler) Syllabus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"syllabus": h.syllabus,
	})
}
