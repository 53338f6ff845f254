package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"examportal-backend/internal/config"
	"examportal-backend/internal/middleware"
	"examportal-backend/internal/models"
	"examportal-backend/internal/services"
)

const maxUploadBytes = 100 * 1024 * 1024

var allowedSourceExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

type assignmentRepository interface {
	Create(ctx context.Context, a *models.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*models.Assignment, error)
	FailGeneration(ctx context.Context, id uuid.UUID, errMsg string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type generationQueue interface {
	Enqueue(ctx context.Context, teacherID uuid.UUID, payload models.GenerationJob) (*models.Job, error)
}

type resultLister interface {
	AssignmentResults(ctx context.Context, teacherID, assignmentID uuid.UUID) ([]*models.ResultWithStudent, error)
}

type AssignmentHandler struct {
	assignmentRepo assignmentRepository
	queue          generationQueue
	results        resultLister
	syllabus       config.Syllabus
	storagePath    string
	validate       *validator.Validate
}

func NewAssignmentHandler(assignmentRepo assignmentRepository, queue generationQueue, results resultLister, syllabus config.Syllabus, storagePath string) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentRepo: assignmentRepo,
		queue:          queue,
		results:        results,
		syllabus:       syllabus,
		storagePath:    storagePath,
		validate:       validator.New(),
	}
}

// Create stores the uploaded sources and starts one generation job per
// variant. Uploading no files is allowed; the pipeline then works from the
// syllabus alone.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}

	req := models.CreateAssignmentRequest{
		Subject: strings.TrimSpace(r.FormValue("subject")),
		Chapter: strings.TrimSpace(r.FormValue("chapter")),
		Topic:   strings.TrimSpace(r.FormValue("topic")),
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors(err), r))
		return
	}
	if !h.syllabus.Has(req.Subject, req.Chapter) {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"chapter": "Unknown subject or chapter"}, r))
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	for _, fh := range headers {
		if !allowedSourceExtensions[strings.ToLower(filepath.Ext(fh.Filename))] {
			writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "File type not supported: "+fh.Filename, r))
			return
		}
	}

	teacherID := middleware.GetUserID(r.Context())

	paths, err := h.saveUploads(teacherID, headers)
	if err != nil {
		log.Printf("Failed to store uploads for teacher %s: %v", teacherID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store uploaded files", r))
		return
	}

	created := make([]models.AssignmentStatusResponse, 0, len(services.DefaultVariants))
	for _, v := range services.DefaultVariants {
		a := &models.Assignment{
			TeacherID:   teacherID,
			Subject:     req.Subject,
			Chapter:     req.Chapter,
			Topic:       req.Topic + " - " + v.Label,
			Variation:   v.Style,
			SourcePaths: paths,
		}
		if err := h.assignmentRepo.Create(r.Context(), a); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create assignment", r))
			return
		}

		_, err := h.queue.Enqueue(r.Context(), teacherID, models.GenerationJob{
			AssignmentID: a.ID,
			SourcePaths:  paths,
			Subject:      a.Subject,
			Chapter:      a.Chapter,
			Topic:        a.Topic,
			Variation:    a.Variation,
		})
		if err != nil {
			log.Printf("Failed to enqueue generation for assignment %s: %v", a.ID, err)
			if ferr := h.assignmentRepo.FailGeneration(r.Context(), a.ID, "failed to schedule generation"); ferr != nil {
				log.Printf("Failed to mark assignment %s as failed: %v", a.ID, ferr)
			} else {
				a.Status = models.AssignmentError
			}
		}

		created = append(created, models.AssignmentStatusResponse{ID: a.ID, Topic: a.Topic, Status: a.Status})
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"assignments": created,
	})
}

func (h *AssignmentHandler) saveUploads(teacherID uuid.UUID, headers []*multipart.FileHeader) ([]string, error) {
	paths := []string{}
	if len(headers) == 0 {
		return paths, nil
	}

	dir := filepath.Join(h.storagePath, "uploads", teacherID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	for _, fh := range headers {
		dst := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
		if err := saveUpload(fh, dst); err != nil {
			return nil, err
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	teacherID := middleware.GetUserID(r.Context())

	assignments, err := h.assignmentRepo.ListByTeacher(r.Context(), teacherID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list assignments", r))
		return
	}
	if assignments == nil {
		assignments = []*models.Assignment{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": assignments,
	})
}

func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Status is polled by both roles while generation runs.
func (h *AssignmentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid assignment ID", r))
		return
	}

	a, err := h.assignmentRepo.GetByID(r.Context(), id)
	if err != nil {
		writeAssignmentLookupError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.AssignmentStatusResponse{ID: a.ID, Topic: a.Topic, Status: a.Status})
}

func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	if err := h.assignmentRepo.Delete(r.Context(), a.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete assignment", r))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AssignmentHandler) Results(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid assignment ID", r))
		return
	}

	results, err := h.results.AssignmentResults(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

func (h *AssignmentHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Assignment, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid assignment ID", r))
		return nil, false
	}

	a, err := h.assignmentRepo.GetByID(r.Context(), id)
	if err != nil {
		writeAssignmentLookupError(w, r, err)
		return nil, false
	}

	if a.TeacherID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}
	return a, true
}

func writeAssignmentLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Assignment not found", r))
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load assignment", r))
}

func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			fields[strings.ToLower(fe.Field())] = fe.Field() + " is required"
		}
	}
	return fields
}
