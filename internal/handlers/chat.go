package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"examportal-backend/internal/models"
	"examportal-backend/internal/services"
)

type tutorService interface {
	Ask(ctx context.Context, question string, attachments []services.Attachment) (string, error)
}

type ChatHandler struct {
	tutor       tutorService
	storagePath string
}

func NewChatHandler(tutor tutorService, storagePath string) *ChatHandler {
	return &ChatHandler{tutor: tutor, storagePath: storagePath}
}

// Ask accepts either a JSON body {"message": "..."} or a multipart form with
// a message field and optional files.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var (
		message     string
		attachments []services.Attachment
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
		message = req.Message
	} else {
		if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
			return
		}
		message = r.FormValue("message")

		if r.MultipartForm != nil {
			var err error
			attachments, err = h.saveChatFiles(r.MultipartForm.File["files"])
			if err != nil {
				log.Printf("Failed to store chat attachments: %v", err)
				writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store attached files", r))
				return
			}
		}
	}

	reply, err := h.tutor.Ask(r.Context(), message, attachments)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			handleServiceError(w, r, err)
			return
		}
		log.Printf("Tutor request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("AI_ERROR", "Failed to get AI response", r))
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}

func (h *ChatHandler) saveChatFiles(headers []*multipart.FileHeader) ([]services.Attachment, error) {
	if len(headers) == 0 {
		return nil, nil
	}

	dir := filepath.Join(h.storagePath, "chat_files")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	attachments := make([]services.Attachment, 0, len(headers))
	for _, fh := range headers {
		if fh.Filename == "" {
			continue
		}
		dst := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
		if err := saveUpload(fh, dst); err != nil {
			return nil, err
		}
		attachments = append(attachments, services.Attachment{Name: fh.Filename, Path: dst})
	}
	return attachments, nil
}
