package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"examportal-backend/internal/models"
	"examportal-backend/internal/services"
)

type authService interface {
	RegisterTeacher(ctx context.Context, req models.RegisterRequest) (*models.AuthTokens, error)
	RegisterStudent(ctx context.Context, req models.RegisterRequest) (*models.AuthTokens, error)
	LoginTeacher(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error)
	LoginStudent(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error)
}

type AuthHandler struct {
	authService authService
}

func NewAuthHandler(authService authService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterTeacher(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.authService.RegisterTeacher)
}

func (h *AuthHandler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.authService.RegisterStudent)
}

func (h *AuthHandler) LoginTeacher(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.authService.LoginTeacher)
}

func (h *AuthHandler) LoginStudent(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.authService.LoginStudent)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, fn func(context.Context, models.RegisterRequest) (*models.AuthTokens, error)) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	tokens, err := fn(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, tokens)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, fn func(context.Context, models.LoginRequest) (*models.AuthTokens, error)) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	tokens, err := fn(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr   *services.ValidationError
		conflictErr     *services.ConflictError
		notFoundErr     *services.NotFoundError
		unauthorizedErr *services.UnauthorizedError
		forbiddenErr    *services.ForbiddenError
		rateLimitErr    *services.RateLimitError
		notReadyErr     *services.NotReadyError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationErr.Fields, r))
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", conflictErr.Message, r))
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFoundErr.Message, r))
	case errors.As(err, &unauthorizedErr):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthorizedErr.Message, r))
	case errors.As(err, &forbiddenErr):
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", forbiddenErr.Message, r))
	case errors.As(err, &rateLimitErr):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", rateLimitErr.Message, r))
	case errors.As(err, &notReadyErr):
		writeJSON(w, http.StatusConflict, errorResp("NOT_READY", notReadyErr.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
