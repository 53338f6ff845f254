package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"examportal-backend/internal/models"
	"examportal-backend/internal/services"
)

type stubAuthService struct {
	lastRegister models.RegisterRequest
	lastLogin    models.LoginRequest
	err          error
}

func (s *stubAuthService) tokens(role string) (*models.AuthTokens, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.AuthTokens{AccessToken: "tok", Role: role, UserID: uuid.New()}, nil
}

func (s *stubAuthService) RegisterTeacher(ctx context.Context, req models.RegisterRequest) (*models.AuthTokens, error) {
	s.lastRegister = req
	return s.tokens(models.RoleTeacher)
}

func (s *stubAuthService) RegisterStudent(ctx context.Context, req models.RegisterRequest) (*models.AuthTokens, error) {
	s.lastRegister = req
	return s.tokens(models.RoleStudent)
}

func (s *stubAuthService) LoginTeacher(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	s.lastLogin = req
	return s.tokens(models.RoleTeacher)
}

func (s *stubAuthService) LoginStudent(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	s.lastLogin = req
	return s.tokens(models.RoleStudent)
}

func TestAuthHandler_RegisterStudent(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc)

	body, _ := json.Marshal(map[string]string{"name": "Ravi", "roll_no": "CS01", "password": "pass1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/student/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.RegisterStudent(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if svc.lastRegister.RollNo != "CS01" {
		t.Fatalf("roll number not passed through: %+v", svc.lastRegister)
	}

	var tokens models.AuthTokens
	if err := json.NewDecoder(rr.Body).Decode(&tokens); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if tokens.Role != models.RoleStudent {
		t.Fatalf("expected student role, got %q", tokens.Role)
	}
}

func TestAuthHandler_LoginTeacher_BadBody(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/teacher/login", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	h.LoginTeacher(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestHandleServiceError_Mapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&services.ValidationError{Fields: map[string]string{"name": "required"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{&services.ConflictError{Message: "dup"}, http.StatusConflict, "CONFLICT"},
		{&services.NotFoundError{Message: "gone"}, http.StatusNotFound, "NOT_FOUND"},
		{&services.UnauthorizedError{Message: "no"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{&services.ForbiddenError{Message: "no"}, http.StatusForbidden, "FORBIDDEN"},
		{&services.RateLimitError{Message: "slow"}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{&services.NotReadyError{Message: "wait"}, http.StatusConflict, "NOT_READY"},
		{fmt.Errorf("wrapped: %w", &services.NotFoundError{Message: "gone"}), http.StatusNotFound, "NOT_FOUND"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-1")
		rr := httptest.NewRecorder()

		handleServiceError(rr, req, tc.err)

		if rr.Code != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, rr.Code)
		}
		apiErr := decodeError(t, rr)
		if apiErr.Code != tc.code || apiErr.RequestID != "req-1" {
			t.Fatalf("%v: unexpected error body %+v", tc.err, apiErr)
		}
	}
}
