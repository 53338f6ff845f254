package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"examportal-backend/internal/handlers"
	"examportal-backend/internal/middleware"
	"examportal-backend/internal/models"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	assignmentHandler *handlers.AssignmentHandler,
	examHandler *handlers.ExamHandler,
	dashboardHandler *handlers.DashboardHandler,
	chatHandler *handlers.ChatHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	teacherOnly := middleware.RequireRole(models.RoleTeacher)
	studentOnly := middleware.RequireRole(models.RoleStudent)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/teacher/register", authHandler.RegisterTeacher)
			r.Post("/teacher/login", authHandler.LoginTeacher)
			r.Post("/student/register", authHandler.RegisterStudent)
			r.Post("/student/login", authHandler.LoginStudent)
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Get("/syllabus", dashboardHandler.Syllabus)

			// ──── Assignment Routes ────
			r.Route("/assignments", func(r chi.Router) {
				r.Get("/{id}/status", assignmentHandler.Status)

				r.Group(func(r chi.Router) {
					r.Use(teacherOnly)
					r.Post("/", assignmentHandler.Create)
					r.Get("/", assignmentHandler.List)
					r.Get("/{id}", assignmentHandler.Get)
					r.Delete("/{id}", assignmentHandler.Delete)
					r.Get("/{id}/results", assignmentHandler.Results)
				})
			})

			// ──── Student Routes ────
			r.Group(func(r chi.Router) {
				r.Use(studentOnly)
				r.Get("/student/dashboard", dashboardHandler.Student)
				r.Post("/exams/{id}/enter", examHandler.Enter)
				r.Post("/exams/submit", examHandler.Submit)
				r.Post("/chat", chatHandler.Ask)
			})
		})
	})

	return r
}
