package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"examportal-backend/internal/middleware"
	"examportal-backend/internal/models"
	"examportal-backend/internal/repository"
)

const (
	maxLoginFailures = 5
	loginLockout     = 15 * time.Minute
)

type UserStore interface {
	CreateTeacher(ctx context.Context, t *models.Teacher) error
	GetTeacherByName(ctx context.Context, name string) (*models.Teacher, error)
	CreateStudent(ctx context.Context, s *models.Student) error
	GetStudentByRollNo(ctx context.Context, rollNo string) (*models.Student, error)
}

type AuthService struct {
	users    UserStore
	redis    *redis.Client
	jwt      *middleware.JWTAuth
	validate *validator.Validate
}

func NewAuthService(users UserStore, redisClient *redis.Client, jwt *middleware.JWTAuth) *AuthService {
	return &AuthService{
		users:    users,
		redis:    redisClient,
		jwt:      jwt,
		validate: validator.New(),
	}
}

func (s *AuthService) RegisterTeacher(ctx context.Context, req models.RegisterRequest) (*models.AuthTokens, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validateRegister(req, false); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	t := &models.Teacher{Name: req.Name, PasswordHash: hash, ProfilePic: req.ProfilePic}
	if err := s.users.CreateTeacher(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: "Teacher name already taken"}
		}
		return nil, err
	}

	return s.issueTokens(t.ID, models.RoleTeacher, t.Name)
}

func (s *AuthService) RegisterStudent(ctx context.Context, req models.RegisterRequest) (*models.AuthTokens, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.RollNo = strings.TrimSpace(req.RollNo)
	if err := s.validateRegister(req, true); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	st := &models.Student{Name: req.Name, RollNo: req.RollNo, PasswordHash: hash, ProfilePic: req.ProfilePic}
	if err := s.users.CreateStudent(ctx, st); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: "Roll number already registered"}
		}
		return nil, err
	}

	return s.issueTokens(st.ID, models.RoleStudent, st.Name)
}

func (s *AuthService) LoginTeacher(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Password == "" {
		return nil, &ValidationError{Fields: map[string]string{"credentials": "Name and password are required"}}
	}

	key := loginFailureKey(models.RoleTeacher, name)
	if err := s.checkLockout(ctx, key); err != nil {
		return nil, err
	}

	t, err := s.users.GetTeacherByName(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.recordFailure(ctx, key)
			return nil, &UnauthorizedError{Message: "Invalid credentials"}
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(req.Password)) != nil {
		s.recordFailure(ctx, key)
		return nil, &UnauthorizedError{Message: "Invalid credentials"}
	}

	s.redis.Del(ctx, key)
	return s.issueTokens(t.ID, models.RoleTeacher, t.Name)
}

func (s *AuthService) LoginStudent(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	rollNo := strings.TrimSpace(req.RollNo)
	if rollNo == "" || req.Password == "" {
		return nil, &ValidationError{Fields: map[string]string{"credentials": "Roll number and password are required"}}
	}

	key := loginFailureKey(models.RoleStudent, rollNo)
	if err := s.checkLockout(ctx, key); err != nil {
		return nil, err
	}

	st, err := s.users.GetStudentByRollNo(ctx, rollNo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.recordFailure(ctx, key)
			return nil, &UnauthorizedError{Message: "Invalid credentials"}
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(req.Password)) != nil {
		s.recordFailure(ctx, key)
		return nil, &UnauthorizedError{Message: "Invalid credentials"}
	}

	s.redis.Del(ctx, key)
	return s.issueTokens(st.ID, models.RoleStudent, st.Name)
}

func (s *AuthService) validateRegister(req models.RegisterRequest, needRollNo bool) error {
	fieldErrors := make(map[string]string)

	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			switch fe.Field() {
			case "Name":
				fieldErrors["name"] = "Name is required"
			case "Password":
				fieldErrors["password"] = "Password must be at least 4 characters"
			default:
				fieldErrors[strings.ToLower(fe.Field())] = fmt.Sprintf("failed %s validation", fe.Tag())
			}
		}
	}
	if needRollNo && req.RollNo == "" {
		fieldErrors["roll_no"] = "Roll number is required"
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

// checkLockout refuses logins for an identity with too many recent failures.
// Redis being unavailable never blocks a login.
func (s *AuthService) checkLockout(ctx context.Context, key string) error {
	n, err := s.redis.Get(ctx, key).Int()
	if err != nil {
		return nil
	}
	if n >= maxLoginFailures {
		return &RateLimitError{Message: "Too many failed attempts. Please try again later."}
	}
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	pipe := s.redis.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, loginLockout)
	pipe.Exec(ctx)
}

func (s *AuthService) issueTokens(userID uuid.UUID, role, name string) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(userID, role, name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken: accessToken,
		ExpiresIn:   int(middleware.AccessTokenTTL.Seconds()),
		Role:        role,
		UserID:      userID,
		Name:        name,
	}, nil
}

func loginFailureKey(role, identity string) string {
	return fmt.Sprintf("login_fail:%s:%s", role, strings.ToLower(identity))
}

func hashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
