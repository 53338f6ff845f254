package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examportal-backend/internal/middleware"
	"examportal-backend/internal/models"
	"examportal-backend/internal/repository"
)

type memUsers struct {
	teachers map[string]*models.Teacher
	students map[string]*models.Student
}

func newMemUsers() *memUsers {
	return &memUsers{teachers: map[string]*models.Teacher{}, students: map[string]*models.Student{}}
}

func (m *memUsers) CreateTeacher(ctx context.Context, t *models.Teacher) error {
	if _, ok := m.teachers[t.Name]; ok {
		return repository.ErrDuplicate
	}
	m.teachers[t.Name] = t
	return nil
}

func (m *memUsers) GetTeacherByName(ctx context.Context, name string) (*models.Teacher, error) {
	t, ok := m.teachers[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memUsers) CreateStudent(ctx context.Context, s *models.Student) error {
	if _, ok := m.students[s.RollNo]; ok {
		return repository.ErrDuplicate
	}
	m.students[s.RollNo] = s
	return nil
}

func (m *memUsers) GetStudentByRollNo(ctx context.Context, rollNo string) (*models.Student, error) {
	s, ok := m.students[rollNo]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func newTestAuth(t *testing.T) (*AuthService, *memUsers) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	users := newMemUsers()
	return NewAuthService(users, client, middleware.NewJWTAuth("test-secret")), users
}

func TestAuth_TeacherRegisterAndLogin(t *testing.T) {
	svc, users := newTestAuth(t)
	ctx := context.Background()

	tokens, err := svc.RegisterTeacher(ctx, models.RegisterRequest{Name: " Mrs. Rao ", Password: "chalk"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, tokens.Role)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEqual(t, "chalk", users.teachers["Mrs. Rao"].PasswordHash)

	_, err = svc.RegisterTeacher(ctx, models.RegisterRequest{Name: "Mrs. Rao", Password: "other"})
	assert.IsType(t, &ConflictError{}, err)

	tokens, err = svc.LoginTeacher(ctx, models.LoginRequest{Name: "Mrs. Rao", Password: "chalk"})
	require.NoError(t, err)
	assert.Equal(t, "Mrs. Rao", tokens.Name)

	_, err = svc.LoginTeacher(ctx, models.LoginRequest{Name: "Mrs. Rao", Password: "wrong"})
	assert.IsType(t, &UnauthorizedError{}, err)
}

func TestAuth_StudentNeedsRollNo(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, err := svc.RegisterStudent(context.Background(), models.RegisterRequest{Name: "Ravi", Password: "pass1"})
	require.IsType(t, &ValidationError{}, err)
	assert.Contains(t, err.(*ValidationError).Fields, "roll_no")

	_, err = svc.RegisterStudent(context.Background(), models.RegisterRequest{Name: "", RollNo: "CS01", Password: "abc"})
	require.IsType(t, &ValidationError{}, err)
	assert.Contains(t, err.(*ValidationError).Fields, "name")
	assert.Contains(t, err.(*ValidationError).Fields, "password")
}

func TestAuth_StudentLoginByRollNo(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	reg, err := svc.RegisterStudent(ctx, models.RegisterRequest{Name: "Ravi", RollNo: "CS01", Password: "pass1"})
	require.NoError(t, err)

	tokens, err := svc.LoginStudent(ctx, models.LoginRequest{RollNo: "CS01", Password: "pass1"})
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, tokens.UserID)
	assert.Equal(t, models.RoleStudent, tokens.Role)

	_, err = svc.LoginStudent(ctx, models.LoginRequest{RollNo: "CS99", Password: "pass1"})
	assert.IsType(t, &UnauthorizedError{}, err)
}

func TestAuth_LockoutAfterRepeatedFailures(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.RegisterStudent(ctx, models.RegisterRequest{Name: "Ravi", RollNo: "CS01", Password: "pass1"})
	require.NoError(t, err)

	for i := 0; i < maxLoginFailures; i++ {
		_, err := svc.LoginStudent(ctx, models.LoginRequest{RollNo: "CS01", Password: "nope"})
		require.IsType(t, &UnauthorizedError{}, err)
	}

	_, err = svc.LoginStudent(ctx, models.LoginRequest{RollNo: "CS01", Password: "pass1"})
	assert.IsType(t, &RateLimitError{}, err)
}
