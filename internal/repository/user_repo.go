package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"examportal-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) CreateTeacher(ctx context.Context, t *models.Teacher) error {
	t.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO teachers (id, name, password_hash, profile_pic)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		t.ID, t.Name, t.PasswordHash, t.ProfilePic,
	).Scan(&t.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *UserRepo) GetTeacherByName(ctx context.Context, name string) (*models.Teacher, error) {
	t := &models.Teacher{}
	err := r.pool.QueryRow(ctx,
		"SELECT id, name, password_hash, profile_pic, created_at FROM teachers WHERE name = $1", name,
	).Scan(&t.ID, &t.Name, &t.PasswordHash, &t.ProfilePic, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *UserRepo) CreateStudent(ctx context.Context, s *models.Student) error {
	s.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (id, name, roll_no, password_hash, profile_pic)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		s.ID, s.Name, s.RollNo, s.PasswordHash, s.ProfilePic,
	).Scan(&s.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *UserRepo) GetStudentByRollNo(ctx context.Context, rollNo string) (*models.Student, error) {
	s := &models.Student{}
	err := r.pool.QueryRow(ctx,
		"SELECT id, name, roll_no, password_hash, profile_pic, created_at FROM students WHERE roll_no = $1", rollNo,
	).Scan(&s.ID, &s.Name, &s.RollNo, &s.PasswordHash, &s.ProfilePic, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
