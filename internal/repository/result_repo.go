package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"examportal-backend/internal/models"
)

type ResultRepo struct {
	pool *pgxpool.Pool
}

func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

// Create inserts the single result for a (student, assignment) pair.
// A second insert for the same pair returns ErrDuplicate.
func (r *ResultRepo) Create(ctx context.Context, res *models.Result) error {
	res.ID = uuid.New()

	query := `INSERT INTO results (id, student_id, assignment_id, score, raw_score, total, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		res.ID, res.StudentID, res.AssignmentID, res.Score, res.RawScore, res.Total, res.Status,
	).Scan(&res.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *ResultRepo) Exists(ctx context.Context, studentID, assignmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM results WHERE student_id = $1 AND assignment_id = $2)",
		studentID, assignmentID,
	).Scan(&exists)
	return exists, err
}

func (r *ResultRepo) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, assignment_id, score, raw_score, total, status, created_at
		 FROM results WHERE student_id = $1 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.Result
	for rows.Next() {
		res := &models.Result{}
		if err := rows.Scan(&res.ID, &res.StudentID, &res.AssignmentID, &res.Score,
			&res.RawScore, &res.Total, &res.Status, &res.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *ResultRepo) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]*models.ResultWithStudent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.student_id, r.assignment_id, r.score, r.raw_score, r.total, r.status, r.created_at,
		        s.name, s.roll_no
		 FROM results r
		 JOIN students s ON r.student_id = s.id
		 WHERE r.assignment_id = $1
		 ORDER BY r.score DESC`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.ResultWithStudent
	for rows.Next() {
		res := &models.ResultWithStudent{}
		if err := rows.Scan(&res.ID, &res.StudentID, &res.AssignmentID, &res.Score,
			&res.RawScore, &res.Total, &res.Status, &res.CreatedAt,
			&res.StudentName, &res.RollNo); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
