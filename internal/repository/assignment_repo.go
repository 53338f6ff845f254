package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"examportal-backend/internal/models"
)

type AssignmentRepo struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepo(pool *pgxpool.Pool) *AssignmentRepo {
	return &AssignmentRepo{pool: pool}
}

const assignmentColumns = `id, teacher_id, subject, chapter, topic, variation, source_paths, notes, quiz_json, status, error_message, created_at`

func (r *AssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	a.ID = uuid.New()
	a.Status = models.AssignmentPending
	a.Notes = nil
	a.Quiz = nil

	if a.SourcePaths == nil {
		a.SourcePaths = []string{}
	}
	pathsBytes, err := json.Marshal(a.SourcePaths)
	if err != nil {
		return fmt.Errorf("failed to encode source paths: %w", err)
	}

	query := `INSERT INTO assignments (id, teacher_id, subject, chapter, topic, variation, source_paths, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		a.ID, a.TeacherID, a.Subject, a.Chapter, a.Topic, a.Variation, pathsBytes, a.Status,
	).Scan(&a.CreatedAt)
}

func (r *AssignmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+assignmentColumns+" FROM assignments WHERE id = $1", id)
	return scanAssignment(row)
}

// ListAll returns every assignment, newest first. Students see the whole catalogue.
func (r *AssignmentRepo) ListAll(ctx context.Context) ([]*models.Assignment, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+assignmentColumns+" FROM assignments ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (r *AssignmentRepo) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*models.Assignment, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE teacher_id = $1 ORDER BY created_at DESC", teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// CompleteGeneration writes notes and quiz and flips PENDING to READY in one
// statement. Returns ErrNotPending if the assignment already left PENDING.
func (r *AssignmentRepo) CompleteGeneration(ctx context.Context, id uuid.UUID, notes string, quiz []models.Question) error {
	quizBytes, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("failed to encode quiz: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE assignments SET notes = $1, quiz_json = $2, status = $3
		 WHERE id = $4 AND status = $5`,
		notes, quizBytes, models.AssignmentReady, id, models.AssignmentPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *AssignmentRepo) FailGeneration(ctx context.Context, id uuid.UUID, errMsg string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE assignments SET status = $1, error_message = $2
		 WHERE id = $3 AND status = $4`,
		models.AssignmentError, errMsg, id, models.AssignmentPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

// Delete removes the assignment; results and jobs go with it through ON DELETE CASCADE.
func (r *AssignmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM assignments WHERE id = $1", id)
	return err
}

func collectAssignments(rows pgx.Rows) ([]*models.Assignment, error) {
	var assignments []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func scanAssignment(row pgx.Row) (*models.Assignment, error) {
	a := &models.Assignment{}
	var pathsBytes, quizBytes []byte

	err := row.Scan(
		&a.ID, &a.TeacherID, &a.Subject, &a.Chapter, &a.Topic, &a.Variation,
		&pathsBytes, &a.Notes, &quizBytes, &a.Status, &a.ErrorMessage, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(pathsBytes) > 0 {
		if err := json.Unmarshal(pathsBytes, &a.SourcePaths); err != nil {
			return nil, fmt.Errorf("failed to decode source paths for assignment %s: %w", a.ID, err)
		}
	}
	// A stored quiz that no longer decodes is treated as absent; the exam
	// guard then refuses entry instead of failing the whole listing.
	if len(quizBytes) > 0 {
		if err := json.Unmarshal(quizBytes, &a.Quiz); err != nil {
			a.Quiz = nil
		}
	}

	return a, nil
}
