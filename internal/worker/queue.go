package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"examportal-backend/internal/models"
)

const GenerationQueue = "queue:" + models.JobTypeAssignmentGeneration

type JobStore interface {
	Create(ctx context.Context, j *models.Job) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string) error
}

// Queue records a job row and hands it to the worker pool through Redis.
type Queue struct {
	redis *redis.Client
	jobs  JobStore
}

func NewQueue(redisClient *redis.Client, jobs JobStore) *Queue {
	return &Queue{redis: redisClient, jobs: jobs}
}

func (q *Queue) Enqueue(ctx context.Context, teacherID uuid.UUID, payload models.GenerationJob) (*models.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job payload: %w", err)
	}

	job := &models.Job{
		TeacherID:    teacherID,
		Type:         models.JobTypeAssignmentGeneration,
		AssignmentID: payload.AssignmentID,
		PayloadJSON:  payloadJSON,
		Status:       "pending",
	}
	if err := q.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.redis.LPush(ctx, GenerationQueue, jobBytes).Err(); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return job, nil
}
