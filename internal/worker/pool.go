package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"examportal-backend/internal/models"
)

// Runner executes one assignment generation. services.ContentPipeline
// satisfies it.
type Runner interface {
	Run(ctx context.Context, job models.GenerationJob) error
}

type Pool struct {
	redis        *redis.Client
	runner       Runner
	jobs         JobStore
	workerCount  int
	blockTimeout time.Duration
	lockTTL      time.Duration

	pollCtx    context.Context
	cancelPoll context.CancelFunc
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

func NewPool(redisClient *redis.Client, runner Runner, jobs JobStore, workerCount int) *Pool {
	pollCtx, cancel := context.WithCancel(context.Background())
	return &Pool{
		redis:        redisClient,
		runner:       runner,
		jobs:         jobs,
		workerCount:  workerCount,
		blockTimeout: 30 * time.Second,
		lockTTL:      10 * time.Minute,
		pollCtx:      pollCtx,
		cancelPoll:   cancel,
		stopChan:     make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

// Stop stops polling and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.stopChan)
	p.cancelPoll()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		result, err := p.redis.BLPop(p.pollCtx, p.blockTimeout, GenerationQueue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && p.pollCtx.Err() == nil {
				log.Printf("Worker %d: queue read failed: %v", id, err)
				p.pause(time.Second)
			}
			continue
		}

		if len(result) < 2 {
			continue
		}

		p.process(context.Background(), id, result[1])
	}
}

func (p *Pool) pause(d time.Duration) {
	select {
	case <-p.stopChan:
	case <-time.After(d):
	}
}

func (p *Pool) process(ctx context.Context, workerID int, raw string) {
	var job models.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Printf("Worker %d: failed to parse job: %v", workerID, err)
		return
	}

	lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
	locked, err := p.redis.SetNX(ctx, lockKey, "1", p.lockTTL).Result()
	if err != nil || !locked {
		return // another worker has this job
	}
	defer p.redis.Del(ctx, lockKey)

	log.Printf("Worker %d: processing job %s (assignment %s)", workerID, job.ID, job.AssignmentID)
	p.jobs.UpdateStatus(ctx, job.ID, "processing")

	if err := p.execute(ctx, &job); err != nil {
		p.handleFailure(ctx, &job, err)
		return
	}

	p.jobs.UpdateStatus(ctx, job.ID, "completed")
	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) execute(ctx context.Context, job *models.Job) error {
	if job.Type != models.JobTypeAssignmentGeneration {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	var payload models.GenerationJob
	if err := json.Unmarshal(job.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("invalid job payload: %w", err)
	}

	return p.runner.Run(ctx, payload)
}

// handleFailure marks the job failed. Generation jobs are not retried; the
// assignment itself already carries the ERROR outcome.
func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	errMsg := err.Error()
	log.Printf("Job %s failed: %s", job.ID, errMsg)
	p.jobs.UpdateStatus(ctx, job.ID, "failed")
	p.jobs.UpdateError(ctx, job.ID, errMsg)
}
