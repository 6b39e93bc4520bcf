package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type JobType string

const JobTypeTaskReminder JobType = "task_reminder"

type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	MaxTries  int             `json:"max_tries"`
	CreatedAt time.Time       `json:"created_at"`
	ProcessAt time.Time       `json:"process_at"`
}

func (j *Job) DecodePayload(dest interface{}) error {
	if err := json.Unmarshal(j.Payload, dest); err != nil {
		return fmt.Errorf("decoding payload of job %s: %w", j.ID, err)
	}
	return nil
}

type DeadJob struct {
	Job      Job       `json:"original_job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

type JobHandler func(ctx context.Context, job *Job) error

// Queues names the Redis keys a worker and its producers share. Ready is a
// list consumed with BLMOVE into Processing, where a job stays until its
// outcome is recorded. Delayed is a sorted set scored by process time in
// milliseconds; Dead collects jobs that ran out of attempts.
type Queues struct {
	Ready      string
	Processing string
	Delayed    string
	Dead       string
}

func DefaultQueues() Queues {
	return Queues{
		Ready:      "taskflow:jobs:ready",
		Processing: "taskflow:jobs:processing",
		Delayed:    "taskflow:jobs:delayed",
		Dead:       "taskflow:jobs:dead",
	}
}

type WorkerConfig struct {
	RedisClient  *redis.Client
	Concurrency  int
	PollInterval time.Duration
	JobTimeout   time.Duration
	RetryBackoff time.Duration
	Queues       Queues
	Logger       *zap.Logger
	Clock        func() time.Time
}

type Worker struct {
	client   *redis.Client
	handlers map[JobType]JobHandler
	queues   Queues
	mu       sync.RWMutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	concurrency  int
	pollInterval time.Duration
	jobTimeout   time.Duration
	retryBackoff time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewWorker(config WorkerConfig) *Worker {
	w := &Worker{
		client:       config.RedisClient,
		handlers:     make(map[JobType]JobHandler),
		queues:       config.Queues,
		concurrency:  config.Concurrency,
		pollInterval: config.PollInterval,
		jobTimeout:   config.JobTimeout,
		retryBackoff: config.RetryBackoff,
		logger:       config.Logger,
		now:          config.Clock,
	}
	if w.queues == (Queues{}) {
		w.queues = DefaultQueues()
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.pollInterval <= 0 {
		w.pollInterval = time.Second
	}
	if w.jobTimeout <= 0 {
		w.jobTimeout = 30 * time.Second
	}
	if w.retryBackoff <= 0 {
		w.retryBackoff = 30 * time.Second
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// Start runs the consumers and the delayed-job promoter until ctx is
// cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.logger.Info("starting worker", zap.Int("concurrency", w.concurrency), zap.String("queue", w.queues.Ready))

	if n, err := w.RequeueProcessing(ctx); err != nil {
		w.logger.Error("requeueing interrupted jobs", zap.Error(err))
	} else if n > 0 {
		w.logger.Info("requeued interrupted jobs", zap.Int("count", n))
	}

	w.wg.Add(1)
	go w.promoteLoop(ctx)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.consumeLoop(ctx)
	}
}

func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.logger.Info("stopping worker")
	w.cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) consumeLoop(ctx context.Context) {
	defer w.wg.Done()

	for ctx.Err() == nil {
		if _, err := w.processNextJob(ctx, w.pollInterval); err != nil && ctx.Err() == nil {
			w.logger.Error("error processing job", zap.Error(err))
			sleep(ctx, w.pollInterval)
		}
	}
}

func (w *Worker) promoteLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.PromoteDue(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("promoting delayed jobs", zap.Error(err))
			} else if n > 0 {
				w.logger.Debug("promoted delayed jobs", zap.Int("count", n))
			}
		}
	}
}

var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, job in ipairs(due) do
	redis.call('ZREM', KEYS[1], job)
	redis.call('RPUSH', KEYS[2], job)
end
return #due
`)

// PromoteDue moves delayed jobs whose process time has passed onto the ready
// list. The move is a single script so no job is lost or duplicated between
// concurrent promoters.
func (w *Worker) PromoteDue(ctx context.Context) (int, error) {
	now := strconv.FormatInt(w.now().UnixMilli(), 10)
	n, err := promoteScript.Run(ctx, w.client, []string{w.queues.Delayed, w.queues.Ready}, now, 100).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to promote delayed jobs: %w", err)
	}
	return n, nil
}

var requeueScript = redis.NewScript(`
local n = 0
while redis.call('RPOPLPUSH', KEYS[1], KEYS[2]) do
	n = n + 1
end
return n
`)

// RequeueProcessing puts jobs left in the processing list by a worker that
// died mid-job back at the head of the ready list. Only call it while no
// other consumer shares the queues.
func (w *Worker) RequeueProcessing(ctx context.Context) (int, error) {
	n, err := requeueScript.Run(ctx, w.client, []string{w.queues.Processing, w.queues.Ready}).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to requeue processing jobs: %w", err)
	}
	return n, nil
}

// processNextJob reports whether a job was popped within timeout. The raw
// job stays in the processing list until its outcome (done, retry or dead)
// has been written, even if ctx is cancelled while the handler runs.
func (w *Worker) processNextJob(ctx context.Context, timeout time.Duration) (bool, error) {
	raw, err := w.client.BLMove(ctx, w.queues.Ready, w.queues.Processing, "LEFT", "RIGHT", timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to pop job: %w", err)
	}

	settle := context.WithoutCancel(ctx)
	defer func() {
		if err := w.client.LRem(settle, w.queues.Processing, 1, raw).Err(); err != nil {
			w.logger.Error("failed to release processed job", zap.Error(err))
		}
	}()

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return true, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return true, w.executeJob(ctx, &job)
}

func (w *Worker) executeJob(ctx context.Context, job *Job) error {
	// outcomes are recorded even when the worker is shutting down
	settle := context.WithoutCancel(ctx)

	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	log := w.logger.With(zap.String("job_id", job.ID), zap.String("job_type", string(job.Type)))

	if !exists {
		return w.moveToDeadQueue(settle, job, fmt.Errorf("no handler registered for job type: %s", job.Type))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	err := handler(jobCtx, job)
	if err == nil {
		log.Debug("job completed")
		return nil
	}

	job.Attempts++
	if job.Attempts < job.MaxTries {
		log.Warn("job failed, retrying",
			zap.Int("attempt", job.Attempts),
			zap.Int("max_tries", job.MaxTries),
			zap.Error(err))
		return w.retryJob(settle, job)
	}

	log.Error("job failed permanently", zap.Int("attempts", job.Attempts), zap.Error(err))
	return w.moveToDeadQueue(settle, job, err)
}

// retryJob schedules the next attempt after RetryBackoff * 2^(attempts-1).
func (w *Worker) retryJob(ctx context.Context, job *Job) error {
	delay := w.retryBackoff << (job.Attempts - 1)
	job.ProcessAt = w.now().Add(delay)
	return schedule(ctx, w.client, w.queues.Delayed, job)
}

func (w *Worker) moveToDeadQueue(ctx context.Context, job *Job, jobErr error) error {
	data, err := json.Marshal(DeadJob{Job: *job, Error: jobErr.Error(), FailedAt: w.now()})
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}
	return w.client.RPush(ctx, w.queues.Dead, data).Err()
}

func schedule(ctx context.Context, client *redis.Client, delayed string, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return client.ZAdd(ctx, delayed, redis.Z{
		Score:  float64(job.ProcessAt.UnixMilli()),
		Member: data,
	}).Err()
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// JobQueue is the producer side used by services.
type JobQueue struct {
	client   *redis.Client
	queues   Queues
	maxTries int
	now      func() time.Time
}

func NewJobQueue(client *redis.Client, queues Queues, maxTries int) *JobQueue {
	if queues == (Queues{}) {
		queues = DefaultQueues()
	}
	if maxTries <= 0 {
		maxTries = 3
	}
	return &JobQueue{client: client, queues: queues, maxTries: maxTries, now: time.Now}
}

func (q *JobQueue) Enqueue(ctx context.Context, jobType JobType, payload interface{}) (*Job, error) {
	return q.EnqueueAt(ctx, jobType, payload, q.now())
}

// EnqueueAt pushes ready jobs straight onto the ready list and parks future
// ones in the delayed set.
func (q *JobQueue) EnqueueAt(ctx context.Context, jobType JobType, payload interface{}, processAt time.Time) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := q.now()
	job := &Job{
		ID:        uuid.Must(uuid.NewV4()).String(),
		Type:      jobType,
		Payload:   raw,
		MaxTries:  q.maxTries,
		CreatedAt: now,
		ProcessAt: processAt,
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if processAt.After(now) {
		if err := schedule(ctx, q.client, q.queues.Delayed, job); err != nil {
			return nil, err
		}
		return job, nil
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, q.queues.Ready, data).Err(); err != nil {
		return nil, err
	}
	return job, nil
}

type QueueStats struct {
	Ready      int64 `json:"ready"`
	Processing int64 `json:"processing"`
	Delayed    int64 `json:"delayed"`
	Dead       int64 `json:"dead"`
}

func (q *JobQueue) Stats(ctx context.Context) (QueueStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	pipe := q.client.Pipeline()
	ready := pipe.LLen(ctx, q.queues.Ready)
	processing := pipe.LLen(ctx, q.queues.Processing)
	delayed := pipe.ZCard(ctx, q.queues.Delayed)
	dead := pipe.LLen(ctx, q.queues.Dead)
	if _, err := pipe.Exec(ctx); err != nil {
		return QueueStats{}, err
	}

	return QueueStats{Ready: ready.Val(), Processing: processing.Val(), Delayed: delayed.Val(), Dead: dead.Val()}, nil
}

func (q *JobQueue) DeadJobs(ctx context.Context) ([]DeadJob, error) {
	items, err := q.client.LRange(ctx, q.queues.Dead, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]DeadJob, 0, len(items))
	for _, item := range items {
		var dj DeadJob
		if err := json.Unmarshal([]byte(item), &dj); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dead job: %w", err)
		}
		jobs = append(jobs, dj)
	}
	return jobs, nil
}
