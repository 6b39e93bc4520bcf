package services

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/models"
	"taskflow/internal/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type ReminderPayload struct {
	TaskID   string    `json:"task_id"`
	RemindAt time.Time `json:"remind_at"`
}

// JobEnqueuer is the producer side of the job queue.
type JobEnqueuer interface {
	EnqueueAt(ctx context.Context, jobType worker.JobType, payload interface{}, processAt time.Time) (*worker.Job, error)
}

type PreferencesReader interface {
	Get() models.Preferences
}

// ReminderAt returns when a reminder for task is due. An explicit
// reminderTime wins; otherwise the due date minus the preferred offset is
// used while notifications are enabled. Completed tasks have none.
func ReminderAt(task models.Task, prefs models.Preferences) (time.Time, bool) {
	if task.IsCompleted() {
		return time.Time{}, false
	}
	if task.ReminderTime != nil {
		return *task.ReminderTime, true
	}
	if !prefs.NotificationsEnabled || prefs.ReminderOffset <= 0 {
		return time.Time{}, false
	}
	return task.DueDate.Add(-time.Duration(prefs.ReminderOffset) * time.Minute), true
}

type ReminderScheduler struct {
	queue  JobEnqueuer
	prefs  PreferencesReader
	now    func() time.Time
	logger *zap.Logger
}

func NewReminderScheduler(queue JobEnqueuer, prefs PreferencesReader, logger *zap.Logger) *ReminderScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderScheduler{queue: queue, prefs: prefs, now: time.Now, logger: logger}
}

// Schedule enqueues a reminder job for task and reports whether one was
// queued. Reminders whose time has already passed are not sent.
func (s *ReminderScheduler) Schedule(ctx context.Context, task models.Task) (bool, error) {
	at, ok := ReminderAt(task, s.prefs.Get())
	if !ok || !at.After(s.now()) {
		return false, nil
	}

	job, err := s.queue.EnqueueAt(ctx, worker.JobTypeTaskReminder, ReminderPayload{TaskID: task.ID, RemindAt: at}, at)
	if err != nil {
		return false, fmt.Errorf("enqueueing reminder for task %s: %w", task.ID, err)
	}

	s.logger.Debug("reminder scheduled",
		zap.String("task_id", task.ID),
		zap.String("job_id", job.ID),
		zap.Time("remind_at", at))
	return true, nil
}

type Reminder struct {
	Task     models.Task
	RemindAt time.Time
}

type Notifier interface {
	Notify(ctx context.Context, reminder Reminder) error
}

// LogNotifier delivers reminders as structured log lines.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, r Reminder) error {
	n.logger.Info("task reminder",
		zap.String("task_id", r.Task.ID),
		zap.String("title", r.Task.Title),
		zap.Time("due_date", r.Task.DueDate),
		zap.Time("remind_at", r.RemindAt))
	return nil
}

type TaskReader interface {
	GetByID(id string) (models.Task, bool)
}

// ReminderLedger records delivered reminders. Claim reports false when the
// reminder was already sent.
type ReminderLedger interface {
	Claim(ctx context.Context, taskID string, at time.Time) (bool, error)
}

const sentRetention = 30 * 24 * time.Hour

type RedisReminderLedger struct {
	client *redis.Client
	prefix string
}

func NewRedisReminderLedger(client *redis.Client, prefix string) *RedisReminderLedger {
	return &RedisReminderLedger{client: client, prefix: prefix}
}

func (l *RedisReminderLedger) Claim(ctx context.Context, taskID string, at time.Time) (bool, error) {
	key := fmt.Sprintf("%sreminders:sent:%s:%d", l.prefix, taskID, at.Unix())
	return l.client.SetNX(ctx, key, 1, sentRetention).Result()
}

// ReminderHandler processes task_reminder jobs. A job is dropped silently
// when its task is gone, completed, now has a different reminder time, or
// was already delivered.
type ReminderHandler struct {
	tasks    TaskReader
	prefs    PreferencesReader
	notifier Notifier
	ledger   ReminderLedger
	logger   *zap.Logger
}

func NewReminderHandler(tasks TaskReader, prefs PreferencesReader, notifier Notifier, logger *zap.Logger) *ReminderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderHandler{tasks: tasks, prefs: prefs, notifier: notifier, logger: logger}
}

func (h *ReminderHandler) WithLedger(ledger ReminderLedger) *ReminderHandler {
	h.ledger = ledger
	return h
}

func (h *ReminderHandler) Handle(ctx context.Context, job *worker.Job) error {
	var payload ReminderPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	log := h.logger.With(zap.String("job_id", job.ID), zap.String("task_id", payload.TaskID))

	task, ok := h.tasks.GetByID(payload.TaskID)
	if !ok {
		log.Debug("reminder skipped, task deleted")
		return nil
	}

	prefs := h.prefs.Get()
	if !prefs.NotificationsEnabled {
		log.Debug("reminder skipped, notifications disabled")
		return nil
	}

	at, ok := ReminderAt(task, prefs)
	if !ok || !at.Equal(payload.RemindAt) {
		log.Debug("reminder skipped, superseded")
		return nil
	}

	if h.ledger != nil {
		claimed, err := h.ledger.Claim(ctx, task.ID, at)
		if err != nil {
			return fmt.Errorf("claiming reminder: %w", err)
		}
		if !claimed {
			log.Debug("reminder skipped, already sent")
			return nil
		}
	}

	return h.notifier.Notify(ctx, Reminder{Task: task, RemindAt: at})
}
