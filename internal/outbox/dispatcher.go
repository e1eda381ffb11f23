package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/config"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/redact"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// DispatcherConfig holds configuration for the dispatcher
type DispatcherConfig struct {
	// WorkerCount determines how many tasks are delivered concurrently
	WorkerCount int

	// BatchSize bounds how many pending tasks one poll fetches
	BatchSize int

	// PollInterval is the delay between polls for pending tasks
	PollInterval time.Duration

	// MaxAttempts is the number of failed deliveries after which a task is parked
	MaxAttempts int

	// StaleAfter defines how long a claim may be held before the task
	// is returned to pending
	StaleAfter time.Duration

	// StaleCheckInterval defines how often stale claims are looked for
	StaleCheckInterval time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		WorkerCount:        2,
		BatchSize:          20,
		PollInterval:       5 * time.Second,
		MaxAttempts:        3,
		StaleAfter:         10 * time.Minute,
		StaleCheckInterval: time.Minute,
	}
}

// DispatcherConfigFrom converts the application outbox settings.
func DispatcherConfigFrom(cfg config.OutboxConfig) DispatcherConfig {
	return DispatcherConfig{
		WorkerCount:        cfg.WorkerCount,
		BatchSize:          cfg.BatchSize,
		PollInterval:       cfg.PollInterval(),
		MaxAttempts:        cfg.MaxAttempts,
		StaleAfter:         cfg.StaleAfter(),
		StaleCheckInterval: cfg.StaleCheckInterval(),
	}
}

// Dispatcher pulls pending outbox tasks and pushes them to a SyncTarget.
type Dispatcher struct {
	store      store.OutboxStore
	target     SyncTarget
	config     DispatcherConfig
	instanceID string
	taskChan   chan *domain.OutboxTask
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	now        func() time.Time
	logger     *slog.Logger
}

// NewDispatcher creates a Dispatcher. Non-positive config values fall back
// to DefaultDispatcherConfig.
func NewDispatcher(outboxStore store.OutboxStore, target SyncTarget, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultDispatcherConfig()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaults.WorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaults.StaleAfter
	}
	if cfg.StaleCheckInterval <= 0 {
		cfg.StaleCheckInterval = defaults.StaleCheckInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	instanceID := uuid.NewString()[:8]

	return &Dispatcher{
		store:      outboxStore,
		target:     target,
		config:     cfg,
		instanceID: instanceID,
		taskChan:   make(chan *domain.OutboxTask, cfg.BatchSize),
		ctx:        ctx,
		cancelFunc: cancel,
		now:        func() time.Time { return time.Now().UTC() },
		logger: logger.With(
			slog.String("component", "outbox_dispatcher"),
			slog.String("instance_id", instanceID),
		),
	}
}

// Start launches the poller, the workers and the stale-claim reclaimer.
// Stale claims left by a previous run are reclaimed before polling begins.
func (d *Dispatcher) Start() {
	if n, err := d.ReclaimStale(d.ctx); err != nil {
		d.logger.Error("failed to reclaim stale tasks on start", slog.String("error", redact.Error(err)))
	} else if n > 0 {
		d.logger.Info("reclaimed stale tasks on start", slog.Int64("count", n))
	}

	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(d.workerID(i))
	}

	d.wg.Add(2)
	go d.poller()
	go d.staleMonitor()

	d.logger.Info("outbox dispatcher started",
		slog.Int("worker_count", d.config.WorkerCount),
		slog.Duration("poll_interval", d.config.PollInterval))
}

// Stop signals every goroutine to finish and waits for in-flight deliveries.
func (d *Dispatcher) Stop() {
	d.cancelFunc()
	d.wg.Wait()
	d.logger.Info("outbox dispatcher stopped")
}

// ProcessBatch fetches one batch of pending tasks and delivers them in order
// on the calling goroutine. It returns the number of tasks this call claimed.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (int, error) {
	tasks, err := d.store.FetchPending(ctx, d.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending tasks: %w", err)
	}

	claimed := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			return claimed, ctx.Err()
		}
		if d.handle(ctx, task, d.workerID(-1)) {
			claimed++
		}
	}
	return claimed, nil
}

// ReclaimStale returns tasks whose claim is older than StaleAfter to pending.
func (d *Dispatcher) ReclaimStale(ctx context.Context) (int64, error) {
	cutoff := d.now().Add(-d.config.StaleAfter)
	n, err := d.store.ReclaimStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale tasks: %w", err)
	}
	return n, nil
}

func (d *Dispatcher) workerID(i int) string {
	if i < 0 {
		return fmt.Sprintf("%s-sync", d.instanceID)
	}
	return fmt.Sprintf("%s-%d", d.instanceID, i)
}

// poller feeds pending tasks to the workers. A task may be handed out again
// before its first claim lands; the claim lets only one worker through.
func (d *Dispatcher) poller() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		d.poll()

		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) poll() {
	tasks, err := d.store.FetchPending(d.ctx, d.config.BatchSize)
	if err != nil {
		if d.ctx.Err() == nil {
			d.logger.Error("failed to fetch pending tasks", slog.String("error", redact.Error(err)))
		}
		return
	}

	for _, task := range tasks {
		select {
		case d.taskChan <- task:
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) worker(workerID string) {
	defer d.wg.Done()

	d.logger.Debug("starting worker", slog.String("worker_id", workerID))

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Debug("stopping worker", slog.String("worker_id", workerID))
			return
		case task := <-d.taskChan:
			d.handle(d.ctx, task, workerID)
		}
	}
}

func (d *Dispatcher) staleMonitor() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.StaleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			n, err := d.ReclaimStale(d.ctx)
			if err != nil {
				d.logger.Error("failed to reclaim stale tasks", slog.String("error", redact.Error(err)))
				continue
			}
			if n > 0 {
				d.logger.Warn("reclaimed stale tasks", slog.Int64("count", n))
			}
		}
	}
}

// handle claims and delivers one task. It reports whether the claim
// succeeded. Delivery errors and panics become failed attempts; nothing
// escapes to the caller.
func (d *Dispatcher) handle(ctx context.Context, task *domain.OutboxTask, workerID string) bool {
	log := d.logger.With(
		slog.String("task_id", task.ID.String()),
		slog.String("entity_type", task.EntityType),
		slog.String("entity_id", task.EntityID),
		slog.String("worker_id", workerID),
	)

	claimed, err := d.store.MarkProcessing(ctx, task.ID, workerID)
	if err != nil {
		log.Error("failed to claim outbox task", slog.String("error", redact.Error(err)))
		return false
	}
	if !claimed {
		log.Debug("outbox task already claimed")
		return false
	}

	if err := d.deliver(ctx, task); err != nil {
		message := redact.Error(err)
		status, markErr := d.store.MarkFailed(ctx, task.ID, workerID, message, d.config.MaxAttempts)
		switch {
		case errors.Is(markErr, store.ErrClaimLost):
			log.Warn("claim lost before recording failure", slog.String("error", message))
		case markErr != nil:
			log.Error("failed to record delivery failure", slog.String("error", redact.Error(markErr)))
		case status == domain.OutboxStatusFailed:
			log.Error("outbox task parked after final attempt",
				slog.String("error", message),
				slog.Int("max_attempts", d.config.MaxAttempts))
		default:
			log.Warn("outbox delivery failed, will retry", slog.String("error", message))
		}
		return true
	}

	if err := d.store.MarkCompleted(ctx, task.ID, workerID); err != nil {
		if errors.Is(err, store.ErrClaimLost) {
			log.Warn("claim lost before recording completion")
		} else {
			log.Error("failed to record delivery", slog.String("error", redact.Error(err)))
		}
		return true
	}

	log.Info("outbox task delivered", slog.String("action", string(task.Action)))
	return true
}

func (d *Dispatcher) deliver(ctx context.Context, task *domain.OutboxTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync target panicked: %v", r)
		}
	}()
	return Deliver(ctx, d.target, task)
}
