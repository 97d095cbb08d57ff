package session

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
)

const (
	defaultCleanupInterval  = time.Minute
	defaultCleanupBatchSize = 500
	defaultSessionTTL       = 30 * time.Minute
)

var (
	sessionCleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_session_cleanup_runs_total",
		Help: "Total number of cart session cleanup runs grouped by result.",
	}, []string{"result"})
	sessionCleanupDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_session_cleanup_deleted_total",
		Help: "Total number of expired cart sessions removed.",
	})
)

// CleanupOptions задаёт параметры воркера очистки сессий.
type CleanupOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
	TTL       time.Duration
	// OnSweep вызывается после каждого прохода с числом оставшихся сессий.
	OnSweep func(active int)
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между проходами.
func WithInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithBatchSize задаёт размер порции удаления.
func WithBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// WithTTL задаёт время неактивности, после которого корзина удаляется.
func WithTTL(ttl time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.TTL = ttl
	}
}

// WithOnSweep задаёт обработчик результата прохода (например, для gauge активных корзин).
func WithOnSweep(fn func(active int)) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.OnSweep = fn
	}
}

// CleanupWorker периодически удаляет корзины покинутых сессий.
type CleanupWorker struct {
	sessions  domain.SessionSweeper
	logger    *log.Entry
	interval  time.Duration
	batchSize int
	ttl       time.Duration
	onSweep   func(active int)
}

// NewCleanupWorker создаёт воркер очистки.
func NewCleanupWorker(sessions domain.SessionSweeper, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:  defaultCleanupInterval,
		BatchSize: defaultCleanupBatchSize,
		TTL:       defaultSessionTTL,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "session-cleanup-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultSessionTTL
	}

	return &CleanupWorker{
		sessions:  sessions,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		ttl:       opts.TTL,
		onSweep:   opts.OnSweep,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.sessions == nil {
		w.logger.Warn("session cleanup worker is disabled: repository is nil")
		return
	}

	w.cleanup(ctx, time.Now().UTC())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx, time.Now().UTC())
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context, now time.Time) {
	deleted, err := w.DeleteExpired(ctx, now.Add(-w.ttl))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		sessionCleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("session cleanup run failed")
		return
	}

	sessionCleanupRunsTotal.WithLabelValues("ok").Inc()
	if w.onSweep != nil {
		w.onSweep(w.sessions.Len())
	}
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("expired cart sessions removed")
	}
}

// DeleteExpired удаляет сессии, неактивные с момента before, порциями batchSize.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC().Add(-w.ttl)
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.sessions.DeleteExpired(before, w.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			sessionCleanupDeletedTotal.Add(float64(deleted))
		}

		if deleted < w.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
