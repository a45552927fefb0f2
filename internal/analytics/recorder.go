package analytics

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"linkforge/internal/entities"
	"linkforge/internal/metrics"
	"linkforge/internal/repository"
)

const (
	DefaultQueueSize    = 1024
	DefaultWorkers      = 4
	DefaultWriteTimeout = 2 * time.Second
)

// Options tunes the recorder queue and worker pool. Zero values take the defaults.
type Options struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
	Now          func() time.Time
}

// Recorder appends click events off the redirect path. Record never blocks:
// events that cannot be queued or stored are logged and counted, never returned.
type Recorder struct {
	clicks  repository.ClickRepository
	logger  *zap.Logger
	metrics *metrics.Metrics

	now          func() time.Time
	workers      int
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan *entities.ClickEvent
}

func NewRecorder(clicks repository.ClickRepository, logger *zap.Logger, m *metrics.Metrics, opts Options) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Recorder{
		clicks:       clicks,
		logger:       logger.Named("analytics"),
		metrics:      m,
		now:          opts.Now,
		workers:      opts.Workers,
		writeTimeout: opts.WriteTimeout,
		queue:        make(chan *entities.ClickEvent, opts.QueueSize),
	}
}

// Record stamps a click event for mapping and queues it for storage
func (r *Recorder) Record(mapping *entities.URLMapping, ip *string, userAgent, referer string) {
	event := &entities.ClickEvent{
		URLMappingID: mapping.ID,
		ClickedAt:    r.now().UTC(),
		IPAddress:    cleanIP(ip),
		UserAgent:    userAgent,
		Referer:      truncate(referer, entities.MaxRefererLength),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(event, "closed", nil)
		return
	}

	select {
	case r.queue <- event:
	default:
		r.drop(event, "queue_full", nil)
	}
}

// Run consumes the queue until Close is called and every queued event is handled.
func (r *Recorder) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			for event := range r.queue {
				r.store(ctx, event)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close stops intake. Events already queued are still written by Run.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	close(r.queue)
}

func (r *Recorder) store(ctx context.Context, event *entities.ClickEvent) {
	// Draining after shutdown still gets a full write window
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
	defer cancel()

	if err := r.clicks.Create(ctx, event); err != nil {
		r.drop(event, "store_error", err)
		return
	}
	r.metrics.ClicksRecorded.Inc()
}

func (r *Recorder) drop(event *entities.ClickEvent, reason string, cause error) {
	r.metrics.ClicksDropped.WithLabelValues(reason).Inc()

	err := entities.ErrAnalyticsUnavailable
	if cause != nil {
		err = fmt.Errorf("%w: %w", entities.ErrAnalyticsUnavailable, cause)
	}
	r.logger.Warn("click event dropped",
		zap.Int64("url_mapping_id", event.URLMappingID),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

func cleanIP(ip *string) *string {
	if ip == nil || net.ParseIP(*ip) == nil {
		return nil
	}
	s := *ip
	return &s
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
