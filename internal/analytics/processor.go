package analytics

import (
	"MinLink-Backend/internal/domain"
	"MinLink-Backend/internal/repository"
	"MinLink-Backend/internal/service"
	"MinLink-Backend/pkg/useragent"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Click is one redirect traversal waiting to be recorded. It is captured
// synchronously in the redirect handler and processed after the response
// has been written.
type Click struct {
	Code      string
	LinkID    int64
	IP        string
	UserAgent string
	Referer   string
	Country   string
	City      string
	ClickedAt time.Time
}

// Config holds configuration for the analytics processor.
type Config struct {
	WorkerCount     int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	RetryAttempts   int           // Number of retry attempts for failed jobs
	RetryDelay      time.Duration // Base delay between retries
	ShutdownTimeout time.Duration // Time to wait for graceful shutdown
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		WorkerCount:     3,
		BufferSize:      1000,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Processor records clicks asynchronously: the redirect response never waits
// for the database write. Failures are retried with backoff and ultimately
// only logged — they never surface to the redirected client.
type Processor struct {
	config   Config
	storage  repository.Storage
	links    *service.URLShortenerService
	uaParser *useragent.Parser
	log      *zap.Logger
	jobQueue chan *Click
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
}

// NewProcessor creates a new analytics processor. The uaParser may be nil,
// in which case clicks are recorded without device enrichment.
func NewProcessor(storage repository.Storage, links *service.URLShortenerService, uaParser *useragent.Parser, log *zap.Logger, config Config) *Processor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		config:   config,
		storage:  storage,
		links:    links,
		uaParser: uaParser,
		log:      log,
		jobQueue: make(chan *Click, config.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing clicks.
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("processor already started")
	}

	p.log.Info("starting analytics processor",
		zap.Int("workers", p.config.WorkerCount),
		zap.Int("buffer_size", p.config.BufferSize),
	)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.started = true
	return nil
}

// Stop gracefully shuts down the processor, draining queued clicks.
func (p *Processor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return fmt.Errorf("processor not started")
	}

	p.log.Info("stopping analytics processor")
	close(p.jobQueue)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("analytics processor stopped gracefully")
	case <-time.After(p.config.ShutdownTimeout):
		p.cancel()
		p.log.Warn("analytics processor shutdown timeout reached")
		return fmt.Errorf("shutdown timeout reached")
	}

	p.cancel()
	p.started = false
	return nil
}

// Submit queues a click for asynchronous recording. It never blocks: when
// the queue is full the click is dropped and the drop is logged.
func (p *Processor) Submit(click *Click) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return fmt.Errorf("processor not started")
	}

	select {
	case p.jobQueue <- click:
		return nil
	default:
		p.log.Error("analytics queue is full, dropping click",
			zap.String("code", click.Code),
			zap.Int("queue_size", len(p.jobQueue)),
		)
		return fmt.Errorf("analytics queue is full")
	}
}

// Stats returns processor statistics for the metrics endpoint.
func (p *Processor) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"started":        p.started,
		"queue_length":   len(p.jobQueue),
		"queue_capacity": cap(p.jobQueue),
		"worker_count":   p.config.WorkerCount,
	}
}

func (p *Processor) worker(workerID int) {
	defer p.wg.Done()

	log := p.log.With(zap.Int("worker_id", workerID))
	log.Debug("analytics worker started")

	for click := range p.jobQueue {
		p.recordWithRetry(log, click)
	}

	log.Debug("analytics worker stopped")
}

func (p *Processor) recordWithRetry(log *zap.Logger, click *Click) {
	var lastErr error

	for attempt := 1; attempt <= p.config.RetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := p.record(ctx, click)
		cancel()

		if err == nil {
			return
		}

		lastErr = err
		log.Warn("click recording failed",
			zap.String("code", click.Code),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt == p.config.RetryAttempts {
			break
		}

		// Exponential backoff delay
		delay := p.config.RetryDelay * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(delay):
		case <-p.ctx.Done():
			log.Info("worker shutdown during retry delay")
			return
		}
	}

	log.Error("click recording failed after all retries",
		zap.String("code", click.Code),
		zap.Int("attempts", p.config.RetryAttempts),
		zap.Error(lastErr),
	)
}

// record persists one click: atomic counter increment plus event insert in
// the store, then a cache refresh of the updated link.
func (p *Processor) record(ctx context.Context, click *Click) error {
	event := &domain.ClickEvent{
		LinkID:    click.LinkID,
		CreatedAt: click.ClickedAt,
	}

	setIfPresent(&event.IP, click.IP)
	setIfPresent(&event.UserAgent, click.UserAgent)
	setIfPresent(&event.Referer, click.Referer)
	setIfPresent(&event.Country, click.Country)
	setIfPresent(&event.City, click.City)

	if click.UserAgent != "" {
		info := p.uaParser.Parse(click.UserAgent)
		event.DeviceType = &info.DeviceType
		event.Browser = &info.Browser
		event.OS = &info.OS
	}

	link, err := p.storage.RecordClick(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	// The cached link copy went stale on increment; refresh it best-effort.
	p.links.RefreshCache(ctx, link)

	p.log.Debug("click recorded",
		zap.String("code", click.Code),
		zap.Int64("link_id", click.LinkID),
		zap.Int64("clicks", link.Clicks),
	)

	return nil
}

func setIfPresent(dst **string, value string) {
	if value != "" {
		v := value
		*dst = &v
	}
}
