package tracking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"shortlink/internal/domain"
	"shortlink/internal/repository"
	"shortlink/pkg/logger"
)

// Job is the tracking hand-off payload from the resolver. It carries the
// link id (not the code) plus raw request metadata; classification and geo
// enrichment happen off the request path.
type Job struct {
	ShortLinkID uint
	IPAddress   string
	UserAgent   string
	Referer     string
}

// Pipeline is the asynchronous click-tracking pipeline: a bounded in-process
// channel feeding a worker pool. Delivery is at-least-once within the process
// lifetime; a dropped or duplicated event is acceptable. Enqueue never blocks
// the caller - when the buffer is full the incoming job is rejected.
type Pipeline struct {
	links      repository.LinkRepository
	clicks     repository.ClickRepository
	geo        GeoResolver
	logger     *logger.Logger
	jobs       chan Job
	workers    int
	jobTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// NewPipeline creates a click pipeline with the given worker count and
// bounded buffer capacity. A nil geo resolver defaults to the noop resolver.
func NewPipeline(
	links repository.LinkRepository,
	clicks repository.ClickRepository,
	geo GeoResolver,
	log *logger.Logger,
	workers, buffer int,
	jobTimeout time.Duration,
) *Pipeline {
	if geo == nil {
		geo = NoopGeoResolver{}
	}
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}

	return &Pipeline{
		links:      links,
		clicks:     clicks,
		geo:        geo,
		logger:     log,
		jobs:       make(chan Job, buffer),
		workers:    workers,
		jobTimeout: jobTimeout,
	}
}

// Start launches the worker pool. Workers run detached from any request
// context and exit when the intake channel is closed by Stop.
func (p *Pipeline) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.process(job)
			}
		}()
	}
	p.logger.Info("Click pipeline started", "workers", p.workers, "buffer", cap(p.jobs))
}

// Enqueue hands off a tracking job without blocking. Returns false when the
// pipeline is stopped or the buffer is full (reject-new backpressure policy);
// the caller never waits and never sees pipeline failures.
func (p *Pipeline) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	select {
	case p.jobs <- job:
		return true
	default:
		// Buffer full: drop the incoming job to keep the redirect fast
		p.dropped.Add(1)
		p.logger.Warn("Click pipeline buffer full, job dropped", "short_link_id", job.ShortLinkID)
		return false
	}
}

// Stop closes intake and drains in-flight jobs before returning
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Click pipeline stopped", "dropped_total", p.dropped.Load())
}

// Dropped returns the number of jobs rejected due to a full buffer
func (p *Pipeline) Dropped() int64 {
	return p.dropped.Load()
}

// process handles one job: confirm the link still exists, classify the
// user agent, enrich with geo data, persist the click fact. Failures are
// logged and the job is dropped; nothing propagates to the redirect caller.
func (p *Pipeline) process(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
	defer cancel()

	if _, err := p.links.FindByID(ctx, job.ShortLinkID); err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			// Link vanished between redirect and processing; discard silently
			p.logger.Debug("Click references missing link, discarded", "short_link_id", job.ShortLinkID)
			return
		}
		p.logger.Error("Failed to resolve link for click", "error", err, "short_link_id", job.ShortLinkID)
		return
	}

	c := Classify(job.UserAgent)

	// Keep the raw string within the column bound
	ua := job.UserAgent
	if len(ua) > 512 {
		ua = ua[:512]
	}

	// Geo enrichment is best effort; the pipeline tolerates its absence
	loc, err := p.geo.Lookup(ctx, job.IPAddress)
	if err != nil {
		p.logger.Debug("Geo lookup failed", "error", err, "ip", job.IPAddress)
		loc = Location{}
	}

	click := &domain.ClickEvent{
		ShortLinkID: job.ShortLinkID,
		IPAddress:   job.IPAddress,
		UserAgent:   ua,
		DeviceType:  c.DeviceType,
		Browser:     c.Browser,
		OS:          c.OS,
		Country:     loc.Country,
		City:        loc.City,
	}
	if job.Referer != "" {
		click.Referer = &job.Referer
	}

	if err := p.clicks.Insert(ctx, click); err != nil {
		p.logger.Error("Failed to persist click event", "error", err, "short_link_id", job.ShortLinkID)
	}
}
