package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"rental-watch/config"
	"rental-watch/metrics"
	"rental-watch/models"
	"rental-watch/scraper"
	"rental-watch/storage"
	"rental-watch/utils"
)

// PipelineOptions tunes a Pipeline. Filter is the default for sources that
// carry no filter of their own.
type PipelineOptions struct {
	NotifyEnabled bool
	Filter        config.FilterConfig
	Concurrency   int
	RateLimitMs   int
}

// Pipeline runs walk -> normalise -> filter -> reconcile -> notify over a
// list of sources.
type Pipeline struct {
	walker     *scraper.Walker
	normalizer *Normalizer
	reconciler *Reconciler
	notifier   Notifier
	raw        storage.RawListingWriter
	metrics    *metrics.Registry
	logger     *utils.Logger
	opts       PipelineOptions
	now        func() time.Time
}

func NewPipeline(walker *scraper.Walker, reconciler *Reconciler, notifier Notifier, logger *utils.Logger, opts PipelineOptions) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		walker:     walker,
		normalizer: NewNormalizer(),
		reconciler: reconciler,
		notifier:   notifier,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// WithRawWriter archives every raw sighting, one batch per page.
func (p *Pipeline) WithRawWriter(w storage.RawListingWriter) *Pipeline {
	p.raw = w
	return p
}

func (p *Pipeline) WithMetrics(m *metrics.Registry) *Pipeline {
	p.metrics = m
	return p
}

// Run processes every source and returns the per-source report. Fetch and
// parse failures end only the affected source. A *models.PersistenceError
// stops the whole run: no further source starts, and the error is returned
// together with the report of the sources that did run.
func (p *Pipeline) Run(ctx context.Context, sources []config.Source) (*models.RunReport, error) {
	start := p.now()
	p.reconciler.BeginRun(start)
	gate := NewGate(p.notifier, p.opts.NotifyEnabled, p.logger, p.metrics)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	reports := make([]models.SourceReport, len(sources))
	started := make([]bool, len(sources))

	var (
		fatalMu sync.Mutex
		fatal   error
	)
	runOne := func(i int) {
		if ctx.Err() != nil {
			return
		}
		started[i] = true
		rep, err := p.runSource(ctx, sources[i], gate)
		reports[i] = rep
		if err != nil {
			fatalMu.Lock()
			if fatal == nil {
				fatal = err
			}
			fatalMu.Unlock()
			cancel(err)
		}
	}

	if p.opts.Concurrency == 1 {
		for i := range sources {
			runOne(i)
		}
	} else {
		pool := utils.NewWorkerPool(p.opts.Concurrency, p.opts.RateLimitMs)
		for i := range sources {
			i := i
			pool.Submit(func() { runOne(i) })
		}
		pool.Wait()
	}

	report := &models.RunReport{StartedAt: start, Duration: p.now().Sub(start)}
	for i, ok := range started {
		if ok {
			report.Sources = append(report.Sources, reports[i])
		}
	}

	if p.metrics != nil {
		p.metrics.RunDurationSec.Set(report.Duration.Seconds())
		p.metrics.IndexSize.Set(float64(p.reconciler.Size()))
	}

	if fatal != nil {
		p.logger.Error("[pipeline] Run aborted after %d/%d sources: %v", len(report.Sources), len(sources), fatal)
		return report, fatal
	}
	if err := ctx.Err(); err != nil {
		p.logger.Warn("[pipeline] Run interrupted after %d/%d sources: %v", len(report.Sources), len(sources), err)
		return report, err
	}
	p.logger.Info("[pipeline] Run finished in %s: %d sources, %d new listings, index size %d",
		report.Duration.Round(time.Millisecond), len(report.Sources), report.TotalNew(), p.reconciler.Size())
	return report, nil
}

// runSource walks one source to completion. The returned error is non-nil
// only for persistence failures.
func (p *Pipeline) runSource(ctx context.Context, src config.Source, gate *Gate) (models.SourceReport, error) {
	rep := models.SourceReport{Source: src.Name}
	filter := NewFilter(src.FilterOr(p.opts.Filter))
	walk := p.walker.Walk(src.Name, src)

	p.logger.Info("[pipeline] Walking %s", src.Name)

	var pending []models.RawListing
	page := 0
	flush := func() {
		if p.raw == nil || len(pending) == 0 {
			pending = nil
			return
		}
		if err := p.raw.WriteRaw(pending); err != nil {
			p.logger.Warn("[pipeline] %s: raw archive write failed: %v", src.Name, err)
		}
		pending = nil
	}
	finish := func() {
		flush()
		rep.Pages = walk.Pages()
		p.count(func(m *metrics.Registry) { m.PagesFetched.WithLabelValues(src.Name).Add(float64(rep.Pages)) })
	}

	for walk.Next(ctx) {
		raw := walk.Item()
		if raw.Page != page {
			flush()
			page = raw.Page
		}
		pending = append(pending, raw)
		rep.Items++
		p.count(func(m *metrics.Registry) { m.ItemsParsed.WithLabelValues(src.Name).Inc() })

		rec, err := p.normalizer.Normalize(raw)
		if err != nil {
			rep.Malformed++
			p.count(func(m *metrics.Registry) { m.Malformed.WithLabelValues(src.Name).Inc() })
			p.logger.Warn("[pipeline] %s page %d: skipping item: %v", src.Name, raw.Page, err)
			continue
		}

		if !filter(rec) {
			rep.Filtered++
			p.count(func(m *metrics.Registry) { m.Filtered.WithLabelValues(src.Name).Inc() })
			continue
		}

		class, err := p.reconciler.Reconcile(ctx, rec)
		if err != nil {
			finish()
			rep.Err = err
			return rep, err
		}
		switch class {
		case models.NewListing:
			rep.New++
			p.count(func(m *metrics.Registry) { m.NewListings.WithLabelValues(src.Name).Inc() })
		case models.RepeatSighting:
			rep.Repeat++
			p.count(func(m *metrics.Registry) { m.RepeatSighting.WithLabelValues(src.Name).Inc() })
		}

		if gate.OnClassification(ctx, src.Name, rec, class) {
			rep.Notified++
		}
	}
	finish()

	if err := walk.Err(); err != nil {
		rep.Err = err
		var fe *models.FetchError
		switch {
		case ctx.Err() != nil, errors.Is(err, context.Canceled):
			p.logger.Warn("[pipeline] %s: walk cancelled: %v", src.Name, err)
		case errors.As(err, &fe):
			p.count(func(m *metrics.Registry) { m.FetchErrors.WithLabelValues(src.Name).Inc() })
			p.logger.Error("[pipeline] %s: walk aborted: %v", src.Name, err)
		case errors.Is(err, scraper.ErrPageLimit):
			p.logger.Warn("[pipeline] %s: %v", src.Name, err)
		default:
			p.logger.Error("[pipeline] %s: walk failed: %v", src.Name, err)
		}
	}

	p.logger.Info("[pipeline] %s: %d pages, %d items, %d new, %d repeat, %d malformed, %d filtered",
		src.Name, rep.Pages, rep.Items, rep.New, rep.Repeat, rep.Malformed, rep.Filtered)
	return rep, nil
}

func (p *Pipeline) count(f func(*metrics.Registry)) {
	if p.metrics != nil {
		f(p.metrics)
	}
}
