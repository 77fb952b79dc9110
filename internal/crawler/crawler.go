package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alvmarrod/pathweb/internal/memory"
	"github.com/alvmarrod/pathweb/internal/metrics"
	"github.com/alvmarrod/pathweb/internal/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Termination reasons
const (
	ReasonDrained   = "drained"
	ReasonCapacity  = "capacity"
	ReasonCancelled = "cancelled"
)

// DefaultIdleBackoff is how long an idle worker sleeps before polling again
const DefaultIdleBackoff = 50 * time.Millisecond

// Options holds the limits and filters of one crawl run
type Options struct {
	MaxDepth         int
	MaxURLs          int
	MatchSubstring   string
	IgnoreSubstrings []string
	IgnoreExtensions []string
	Concurrency      int
	Verbosity        Verbosity
	IdleBackoff      time.Duration
}

// Validate checks that the limits are usable
func (o Options) Validate() error {
	if o.MaxDepth < 0 {
		return fmt.Errorf("max depth must be >= 0")
	}
	if o.MaxURLs < 1 {
		return fmt.Errorf("max urls must be >= 1")
	}
	if o.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1")
	}
	return nil
}

// Result is the outcome of a finished run
type Result struct {
	SeedURL   string
	StartedAt time.Time
	Nodes     []storage.Node
	Edges     []storage.Edge
	Reason    string
	Stats     storage.Metrics
}

// Crawler orchestrates one crawl run: it owns the frontier and the graph,
// runs the worker pool and decides when the crawl is over
type Crawler struct {
	opts      Options
	fetcher   Fetcher
	extractor Extractor
	reporter  Reporter
	filter    *Filter
	frontier  *Frontier
	graph     *memory.LinkGraph
	tracker   *metrics.Tracker

	stopOnce sync.Once
	stop     context.CancelFunc
	reasonMu sync.Mutex
	reason   string
}

// NewCrawler creates a crawler. A nil reporter discards all events.
func NewCrawler(opts Options, fetcher Fetcher, extractor Extractor, reporter Reporter) (*Crawler, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if fetcher == nil || extractor == nil {
		return nil, errors.New("fetcher and extractor are required")
	}
	if opts.IdleBackoff <= 0 {
		opts.IdleBackoff = DefaultIdleBackoff
	}

	return &Crawler{
		opts:      opts,
		fetcher:   fetcher,
		extractor: extractor,
		reporter:  withVerbosity(reporter, opts.Verbosity),
		filter:    NewFilter(opts.MatchSubstring, opts.IgnoreSubstrings, opts.IgnoreExtensions),
		frontier:  NewFrontier(),
		graph:     memory.NewLinkGraph(opts.MaxURLs),
		tracker:   metrics.NewTracker(),
	}, nil
}

// Tracker exposes the run's metrics, e.g. for periodic progress logging
func (c *Crawler) Tracker() *metrics.Tracker {
	return c.tracker
}

// Graph exposes the run's graph
func (c *Crawler) Graph() *memory.LinkGraph {
	return c.graph
}

// Run crawls from seedURL until the frontier drains, the node cap is hit or
// ctx is cancelled. The partial graph is returned in every case; only an
// invalid seed is reported as an error.
func (c *Crawler) Run(ctx context.Context, seedURL string) (*Result, error) {
	seed, ok := parseAbsolute(seedURL)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeedURL, seedURL)
	}

	startedAt := time.Now()
	seedKey := CanonicalKey(seed.String())

	if _, _, err := c.graph.AddNode(seedKey, seedURL, 0); err != nil {
		return nil, fmt.Errorf("failed to create seed node: %w", err)
	}
	c.tracker.IncrementNodesDiscovered()
	c.frontier.Push(Task{URL: seedURL, Key: seedKey, Depth: 0})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.stop = cancel

	logrus.Infof("Starting %d crawler workers (max depth %d, max urls %d)",
		c.opts.Concurrency, c.opts.MaxDepth, c.opts.MaxURLs)

	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < c.opts.Concurrency; i++ {
		id := i + 1
		g.Go(func() error {
			c.worker(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		c.finish(ReasonCancelled)
	}
	c.finish(ReasonDrained)

	reason := c.terminationReason()
	c.tracker.SetTerminationReason(reason)
	nodes, edges := c.graph.GetStats()
	logrus.Infof("Crawl finished (%s): %d nodes, %d edges", reason, nodes, edges)

	return &Result{
		SeedURL:   seedURL,
		StartedAt: startedAt,
		Nodes:     c.graph.Nodes(),
		Edges:     c.graph.Edges(),
		Reason:    reason,
		Stats:     c.tracker.GetSnapshot(),
	}, nil
}

// worker processes frontier tasks until the run stops or the frontier drains
func (c *Crawler) worker(ctx context.Context, id int) {
	logrus.Debugf("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			logrus.Debugf("Worker %d received stop signal", id)
			return
		default:
		}

		task, ok := c.frontier.Pop()
		if !ok {
			if c.frontier.Drained() {
				logrus.Debugf("Worker %d: frontier drained, exiting", id)
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(c.opts.IdleBackoff):
			}
			continue
		}

		c.process(ctx, task)
		c.frontier.Done()
	}
}

// process fetches one task and records what it links to
func (c *Crawler) process(ctx context.Context, task Task) {
	if task.Depth > c.opts.MaxDepth {
		c.tracker.IncrementTasksOverDepth()
		return
	}

	start := time.Now()
	content, err := c.fetcher.Fetch(ctx, task.URL)
	c.tracker.RecordFetchTime(time.Since(start))
	if err != nil {
		if errors.Is(err, ErrContentRead) {
			c.tracker.IncrementPagesUnreadable()
			logrus.Errorf("Failed to read content of %s: %v", task.URL, err)
			c.reporter.Failed(task.URL, err)
		} else {
			c.tracker.IncrementPagesFailed()
			logrus.Debugf("Discarding %s: %v", task.URL, err)
			c.reporter.Invalid(task.URL, err.Error())
		}
		return
	}
	c.tracker.IncrementPagesFetched()

	childDepth := task.Depth + 1
	if childDepth > c.opts.MaxDepth {
		return
	}

	for _, link := range c.candidates(task, content) {
		if !c.record(task, link, childDepth) {
			return
		}
	}
}

// link is a resolved, filtered and canonicalized candidate
type link struct {
	url string
	key string
}

// candidates extracts, resolves, filters and canonicalizes the links of a page.
// A resource linked several times from the same page is returned once.
func (c *Crawler) candidates(task Task, content string) []link {
	seen := make(map[string]bool)
	var links []link

	for _, raw := range c.extractor.Extract(content) {
		resolved, ok := Resolve(raw, task.URL)
		if !ok {
			c.tracker.IncrementLinksRejected()
			continue
		}

		if reason := c.filter.Reason(resolved); reason != Accepted {
			c.tracker.IncrementLinksRejected()
			c.reporter.Invalid(resolved, string(reason))
			continue
		}

		key := CanonicalKey(resolved)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, link{url: resolved, key: key})
	}

	return links
}

// record adds the node and edge for one link and queues it for crawling.
// Returns false once the node cap has been reached.
func (c *Crawler) record(task Task, l link, depth int) bool {
	idx, created, err := c.graph.AddNode(l.key, l.url, depth)
	if errors.Is(err, memory.ErrCapacityReached) {
		logrus.Infof("Reached max urls (%d), stopping crawl", c.opts.MaxURLs)
		c.finish(ReasonCapacity)
		return false
	}

	if c.graph.AddEdge(task.Key, idx) {
		c.tracker.IncrementEdgesRecorded()
		c.reporter.Discovered(task.Key, l.url, c.graph.OutDegree(task.Key))
	}

	if created {
		c.tracker.IncrementNodesDiscovered()
	} else if !c.graph.Relax(idx, depth) {
		return true
	}

	// A task at MaxDepth could not record anything
	if depth < c.opts.MaxDepth {
		c.frontier.Push(Task{
			URL:       l.url,
			Key:       l.key,
			Depth:     depth,
			ParentURL: task.URL,
			ParentKey: task.Key,
		})
	}
	return true
}

// finish sets the termination reason once and stops all workers
func (c *Crawler) finish(reason string) {
	c.stopOnce.Do(func() {
		c.reasonMu.Lock()
		c.reason = reason
		c.reasonMu.Unlock()

		c.frontier.Stop()
		if c.stop != nil {
			c.stop()
		}
	})
}

func (c *Crawler) terminationReason() string {
	c.reasonMu.Lock()
	defer c.reasonMu.Unlock()
	return c.reason
}
