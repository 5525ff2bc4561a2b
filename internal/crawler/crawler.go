package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alvmarrod/source-weaver/internal/config"
	"github.com/alvmarrod/source-weaver/internal/graph"
	"github.com/alvmarrod/source-weaver/internal/metrics"
	"github.com/sirupsen/logrus"
)

// ErrLinkSource wraps every Link Source failure surfaced by the crawler
var ErrLinkSource = errors.New("link source failed")

// errNotStarted is returned by Step before Start has seeded the graph
var errNotStarted = errors.New("crawler not started")

// LinkSource returns the raw outbound links found on a page
type LinkSource interface {
	FetchLinks(ctx context.Context, pageURL string) ([]string, error)
}

// Crawler expands a provenance graph breadth-first from a seed URL
type Crawler struct {
	maxLevel    int
	skipOnError bool
	source      LinkSource
	tracker     *metrics.Tracker
	graph       *graph.Graph
	queue       *Queue
	done        bool
}

// NewCrawler creates a new crawler instance. A nil tracker gets a private one.
func NewCrawler(cfg *config.Config, source LinkSource, tracker *metrics.Tracker) *Crawler {
	if tracker == nil {
		tracker = metrics.NewTracker()
	}

	return &Crawler{
		maxLevel:    cfg.MaxLevel,
		skipOnError: cfg.OnFetchError == config.OnFetchErrorSkip,
		source:      source,
		tracker:     tracker,
	}
}

// Start resets the crawler to a graph holding only the unparsed root node
func (c *Crawler) Start(seedURL string) {
	root := Normalize(seedURL)

	c.graph = graph.New()
	c.queue = NewQueue()
	c.done = false

	c.graph.AddNode(root, 0, ExtractDomain(seedURL))
	c.queue.Push(Entry{URL: root, Depth: 0})
	c.tracker.Inc(metrics.NodesDiscovered)

	logrus.Infof("Seeded crawl with %s (max_level=%d)", root, c.maxLevel)
}

// Graph returns the graph being built
func (c *Crawler) Graph() *graph.Graph {
	return c.graph
}

// Done reports whether the stop condition has been reached
func (c *Crawler) Done() bool {
	return c.done
}

// Crawl runs a full crawl from seedURL and returns the final graph.
// Any Link Source failure aborts the crawl unless the skip policy is configured.
func (c *Crawler) Crawl(ctx context.Context, seedURL string) (*graph.Graph, error) {
	c.Start(seedURL)

	for {
		done, err := c.Step(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			return c.graph, nil
		}
	}
}

// Step evaluates the stop condition and, if the crawl is not finished,
// expands the oldest unparsed node. Returns true once the crawl is done.
func (c *Crawler) Step(ctx context.Context) (bool, error) {
	if c.graph == nil {
		return false, errNotStarted
	}
	if c.done {
		return true, nil
	}

	if c.shouldStop() {
		c.done = true
		nodes, edges := c.graph.GetStats()
		logrus.Infof("Crawl complete: %d nodes, %d edges, %d unexpanded at depth >= %d",
			nodes, edges, c.queue.Size(), c.maxLevel)
		return true, nil
	}

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("crawl cancelled: %w", err)
	}

	entry, ok := c.queue.Pop()
	if !ok {
		// queue and graph disagree about the frontier
		return false, fmt.Errorf("frontier empty with %d unparsed nodes", len(c.graph.DepthsOfUnparsed()))
	}

	if err := c.expand(ctx, entry); err != nil {
		return false, err
	}
	return false, nil
}

// shouldStop is true when no unparsed node sits below maxLevel,
// including the case where nothing is left unparsed.
func (c *Crawler) shouldStop() bool {
	for _, depth := range c.graph.DepthsOfUnparsed() {
		if depth < c.maxLevel {
			return false
		}
	}
	return true
}

// expand fetches the links of one node and merges them into the graph
func (c *Crawler) expand(ctx context.Context, entry Entry) error {
	node, ok := c.graph.Node(entry.URL)
	if !ok {
		return fmt.Errorf("expand %s: %w", entry.URL, graph.ErrNodeNotFound)
	}

	logrus.Infof("Expanding %s (depth=%d)", node.URL, node.ScanDepth)

	start := time.Now()
	links, err := c.source.FetchLinks(ctx, node.URL)
	c.tracker.RecordFetchTime(time.Since(start))

	if err != nil {
		c.tracker.Inc(metrics.PagesFailed)
		if !c.skipOnError {
			logrus.Errorf("Fetch failed for %s: %v", node.URL, err)
			return fmt.Errorf("%w: expand %s: %w", ErrLinkSource, node.URL, err)
		}
		logrus.Warnf("Fetch failed for %s, marking parsed with no links: %v", node.URL, err)
		links = nil
	} else {
		c.tracker.Inc(metrics.PagesFetched)
	}

	newDepth := node.ScanDepth + 1
	for _, link := range links {
		target := Normalize(link)

		if c.graph.AddNode(target, newDepth, ExtractDomain(link)) {
			c.queue.Push(Entry{URL: target, Depth: newDepth})
			c.tracker.Inc(metrics.NodesDiscovered)
			logrus.Debugf("Discovered %s (depth=%d)", target, newDepth)
		}

		created, err := c.graph.AddEdge(node.URL, target)
		if err != nil {
			return fmt.Errorf("record edge %s -> %s: %w", node.URL, target, err)
		}
		if created {
			c.tracker.Inc(metrics.EdgesRecorded)
		}
	}

	if err := c.graph.MarkParsed(node.URL); err != nil {
		return err
	}
	c.tracker.Inc(metrics.NodesExpanded)

	logrus.Infof("Expanded %s: %d links, %d unexpanded queued", node.URL, len(links), c.queue.Size())
	return nil
}
