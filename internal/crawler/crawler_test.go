package crawler_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alvmarrod/source-weaver/internal/config"
	"github.com/alvmarrod/source-weaver/internal/crawler"
	"github.com/alvmarrod/source-weaver/internal/graph"
	"github.com/alvmarrod/source-weaver/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves a fixed link map and records every fetch
type fakeSource struct {
	links map[string][]string
	errs  map[string]error
	calls []string
}

func (f *fakeSource) FetchLinks(_ context.Context, pageURL string) ([]string, error) {
	f.calls = append(f.calls, pageURL)
	if err, ok := f.errs[pageURL]; ok {
		return nil, err
	}
	return f.links[pageURL], nil
}

func newCrawler(maxLevel int, source crawler.LinkSource) *crawler.Crawler {
	cfg := config.Default()
	cfg.MaxLevel = maxLevel
	return crawler.NewCrawler(cfg, source, nil)
}

func TestCrawl_RoundTripScenario(t *testing.T) {
	source := &fakeSource{links: map[string][]string{
		"https://a.test/x": {"https://b.test/y"},
		"https://b.test/y": {},
	}}

	g, err := newCrawler(1, source).Crawl(context.Background(), "https://a.test/x")
	require.NoError(t, err)

	nodes, edges := g.GetStats()
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)
	assert.True(t, g.HasEdge("https://a.test/x", "https://b.test/y"))

	root, ok := g.Node("https://a.test/x")
	require.True(t, ok)
	assert.Equal(t, 0, root.ScanDepth)
	assert.True(t, root.Parsed)
	assert.Equal(t, "a.test", root.Domain)

	child, ok := g.Node("https://b.test/y")
	require.True(t, ok)
	assert.Equal(t, 1, child.ScanDepth)
	assert.False(t, child.Parsed, "depth-1 node must not be expanded at max_level=1")
	assert.Equal(t, "b.test", child.Domain)

	assert.Equal(t, []string{"https://a.test/x"}, source.calls)
}

func TestCrawl_CycleScenario(t *testing.T) {
	source := &fakeSource{links: map[string][]string{
		"https://a.test/": {"https://b.test/"},
		"https://b.test/": {"https://a.test/"},
	}}

	g, err := newCrawler(2, source).Crawl(context.Background(), "https://a.test/")
	require.NoError(t, err)

	nodes, edges := g.GetStats()
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 2, edges)
	assert.True(t, g.HasEdge("https://b.test/", "https://a.test/"))
	assert.Empty(t, g.UnparsedNodes())
	assert.Equal(t, []string{"https://a.test/", "https://b.test/"}, source.calls)

	root, _ := g.Node("https://a.test/")
	assert.Equal(t, 0, root.ScanDepth)
}

func TestCrawl_ZeroLevelDoesNotFetch(t *testing.T) {
	source := &fakeSource{}

	g, err := newCrawler(0, source).Crawl(context.Background(), "https://a.test/x")
	require.NoError(t, err)

	nodes, edges := g.GetStats()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 0, edges)
	assert.Empty(t, source.calls)
}

func TestCrawl_SeedWithoutLinks(t *testing.T) {
	source := &fakeSource{}

	g, err := newCrawler(3, source).Crawl(context.Background(), "https://a.test/x")
	require.NoError(t, err)

	root, _ := g.Node("https://a.test/x")
	assert.True(t, root.Parsed)
	assert.Len(t, g.Nodes(), 1)
	assert.Equal(t, []string{"https://a.test/x"}, source.calls)
}

func TestCrawl_SeedIsNormalized(t *testing.T) {
	source := &fakeSource{links: map[string][]string{
		"https://a.test/x": {"https://b.test/y"},
	}}

	g, err := newCrawler(1, source).Crawl(context.Background(), "https://a.test/x#comments")
	require.NoError(t, err)

	assert.True(t, g.Has("https://a.test/x"))
	assert.Equal(t, []string{"https://a.test/x"}, source.calls)
}

func TestCrawl_FragmentVariantsShareNode(t *testing.T) {
	source := &fakeSource{links: map[string][]string{
		"https://a.test/": {"https://b.test/y#one", "https://b.test/y#two", "https://b.test/y?page=2"},
	}}

	g, err := newCrawler(1, source).Crawl(context.Background(), "https://a.test/")
	require.NoError(t, err)

	nodes, edges := g.GetStats()
	assert.Equal(t, 3, nodes)
	assert.Equal(t, 2, edges)
	assert.True(t, g.Has("https://b.test/y"))
	assert.True(t, g.Has("https://b.test/y?page=2"))
}

func TestCrawl_OrdinalsFollowLinkOrder(t *testing.T) {
	source := &fakeSource{links: map[string][]string{
		"https://s.test/": {"https://c.test/", "https://a.test/", "https://b.test/"},
		"https://c.test/": {"https://d.test/", "https://a.test/"},
		"https://a.test/": {"https://e.test/"},
	}}

	g, err := newCrawler(2, source).Crawl(context.Background(), "https://s.test/")
	require.NoError(t, err)

	want := map[string]graph.Position{
		"https://s.test/": {Depth: 0, Ordinal: 0},
		"https://c.test/": {Depth: 1, Ordinal: 0},
		"https://a.test/": {Depth: 1, Ordinal: 1},
		"https://b.test/": {Depth: 1, Ordinal: 2},
		"https://d.test/": {Depth: 2, Ordinal: 0},
		"https://e.test/": {Depth: 2, Ordinal: 1},
	}
	for _, node := range g.Nodes() {
		assert.Equal(t, want[node.URL], node.Position, node.URL)
		assert.Equal(t, node.ScanDepth, node.Position.Depth, node.URL)
	}
	assert.Len(t, g.Nodes(), len(want))

	// breadth-first: every depth-1 node is expanded, depth-2 nodes are not
	assert.Equal(t, []string{"https://s.test/", "https://c.test/", "https://a.test/", "https://b.test/"}, source.calls)
}

func TestCrawl_FirstDiscoveryWinsDepth(t *testing.T) {
	source := &fakeSource{links: map[string][]string{
		"https://s.test/": {"https://a.test/", "https://b.test/"},
		"https://a.test/": {"https://x.test/"},
		"https://b.test/": {"https://c.test/"},
		"https://x.test/": {"https://c.test/", "https://a.test/"},
		"https://c.test/": {"https://x.test/"},
	}}

	g, err := newCrawler(3, source).Crawl(context.Background(), "https://s.test/")
	require.NoError(t, err)

	x, _ := g.Node("https://x.test/")
	c, _ := g.Node("https://c.test/")
	a, _ := g.Node("https://a.test/")
	assert.Equal(t, 2, x.ScanDepth)
	assert.Equal(t, 2, c.ScanDepth)
	assert.Equal(t, 1, a.ScanDepth)
	assert.True(t, g.HasEdge("https://x.test/", "https://a.test/"))
	assert.True(t, g.HasEdge("https://c.test/", "https://x.test/"))
}

func TestCrawl_SelfLoopAddsOnlyEdge(t *testing.T) {
	plain := &fakeSource{links: map[string][]string{
		"https://a.test/": {"https://b.test/"},
	}}
	looped := &fakeSource{links: map[string][]string{
		"https://a.test/": {"https://a.test/", "https://b.test/"},
		"https://b.test/": {"https://b.test/#self"},
	}}

	gPlain, err := newCrawler(3, plain).Crawl(context.Background(), "https://a.test/")
	require.NoError(t, err)
	gLooped, err := newCrawler(3, looped).Crawl(context.Background(), "https://a.test/")
	require.NoError(t, err)

	plainNodes, plainEdges := gPlain.GetStats()
	loopNodes, loopEdges := gLooped.GetStats()
	assert.Equal(t, plainNodes, loopNodes)
	assert.Equal(t, plainEdges+2, loopEdges)
	assert.True(t, gLooped.HasEdge("https://a.test/", "https://a.test/"))
	assert.True(t, gLooped.HasEdge("https://b.test/", "https://b.test/"))
}

func TestCrawl_DuplicateLinksRecordOneEdge(t *testing.T) {
	source := &fakeSource{links: map[string][]string{
		"https://a.test/": {"https://b.test/", "https://b.test/", "https://b.test/#x"},
	}}
	tracker := metrics.NewTracker()
	cfg := config.Default()
	cfg.MaxLevel = 1

	g, err := crawler.NewCrawler(cfg, source, tracker).Crawl(context.Background(), "https://a.test/")
	require.NoError(t, err)

	_, edges := g.GetStats()
	assert.Equal(t, 1, edges)

	snap := tracker.GetSnapshot()
	assert.Equal(t, 2, snap.NodesDiscovered)
	assert.Equal(t, 1, snap.NodesExpanded)
	assert.Equal(t, 1, snap.EdgesRecorded)
	assert.Equal(t, 1, snap.PagesFetched)
}

func TestCrawl_FetchErrorIsFatal(t *testing.T) {
	cause := errors.New("connection refused")
	source := &fakeSource{
		links: map[string][]string{
			"https://a.test/": {"https://b.test/", "https://c.test/"},
		},
		errs: map[string]error{"https://b.test/": cause},
	}

	g, err := newCrawler(3, source).Crawl(context.Background(), "https://a.test/")
	require.Error(t, err)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, crawler.ErrLinkSource)
	assert.ErrorIs(t, err, cause)

	// no further expansion after the failure
	assert.Equal(t, []string{"https://a.test/", "https://b.test/"}, source.calls)
}

func TestCrawl_SkipPolicyContinues(t *testing.T) {
	source := &fakeSource{
		links: map[string][]string{
			"https://a.test/": {"https://b.test/", "https://c.test/"},
			"https://c.test/": {"https://d.test/"},
		},
		errs: map[string]error{"https://b.test/": errors.New("timeout")},
	}
	cfg := config.Default()
	cfg.MaxLevel = 2
	cfg.OnFetchError = config.OnFetchErrorSkip
	tracker := metrics.NewTracker()

	g, err := crawler.NewCrawler(cfg, source, tracker).Crawl(context.Background(), "https://a.test/")
	require.NoError(t, err)

	b, _ := g.Node("https://b.test/")
	assert.True(t, b.Parsed)
	assert.True(t, g.Has("https://d.test/"))
	assert.Equal(t, 1, tracker.GetSnapshot().PagesFailed)
}

func TestCrawl_CancelledContext(t *testing.T) {
	source := &fakeSource{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newCrawler(3, source).Crawl(ctx, "https://a.test/")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, source.calls)
}

func TestStep_MonotonicGrowth(t *testing.T) {
	source := &fakeSource{links: map[string][]string{
		"https://a.test/": {"https://b.test/", "https://c.test/"},
		"https://b.test/": {"https://a.test/", "https://d.test/"},
		"https://c.test/": {"https://d.test/", "https://e.test/", "https://c.test/"},
		"https://d.test/": {"https://f.test/"},
		"https://e.test/": {"https://b.test/"},
	}}
	c := newCrawler(3, source)
	c.Start("https://a.test/")

	prevNodes, prevEdges := c.Graph().GetStats()
	parsed := map[string]bool{}

	for steps := 0; ; steps++ {
		require.Less(t, steps, 100, "crawl did not halt")

		done, err := c.Step(context.Background())
		require.NoError(t, err)

		nodes, edges := c.Graph().GetStats()
		assert.GreaterOrEqual(t, nodes, prevNodes)
		assert.GreaterOrEqual(t, edges, prevEdges)
		prevNodes, prevEdges = nodes, edges

		for url := range parsed {
			node, _ := c.Graph().Node(url)
			assert.True(t, node.Parsed, "%s reverted to unparsed", url)
		}
		for _, node := range c.Graph().Nodes() {
			if node.Parsed {
				parsed[node.URL] = true
			}
		}

		if done {
			break
		}
	}

	assert.True(t, c.Done())
	for _, depth := range c.Graph().DepthsOfUnparsed() {
		assert.GreaterOrEqual(t, depth, 3)
	}

	// Step after completion keeps reporting done without fetching
	calls := len(source.calls)
	done, err := c.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Len(t, source.calls, calls)
}

func TestStep_RequiresStart(t *testing.T) {
	_, err := newCrawler(1, &fakeSource{}).Step(context.Background())
	assert.Error(t, err)
}

func TestCrawl_TerminatesOnDenseGraph(t *testing.T) {
	const pages = 50
	links := map[string][]string{}
	for i := 0; i < pages; i++ {
		page := fmt.Sprintf("https://p%d.test/", i)
		for j := 0; j < pages; j += 7 {
			links[page] = append(links[page], fmt.Sprintf("https://p%d.test/", (i+j+1)%pages))
		}
	}
	source := &fakeSource{links: links}

	g, err := newCrawler(4, source).Crawl(context.Background(), "https://p0.test/")
	require.NoError(t, err)

	nodes, _ := g.GetStats()
	assert.LessOrEqual(t, nodes, pages)
	assert.LessOrEqual(t, len(source.calls), nodes)
	for _, node := range g.Nodes() {
		assert.LessOrEqual(t, node.ScanDepth, 4)
	}
}
