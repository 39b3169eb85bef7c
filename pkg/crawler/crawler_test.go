package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/link-auditor/pkg/config"
	"github.com/Sriram-PR/link-auditor/pkg/fetch"
	"github.com/Sriram-PR/link-auditor/pkg/metrics"
	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/storage"
	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

const base = "https://x.hse.ie/"

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// fakeFetcher serves canned responses keyed by URL. Unknown URLs get a bare 404.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]*fetch.Response
	errs  map[string]error
	calls map[string]int

	delay   time.Duration
	block   bool             // wait for ctx instead of answering
	onFetch func(url string) // runs before the response is produced

	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[string]*fetch.Response),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) html(url, body string) {
	f.pages[url] = &fetch.Response{
		URL:        url,
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       []byte(body),
	}
}

func (f *fakeFetcher) respond(url string, code int, header http.Header, body string) {
	if header == nil {
		header = http.Header{}
	}
	f.pages[url] = &fetch.Response{URL: url, StatusCode: code, Header: header, Body: []byte(body)}
}

func (f *fakeFetcher) redirect(url string, code int, location string) {
	f.respond(url, code, http.Header{"Location": []string{location}}, "")
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*fetch.Response, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[url]++
	f.mu.Unlock()

	if f.onFetch != nil {
		f.onFetch(url)
	}
	if f.block {
		<-ctx.Done()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", utils.ErrFetch, url, ctx.Err())
	}
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if resp, ok := f.pages[url]; ok {
		return resp, nil
	}
	return &fetch.Response{URL: url, StatusCode: http.StatusNotFound, Header: http.Header{}}, nil
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) assertFetchedAtMostOnce(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for url, n := range f.calls {
		assert.LessOrEqual(t, n, 1, "fetched more than once: %s", url)
	}
}

func testConfig(t *testing.T, baseURL, suffix string) *config.AppConfig {
	t.Helper()
	cfg := &config.AppConfig{
		BaseURL:      baseURL,
		DomainSuffix: suffix,
		NumWorkers:   1,
		OutputDir:    t.TempDir(),
		StateDir:     t.TempDir(),
	}
	_, err := cfg.Validate()
	require.NoError(t, err)
	return cfg
}

func newTestCrawler(t *testing.T, cfg *config.AppConfig, f fetch.HTTPFetcher, store storage.CrawlStore, rec metrics.Recorder) *Crawler {
	t.Helper()
	c, err := NewCrawler(cfg, f, store, rec, testLogger())
	require.NoError(t, err)
	return c
}

func urlsOf(results []models.CrawlResult) []string {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		urls = append(urls, r.URL)
	}
	return urls
}

func resultFor(t *testing.T, results []models.CrawlResult, url string) models.CrawlResult {
	t.Helper()
	for _, r := range results {
		if r.URL == url {
			return r
		}
	}
	t.Fatalf("no result for %s in %v", url, urlsOf(results))
	return models.CrawlResult{}
}

func TestCrawler_HTMLPageWithMixedLinks(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, `
		<a href="/a">A</a>
		<a href="https://evil.com/">External</a>
		<a href="/list?page=2">Listing</a>
		<a href="/a#section">Same page</a>`)
	f.html(base+"a", `<a href="/">Home</a><a href="/list?page=5">Listing again</a>`)
	f.html(base+"list/?", `<p>listing</p>`)

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{base, base + "a", base + "list/?"}, urlsOf(results))
	for _, r := range results {
		assert.Equal(t, http.StatusOK, r.HTTPCode)
		assert.Equal(t, r.URL, r.Referer)
		assert.Empty(t, r.RedirectsTo)
	}
	assert.Equal(t, base, resultFor(t, results, base+"a").DiscoveredFrom)
	assert.Equal(t, base, resultFor(t, results, base+"list/?").DiscoveredFrom)
	assert.Empty(t, resultFor(t, results, base).DiscoveredFrom)

	assert.Zero(t, f.callCount("https://evil.com/"))
	f.assertFetchedAtMostOnce(t)
}

func TestCrawler_RelativeRedirectIsFollowed(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, `<a href="/old">old</a>`)
	f.redirect(base+"old", http.StatusMovedPermanently, "/new")
	f.html(base+"new", `<a href="/old">back</a>`)

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	old := resultFor(t, results, base+"old")
	assert.Equal(t, http.StatusMovedPermanently, old.HTTPCode)
	assert.Equal(t, base+"new", old.RedirectsTo)
	assert.Equal(t, base+"old", old.Referer)

	newPage := resultFor(t, results, base+"new")
	assert.Equal(t, http.StatusOK, newPage.HTTPCode)
	assert.Equal(t, base+"old", newPage.DiscoveredFrom)

	assert.Equal(t, 1, f.callCount(base+"new"))
	assert.Len(t, results, 3)
}

func TestCrawler_ExternalRedirectRecordedNotFollowed(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, `<a href="/out">out</a>`)
	f.redirect(base+"out", http.StatusFound, "https://evil.com/landing")

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	out := resultFor(t, results, base+"out")
	assert.Equal(t, http.StatusFound, out.HTTPCode)
	assert.Equal(t, "https://evil.com/landing", out.RedirectsTo)
	assert.Zero(t, f.callCount("https://evil.com/landing"))
}

func TestCrawler_RedirectLoopTerminates(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, `<a href="/r1">r1</a>`)
	f.redirect(base+"r1", http.StatusFound, "/r2")
	f.redirect(base+"r2", http.StatusFound, "/r1")

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Len(t, results, 3)
	assert.Equal(t, 1, f.callCount(base+"r1"))
	assert.Equal(t, 1, f.callCount(base+"r2"))
}

func TestCrawler_RedirectToQueuedURLFetchedOnce(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, `<a href="/moved">m</a><a href="/target">t</a>`)
	f.redirect(base+"moved", http.StatusMovedPermanently, "/target")
	f.html(base+"target", ``)

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, f.callCount(base+"target"))
	assert.Len(t, results, 3)
}

func TestCrawler_FetchErrorProducesNoResult(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, `<a href="/down">down</a><a href="/up">up</a>`)
	f.errs[base+"down"] = fmt.Errorf("%w: GET %sdown: dial tcp: connection refused", utils.ErrFetch, base)
	f.html(base+"up", ``)

	rec, err := metrics.NewPrometheusRecorder()
	require.NoError(t, err)

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), rec)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{base, base + "up"}, urlsOf(results))
	assert.Equal(t, 1, f.callCount(base+"down"))
	assert.Equal(t, int64(1), c.Progress().Failures)

	n, err := testutil.GatherAndCount(rec.Registry(), "link_auditor_fetch_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCrawler_OnlyHTML200IsParsed(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, `<a href="/doc.pdf">pdf</a><a href="/gone">gone</a><a href="/shout">upper</a>`)
	f.respond(base+"doc.pdf", http.StatusOK,
		http.Header{"Content-Type": []string{"application/pdf"}}, `<a href="/from-pdf">x</a>`)
	f.respond(base+"gone", http.StatusNotFound,
		http.Header{"Content-Type": []string{"text/html"}}, `<a href="/from-404">x</a>`)
	f.respond(base+"shout", http.StatusOK,
		http.Header{"Content-Type": []string{"TEXT/HTML"}}, `<a href="/from-upper">x</a>`)

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Zero(t, f.callCount(base+"from-pdf"))
	assert.Zero(t, f.callCount(base+"from-404"))
	assert.Equal(t, 1, f.callCount(base+"from-upper"))
	assert.Equal(t, http.StatusNotFound, resultFor(t, results, base+"gone").HTTPCode)
}

func TestCrawler_PagesOutsideBaseNotParsed(t *testing.T) {
	appBase := "https://x.hse.ie/app/"
	f := newFakeFetcher()
	f.html(appBase, `<a href="/other">sibling</a><a href="/app/inner">inner</a>`)
	f.html("https://x.hse.ie/other", `<a href="/from-other">x</a>`)
	f.html(appBase+"inner", `<a href="/app/deeper">x</a>`)

	c := newTestCrawler(t, testConfig(t, appBase, "hse.ie"), f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resultFor(t, results, "https://x.hse.ie/other").HTTPCode)
	assert.Zero(t, f.callCount("https://x.hse.ie/from-other"))
	assert.Equal(t, 1, f.callCount(appBase+"deeper"))
}

func TestCrawler_SubdomainsAreInternal(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, `<a href="https://www2.hse.ie/page">sub</a><a href="https://hse.ie.evil.com/">lookalike</a>`)

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)
	_, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, f.callCount("https://www2.hse.ie/page"))
	assert.Zero(t, f.callCount("https://hse.ie.evil.com/"))
}

func TestCrawler_SeedIsNormalized(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, `<a href="/">self</a><a href="https://X.HSE.IE:443/">self again</a>`)

	c := newTestCrawler(t, testConfig(t, "https://X.hse.ie", "hse.ie"), f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, base, c.BaseURL())
	assert.Equal(t, []string{base}, urlsOf(results))
	assert.Equal(t, 1, f.callCount(base))
}

func TestCrawler_PaginationDropMode(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, `<a href="/list?page=2&sort=asc">a</a><a href="/list?page=3&sort=desc">b</a>`)

	cfg := testConfig(t, base, "hse.ie")
	cfg.PaginationMode = config.PaginationDrop
	c := newTestCrawler(t, cfg, f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{base, base + "list/?"}, urlsOf(results))
}

func TestCrawler_ParallelFetchesEachURLOnce(t *testing.T) {
	const pages = 20
	f := newFakeFetcher()
	f.delay = 5 * time.Millisecond

	var home strings.Builder
	for i := range pages {
		fmt.Fprintf(&home, `<a href="/p%d">p%d</a>`, i, i)
	}
	f.html(base, home.String())
	for i := range pages {
		f.html(fmt.Sprintf("%sp%d", base, i), fmt.Sprintf(
			`<a href="/p%d">next</a><a href="/p%d">skip</a><a href="/q%d">leaf</a><a href="/">home</a>`,
			(i+1)%pages, (i+7)%pages, i))
		f.respond(fmt.Sprintf("%sq%d", base, i), http.StatusOK,
			http.Header{"Content-Type": []string{"application/json"}}, `{}`)
	}

	cfg := testConfig(t, base, "hse.ie")
	cfg.NumWorkers = 4
	c := newTestCrawler(t, cfg, f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Len(t, results, 1+2*pages)
	f.assertFetchedAtMostOnce(t)
	assert.LessOrEqual(t, f.peak.Load(), int32(4))
	assert.Greater(t, f.peak.Load(), int32(1))

	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.URL], "duplicate result for %s", r.URL)
		seen[r.URL] = true
	}
}

func TestCrawler_CancelReturnsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeFetcher()
	f.html(base, `<a href="/a">a</a><a href="/b">b</a><a href="/c">c</a>`)
	f.html(base+"a", ``)
	f.onFetch = func(url string) {
		if url == base+"b" {
			cancel()
		}
	}

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)
	results, err := c.Run(ctx, false)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{base, base + "a"}, urlsOf(results))
	assert.Zero(t, f.callCount(base+"c"))
}

func TestCrawler_GlobalTimeout(t *testing.T) {
	f := newFakeFetcher()
	f.block = true

	cfg := testConfig(t, base, "hse.ie")
	cfg.GlobalCrawlTimeout = 50 * time.Millisecond
	c := newTestCrawler(t, cfg, f, storage.NewMemoryStore(), nil)

	results, err := c.Run(context.Background(), false)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, results, "a started crawl returns an empty slice, not nil")
	assert.Len(t, results, 0)
	assert.Zero(t, c.Progress().Failures, "a fetch cut short by the timeout is not a fetch failure")
}

func TestCrawler_UnreachableSeedReturnsEmptyResults(t *testing.T) {
	f := newFakeFetcher()
	f.errs[base] = fmt.Errorf("%w: GET %s: dial tcp: connection refused", utils.ErrFetch, base)

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, results)
	assert.Len(t, results, 0)
	assert.Equal(t, int64(1), c.Progress().Failures)
}

func TestCrawler_CancelRequeuesInterruptedFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeFetcher()
	f.html(base, `<a href="/a">a</a><a href="/b">b</a><a href="/c">c</a>`)
	f.onFetch = func(url string) {
		if url == base+"b" {
			cancel()
		}
	}

	store := storage.NewMemoryStore()
	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, store, nil)
	_, err := c.Run(ctx, false)
	require.ErrorIs(t, err, context.Canceled)

	visited, err := store.IsVisited(base + "b")
	require.NoError(t, err)
	assert.False(t, visited)

	pending, err := store.LoadFrontier()
	require.NoError(t, err)
	assert.Equal(t, []models.QueueItem{
		{URL: base + "b", DiscoveredFrom: base},
		{URL: base + "c", DiscoveredFrom: base},
	}, pending)
	assert.Zero(t, c.Progress().Failures)
}

func TestCrawler_RunWhileRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeFetcher()
	f.block = true
	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(ctx, false)
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Progress().Running }, time.Second, 5*time.Millisecond)
	_, err := c.Run(ctx, false)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, c.Progress().Running)
}

func TestCrawler_ResumeContinuesFromCheckpoint(t *testing.T) {
	cfg := testConfig(t, base, "hse.ie")
	cfg.PersistState = true

	f := newFakeFetcher()
	f.html(base, `<a href="/a">a</a><a href="/b">b</a><a href="/c">c</a>`)
	f.html(base+"a", ``)
	f.html(base+"c", `<a href="/d">d</a>`)
	f.html(base+"d", ``)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.onFetch = func(url string) {
		if url == base+"b" {
			cancel()
		}
	}

	store, err := storage.NewBadgerStore(context.Background(), cfg.StateDir, "x.hse.ie", false, testLogger())
	require.NoError(t, err)
	first := newTestCrawler(t, cfg, f, store, nil)
	partial, err := first.Run(ctx, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{base, base + "a"}, urlsOf(partial))
	require.NoError(t, store.Close())

	f.onFetch = nil
	store, err = storage.NewBadgerStore(context.Background(), cfg.StateDir, "x.hse.ie", true, testLogger())
	require.NoError(t, err)
	defer store.Close()

	second := newTestCrawler(t, cfg, f, store, nil)
	results, err := second.Run(context.Background(), true)
	require.NoError(t, err)

	// /b was in flight at cancellation and is fetched again first
	assert.Equal(t, []string{base, base + "a", base + "b", base + "c", base + "d"}, urlsOf(results))
	assert.Equal(t, 2, f.callCount(base+"b"))
	for _, u := range []string{base, base + "a", base + "c", base + "d"} {
		assert.Equal(t, 1, f.callCount(u), u)
	}
}

func TestCrawler_ResumeWithoutStateStartsFresh(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, ``)

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{base}, urlsOf(results))
}

func TestCrawler_Progress(t *testing.T) {
	f := newFakeFetcher()
	f.html(base, `<a href="/a">a</a><a href="/missing">m</a>`)
	f.html(base+"a", ``)

	c := newTestCrawler(t, testConfig(t, base, "hse.ie"), f, storage.NewMemoryStore(), nil)
	assert.True(t, c.Progress().StartedAt.IsZero())

	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	p := c.Progress()
	assert.Equal(t, c.RunID(), p.RunID)
	assert.False(t, p.Running)
	assert.Equal(t, int64(len(results)), p.Processed)
	assert.Equal(t, 3, p.Visited)
	assert.Zero(t, p.Queued)
	assert.False(t, p.StartedAt.IsZero())
}

func TestCrawler_AgainstHTTPServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<a href="/a">a</a><a href="/old">old</a><a href="/missing">m</a>
			<a href="/file.pdf">pdf</a><a href="https://example.com/">ext</a>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, `<a href="./">home</a>`)
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/a", http.StatusFound)
	})
	mux.HandleFunc("/file.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, "%PDF-1.4")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig(t, server.URL, "127.0.0.1")
	log := testLogger()
	fetcher := fetch.NewFetcher(fetch.NewClient(cfg.HTTPClientSettings, log), cfg, log)

	c := newTestCrawler(t, cfg, fetcher, storage.NewMemoryStore(), nil)
	results, err := c.Run(context.Background(), false)
	require.NoError(t, err)

	root := server.URL + "/"
	codes := make(map[string]int)
	for _, r := range results {
		codes[r.URL] = r.HTTPCode
	}
	assert.Equal(t, map[string]int{
		root:              http.StatusOK,
		root + "a":        http.StatusOK,
		root + "old":      http.StatusFound,
		root + "missing":  http.StatusNotFound,
		root + "file.pdf": http.StatusOK,
	}, codes)
	assert.Equal(t, root+"a", resultFor(t, results, root+"old").RedirectsTo)
}

func TestClassify(t *testing.T) {
	html := http.Header{"Content-Type": []string{"text/html"}}
	tests := []struct {
		name    string
		resp    *fetch.Response
		current string
		want    models.ResponseKind
	}{
		{"redirect with location", &fetch.Response{StatusCode: 301, Header: http.Header{"Location": []string{"/x"}}}, base + "a", models.ResponseKindRedirect},
		{"3xx without location", &fetch.Response{StatusCode: 304, Header: http.Header{}}, base + "a", models.ResponseKindOther},
		{"location on 200 ignored", &fetch.Response{StatusCode: 200, Header: http.Header{"Location": []string{"/x"}}}, base + "a", models.ResponseKindOther},
		{"html 200 under base", &fetch.Response{StatusCode: 200, Header: html}, base + "a", models.ResponseKindHTML},
		{"html 200 outside base", &fetch.Response{StatusCode: 200, Header: html}, "https://y.hse.ie/", models.ResponseKindOther},
		{"html 404", &fetch.Response{StatusCode: 404, Header: html}, base + "a", models.ResponseKindOther},
		{"second content-type value", &fetch.Response{StatusCode: 200, Header: http.Header{"Content-Type": []string{"text/plain", "text/html"}}}, base, models.ResponseKindHTML},
		{"no content-type", &fetch.Response{StatusCode: 200, Header: http.Header{}}, base, models.ResponseKindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.resp, tt.current, base))
		})
	}
}

func TestNewCrawler_InvalidBase(t *testing.T) {
	cfg := &config.AppConfig{BaseURL: "://nope", DomainSuffix: "hse.ie"}
	_, err := NewCrawler(cfg, newFakeFetcher(), storage.NewMemoryStore(), nil, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")
}
