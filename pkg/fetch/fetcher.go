package fetch

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/link-auditor/pkg/config"
	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

// HTTPFetcher retrieves a single URL without following redirects
type HTTPFetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Response is a fully read HTTP response. Any status code is a valid Response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header // Case-insensitive through Get/Values
	Body       []byte
	Truncated  bool // Body was cut at max_body_bytes
}

// Location returns the Location header, or "" when absent
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

// ContentTypes returns every Content-Type header value
func (r *Response) ContentTypes() []string {
	return r.Header.Values("Content-Type")
}

// Fetcher performs GET requests with the crawler's fixed headers
type Fetcher struct {
	client *http.Client
	cfg    *config.AppConfig // headers, body cap and retry settings
	log    *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, cfg *config.AppConfig, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

// Fetch issues a GET for rawURL and reads the body.
// HTTP status codes are never errors. Only network-level failures are returned,
// wrapped with utils.ErrFetch, after up to MaxRetries additional attempts with
// exponential backoff and jitter.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	reqLog := f.log.WithField("url", rawURL)
	maxRetries := f.cfg.MaxRetries

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := f.backoff(attempt)
			reqLog.WithFields(logrus.Fields{"attempt": attempt, "max_retries": maxRetries, "delay": delay}).Warn("Retrying request...")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: GET %s: retry aborted (%w) after: %w", utils.ErrFetch, rawURL, ctx.Err(), lastErr)
			}
		}

		resp, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			reqLog.WithFields(logrus.Fields{"status_code": resp.StatusCode, "attempt": attempt}).Debug("Fetched")
			return resp, nil
		}
		lastErr = err

		// Nothing to gain from retrying a request that cannot be built or a cancelled context
		if errors.Is(err, utils.ErrRequestCreation) || ctx.Err() != nil {
			return nil, err
		}
		reqLog.WithField("attempt", attempt).Debugf("Network error: %v", err)
	}

	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrRequestCreation, rawURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	// Setting this disables the transport's transparent gzip, so decodeBody handles every encoding
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", utils.ErrFetch, rawURL, err)
	}
	defer resp.Body.Close()

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w: %w", utils.ErrFetch, rawURL, utils.ErrResponseBodyRead, err)
	}
	defer reader.Close()

	body, truncated, err := readBody(reader, f.cfg.MaxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w: %w", utils.ErrFetch, rawURL, utils.ErrResponseBodyRead, err)
	}

	return &Response{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Truncated:  truncated,
	}, nil
}

// backoff returns initial * 2^(attempt-1) capped at MaxRetryDelay, with +/- 10% jitter
func (f *Fetcher) backoff(attempt int) time.Duration {
	initial := f.cfg.InitialRetryDelay
	maxDelay := f.cfg.MaxRetryDelay

	delay := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	if maxDelay > 0 && (delay <= 0 || delay > maxDelay) {
		delay = maxDelay
	}
	if delay <= 0 {
		return 0
	}

	var jitter time.Duration
	if span := int64(delay) / 5; span > 0 {
		jitter = time.Duration(rand.Int63n(span)) - delay/10
	}
	if delay+jitter < 0 {
		return 0
	}
	return delay + jitter
}

const acceptEncoding = "gzip, deflate, br"

// decodeBody wraps resp.Body according to Content-Encoding. The cap in
// readBody applies to decoded bytes. Closing the result does not close resp.Body.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if errors.Is(err, io.EOF) {
			// Bodyless redirects often still carry the header
			return io.NopCloser(strings.NewReader("")), nil
		}
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		return gz, nil
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	case "deflate":
		return flate.NewReader(resp.Body), nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}

// readBody reads at most limit bytes; limit <= 0 means unbounded
func readBody(r io.Reader, limit int64) ([]byte, bool, error) {
	if limit <= 0 {
		body, err := io.ReadAll(r)
		return body, false, err
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}
