package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wesigned/wesigned/internal/agent/cache"
	"github.com/wesigned/wesigned/internal/logging"
)

// ServedFromHeader marks responses the transport answered from the cache or
// the offline fallback instead of the live network.
const ServedFromHeader = "X-Served-From"

const warmConcurrency = 4

// cachedResponse is the serialized form of a response copy.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// CachingTransport is an http.RoundTripper that tries the live network
// first, refreshes the cache on every successful response, and serves the
// cached copy (or the designated offline fallback) when the network is
// unreachable. Cache-eligible requests are GETs; writes always pass through.
type CachingTransport struct {
	base        http.RoundTripper
	cache       cache.Cache
	fallbackKey string
	log         logging.Logger
}

// NewCachingTransport wraps base. fallbackURL names the asset served when
// both the network and the cache miss; it is keyed like any cached GET.
func NewCachingTransport(base http.RoundTripper, c cache.Cache, fallbackURL string, log logging.Logger) *CachingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &CachingTransport{base: base, cache: c, fallbackKey: requestKeyFor(http.MethodGet, fallbackURL), log: log}
}

// errorReader replays a read error to whoever consumes the body.
type errorReader struct {
	err error
}

func (r errorReader) Read([]byte) (int, error) {
	return 0, r.err
}

func requestKey(req *http.Request) string {
	return requestKeyFor(req.Method, req.URL.String())
}

func requestKeyFor(method, url string) string {
	return method + " " + url
}

func (t *CachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.base.RoundTrip(req)
	}

	res, err := t.base.RoundTrip(req)
	if err == nil {
		if res.StatusCode < 400 {
			t.storeCopy(req, res)
		}
		return res, nil
	}

	ctx := req.Context()
	t.log.Debug(ctx, "live fetch failed, trying cache", "url", req.URL.String(), "error", err)

	if data, cerr := t.cache.Get(ctx, requestKey(req)); cerr == nil {
		return t.synthesize(req, data, "cache")
	}

	if data, cerr := t.cache.Get(ctx, t.fallbackKey); cerr == nil {
		return t.synthesize(req, data, "fallback")
	}

	// last resort: a miss is degraded UX, never an error for the requester
	return t.offlineResponse(req), nil
}

// storeCopy caches a copy of the response and replaces its body so the
// caller can still read it. Cache failures are logged and ignored.
func (t *CachingTransport) storeCopy(req *http.Request, res *http.Response) {
	body, err := io.ReadAll(res.Body)
	_ = res.Body.Close()
	if err != nil {
		// caching is skipped; the caller gets the bytes read so far and
		// then the original read error, never a fabricated clean body
		res.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), errorReader{err: err}))
		return
	}
	res.Body = io.NopCloser(bytes.NewReader(body))

	data, err := json.Marshal(cachedResponse{Status: res.StatusCode, Header: res.Header, Body: body})
	if err != nil {
		return
	}
	if err := t.cache.Set(req.Context(), requestKey(req), data); err != nil {
		t.log.Warn(req.Context(), "failed to cache response", "url", req.URL.String(), "error", err)
	}
}

func (t *CachingTransport) synthesize(req *http.Request, data []byte, source string) (*http.Response, error) {
	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		t.log.Warn(req.Context(), "corrupt cache entry", "url", req.URL.String(), "error", err)
		return t.offlineResponse(req), nil
	}

	header := cached.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(ServedFromHeader, source)

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", cached.Status, http.StatusText(cached.Status)),
		StatusCode:    cached.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(cached.Body)),
		ContentLength: int64(len(cached.Body)),
		Request:       req,
	}, nil
}

// offlineResponse is the built-in designated offline response, used when
// even the fallback asset was never cached.
func (t *CachingTransport) offlineResponse(req *http.Request) *http.Response {
	body := []byte("offline")
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set(ServedFromHeader, "fallback")

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", http.StatusOK, http.StatusText(http.StatusOK)),
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// Warm eagerly fetches and caches the given asset paths, resolved against
// baseURL. A failed asset is logged and skipped; it never aborts warming
// the rest.
func (t *CachingTransport) Warm(ctx context.Context, baseURL string, assets []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	base := strings.TrimRight(baseURL, "/")
	for _, asset := range assets {
		url := base + asset
		g.Go(func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				t.log.Warn(ctx, "failed to warm asset", "url", url, "error", err)
				return nil
			}

			res, err := t.base.RoundTrip(req)
			if err != nil {
				t.log.Warn(ctx, "failed to warm asset", "url", url, "error", err)
				return nil
			}
			defer res.Body.Close()

			if res.StatusCode >= 400 {
				t.log.Warn(ctx, "failed to warm asset", "url", url, "status", res.StatusCode)
				return nil
			}

			body, err := io.ReadAll(res.Body)
			if err != nil {
				t.log.Warn(ctx, "failed to warm asset", "url", url, "error", err)
				return nil
			}

			data, err := json.Marshal(cachedResponse{Status: res.StatusCode, Header: res.Header, Body: body})
			if err != nil {
				return nil
			}
			if err := t.cache.Set(ctx, requestKeyFor(http.MethodGet, url), data); err != nil {
				t.log.Warn(ctx, "failed to cache warmed asset", "url", url, "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}
