package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/azretail/chainscan/internal/resilience"
)

// DefaultUserAgent mimics a desktop browser; several chains serve an empty
// shell to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent        string
	Timeout          time.Duration
	Retry            resilience.RetryConfig
	RatePerSecond    float64            // default per-host rate
	Burst            int                // default 1
	HostRates        map[string]float64 // per-host overrides
	MaxRedirects     int                // hops followed by ResolveRedirect, default 5
	CloudflareBypass bool
}

// HTTPFetcher implements Fetcher on top of resty.
type HTTPFetcher struct {
	client   *resty.Client
	resolver *resty.Client
	opts     HTTPOptions
	limiters *hostLimiters
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}

	newClient := func() *resty.Client {
		c := resty.New().
			SetTimeout(opts.Timeout).
			SetHeader("User-Agent", opts.UserAgent).
			SetHeader("Accept-Language", "az,en;q=0.8")
		if opts.CloudflareBypass {
			c.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(c.GetClient().Transport)
		}
		return c
	}

	resolver := newClient().SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	return &HTTPFetcher{
		client:   newClient(),
		resolver: resolver,
		opts:     opts,
		limiters: &hostLimiters{
			byHost:   make(map[string]*AdaptiveLimiter),
			rate:     rate.Limit(opts.RatePerSecond),
			burst:    opts.Burst,
			override: opts.HostRates,
		},
	}
}

// get issues one rate-limited GET with retries. Non-2xx responses other than
// redirects on the resolver client are returned as errors.
func (f *HTTPFetcher) get(ctx context.Context, c *resty.Client, rawURL string, prepare func(*resty.Request)) (*resty.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, eris.Errorf("fetcher: invalid url %q", rawURL)
	}
	limiter := f.limiters.get(u.Host)

	retry := f.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(u.Host, "get")
	}

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*resty.Response, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
		req := c.R().SetContext(ctx)
		if prepare != nil {
			prepare(req)
		}
		resp, err := req.Get(rawURL)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: GET %s", rawURL)
		}

		code := resp.StatusCode()
		switch {
		case code == http.StatusTooManyRequests:
			limiter.OnRateLimit()
			return nil, resilience.NewTransientError(eris.Errorf("fetcher: GET %s: status %d", rawURL, code), code)
		case resilience.IsTransientHTTPStatus(code):
			return nil, resilience.NewTransientError(eris.Errorf("fetcher: GET %s: status %d", rawURL, code), code)
		case code >= 400:
			return nil, eris.Errorf("fetcher: GET %s: status %d", rawURL, code)
		}
		limiter.OnSuccess()
		return resp, nil
	})
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, f.client, rawURL, nil)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("fetcher: downloaded",
		zap.String("url", rawURL),
		zap.Int("bytes", len(resp.Body())),
		zap.Duration("elapsed", resp.Time()),
	)
	return io.NopCloser(bytes.NewReader(resp.Body())), nil
}

// GetJSON fetches the URL and decodes its body into out, whatever content
// type the server claims.
func (f *HTTPFetcher) GetJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := f.get(ctx, f.client, rawURL, func(r *resty.Request) {
		r.SetHeader("Accept", "application/json")
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return eris.Wrapf(err, "fetcher: decode json from %s", rawURL)
	}
	return nil
}

// ResolveRedirect follows Location headers hop by hop and returns the final
// URL. A response without a redirect ends the walk.
func (f *HTTPFetcher) ResolveRedirect(ctx context.Context, rawURL string) (string, error) {
	current := rawURL
	for hop := 0; hop < f.opts.MaxRedirects; hop++ {
		resp, err := f.get(ctx, f.resolver, current, nil)
		if err != nil {
			return "", eris.Wrap(err, "fetcher: resolve redirect")
		}
		code := resp.StatusCode()
		if code < 300 || code >= 400 {
			return current, nil
		}
		loc := resp.Header().Get("Location")
		if loc == "" {
			return "", eris.Errorf("fetcher: redirect %d from %s without location", code, current)
		}
		next, err := resolveReference(current, loc)
		if err != nil {
			return "", err
		}
		current = next
	}
	return current, nil
}

func resolveReference(base, loc string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse %q", base)
	}
	l, err := url.Parse(loc)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse location %q", loc)
	}
	return b.ResolveReference(l).String(), nil
}
