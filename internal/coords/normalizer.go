package coords

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/azretail/chainscan/internal/model"
)

// Resolver follows a shortened link to its destination.
type Resolver interface {
	ResolveRedirect(ctx context.Context, url string) (string, error)
}

// DefaultShortHosts are link shorteners seen on store pages.
var DefaultShortHosts = []string{"maps.app.goo.gl", "goo.gl", "g.co", "bit.ly", "tinyurl.com"}

// Options configures a Normalizer.
type Options struct {
	Envelope       Envelope
	ShortHosts     []string
	ResolveTimeout time.Duration
}

// Normalizer converts raw coordinate evidence into validated points. It owns a
// cache of resolved short links, so create one per run.
type Normalizer struct {
	resolver Resolver
	opts     Options
	log      *zap.Logger

	mu    sync.Mutex
	cache map[string]resolved
}

type resolved struct {
	dest string
	err  error
}

// NewNormalizer creates a Normalizer. resolver may be nil, in which case
// shortened links always fail.
func NewNormalizer(resolver Resolver, opts Options) *Normalizer {
	if opts.Envelope.bounds == nil {
		opts.Envelope = Azerbaijan()
	}
	if len(opts.ShortHosts) == 0 {
		opts.ShortHosts = DefaultShortHosts
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 10 * time.Second
	}
	return &Normalizer{
		resolver: resolver,
		opts:     opts,
		log:      zap.L().With(zap.String("component", "coords")),
		cache:    make(map[string]resolved),
	}
}

// Normalize returns the first coordinate that validates, trying separate
// fields, then coordinate text, then a map link. When every piece of evidence
// fails, the error from the first attempt is returned.
func (n *Normalizer) Normalize(ctx context.Context, raw model.RawCoordinate) (Point, model.SourceFormat, error) {
	if raw.IsZero() {
		return Point{}, "", ErrNoCoordinate
	}

	type attempt func() (Point, model.SourceFormat, error)
	var attempts []attempt
	if raw.Lat != "" || raw.Lon != "" {
		attempts = append(attempts, func() (Point, model.SourceFormat, error) {
			p, err := ParsePair(raw.Lat, raw.Lon)
			return p, model.FormatDecimal, err
		})
	}
	if raw.Text != "" {
		attempts = append(attempts, func() (Point, model.SourceFormat, error) {
			if LooksLikeDMS(raw.Text) {
				p, err := ParseDMS(raw.Text)
				return p, model.FormatDMS, err
			}
			p, err := ParseLatLon(raw.Text)
			return p, model.FormatDecimal, err
		})
	}
	if raw.Link != "" {
		attempts = append(attempts, func() (Point, model.SourceFormat, error) {
			return n.fromLink(ctx, raw.Link)
		})
	}

	var first error
	for _, try := range attempts {
		p, format, err := try()
		if err == nil && !n.opts.Envelope.Contains(p) {
			err = eris.Wrapf(ErrOutOfBounds, "%s not in %s", p, n.opts.Envelope)
		}
		if err == nil {
			return p, format, nil
		}
		if first == nil {
			first = err
		}
	}
	return Point{}, "", first
}

func (n *Normalizer) fromLink(ctx context.Context, link string) (Point, model.SourceFormat, error) {
	if !n.isShort(link) {
		p, err := FromMapLink(link)
		return p, model.FormatMapLink, err
	}
	dest, err := n.resolve(ctx, link)
	if err != nil {
		return Point{}, model.FormatShortLink, err
	}
	p, err := FromMapLink(dest)
	return p, model.FormatShortLink, err
}

func (n *Normalizer) isShort(link string) bool {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range n.opts.ShortHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// resolve follows a short link once per run; failures are cached too.
func (n *Normalizer) resolve(ctx context.Context, link string) (string, error) {
	n.mu.Lock()
	if r, ok := n.cache[link]; ok {
		n.mu.Unlock()
		return r.dest, r.err
	}
	n.mu.Unlock()

	if n.resolver == nil {
		return "", eris.Wrapf(ErrResolve, "no resolver for %s", link)
	}

	rctx, cancel := context.WithTimeout(ctx, n.opts.ResolveTimeout)
	defer cancel()
	dest, err := n.resolver.ResolveRedirect(rctx, link)
	if err != nil {
		n.log.Debug("short link resolution failed", zap.String("link", link), zap.Error(err))
		err = eris.Wrapf(ErrResolve, "%s: %v", link, err)
	}
	if ctx.Err() == nil {
		n.mu.Lock()
		n.cache[link] = resolved{dest: dest, err: err}
		n.mu.Unlock()
	}
	return dest, err
}

// CacheSize reports how many links have been resolved so far.
func (n *Normalizer) CacheSize() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.cache)
}
