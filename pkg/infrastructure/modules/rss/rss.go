// Package rss provides the rss_parse capability: fetch a feed, extract
// torrent enclosures, and return them as resources.
package rss

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mediamate/mediamate/pkg/domain/errors"
	"github.com/mediamate/mediamate/pkg/domain/media"
	"github.com/mediamate/mediamate/pkg/service/chain"
)

// feeds are polled politely: one request per host every two seconds
const perHostInterval = 2 * time.Second

// Module fetches and parses RSS feeds.
type Module struct {
	client *http.Client
	logger zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates the rss module.
func New(logger zerolog.Logger) *Module {
	return &Module{
		logger:   logger.With().Str("module", "rss").Logger(),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Name implements chain.Module.
func (m *Module) Name() string { return "rss" }

// Init implements chain.Module.
func (m *Module) Init(ctx context.Context) error {
	m.client = &http.Client{Timeout: 30 * time.Second}
	return nil
}

// Stop implements chain.Module.
func (m *Module) Stop(ctx context.Context) error {
	if m.client != nil {
		m.client.CloseIdleConnections()
	}
	return nil
}

// Test implements chain.Module.
func (m *Module) Test(ctx context.Context) (bool, string) {
	return m.client != nil, "rss module not initialised"
}

// Capabilities implements chain.Module.
func (m *Module) Capabilities() map[chain.Capability]chain.Handler {
	return map[chain.Capability]chain.Handler{
		chain.CapRSSParse: m.parse,
	}
}

func (m *Module) parse(ctx context.Context, args chain.Args) (any, error) {
	feedURL := args.String("url")
	if feedURL == "" {
		return nil, errors.New(errors.CodeMissingParameter, "rss", "feed url is required", nil)
	}

	parsed, err := url.Parse(feedURL)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidParameter, "rss", "invalid feed url", err)
	}
	if err := m.limiter(parsed.Host).Wait(ctx); err != nil {
		return nil, errors.New(errors.CodeCancelled, "rss", "rate limit wait cancelled", err)
	}

	client := m.client
	if timeout, ok := args["timeout"].(int); ok && timeout > 0 {
		client = m.clientFor(args.String("proxy"), time.Duration(timeout)*time.Second)
	} else if proxy := args.String("proxy"); proxy != "" {
		client = m.clientFor(proxy, client.Timeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, errors.New(errors.CodeInternalError, "rss", "failed to build feed request", err)
	}
	if headers, ok := args["headers"].(map[string]string); ok {
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.New(errors.CodeNetworkTimeout, "rss", "feed fetch failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return nil, errors.Newf(errors.CodeTransientExternal, "rss", "feed fetch returned %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, errors.New(errors.CodeTransientExternal, "rss", "feed parse failed", err)
	}

	resources := make([]media.Resource, 0, len(feed.Items))
	for _, item := range feed.Items {
		r, ok := m.toResource(parsed.Host, item)
		if !ok {
			continue
		}
		resources = append(resources, r)
	}
	m.logger.Debug().Str("url", feedURL).Int("items", len(resources)).Msg("feed parsed")
	return resources, nil
}

func (m *Module) toResource(host string, item *gofeed.Item) (media.Resource, bool) {
	if item.Title == "" {
		return media.Resource{}, false
	}
	torrent := media.TorrentInfo{
		Site:     host,
		SiteName: host,
		Title:    item.Title,
		PageURL:  item.Link,
	}
	for _, enc := range item.Enclosures {
		if enc.URL == "" {
			continue
		}
		torrent.Enclosure = enc.URL
		torrent.Size = parseSize(enc.Length)
		break
	}
	if torrent.Enclosure == "" {
		// some feeds publish the torrent link as the item link or GUID
		switch {
		case item.Link != "":
			torrent.Enclosure = item.Link
		case item.GUID != "":
			torrent.Enclosure = item.GUID
		default:
			return media.Resource{}, false
		}
	}
	if item.PublishedParsed != nil {
		torrent.PubDate = *item.PublishedParsed
	}
	return media.Resource{
		Torrent: torrent,
		Meta:    media.MetaInfo{RawTitle: item.Title},
	}, true
}

func (m *Module) limiter(host string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(perHostInterval), 1)
		m.limiters[host] = l
	}
	return l
}

func (m *Module) clientFor(proxy string, timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	return client
}

func parseSize(length string) int64 {
	var size int64
	for _, c := range length {
		if c < '0' || c > '9' {
			return 0
		}
		size = size*10 + int64(c-'0')
	}
	return size
}
