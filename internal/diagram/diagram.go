// Package diagram renders diagram source (mermaid, plantuml, graphviz, d2)
// to SVG through a Kroki compatible HTTP service.
package diagram

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-wiki-engine/internal/cache"
	"go-wiki-engine/internal/content"
	"go-wiki-engine/internal/logger"
)

// maxResponse caps the size of a rendered diagram.
const maxResponse = 4 << 20

// aliases maps fence languages onto renderer diagram types.
var aliases = map[string]string{
	"dot": "graphviz",
}

// Client posts diagram source to {endpoint}/{type}/svg.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ content.DiagramRenderer = (*Client)(nil)

// NewClient creates a renderer client. A zero timeout means 5 seconds.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

// Render returns the SVG markup for source.
func (c *Client) Render(ctx context.Context, lang, source string) (string, error) {
	kind := strings.ToLower(lang)
	if alias, ok := aliases[kind]; ok {
		kind = alias
	}
	url := c.endpoint + "/" + kind + "/svg"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(source))
	if err != nil {
		return "", fmt.Errorf("failed to build diagram request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "image/svg+xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("diagram renderer unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return "", fmt.Errorf("failed to read diagram response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return "", fmt.Errorf("diagram renderer returned %d: %s", resp.StatusCode, msg)
	}
	return string(body), nil
}

const cacheKind = "diagram"

// Cached wraps a renderer with the SQLite cache. Only successful renders
// are stored; cache faults fall through to the renderer.
type Cached struct {
	next  content.DiagramRenderer
	cache *cache.Cache
	ttl   time.Duration
	log   logger.Logger
}

var _ content.DiagramRenderer = (*Cached)(nil)

// NewCached decorates next. A nil logger discards output.
func NewCached(next content.DiagramRenderer, c *cache.Cache, ttl time.Duration, log logger.Logger) *Cached {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cached{next: next, cache: c, ttl: ttl, log: log}
}

func cacheKey(lang, source string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(lang) + "\n" + source))
	return hex.EncodeToString(sum[:])
}

func (c *Cached) Render(ctx context.Context, lang, source string) (string, error) {
	key := cacheKey(lang, source)
	if hit, ok, err := c.cache.Get(ctx, cacheKind, key); err != nil {
		c.log.Error(err, "diagram cache read failed")
	} else if ok {
		return string(hit), nil
	}

	markup, err := c.next.Render(ctx, lang, source)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, cacheKind, key, []byte(markup), c.ttl); err != nil {
		c.log.Error(err, "diagram cache write failed")
	}
	return markup, nil
}
