package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/pushups/internal/pushups/days"
	"github.com/2beens/pushups/internal/telemetry/tracing"
)

const (
	cacheSize      = 1024 * 1024
	remoteTimeout  = 3 * time.Second
	cacheKeyPrefix = "quote::"
)

// remoteQuote is the quotable.io style response body.
type remoteQuote struct {
	Content string   `json:"content"`
	Author  string   `json:"author"`
	Tags    []string `json:"tags"`
}

// Service serves one quote per UTC day. The remote API is tried first, the
// bundled quotes are the fallback.
type Service struct {
	manager    *Manager
	cache      *freecache.Cache
	httpClient *http.Client
	remoteURL  string
	now        func() time.Time
}

func NewService(manager *Manager, httpClient *http.Client, remoteURL string) *Service {
	return &Service{
		manager:    manager,
		cache:      freecache.NewCache(cacheSize),
		httpClient: httpClient,
		remoteURL:  remoteURL,
		now:        time.Now,
	}
}

func (s *Service) Today(ctx context.Context) (*Quote, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "quotes.today")
	defer span.End()

	now := s.now().UTC()
	today := days.FromDate(now)
	key := []byte(cacheKeyPrefix + today.String())

	if cached, err := s.cache.Get(key); err == nil {
		quote := &Quote{}
		if err := json.Unmarshal(cached, quote); err == nil {
			span.SetAttributes(attribute.Bool("quote.from-cache", true))
			return quote, nil
		}
		log.Errorf("unmarshal cached quote: %s", err)
	}
	span.SetAttributes(attribute.Bool("quote.from-cache", false))

	quote, err := s.fetchRemote(ctx)
	if err != nil {
		log.Debugf("remote quote unavailable, using bundled one: %s", err)
		quote = s.manager.QuoteForDay(today)
	}
	span.SetAttributes(attribute.String("quote.author", quote.Author))

	quoteBytes, err := json.Marshal(quote)
	if err != nil {
		return nil, fmt.Errorf("marshal quote: %w", err)
	}

	untilMidnight := today.AddDays(1).Time().Sub(now)
	if err := s.cache.Set(key, quoteBytes, int(untilMidnight.Seconds())+1); err != nil {
		log.Errorf("cache quote of the day: %s", err)
	}

	return quote, nil
}

func (s *Service) Random() *Quote {
	return s.manager.RandomQuote()
}

func (s *Service) fetchRemote(ctx context.Context) (*Quote, error) {
	if s.remoteURL == "" {
		return nil, fmt.Errorf("remote quotes api not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.remoteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get remote quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get remote quote: status %d", resp.StatusCode)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read remote quote: %w", err)
	}

	var remote remoteQuote
	if err := json.Unmarshal(respBytes, &remote); err != nil {
		return nil, fmt.Errorf("unmarshal remote quote: %w", err)
	}
	if remote.Content == "" {
		return nil, fmt.Errorf("remote quote empty")
	}

	quote := &Quote{
		Text:   remote.Content,
		Author: remote.Author,
	}
	if len(remote.Tags) > 0 {
		quote.Genre = remote.Tags[0]
	}
	return quote, nil
}
