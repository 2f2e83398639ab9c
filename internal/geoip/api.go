package geoip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ipinfo/go/v2/ipinfo"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/pushups/internal/telemetry/tracing"
	"github.com/2beens/pushups/pkg"
)

const (
	cacheKeyPrefix  = "ip-tz::"
	DefaultCacheTTL = 24 * time.Hour
)

// Api resolves the IANA timezone of a client IP through ipinfo.io. Results
// are cached in redis. Every failure yields "" since the zone is only a hint.
type Api struct {
	// serializes lookups so concurrent requests from one client hit ipinfo once
	mu          sync.Mutex
	client      *ipinfo.Client
	redisClient *redis.Client
	cacheTTL    time.Duration
}

type ApiParams struct {
	Token       string
	BaseURL     string
	HTTPClient  *http.Client
	RedisClient *redis.Client
	CacheTTL    time.Duration
}

// NewApi returns a disabled Api (always "") when no token is set.
func NewApi(params ApiParams) (*Api, error) {
	api := &Api{
		redisClient: params.RedisClient,
		cacheTTL:    params.CacheTTL,
	}
	if api.cacheTTL <= 0 {
		api.cacheTTL = DefaultCacheTTL
	}

	if params.Token == "" {
		log.Warnln("ipinfo token not set, geo ip timezone lookup disabled")
		return api, nil
	}

	api.client = ipinfo.NewClient(params.HTTPClient, nil, params.Token)
	if params.BaseURL != "" {
		baseURL := params.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse ipinfo base url: %w", err)
		}
		api.client.BaseURL = parsed
	}

	return api, nil
}

func (gi *Api) Enabled() bool {
	return gi != nil && gi.client != nil
}

func (gi *Api) Timezone(ctx context.Context, ip string) string {
	ctx, span := tracing.GlobalTracer.Start(ctx, "geoIp.timezone")
	defer span.End()
	span.SetAttributes(attribute.String("user.ip", ip))

	if !gi.Enabled() {
		return ""
	}

	parsedIP := net.ParseIP(ip)
	if ip == pkg.LocalhostIP || pkg.IPIsLocal(ip) || parsedIP == nil ||
		parsedIP.IsPrivate() || parsedIP.IsLoopback() {
		log.Tracef("geo ip timezone: skipping non public ip [%s]", ip)
		return ""
	}

	gi.mu.Lock()
	defer gi.mu.Unlock()

	key := cacheKeyPrefix + ip
	cached, err := gi.redisClient.Get(ctx, key).Result()
	switch {
	case err == nil && cached != "":
		span.SetAttributes(attribute.Bool("user.ip.from-cache", true))
		return cached
	case err != nil && !errors.Is(err, redis.Nil):
		log.Errorf("failed to get ip timezone from redis for [%s]: %s", key, err)
	}
	span.SetAttributes(attribute.Bool("user.ip.from-cache", false))

	info, err := gi.client.GetIPInfo(parsedIP)
	if err != nil {
		log.Errorf("ipinfo lookup for [%s]: %s", ip, err)
		return ""
	}
	if info.Timezone == "" {
		log.Debugf("ipinfo has no timezone for [%s]", ip)
		return ""
	}

	if err := gi.redisClient.Set(ctx, key, info.Timezone, gi.cacheTTL).Err(); err != nil {
		log.Errorf("failed to cache ip timezone in redis for [%s]: %s", ip, err)
	}
	span.SetAttributes(attribute.String("user.ip.timezone", info.Timezone))

	return info.Timezone
}
