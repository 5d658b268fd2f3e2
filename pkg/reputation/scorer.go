// Package reputation is the scorer collaborator: the remote reputation
// service's score and profile endpoints, and the fixed tier table.
package reputation

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/arshiaxbt/Aura/internal/metrics"
	"github.com/arshiaxbt/Aura/internal/remote"
	"github.com/arshiaxbt/Aura/pkg/cache"
)

// ErrNotFound means the service has no score or profile for the address.
// It is terminal for the current lookup.
var ErrNotFound = remote.ErrNotFound

// APIError is a transport or service failure.
type APIError = remote.Error

// Profile is the optional enrichment for an address.
type Profile struct {
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	// Score is the profile's embedded score, which may exist even when the
	// score endpoint reports none.
	Score *int `json:"score,omitempty"`
}

// Scorer fetches reputation for resolved addresses.
type Scorer interface {
	Score(ctx context.Context, address string) (int, error)
	Profile(ctx context.Context, address string) (Profile, error)
}

const (
	DefaultScoreTTL   = 5 * time.Minute
	DefaultProfileTTL = 30 * time.Minute

	kindScore   = "score"
	kindProfile = "profile"
)

// Config configures the HTTP Client.
type Config struct {
	BaseURL    string
	Remote     remote.Options
	ScoreTTL   time.Duration
	ProfileTTL time.Duration
	// CacheCeiling bounds each response cache; zero uses cache.DefaultCeiling.
	CacheCeiling int
	Clock        func() time.Time
	Metrics      *metrics.Metrics
}

// Client is the HTTP Scorer. Successful responses are cached per request kind;
// concurrent identical requests share one round trip.
type Client struct {
	base       string
	rc         *remote.Client
	scoreTTL   time.Duration
	profileTTL time.Duration
	scores     *cache.Cache[int]
	profiles   *cache.Cache[Profile]
	group      singleflight.Group
	metrics    *metrics.Metrics
}

func NewClient(cfg Config) *Client {
	if cfg.Remote.Service == "" {
		cfg.Remote.Service = "reputation"
	}
	if cfg.ScoreTTL <= 0 {
		cfg.ScoreTTL = DefaultScoreTTL
	}
	if cfg.ProfileTTL <= 0 {
		cfg.ProfileTTL = DefaultProfileTTL
	}
	opts := []cache.Option{cache.WithCeiling(cfg.CacheCeiling), cache.WithMetrics(cfg.Metrics)}
	if cfg.Clock != nil {
		opts = append(opts, cache.WithClock(cfg.Clock))
	}
	return &Client{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		rc:         remote.New(cfg.Remote),
		scoreTTL:   cfg.ScoreTTL,
		profileTTL: cfg.ProfileTTL,
		scores:     cache.New[int](opts...),
		profiles:   cache.New[Profile](opts...),
		metrics:    cfg.Metrics,
	}
}

type scoreResponse struct {
	Score *int `json:"score"`
}

// Score returns the address's score, or ErrNotFound.
func (c *Client) Score(ctx context.Context, address string) (int, error) {
	address = strings.ToLower(address)
	key := cache.Key(kindScore, address)
	if v, ok := c.scores.Get(key); ok {
		c.metrics.CacheHit(kindScore)
		return v, nil
	}
	c.metrics.CacheMiss(kindScore)

	v, err, _ := c.group.Do(key, func() (any, error) {
		var resp scoreResponse
		u := fmt.Sprintf("%s/api/v2/score/address?address=%s", c.base, url.QueryEscape(address))
		if err := c.rc.GetJSON(ctx, u, &resp); err != nil {
			return 0, err
		}
		if resp.Score == nil {
			return 0, remote.NewError(remote.NotFound, c.rc.Service(), "no score for "+address, nil)
		}
		c.scores.Put(key, *resp.Score, c.scoreTTL)
		return *resp.Score, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Profile returns the address's profile, or ErrNotFound.
func (c *Client) Profile(ctx context.Context, address string) (Profile, error) {
	address = strings.ToLower(address)
	key := cache.Key(kindProfile, address)
	if v, ok := c.profiles.Get(key); ok {
		c.metrics.CacheHit(kindProfile)
		return v, nil
	}
	c.metrics.CacheMiss(kindProfile)

	v, err, _ := c.group.Do(key, func() (any, error) {
		var p Profile
		u := fmt.Sprintf("%s/api/v2/user/by/address/%s", c.base, url.PathEscape(address))
		if err := c.rc.GetJSON(ctx, u, &p); err != nil {
			return Profile{}, err
		}
		c.profiles.Put(key, p, c.profileTTL)
		return p, nil
	})
	if err != nil {
		return Profile{}, err
	}
	return v.(Profile), nil
}
