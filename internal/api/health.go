package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/person-registry/internal/pkg/httputil"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *sql.DB and by RedisPinger.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RedisPinger adapts a redis client to Pinger.
type RedisPinger struct{ Client *redis.Client }

func (p RedisPinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

// HealthStatus represents the overall health of the service.
type HealthStatus struct {
	Status string                    `json:"status"` // "ok", "degraded", "unavailable"
	Checks map[string]ComponentCheck `json:"checks,omitempty"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down"
	Latency string `json:"latency,omitempty"`
}

const healthCheckTimeout = 3 * time.Second

// HealthChecker pings the database and, when configured, the list cache.
type HealthChecker struct {
	db    Pinger
	cache Pinger
}

func NewHealthChecker(db, cache Pinger) *HealthChecker {
	return &HealthChecker{db: db, cache: cache}
}

// HandleHealth reports 200 while the database answers. A cache outage only
// degrades the status since reads fall back to the database.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := HealthStatus{Status: "ok", Checks: map[string]ComponentCheck{}}
	code := http.StatusOK

	if hc.db != nil {
		check := ping(ctx, hc.db)
		status.Checks["database"] = check
		if check.Status != "up" {
			status.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	if hc.cache != nil {
		check := ping(ctx, hc.cache)
		status.Checks["cache"] = check
		if check.Status != "up" && status.Status == "ok" {
			status.Status = "degraded"
		}
	}

	httputil.JSON(w, code, status)
}

func ping(ctx context.Context, p Pinger) ComponentCheck {
	start := time.Now()
	if err := p.PingContext(ctx); err != nil {
		return ComponentCheck{Status: "down"}
	}
	return ComponentCheck{Status: "up", Latency: time.Since(start).Round(time.Microsecond).String()}
}
