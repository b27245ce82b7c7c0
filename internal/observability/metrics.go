package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes recorded by IdentityLookups.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// IdentityLookups counts identity provider calls by operation and outcome.
	IdentityLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_identity_lookups_total",
		Help: "Identity provider calls by operation and outcome",
	}, []string{"operation", "outcome"})

	// PhotoStoreFailures counts photo writes that failed and were skipped.
	PhotoStoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_photo_store_failures_total",
		Help: "Photo uploads dropped because the storage backend failed",
	}, []string{"backend"})

	// PhotosAttached counts photo rows created for listings.
	PhotosAttached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_photos_attached_total",
		Help: "Total number of photos attached to listings",
	})

	// TradesCompleted counts listings sold through CompleteTrade.
	TradesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_trades_completed_total",
		Help: "Total number of completed trades",
	})
)
