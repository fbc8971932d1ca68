package http

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/pinmap/internal/adapters/postgres"
	"github.com/samirrijal/pinmap/internal/adapters/valkey"
	"github.com/samirrijal/pinmap/internal/core/usecases"
	"github.com/samirrijal/pinmap/internal/mapview"
	"github.com/samirrijal/pinmap/internal/pkg/auth"
	"github.com/samirrijal/pinmap/internal/pkg/resilience"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Pins     *usecases.PinService
	Likes    *usecases.LikeService
	Follows  *usecases.FollowService
	Profiles *usecases.ProfileService
	Photos   *usecases.PhotoService

	Auth        *auth.Verifier
	Hub         *mapview.Hub
	LikeBreaker *resilience.Breaker

	// VisibleCap bounds visible sets for REST, GraphQL and map sessions.
	VisibleCap     int
	ConfirmTimeout time.Duration
	DocsPath       string

	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache
}
