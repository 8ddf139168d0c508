package service

import (
	"log/slog"

	"github.com/kirinyoku/slotgo/internal/repository"
	redisrepo "github.com/kirinyoku/slotgo/internal/repository/redis"
	"github.com/kirinyoku/slotgo/internal/service/admin"
	"github.com/kirinyoku/slotgo/internal/service/admission"
	"github.com/kirinyoku/slotgo/internal/service/ledger"
	"github.com/kirinyoku/slotgo/internal/service/query"
)

type Services struct {
	Ledger    *ledger.Service
	Admission *admission.Service
	Query     *query.Service
	Admin     *admin.Service
}

type Config struct {
	Ledger    ledger.Config
	Admission admission.Config
	Query     query.Config
}

// NewServices wires the services over one storage backend. publisher may
// be nil when no broker is configured.
func NewServices(
	store repository.Set,
	cache *redisrepo.Cache,
	pubsub *redisrepo.EventsPubSub,
	flags *redisrepo.ReconciliationQueue,
	publisher admission.BookingPublisher,
	cfg Config,
	logger *slog.Logger,
) *Services {
	ldg := ledger.New(store.Ledger, cfg.Ledger, logger)

	return &Services{
		Ledger: ldg,
		Admission: admission.New(admission.Deps{
			Ledger:    ldg,
			Bookings:  store.Bookings,
			Tx:        store.Tx,
			Flagger:   flags,
			Cache:     cache,
			Changes:   pubsub,
			Publisher: publisher,
		}, cfg.Admission, logger),
		Query: query.New(store.Events, store.Bookings, ldg, cache, cfg.Query),
		Admin: admin.New(admin.Deps{
			Events:   store.Events,
			Ledger:   store.Ledger,
			Bookings: store.Bookings,
			Tx:       store.Tx,
			Flags:    flags,
			Cache:    cache,
			Changes:  pubsub,
		}, logger),
	}
}
