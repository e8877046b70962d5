package service

import (
	"github.com/kirinyoku/concertix/internal/repository"
	redisrepo "github.com/kirinyoku/concertix/internal/repository/redis"
	"github.com/kirinyoku/concertix/internal/service/admin"
	"github.com/kirinyoku/concertix/internal/service/query"
	"github.com/kirinyoku/concertix/internal/service/reservation"
	"github.com/kirinyoku/concertix/internal/uow"
)

type Services struct {
	Reservation *reservation.Service
	Query       *query.Service
	Admin       *admin.Service
}

type Config struct {
	Reservation  reservation.Config
	Query        query.Config
	TxMaxRetries int
}

// NewServices wires every service over one store and unit of work. cache
// may be nil; deps.Cache is filled from it when unset.
func NewServices(
	store repository.Store,
	cache *redisrepo.Cache,
	deps reservation.Deps,
	cfg Config,
) *Services {
	u := uow.NewUoW(store, uow.WithMaxRetries(cfg.TxMaxRetries))

	if deps.Cache == nil && cache != nil {
		deps.Cache = cache
	}

	return &Services{
		Reservation: reservation.New(store, u, deps, cfg.Reservation),
		Query:       query.New(store, cache, cfg.Query),
		Admin:       admin.New(u, deps),
	}
}
