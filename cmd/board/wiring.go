package main

import (
	"context"
	"time"

	"kanban/internal/config"
	"kanban/internal/remote"
	"kanban/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
}

func callTypes(names []string) []remote.CallType {
	out := make([]remote.CallType, 0, len(names))
	for _, n := range names {
		out = append(out, remote.CallType(n))
	}
	return out
}

// saveSession flushes the session on shutdown. The run context is already
// cancelled by then, so it gets its own deadline.
func saveSession(sess *session.Context, timeout time.Duration, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := sess.Save(ctx); err != nil {
		logger.Error().Err(err).Msg("save session")
		return
	}
	logger.Info().Msg("session saved")
}
