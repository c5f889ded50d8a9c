package main

import (
	"context"

	"picpic.bench/internal/adapters/events/mqtt"
	redis_adapter "picpic.bench/internal/adapters/events/redis"
	"picpic.bench/internal/adapters/repository/gormdb"
	"picpic.bench/internal/config"
	"picpic.bench/internal/core/circuitbreaker"
	"picpic.bench/internal/core/logger"
	"picpic.bench/internal/core/ports"
	"picpic.bench/internal/core/services"
)

// sinks holds the optional outward adapters. Each one is enabled by its URL; an
// unreachable sink is logged and left out so the benchmark itself still runs.
type sinks struct {
	redis      *redis_adapter.Publisher
	failures   *redis_adapter.FailureLog
	repo       *gormdb.Repository
	archive    ports.ReportArchive
	publishers []ports.EventPublisher
	closers    []func() error
}

func openSinks(ctx context.Context, cfg *config.Config) (*sinks, error) {
	s := &sinks{}

	if cfg.DatabaseURL != "" {
		repo, err := gormdb.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.repo = repo
		s.archive = repo
		s.closers = append(s.closers, repo.Close)
		logger.Info("Report archive enabled")
	}

	if cfg.RedisURL != "" {
		pub, err := redis_adapter.NewPublisher(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := pub.Ping(ctx); err != nil {
			logger.Warn("Redis unreachable; publishing through circuit breaker anyway", "error", err)
		}
		s.redis = pub
		s.failures = redis_adapter.NewFailureLog(pub.Client())
		s.publishers = append(s.publishers, circuitbreaker.NewPublisher("redis-events", pub))
		s.closers = append(s.closers, pub.Close)
		logger.Info("Redis event sink enabled", "channel", redis_adapter.EventChannel)
	}

	if cfg.MQTTBroker != "" {
		pub, err := mqtt.NewPublisher(cfg.MQTTBroker, cfg.MQTTTopic)
		if err != nil {
			logger.Error("Failed to init MQTT publisher", "error", err)
		} else {
			s.publishers = append(s.publishers, circuitbreaker.NewPublisher("mqtt-events", pub))
			s.closers = append(s.closers, pub.Close)
			logger.Info("MQTT publisher enabled", "broker", cfg.MQTTBroker, "prefix", cfg.MQTTTopic)
		}
	}

	return s, nil
}

func (s *sinks) health() *services.HealthService {
	h := services.NewHealthService(version)
	if s.repo != nil {
		h.Register("database", s.repo, true)
	}
	if s.redis != nil {
		h.Register("redis", s.redis, false)
	}
	return h
}

func (s *sinks) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("Failed to close sink", "error", err)
		}
	}
}
