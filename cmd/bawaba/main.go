package main

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/osool-hq/bawaba/adapters/events"
	"github.com/osool-hq/bawaba/adapters/signer"
	"github.com/osool-hq/bawaba/adapters/store"
	"github.com/osool-hq/bawaba/client"
	"github.com/osool-hq/bawaba/core"
	"github.com/osool-hq/bawaba/internal/config"
	"github.com/osool-hq/bawaba/ports"
	"github.com/osool-hq/bawaba/service"
	transport "github.com/osool-hq/bawaba/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := log.Logger

	// Without Redis the session lives in memory and dies with the
	// process; events are dropped.
	var tokens ports.TokenStore = store.NewMemoryStore()
	var publisher ports.EventPublisher

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to parse Redis URL")
		}
		redisClient := redis.NewClient(opts)

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to reach Redis")
		}

		tokens = store.NewRedisStore(redisClient)

		wmPublisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create Redis publisher")
		}
		publisher = events.NewWatermillPublisher(wmPublisher)
	}

	onExpired := func(ctx context.Context, cause error) {
		if publisher == nil {
			return
		}
		event := core.SessionEvent{Kind: core.SessionExpired, At: time.Now()}
		if err := publisher.PublishSession(ctx, event); err != nil {
			logger.Warn().Err(err).Msg("failed to publish session_expired event")
		}
	}

	api, err := client.New(cfg.APIBaseURL, tokens, onExpired, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create backend client")
	}

	var walletSigner ports.WalletSigner
	if cfg.WalletKeyHex != "" {
		walletSigner, err = signer.NewLocalSignerFromHex(cfg.WalletKeyHex)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load wallet key")
		}
	}

	authService := service.NewAuthService(api, tokens, walletSigner, publisher, logger)
	router := transport.SetupRouter(authService, tokens, api, logger)

	logger.Info().Str("addr", cfg.ListenAddr).Str("backend", cfg.APIBaseURL).Msg("bawaba listening")
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
