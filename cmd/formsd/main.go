// Command formsd serves the content-addressed forms gateway: publish,
// submit, verify and list over a durable append-only log.
package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DanTehrani/story-form-interface/internal/gateway"
	"github.com/DanTehrani/story-form-interface/internal/logstore"
	"github.com/DanTehrani/story-form-interface/internal/pendingcache"
	"github.com/DanTehrani/story-form-interface/pkg/db"
	"github.com/DanTehrani/story-form-interface/pkg/logger"
	"github.com/DanTehrani/story-form-interface/pkg/typedsig"
	"github.com/DanTehrani/story-form-interface/pkg/webhooks"
)

func main() {
	log := logger.Component("formsd")
	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	store := logstore.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure log schema")
	}

	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
	}

	chainID, err := strconv.ParseInt(getenvOr("CHAIN_ID", "5"), 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("parse CHAIN_ID")
	}
	domain := typedsig.Domain{
		Name:    getenvOr("SIGNATURE_DOMAIN_NAME", "storyform"),
		Version: getenvOr("SIGNATURE_DOMAIN_VERSION", "1"),
		ChainID: chainID,
	}
	appID := getenvOr("APP_ID", "storyform")

	verifyTimeout, err := time.ParseDuration(getenvOr("VERIFY_TIMEOUT", "10s"))
	if err != nil {
		log.Fatal().Err(err).Msg("parse VERIFY_TIMEOUT")
	}

	gw := gateway.New(store, pendingcache.New(redisClient), domain, appID, verifyTimeout)
	gw.Notifier = webhooks.NewNotifier(os.Getenv("WEBHOOK_URL"), os.Getenv("WEBHOOK_SECRET"))

	addr := ":" + getenvOr("SERVICE_PORT", "8084")
	log.Info().Str("addr", addr).Str("app_id", appID).Int64("chain_id", chainID).Msg("formsd listening")
	if err := http.ListenAndServe(addr, gw.Router()); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func getenvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
