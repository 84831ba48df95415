// @title         SWORD API
// @version       1.3.0
// @description   SWORD 1.3 deposit server: service documents, deposits and media links

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"sword/internal/platform/config"
	"sword/internal/platform/logger"
	phttp "sword/internal/platform/net/http"
	"sword/internal/platform/store"

	"sword/internal/services/api"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*
	// bring up logging early
	l := logger.Get()

	// postgres holds the content model; without it the server runs on an in-memory repository
	pgOn := pgCfg.MayBool("ENABLED", true)
	chOn := chCfg.MayBool("ENABLED", false)
	st, err := store.Open(
		ctx,
		store.Config{
			AppName: "sword-api",
			PG: store.PGConfig{
				Enabled:     pgOn,
				URL:         pgCfg.MayString("DBURL", ""),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 8)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),

				ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 20),
				PingTimeout:    pgCfg.MayDuration("PING_TIMEOUT", 3*time.Second),
			},
			CH: store.CHConfig{
				Enabled:    chOn,
				URL:        chCfg.MayString("DBURL", ""),
				ClientName: "sword",
				ClientTag:  "api",
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	if err := st.Guard(ctx); err != nil {
		l.Warn().Err(err).Msg("store guard failed, readiness will report it")
	}

	// http server (reads CORE_API_PORT / CORE_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	// SWORD_*, BITSTORE_* and LDAP_* are read from the unprefixed root
	closeMods, err := api.Mount(
		ctx,
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)
	if err != nil {
		l.Panic().Err(err).Msg("mount api")
	}
	defer func() {
		if err := closeMods(); err != nil {
			l.Error().Err(err).Msg("failed to close sword module")
		}
	}()

	// run
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
