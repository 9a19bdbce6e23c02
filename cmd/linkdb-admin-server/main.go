package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/ronny/linkdb/cmd/internal/bootstrap"
	"github.com/ronny/linkdb/debug"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"
)

const BootTimeout = 30 * time.Second

func main() {
	maxprocs.Set(maxprocs.Logger(log.Info().Msgf))

	fs := flag.NewFlagSet("linkdb-admin-server", flag.ExitOnError)

	var (
		common          = bootstrap.RegisterFlags(fs)
		listenAddr      = fs.String("listen-addr", ":9090", "the host:port address where the admin server should listen to")
		authKeysJSON    = fs.String("auth-keys", "", "JSON array of bearer tokens allowed to use the API, e.g. `[{\"id\":\"ci\",\"token\":\"...\"}]`")
		debugListenAddr = fs.String("debug-listen-addr", "", "the host:port address where the debug server should listen to (optional, only launched when specified)")
		_               = fs.String("config", "", "config file (optional)")
	)

	err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarNoPrefix(),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.JSONParser),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("ff.Parse")
	}

	if err := common.SetupLogging(); err != nil {
		log.Fatal().Err(err).Msg("SetupLogging")
	}

	ctx, cancelCtx := context.WithTimeout(context.Background(), BootTimeout)
	defer cancelCtx()

	authKeys, err := ParseAuthKeys(*authKeysJSON)
	if err != nil {
		log.Fatal().Err(err).Msg("ParseAuthKeys")
	}

	linkdbOptions, err := common.LinkDBOptions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("LinkDBOptions")
	}

	log.Info().
		Str("database", *common.Database).
		Str("storage", *common.Storage).
		Int("authKeys", len(authKeys)).
		Str("debugListenAddr", *debugListenAddr).
		Msg("linkdb-admin-server flags")

	adminServer, err := NewAdminServer(ctx,
		WithListenAddr(*listenAddr),
		WithAuthKeys(authKeys),
		WithLinkDBOptions(linkdbOptions...),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("NewAdminServer")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	log.Debug().Str("addr", *listenAddr).Msg("starting admin server...")
	go func() {
		err := adminServer.ListenAndServe()
		if err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("admin server ListenAndServe returned an unexpected error")
		}
		log.Info().Msg("admin server closed")
	}()
	log.Info().Str("addr", *listenAddr).Msg("admin server started")

	var debugServer *debug.DebugServer
	if *debugListenAddr != "" {
		debugServer, err = debug.NewDebugServer(*debugListenAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("debug.NewDebugServer")
		}
		debugServer.Start()
	}

	sig := <-sigChan
	log.Info().Msgf("received signal %v, shutting down admin server gracefully...", sig)

	gracefulShutdownCtx, gracefulShutdownCancelCtx := context.WithTimeout(context.Background(), 30*time.Second)
	defer gracefulShutdownCancelCtx()

	if debugServer != nil {
		go debugServer.Shutdown(gracefulShutdownCtx)
	}

	err = adminServer.Shutdown(gracefulShutdownCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("admin server shutdown failed")
	}

	log.Info().Msg("admin server gracefully shut down, bye")
}
