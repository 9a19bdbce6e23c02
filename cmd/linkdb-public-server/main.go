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
	"github.com/ronny/linkdb/tracking"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"
)

const BootTimeout = 5 * time.Second

func main() {
	maxprocs.Set(maxprocs.Logger(log.Info().Msgf))

	fs := flag.NewFlagSet("linkdb-public-server", flag.ExitOnError)
	var (
		common              = bootstrap.RegisterFlags(fs)
		listenAddr          = fs.String("listen-addr", ":8080", "the host:port address where the server should listen to")
		debugListenAddr     = fs.String("debug-listen-addr", "", "the host:port address where the debug server should listen to (optional, only launched when specified)")
		fallbackRedirectURL = fs.String("fallback-redirect-url", "", "when specified, and a lookup can't find a link, then it redirects to this URL as a fallback (optional)")
		trustedHeaders      = fs.String("trusted-headers", "aws", "the request headers copied into lookup events, `aws` or `cloudflare`")
		_                   = fs.String("config", "", "config file (optional)")
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

	linkdbOptions, err := common.LinkDBOptions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("LinkDBOptions")
	}

	publicServerOpts := []func(*PublicServer){
		WithListenAddr(*listenAddr),
		WithLinkDBOptions(linkdbOptions...),
	}

	switch *trustedHeaders {
	case "aws":
		publicServerOpts = append(publicServerOpts, WithTrustedHeaders(tracking.DefaultAWSTrustedHeaders))
	case "cloudflare":
		publicServerOpts = append(publicServerOpts, WithTrustedHeaders(tracking.DefaultCloudflareTrustedHeaders))
	default:
		log.Fatal().Str("trustedHeaders", *trustedHeaders).Msg("unknown -trusted-headers, expected aws or cloudflare")
	}

	// the same tracker LinkDBOptions installed, reused for lookups
	tracker, err := common.Tracker(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Tracker")
	}
	if tracker != nil {
		publicServerOpts = append(publicServerOpts, WithTracker(tracker))
	}

	if *fallbackRedirectURL != "" {
		publicServerOpts = append(publicServerOpts, WithFallbackRedirectURL(*fallbackRedirectURL))
	}

	log.Info().
		Str("database", *common.Database).
		Str("storage", *common.Storage).
		Str("debugListenAddr", *debugListenAddr).
		Str("fallbackRedirectURL", *fallbackRedirectURL).
		Str("trustedHeaders", *trustedHeaders).
		Msg("linkdb-public-server flags")

	publicServer, err := NewPublicServer(ctx, publicServerOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("NewPublicServer")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	log.Debug().Str("addr", *listenAddr).Msg("starting public server...")
	go func() {
		err := publicServer.ListenAndServe()
		if err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("public server ListenAndServe returned an unexpected error")
		}
		log.Info().Msg("public server closed")
	}()
	log.Info().Str("addr", *listenAddr).Msg("public server started")

	var debugServer *debug.DebugServer
	if *debugListenAddr != "" {
		debugServer, err = debug.NewDebugServer(*debugListenAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("debug.NewDebugServer")
		}
		debugServer.Start()
	}

	sig := <-sigChan
	log.Info().Msgf("received signal %v, shutting down public server gracefully...", sig)

	gracefulShutdownCtx, gracefulShutdownCancelCtx := context.WithTimeout(context.Background(), 30*time.Second)
	defer gracefulShutdownCancelCtx()

	if debugServer != nil {
		go debugServer.Shutdown(gracefulShutdownCtx)
	}

	err = publicServer.Shutdown(gracefulShutdownCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("public server shutdown failed")
	}

	log.Info().Msg("public server gracefully shut down, bye")
}
