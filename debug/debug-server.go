package debug

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// DebugServer serves /metrics and the pprof profiles. It's meant to listen on
// an internal address, next to the admin or public server.
type DebugServer struct {
	*http.Server
}

func NewDebugServer(listenAddr string) (*DebugServer, error) {
	if listenAddr == "" {
		return nil, errors.New("listenAddr is missing")
	}
	return &DebugServer{
		Server: &http.Server{
			Addr:         listenAddr,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 60 * time.Second, // long enough for /debug/pprof/profile
			IdleTimeout:  60 * time.Second,
			Handler:      NewRouter(),
		},
	}, nil
}

// Start serves in a goroutine. Failing to listen is fatal.
func (s *DebugServer) Start() {
	go func() {
		if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("addr", s.Addr).Msg("debug server ListenAndServe returned an unexpected error")
		}
		log.Info().Msg("debug server closed")
	}()
	log.Info().Str("addr", s.Addr).Msg("debug server started")
}

func (s *DebugServer) Shutdown(ctx context.Context) error {
	s.SetKeepAlivesEnabled(false)
	return s.Server.Shutdown(ctx)
}

// NewRouter returns the debug routes: `/metrics` and `/debug/pprof/*`.
func NewRouter() *httprouter.Router {
	router := httprouter.New()
	router.HandleMethodNotAllowed = false
	router.PanicHandler = PanicHandler()
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	router.HandlerFunc(http.MethodGet, "/debug/pprof/", pprof.Index)
	for _, profile := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		router.Handler(http.MethodGet, "/debug/pprof/"+profile, pprof.Handler(profile))
	}
	for path, h := range map[string]http.HandlerFunc{
		"cmdline": pprof.Cmdline,
		"profile": pprof.Profile,
		"symbol":  pprof.Symbol,
		"trace":   pprof.Trace,
	} {
		router.HandlerFunc(http.MethodGet, "/debug/pprof/"+path, h)
	}
	router.HandlerFunc(http.MethodPost, "/debug/pprof/symbol", pprof.Symbol)
	return router
}

// PanicHandler logs recovered panics with the request path and responds 500.
// The admin and public routers use it too.
func PanicHandler() func(http.ResponseWriter, *http.Request, interface{}) {
	return func(w http.ResponseWriter, r *http.Request, recovered interface{}) {
		event := log.Error().Str("method", r.Method).Str("path", r.URL.Path)
		if err, ok := recovered.(error); ok {
			event = event.Err(err)
		} else {
			event = event.Str("panic", fmt.Sprintf("%+v", recovered))
		}
		event.Msg("recovered from panic")
		w.WriteHeader(http.StatusInternalServerError)
	}
}
