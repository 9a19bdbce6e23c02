package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ronny/linkdb"
	"github.com/ronny/linkdb/debug"
	"github.com/ronny/linkdb/tracking"
	"github.com/rs/zerolog/log"
)

// PublicServer redirects link ids to the URIs they're stored under.
type PublicServer struct {
	*http.Server
	router              *httprouter.Router
	svc                 *linkdb.LinkDB
	linkdbOptions       []func(*linkdb.LinkDB)
	database            string
	fallbackRedirectURL string
	tracker             tracking.Tracker
	payloadBuilder      *tracking.PayloadBuilder
	trackingTimeout     time.Duration
}

const (
	DefaultHandlerTimeoutDuration = 5 * time.Second
	DefaultLookupTrackingTimeout  = 1 * time.Second
)

func NewPublicServer(ctx context.Context, options ...func(*PublicServer)) (*PublicServer, error) {
	s := &PublicServer{
		Server: &http.Server{
			WriteTimeout: 1 * time.Second,
			ReadTimeout:  1 * time.Second,
			IdleTimeout:  1 * time.Second,
		},
		payloadBuilder:  tracking.NewPayloadBuilder(tracking.DefaultAWSTrustedHeaders),
		trackingTimeout: DefaultLookupTrackingTimeout,
	}

	for _, option := range options {
		option(s)
	}

	var err error
	s.svc, err = linkdb.NewLinkDB(s.linkdbOptions...)
	if err != nil {
		return nil, fmt.Errorf("linkdb.NewLinkDB: %w", err)
	}

	s.router = httprouter.New()
	s.router.PanicHandler = debug.PanicHandler()
	s.apiRoute(http.MethodGet, "/:id", s.handleLinkLookup())
	s.Handler = s.router

	return s, nil
}

func (s *PublicServer) apiRoute(method, path string, handler http.Handler) {
	labelsWithPath := prometheus.Labels{"path": path}

	s.router.Handler(
		method,
		path,
		http.TimeoutHandler(
			promhttp.InstrumentHandlerDuration(
				debug.IncomingRequestDurations().MustCurryWith(labelsWithPath),
				promhttp.InstrumentHandlerCounter(
					debug.IncomingRequests().MustCurryWith(labelsWithPath),
					handler,
				),
			),
			DefaultHandlerTimeoutDuration,
			"timed out",
		),
	)
}

func (s *PublicServer) handleLinkLookup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		params := httprouter.ParamsFromContext(ctx)

		linkID := params.ByName("id")

		uri, link, err := s.svc.GetByIDWithCache(ctx, s.database, linkID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			log.Error().Err(err).Str("linkID", linkID).Msg("svc.GetByIDWithCache error, returning 500")
			return
		}

		if link == nil {
			if s.fallbackRedirectURL != "" {
				s.redirect(w, r, linkID, "", s.fallbackRedirectURL)
				return
			}

			w.WriteHeader(http.StatusNotFound)
			debug.Redirects().WithLabelValues(strconv.Itoa(http.StatusNotFound)).Inc()
			go s.trackLinkLookup(linkID, "", r, http.StatusNotFound, "")
			return
		}

		s.redirect(w, r, linkID, uri, uri)
	}
}

func (s *PublicServer) redirect(w http.ResponseWriter, r *http.Request, linkID, uri, location string) {
	w.Header().Add("Location", location)
	w.WriteHeader(http.StatusTemporaryRedirect)
	debug.Redirects().WithLabelValues(strconv.Itoa(http.StatusTemporaryRedirect)).Inc()
	go s.trackLinkLookup(linkID, uri, r, http.StatusTemporaryRedirect, location)
}

func (s *PublicServer) trackLinkLookup(
	linkID string,
	uri string,
	r *http.Request,
	responseStatusCode int,
	responseLocation string,
) {
	if s.tracker == nil {
		return
	}

	ctx, cancelCtx := context.WithTimeout(context.Background(), s.trackingTimeout)
	defer cancelCtx()

	payload, err := s.payloadBuilder.BuildLinkLookupPayload(linkID, uri, r, responseStatusCode, responseLocation)
	if err != nil {
		log.Error().
			Err(err).
			Str("linkID", linkID).
			Msg("failed to build payload to track lookup")
		return
	}

	err = s.tracker.TrackLinkLookup(ctx, payload)
	if err != nil {
		log.Error().
			Err(err).
			Str("linkID", linkID).
			Msg("failed to track lookup")
	}
}

func WithListenAddr(addr string) func(*PublicServer) {
	return func(ps *PublicServer) {
		ps.Addr = addr
	}
}

func WithLinkDBOptions(linkdbOptions ...func(*linkdb.LinkDB)) func(*PublicServer) {
	return func(ps *PublicServer) {
		ps.linkdbOptions = linkdbOptions
	}
}

// WithDatabase sets the database the ids are looked up in, defaults to the
// LinkDB default database.
func WithDatabase(database string) func(*PublicServer) {
	return func(ps *PublicServer) {
		ps.database = database
	}
}

// WithFallbackRedirectURL makes lookups of unknown ids redirect to url
// instead of responding 404.
func WithFallbackRedirectURL(url string) func(*PublicServer) {
	return func(ps *PublicServer) {
		ps.fallbackRedirectURL = url
	}
}

func WithTracker(tracker tracking.Tracker) func(*PublicServer) {
	return func(ps *PublicServer) {
		ps.tracker = tracker
	}
}

func WithTrustedHeaders(trustedHeaders []string) func(*PublicServer) {
	return func(ps *PublicServer) {
		ps.payloadBuilder = tracking.NewPayloadBuilder(trustedHeaders)
	}
}
