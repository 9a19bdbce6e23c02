package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ronny/linkdb"
	"github.com/ronny/linkdb/debug"
	"github.com/ronny/linkdb/models"
	"github.com/rs/zerolog/log"
)

type AdminServer struct {
	*http.Server
	router        *httprouter.Router
	svc           *linkdb.LinkDB
	linkdbOptions []func(*linkdb.LinkDB)
	authKeys      []AuthKey
}

const (
	DefaultHandlerTimeoutDuration = 5 * time.Second
	maxRequestBodyBytes           = 1 << 20
)

func NewAdminServer(ctx context.Context, options ...func(*AdminServer)) (*AdminServer, error) {
	s := &AdminServer{
		Server: &http.Server{
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  5 * time.Second,
			IdleTimeout:  5 * time.Second,
		},
	}

	for _, option := range options {
		option(s)
	}

	if len(s.authKeys) == 0 {
		return nil, errors.New("missing authKeys, use WithAuthKeys to set at least one")
	}

	var err error
	s.svc, err = linkdb.NewLinkDB(s.linkdbOptions...)
	if err != nil {
		return nil, fmt.Errorf("linkdb.NewLinkDB: %w", err)
	}

	s.router = httprouter.New()
	s.router.PanicHandler = debug.PanicHandler()
	s.router.GET("/_live", func(w http.ResponseWriter, r *http.Request, p httprouter.Params) { w.WriteHeader(http.StatusOK) })
	s.router.GET("/_ready", func(w http.ResponseWriter, r *http.Request, p httprouter.Params) { w.WriteHeader(http.StatusOK) })
	s.apiRoute(http.MethodPost, "/links", s.handleCreateLink())
	s.apiRoute(http.MethodGet, "/links", s.handleGetLinkByURI())
	s.apiRoute(http.MethodGet, "/links/:id", s.handleGetLinkByID())
	s.Handler = s.router

	return s, nil
}

// createLinkRequest is the body of POST /links. Links are always created in
// the server's configured database, so there's no database field.
type createLinkRequest struct {
	URI         string   `json:"uri"`
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
	ShortURL    string   `json:"short_url,omitempty"`
}

func (req *createLinkRequest) createOptions() *linkdb.CreateOptions {
	return &linkdb.CreateOptions{
		URI:         req.URI,
		ID:          req.ID,
		Description: req.Description,
		Keywords:    req.Keywords,
		ShortURL:    req.ShortURL,
	}
}

// linkResponse is the JSON representation of a link and the URI it's stored
// under.
type linkResponse struct {
	URI string `json:"uri"`
	*models.Link
}

func (s *AdminServer) handleCreateLink() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
		decoder.DisallowUnknownFields()
		var req createLinkRequest
		err := decoder.Decode(&req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		input := req.createOptions()

		ctx := r.Context()
		log.Debug().Str("keyID", authKeyIDFromContext(ctx)).Str("uri", input.URI).Msg("create link")

		err = s.svc.Create(ctx, input)
		if err != nil {
			var invalid *linkdb.ErrInvalidArgument
			var exists *linkdb.ErrLinkExists
			switch {
			case errors.As(err, &invalid):
				http.Error(w, invalid.Error(), http.StatusBadRequest)
			case errors.As(err, &exists):
				http.Error(w, exists.Error(), http.StatusConflict)
			default:
				log.Error().Err(err).Str("uri", input.URI).Msg("svc.Create error, returning 500")
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		link, err := s.svc.Get(ctx, input.Database, input.URI)
		if err != nil || link == nil {
			// the link was saved, but reading it back failed
			log.Error().Err(err).Str("uri", input.URI).Msg("svc.Get after create failed")
			w.WriteHeader(http.StatusCreated)
			return
		}

		writeJSON(w, http.StatusCreated, &linkResponse{URI: input.URI, Link: link})
	}
}

func (s *AdminServer) handleGetLinkByURI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uri := r.URL.Query().Get("uri")
		if uri == "" {
			http.Error(w, "missing uri query parameter", http.StatusBadRequest)
			return
		}

		link, err := s.svc.Get(r.Context(), "", uri)
		if err != nil {
			log.Error().Err(err).Msg("svc.Get error, returning 500")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		if link == nil {
			log.Debug().Str("uri", uri).Msg("handleGetLinkByURI: link not found")
			w.WriteHeader(http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, &linkResponse{URI: uri, Link: link})
	}
}

func (s *AdminServer) handleGetLinkByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		params := httprouter.ParamsFromContext(ctx)

		id := params.ByName("id")

		uri, link, err := s.svc.GetByID(ctx, "", id)
		if err != nil {
			log.Error().Err(err).Msg("svc.GetByID error, returning 500")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		if link == nil {
			log.Debug().Str("id", id).Msg("handleGetLinkByID: link not found")
			w.WriteHeader(http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, &linkResponse{URI: uri, Link: link})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(b)
}

func (s *AdminServer) apiRoute(method, path string, h http.HandlerFunc) {
	labelsWithPath := prometheus.Labels{"path": path}

	s.router.Handler(
		method,
		path,
		s.requireAuthToken(
			http.TimeoutHandler(
				promhttp.InstrumentHandlerDuration(
					debug.IncomingRequestDurations().MustCurryWith(labelsWithPath),
					promhttp.InstrumentHandlerCounter(
						debug.IncomingRequests().MustCurryWith(labelsWithPath),
						h,
					),
				),
				DefaultHandlerTimeoutDuration,
				"timed out",
			).ServeHTTP,
		),
	)
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	s.SetKeepAlivesEnabled(false)
	return s.Server.Shutdown(ctx)
}

func WithListenAddr(addr string) func(*AdminServer) {
	return func(s *AdminServer) {
		s.Addr = addr
	}
}

func WithLinkDBOptions(linkdbOptions ...func(*linkdb.LinkDB)) func(*AdminServer) {
	return func(s *AdminServer) {
		s.linkdbOptions = linkdbOptions
	}
}

func WithAuthKeys(authKeys []AuthKey) func(*AdminServer) {
	return func(s *AdminServer) {
		s.authKeys = authKeys
	}
}
