package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mithileshchellappan/pushgate/internal/keystore"
	"github.com/mithileshchellappan/pushgate/internal/params"
	"github.com/mithileshchellappan/pushgate/internal/payload"
	"github.com/mithileshchellappan/pushgate/internal/service"
	"github.com/mithileshchellappan/pushgate/internal/storage"
	"github.com/mithileshchellappan/pushgate/internal/worker"
	"github.com/mithileshchellappan/pushgate/pkg/metrics"
)

type Server struct {
	service    *service.PushgateService
	workerPool *worker.Pool
	keys       keystore.Store
	metrics    *metrics.Metrics
	maxSkew    int64
	httpServer *http.Server
	router     chi.Router
}

// New builds the HTTP server. keys may be nil, which disables request
// signature verification (local development only). maxSkewSeconds bounds the
// accepted age of the timestamp header; zero disables the staleness check.
func New(s *service.PushgateService, pool *worker.Pool, keys keystore.Store, m *metrics.Metrics, maxSkewSeconds int64) *Server {
	return &Server{service: s, workerPool: pool, keys: keys, metrics: m, maxSkew: maxSkewSeconds}
}

func (s *Server) Start(addr string) error {
	slog.Info("starting server", "addr", addr)
	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ping", s.handlePing)
		r.Method("GET", "/metrics", s.metrics.Handler())

		r.Group(func(r chi.Router) {
			r.Use(s.verifySignature)

			r.Post("/messages", s.handleSendMessage)
			r.Get("/messages/{messageID}", s.handleGetMessage)
			r.Get("/inbox", s.handleListInbox)

			r.Post("/tokens", s.handleRegisterToken)
			r.Delete("/tokens/{tokenID}", s.handleDeleteToken)
		})
	})

	return r
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("pong"))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	s.metrics.IncReceived()

	req := service.SendRequest{
		Domain: r.Form.Get("domain"),
		Content: payload.Content{
			Title:     r.Form.Get("title"),
			Body:      r.Form.Get("body"),
			Payload:   r.Form.Get("payload"),
			FullTitle: r.Form.Get("full_title"),
			FullBody:  r.Form.Get("full_body"),
		},
		Archive: r.Form.Get("archive") == "1" || r.Form.Get("archive") == "true",
	}

	msg, err := s.service.SendMessage(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err, "error sending message")
		return
	}

	s.workerPool.Submit(msg)
	s.respond(w, r, msg, http.StatusCreated)
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")
	if messageID == "" {
		http.Error(w, "messageID is required", http.StatusBadRequest)
		return
	}

	detail, err := s.service.GetMessageDetail(r.Context(), messageID)
	if err != nil {
		s.respondError(w, r, err, "error getting message")
		return
	}
	s.respond(w, r, detail, http.StatusOK)
}

func (s *Server) handleListInbox(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := s.service.ListInbox(r.Context(), domain, limit)
	if err != nil {
		s.respondError(w, r, err, "error listing inbox")
		return
	}
	s.respond(w, r, messages, http.StatusOK)
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	token, err := s.service.RegisterToken(r.Context(), r.Form.Get("domain"), r.Form.Get("platform"), r.Form.Get("token"))
	if err != nil {
		s.respondError(w, r, err, "error registering token")
		return
	}
	s.respond(w, r, token, http.StatusCreated)
}

func (s *Server) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "tokenID")
	if tokenID == "" {
		http.Error(w, "tokenID is required", http.StatusBadRequest)
		return
	}

	if err := s.service.RemoveToken(r.Context(), tokenID); err != nil {
		s.respondError(w, r, err, "error deleting token")
		return
	}
	s.respond(w, r, nil, http.StatusNoContent)
}

// MARK: Helpers

func (s *Server) respond(w http.ResponseWriter, r *http.Request, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "request", middleware.GetReqID(r.Context()), "error", err)
		}
	}
}

// respondError maps core error kinds to HTTP statuses: validation and payload
// errors are the caller's fault, missing records are 404, the rest is on us.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	var missingParam *params.MissingParamError
	var invalidFormat *params.InvalidFormatError
	var unknownService *payload.UnknownServiceError
	var missingKey *payload.MissingKeyError
	var invalidValue *payload.InvalidValueError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &missingParam),
		errors.As(err, &invalidFormat),
		errors.As(err, &unknownService),
		errors.As(err, &missingKey),
		errors.As(err, &invalidValue),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.Errors.NotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, storage.Errors.AlreadyExists):
		http.Error(w, "Already exists", http.StatusConflict)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		slog.Error(logMsg, "request", middleware.GetReqID(r.Context()), "error", err)
	}
}
