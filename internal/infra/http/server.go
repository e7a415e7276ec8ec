package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// UpdateHandler обрабатывает апдейт Telegram.
type UpdateHandler func(ctx context.Context, upd tgbotapi.Update)

// HealthCheck возвращает короткое описание состояния компонента для /healthz.
type HealthCheck func(ctx context.Context) string

type healthCheck struct {
	name  string
	check HealthCheck
}

// Option настраивает Server.
type Option func(*Server)

// WithHealthCheck добавляет строку "name: состояние" в ответ /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		s.checks = append(s.checks, healthCheck{name: name, check: check})
	}
}

// Server оборачивает chi.Router с базовыми middlewares.
type Server struct {
	Router chi.Router
	log    zerolog.Logger
	srv    *http.Server
	checks []healthCheck
}

// NewServer создаёт HTTP сервер с /metrics и /healthz, слушающий addr.
func NewServer(logger zerolog.Logger, addr string, opts ...Option) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	s := &Server{Router: r, log: logger}
	for _, opt := range opts {
		opt(s)
	}
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/healthz", s.healthz)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	lines := []string{"ok"}
	for _, c := range s.checks {
		lines = append(lines, c.name+": "+c.check(r.Context()))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strings.Join(lines, "\n")))
}

// MountWebhook регистрирует приём апдейтов по пути path.
// Апдейт обрабатывается в отдельной горутине, Telegram сразу получает 200.
func (s *Server) MountWebhook(ctx context.Context, path string, handle UpdateHandler) {
	s.Router.Post(path, func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		go handle(ctx, update)
		w.WriteHeader(http.StatusOK)
	})
}

// Start запускает http.Server и блокируется до его остановки.
// Если Shutdown уже вызван, Start сразу возвращает nil.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("HTTP сервер запущен")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown корректно завершает работу сервера.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
