// Package server serves rendered module collections over HTTP, so editors
// can preview a page's modules without the rest of the page.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"impractical.co/stitch"
	"impractical.co/stitch/internal/store"
)

// ModuleRenderer renders an ordered set of modules, writing nothing to out
// unless every module rendered. *stitch.Renderer fulfills it.
type ModuleRenderer interface {
	Render(ctx context.Context, out io.Writer, modules stitch.OrderedModuleSource) error
}

// ModuleLister returns the modules of the page with the passed ID. It should
// return an error wrapping store.ErrPageNotFound if there's no such page.
type ModuleLister func(ctx context.Context, pageID string) (stitch.OrderedModuleSource, error)

type server struct {
	renderer ModuleRenderer
	modules  ModuleLister
	logger   *slog.Logger
}

// New returns an http.Handler serving:
//
//	GET /healthz             "ok"
//	GET /modules/{page id}   the page's modules, rendered
//
// Page IDs may contain slashes.
func New(renderer ModuleRenderer, modules ModuleLister, logger *slog.Logger) http.Handler {
	s := &server{
		renderer: renderer,
		modules:  modules,
		logger:   logger,
	}
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.withLogger)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	router.Get("/modules/*", s.renderModules)
	return router
}

// withLogger makes the server's logger, tagged with the request ID,
// available to stitch while rendering the request.
func (s *server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(stitch.LoggingContext(r.Context(), logger)))
	})
}

func (s *server) renderModules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageID := strings.Trim(chi.URLParam(r, "*"), "/")
	if pageID == "" {
		http.NotFound(w, r)
		return
	}
	modules, err := s.modules(ctx, pageID)
	if errors.Is(err, store.ErrPageNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, "error listing modules", pageID, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = s.renderer.Render(ctx, w, modules)
	if err != nil {
		s.serverError(w, r, "error rendering modules", pageID, err)
		return
	}
}

// serverError logs err and writes a plain server error. It must only be
// called before anything has been written to w.
func (s *server) serverError(w http.ResponseWriter, r *http.Request, msg, pageID string, err error) {
	s.logger.ErrorContext(r.Context(), msg,
		"page", pageID,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	http.Error(w, "Server error.", http.StatusInternalServerError)
}
