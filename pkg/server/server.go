package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/meln5674/minimux"

	"github.com/meln5674/tinysite/pkg/render"
	"github.com/meln5674/tinysite/pkg/site"
	"github.com/meln5674/tinysite/pkg/static"
)

// A Renderer writes the named page, or returns an error without writing.
type Renderer interface {
	Render(w io.Writer, name string, ctx render.Context) error
}

// An AssetServer answers requests for files below the site root. It finds
// the requested path in the static.PathVar path variable.
type AssetServer interface {
	ServeAsset(ctx context.Context, w http.ResponseWriter, req *http.Request, pathVars map[string]string, err error) error
}

type Config struct {
	Edition  site.Edition
	Content  site.Content
	Renderer Renderer
	// Assets may be nil, in which case only the named pages are served
	Assets AssetServer
	// Log receives one line per request. Defaults to stderr.
	Log io.Writer
}

type Server struct {
	Config
	mux minimux.Mux
}

func New(cfg Config) *Server {
	if cfg.Edition == "" {
		cfg.Edition = site.DefaultEdition
	}
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}
	srv := Server{Config: cfg}

	routes := []minimux.Route{
		minimux.
			LiteralPath("/").
			WithMethods(http.MethodGet, http.MethodHead).
			IsHandledByFunc(srv.index),
	}
	if cfg.Edition.HasAbout() {
		routes = append(routes, minimux.
			LiteralPath("/about").
			WithMethods(http.MethodGet, http.MethodHead).
			IsHandledByFunc(srv.about),
		)
	}
	if cfg.Assets != nil && cfg.Edition.ServesAssets() {
		routes = append(routes, minimux.
			PathWithVars("/(.+)", static.PathVar).
			WithMethods(http.MethodGet, http.MethodHead).
			IsHandledByFunc(cfg.Assets.ServeAsset),
		)
	}

	srv.mux = minimux.Mux{
		DefaultHandler: minimux.NotFound,
		PreProcess:     minimux.LogPendingRequest(cfg.Log),
		PostProcess:    minimux.LogCompletedRequestWithPanicTraces(cfg.Log),
		Routes:         routes,
	}

	return &srv
}

func (s *Server) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	s.mux.ServeHTTP(resp, req)
}

func (s *Server) index(ctx context.Context, w http.ResponseWriter, req *http.Request, _ map[string]string, _ error) error {
	return s.render(w, "index", s.indexContext())
}

func (s *Server) about(ctx context.Context, w http.ResponseWriter, req *http.Request, _ map[string]string, _ error) error {
	return s.render(w, "about", render.Context{"about": s.Content.About})
}

func (s *Server) indexContext() render.Context {
	switch s.Edition {
	case site.EditionGreeting:
		return render.Context{"message": s.Content.Message}
	case site.EditionLinks:
		return render.Context{"links": s.Content.Links}
	default:
		return render.Context{"links": s.Content.Links, "users": s.Content.Users}
	}
}

func (s *Server) render(w http.ResponseWriter, name string, ctx render.Context) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.Renderer.Render(w, name, ctx)
	if err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}
