package server

import (
	"bytes"
	"context"
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"github.com/soar/padview/internal/hub"
)

//go:embed static
var staticFiles embed.FS

type asset struct {
	contentType string
	body        []byte
}

type Server struct {
	hub         *hub.Hub
	broadcaster *hub.Broadcaster
	sink        hub.CommandSink
	addr        string
	assets      map[string]asset
	started     time.Time
	httpServer  *http.Server
	log         zerolog.Logger
}

// New prepares the status server. Static assets are minified once here.
func New(h *hub.Hub, b *hub.Broadcaster, sink hub.CommandSink, addr string) (*Server, error) {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, errors.Wrap(err, "static assets")
	}
	assets, err := loadAssets(static, newMinifier())
	if err != nil {
		return nil, err
	}
	return &Server{
		hub:         h,
		broadcaster: b,
		sink:        sink,
		addr:        addr,
		assets:      assets,
		started:     time.Now(),
		log:         log.With().Str("component", "server").Logger(),
	}, nil
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	return m
}

// loadAssets reads every file under fsys and minifies the ones m knows.
func loadAssets(fsys fs.FS, m *minify.M) (map[string]asset, error) {
	assets := make(map[string]asset)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return errors.Wrapf(err, "read %s", p)
		}
		ctype := mime.TypeByExtension(path.Ext(p))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		mediatype, _, _ := strings.Cut(ctype, ";")
		body, err := m.Bytes(mediatype, raw)
		if errors.Is(err, minify.ErrNotExist) {
			body = raw
		} else if err != nil {
			return errors.Wrapf(err, "minify %s", p)
		}
		assets["/"+p] = asset{contentType: ctype, body: body}
		return nil
	})
	return assets, err
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	if strings.HasSuffix(p, "/") {
		p += "index.html"
	}
	a, ok := s.assets[p]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.contentType)
	http.ServeContent(w, r, p, s.started, bytes.NewReader(a.body))
}

// Handler returns the routes: /ws for the live feed, everything else static.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/", s.serveAsset)
	return mux
}

func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info().Str("addr", s.addr).Msg("HTTP server listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info().Msg("shutting down HTTP server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// URL is the address a local browser should open.
func (s *Server) URL() string {
	addr := s.addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}
