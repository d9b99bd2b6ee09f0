// Package sitehost serves the static marketing site with the same routing
// and caching rules as its production nginx config.
package sitehost

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	cacheImmutable  = "public, max-age=31536000, immutable"
	cacheRevalidate = "no-cache"
	cacheDefault    = "public, max-age=3600"
)

var versionedRoute = regexp.MustCompile(`^/(v[0-9]+)(/|$)`)

var immutableExts = map[string]bool{
	".css": true, ".js": true, ".mjs": true, ".map": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true,
}

type Options struct {
	Root            string
	RateLimitPerSec float64
	RateLimitBurst  int
	Logger          *slog.Logger
}

// Server is an http.Handler for a static site directory.
type Server struct {
	root    string
	handler http.Handler
	limiter *RateLimiter
	logger  *slog.Logger
}

func New(opts Options) (*Server, error) {
	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("site root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site root %s is not a directory", opts.Root)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{root: opts.Root, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleStatic)

	var h http.Handler = mux
	if opts.RateLimitPerSec > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = int(opts.RateLimitPerSec) * 2
		}
		s.limiter = NewRateLimiter(opts.RateLimitPerSec, max(burst, 1))
		h = s.limiter.Middleware(h)
	}
	h = secureHeaders(h)
	h = requestID()(h)
	h = logging(logger)(h)
	h = recovery(logger)(h)
	s.handler = h

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close releases the rate limiter's cleanup goroutine.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "healthy\n")
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	urlPath := path.Clean("/" + r.URL.Path)

	if file, ok := s.lookup(urlPath); ok {
		s.serveFile(w, r, file)
		return
	}

	// Unknown paths under /vN/ belong to that version's single-page app.
	if m := versionedRoute.FindStringSubmatch(urlPath); m != nil {
		if file, ok := s.lookup("/" + m[1] + "/index.html"); ok {
			s.serveFile(w, r, file)
			return
		}
	}

	http.NotFound(w, r)
}

// lookup maps a cleaned URL path to a regular file under root, resolving
// directories to their index.html.
func (s *Server) lookup(urlPath string) (string, bool) {
	name := filepath.Join(s.root, filepath.FromSlash(urlPath))
	info, err := os.Stat(name)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		name = filepath.Join(name, "index.html")
		info, err = os.Stat(name)
		if err != nil || info.IsDir() {
			return "", false
		}
	}
	return name, true
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	f, err := os.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", cacheControlFor(name))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func cacheControlFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".html" || ext == ".htm":
		return cacheRevalidate
	case immutableExts[ext]:
		return cacheImmutable
	default:
		return cacheDefault
	}
}
