package receipt

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/orbitravel/receipts/internal/suggestion"
)

const sessionCookieName = "orbitravel_session"

// Server handles HTTP requests for the receipt builder
type Server struct {
	sessions  *SessionStore
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(sessions *SessionStore, basicAuth BasicAuth) *Server {
	return NewServerWithMux(sessions, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(sessions *SessionStore, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		sessions:  sessions,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

// corsMiddleware adds CORS headers to API responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Orbitravel"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// session returns the caller's session, starting one if the cookie is missing or expired
func (s *Server) session(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess
		}
	}

	sess := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /static/app.css", s.handleStaticCSS)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// API endpoints
	s.mux.HandleFunc("GET /api/receipt", s.requireAuth(s.corsMiddleware(s.handleAPIReceipt)))
	s.mux.HandleFunc("POST /api/suggestions", s.requireAuth(s.corsMiddleware(s.handleAPISuggest)))
	s.mux.HandleFunc("OPTIONS /api/", s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {}))

	// HTML form actions
	s.mux.HandleFunc("POST /receipts/new", s.requireAuth(s.handleGenerateNew))
	s.mux.HandleFunc("POST /receipts", s.requireAuth(s.handleSubmit))
	s.mux.HandleFunc("POST /suggestions", s.requireAuth(s.handleSuggest))

	s.mux.HandleFunc("GET /{$}", s.requireAuth(s.handleIndex))
}

// HTTPServer wraps the server in an http.Server with sane timeouts
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		// Suggestion requests block on the model and must outlast its timeout
		WriteTimeout:   suggestion.MaxTimeout + 30*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return s.HTTPServer(addr).ListenAndServe()
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
