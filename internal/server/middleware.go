package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/todo-assistant/internal/model"
)

type contextKey string

const userContextKey contextKey = "user"

// userFromContext returns the authenticated user set by withAuth.
func userFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// withAuth authenticates the request via the Authorization bearer token and
// stores the user in the request context.
func (s *Server) withAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.respondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		userID, err := s.tokens.VerifyToken(token)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		user, err := s.store.GetUserByID(r.Context(), userID)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	})
}

// withUser authenticates and additionally requires the {user_id} path
// segment to match the authenticated user. The check runs before any side
// effect.
func (s *Server) withUser(next http.HandlerFunc) http.Handler {
	return s.withAuth(func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		if r.PathValue("user_id") != user.ID {
			s.respondError(w, http.StatusForbidden, "Not authorized to access this resource")
			return
		}
		next(w, r)
	})
}

// cors applies the configured CORS policy and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.CORSAllowedOrigins))
	allowAll := false
	for _, origin := range s.cfg.CORSAllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods",
				"GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// logRequests logs one line per request with method, path, status, and
// duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
