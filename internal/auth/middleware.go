package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5/request"
)

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// SkipPaths returns a Skipper for the given exact paths and for CORS preflight requests.
func SkipPaths(paths ...string) Skipper {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(r *http.Request) bool {
		if r.Method == http.MethodOptions {
			return true
		}
		_, ok := set[r.URL.Path]
		return ok
	}
}

// Middleware authenticates bearer tokens and stores the caller's claims on the
// request context.
type Middleware struct {
	Config  Config
	Skipper Skipper
}

// NewMiddleware constructs a middleware with optional skipper.
func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	return Middleware{Config: cfg, Skipper: skipper}
}

// Wrap rejects requests without a valid token with 401.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := ParseRequest(r, m.Config)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="sabzgam"`)
			writeProblem(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// ParseRequest validates the bearer token in the Authorization header.
func ParseRequest(r *http.Request, cfg Config) (*Claims, error) {
	token, err := request.BearerExtractor{}.ExtractToken(r)
	if errors.Is(err, request.ErrNoTokenInRequest) {
		return nil, ErrMissingToken
	}
	if err != nil {
		return nil, err
	}
	return Parse(token, cfg)
}

// RequireScope returns middleware that answers 403 unless the authenticated
// caller holds scope, and 401 when no caller was authenticated.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := FromContext(r.Context())
			switch {
			case !ok:
				writeProblem(w, http.StatusUnauthorized, "unauthorized", ErrMissingToken.Error())
			case !claims.HasScope(scope):
				writeProblem(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func writeProblem(w http.ResponseWriter, status int, kind, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"type": kind, "detail": detail})
}
