package handlers

import (
	"net/http"
	"strings"

	"github.com/bookshelf-app/server/internal/auth"
)

// Decision is the routing outcome of the session guard.
type Decision int

const (
	PassThrough Decision = iota
	RedirectToLogin
	RedirectToDashboard
)

func (d Decision) String() string {
	switch d {
	case RedirectToLogin:
		return "redirect-to-login"
	case RedirectToDashboard:
		return "redirect-to-dashboard"
	default:
		return "pass-through"
	}
}

const (
	loginPath     = "/"
	signupPath    = "/signup"
	dashboardPath = "/dash"
)

var protectedPrefixes = []string{dashboardPath, "/books", "/genres", "/covers"}

func isLoginSurface(path string) bool {
	return path == loginPath || path == signupPath
}

func isProtected(path string) bool {
	for _, prefix := range protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Decide maps a request path and authentication state to a guard decision.
// Signed-in users are kept off the login surface and anonymous users out of
// the protected areas; everything else passes through.
func Decide(path string, authenticated bool) Decision {
	switch {
	case authenticated && isLoginSurface(path):
		return RedirectToDashboard
	case !authenticated && isProtected(path):
		return RedirectToLogin
	default:
		return PassThrough
	}
}

// Guard validates the session cookie on every request.
type Guard struct {
	sessions   *auth.Sessions
	cookieName string
}

func NewGuard(sessions *auth.Sessions, cookieName string) *Guard {
	return &Guard{sessions: sessions, cookieName: cookieName}
}

// Middleware applies Decide. Missing, malformed or expired cookies all count
// as anonymous. Valid claims are stored in the request context.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := g.authenticate(r)
		if ok {
			r = r.WithContext(withClaims(r.Context(), claims))
		}

		switch Decide(r.URL.Path, ok) {
		case RedirectToLogin:
			redirect(w, r, loginPath)
		case RedirectToDashboard:
			redirect(w, r, dashboardPath)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (g *Guard) authenticate(r *http.Request) (auth.Claims, bool) {
	cookie, err := r.Cookie(g.cookieName)
	if err != nil || cookie.Value == "" {
		return auth.Claims{}, false
	}
	claims, err := g.sessions.Parse(cookie.Value)
	if err != nil {
		return auth.Claims{}, false
	}
	return claims, true
}
