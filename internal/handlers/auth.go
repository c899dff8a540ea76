package handlers

import (
	"net/http"
	"time"

	"github.com/bookshelf-app/server/internal/logger"
	"github.com/bookshelf-app/server/internal/services"
	"github.com/bookshelf-app/server/internal/views"
	"github.com/go-chi/chi/v5"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler serves the login, signup and logout flow.
type AuthHandler struct {
	users  *services.UserService
	views  *views.Renderer
	cookie CookieConfig
	log    *logger.Logger
	now    func() time.Time
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(users *services.UserService, renderer *views.Renderer, cookie CookieConfig, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		views:  renderer,
		cookie: cookie,
		log:    log,
		now:    time.Now,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, h *AuthHandler) {
	r.Get(loginPath, h.LoginPage)
	r.Get(signupPath, h.SignupPage)
	r.Post("/login", h.Login)
	r.Post(signupPath, h.Signup)
	r.Post("/logout", h.Logout)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.Login, views.Form{})
}

func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.Signup, views.Form{})
}

// Login verifies credentials, sets the session cookie and sends the user to
// the dashboard.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	session, err := h.users.Login(r.Context(), email, r.FormValue("password"))
	if err != nil {
		h.fail(w, r, views.Login, views.Form{Email: email}, err, "failed to authenticate")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(session.ExpiresAt.Sub(h.now()).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	redirect(w, r, dashboardPath)
}

// Signup creates the account and sends the user to the login page.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	form := views.Form{Name: r.FormValue("name"), Email: r.FormValue("email")}
	_, err := h.users.Signup(r.Context(), services.SignupInput{
		Name:     form.Name,
		Email:    form.Email,
		Password: r.FormValue("password"),
	})
	if err != nil {
		h.fail(w, r, views.Signup, form, err, "failed to create account")
		return
	}
	redirect(w, r, loginPath)
}

// Logout clears the session cookie. Tokens are stateless, so nothing is
// revoked server-side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	redirect(w, r, loginPath)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, page string, form views.Form, err error, fallback string) {
	if !wantsHTML(r) {
		writeServiceError(w, r, h.log, err, fallback)
		return
	}
	status, _ := statusFor(err)
	form.Error = err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Error(fallback, "error", err, "path", r.URL.Path)
		form.Error = fallback
	}
	h.render(w, r, status, page, form)
}

func (h *AuthHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, form views.Form) {
	if err := h.views.Render(w, status, page, form); err != nil {
		h.log.Error("render view", "view", page, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to render page")
	}
}
