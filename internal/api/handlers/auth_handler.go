package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/isdelr/inventory-tracker/internal/auth"
	"github.com/isdelr/inventory-tracker/internal/services"
	"github.com/isdelr/inventory-tracker/internal/views"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	users    services.UserServiceProvider
	sessions *auth.SessionManager
	views    *views.Renderer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, sessions *auth.SessionManager, v *views.Renderer) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, views: v}
}

func (h *AuthHandler) alreadySignedIn(w http.ResponseWriter, r *http.Request) bool {
	if _, ok := h.sessions.Resolve(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return true
	}
	return false
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if h.alreadySignedIn(w, r) {
		return
	}
	h.views.Render(w, http.StatusOK, "register.html", newPage(w, r, "Register", views.AuthFormData{}))
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.alreadySignedIn(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	in := services.RegisterInput{
		Username:        r.PostForm.Get("username"),
		Email:           r.PostForm.Get("email"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirm_password"),
	}
	form := views.AuthFormData{Username: strings.TrimSpace(in.Username), Email: strings.TrimSpace(in.Email)}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			msgs := make([]views.Flash, 0, len(verr.Messages))
			for _, m := range verr.Messages {
				msgs = append(msgs, flashError(m))
			}
			h.views.Render(w, http.StatusUnprocessableEntity, "register.html", newPage(w, r, "Register", form, msgs...))
		case errors.Is(err, services.ErrDuplicateIdentity):
			h.views.Render(w, http.StatusConflict, "register.html",
				newPage(w, r, "Register", form, flashError("Username or email already registered.")))
		default:
			log.Error().Err(err).Str("username", form.Username).Msg("Failed to register user")
			renderError(h.views, w, r, http.StatusInternalServerError, "Registration failed. Please try again.")
		}
		return
	}

	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	redirectWithFlash(w, r, "/login", flashSuccess("Registration successful! Please log in."))
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.alreadySignedIn(w, r) {
		return
	}
	data := views.AuthFormData{Next: r.URL.Query().Get("next")}
	h.views.Render(w, http.StatusOK, "login.html", newPage(w, r, "Log in", data))
}

// Login handles user authentication and session creation.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.alreadySignedIn(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	remember := r.PostForm.Get("remember") != ""
	next := r.Form.Get("next")
	form := views.AuthFormData{Username: username, Next: next}

	if username == "" || password == "" {
		h.views.Render(w, http.StatusUnprocessableEntity, "login.html",
			newPage(w, r, "Log in", form, flashError("Please enter username and password.")))
		return
	}

	user, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			log.Error().Err(err).Msg("Failed to authenticate user")
			renderError(h.views, w, r, http.StatusInternalServerError, "Login failed. Please try again.")
			return
		}
		log.Warn().Str("username", username).Msg("Failed authentication attempt")
		h.views.Render(w, http.StatusUnauthorized, "login.html",
			newPage(w, r, "Log in", form, flashError("Invalid username or password.")))
		return
	}

	if err := h.sessions.Issue(w, user, remember); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue session")
		renderError(h.views, w, r, http.StatusInternalServerError, "Login failed. Please try again.")
		return
	}

	redirectWithFlash(w, r, safeRedirect(next), flashSuccess(fmt.Sprintf("Welcome back, %s!", user.Username)))
}

// Logout ends the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	redirectWithFlash(w, r, "/login", flashInfo("You have been logged out."))
}

// LoginRequired sends unauthenticated visitors to the login page, keeping
// the page they asked for in next.
func (h *AuthHandler) LoginRequired(w http.ResponseWriter, r *http.Request) {
	target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
	redirectWithFlash(w, r, target, flashInfo("Please log in to access this page."))
}
