package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	authCookieName = "papergen_auth"
	authTokenTTL   = 24 * time.Hour
)

// authTokens is the in-memory table of issued access tokens. Tokens die with
// the process, same as wizard sessions.
type authTokens struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func newAuthTokens() *authTokens {
	return &authTokens{tokens: make(map[string]time.Time)}
}

func (a *authTokens) issue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(b)
	a.mu.Lock()
	a.tokens[token] = time.Now().Add(authTokenTTL)
	a.mu.Unlock()
	return token, nil
}

func (a *authTokens) valid(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	expiry, ok := a.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(a.tokens, token)
		return false
	}
	return true
}

// requireAuth checks for a valid access cookie. A deployment without a
// configured password runs open and the middleware passes everything through.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.config.AccessPasswordHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		cookie, err := r.Cookie(authCookieName)
		if err != nil || cookie.Value == "" || !h.auth.valid(cookie.Value) {
			writeError(w, http.StatusUnauthorized, errors.New("login required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.config.AccessPasswordHash == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.config.AccessPasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, errors.New("invalid password"))
		return
	}

	token, err := h.auth.issue()
	if err != nil {
		slog.Error("failed to issue access token", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}
