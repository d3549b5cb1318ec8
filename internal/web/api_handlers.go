package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"bookswap/internal/auth"
	"bookswap/middleware"
)

// JSON API handlers guarded by Bearer tokens rather than session cookies.

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// APILogin exchanges credentials for a signed token
func (h *WebHandler) APILogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
		return
	}

	if _, err := h.authService.Authenticate(r.Context(), creds.Username, creds.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
			return
		}
		serviceError(w, err)
		return
	}

	tokenString, err := auth.GenerateJWT(h.config.JwtKey, creds.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}

// APICheckAuth answers 200 when the Bearer token is valid; the auth
// middleware has already rejected everything else.
func (h *WebHandler) APICheckAuth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// APIBooks mirrors the /books search for API clients
func (h *WebHandler) APIBooks(w http.ResponseWriter, r *http.Request) {
	h.Books(w, r)
}

// APIMyBooks mirrors /my_books for token-authenticated clients
func (h *WebHandler) APIMyBooks(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())
	if username == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	lists, err := h.bookLists(r, username)
	if err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, lists)
}
