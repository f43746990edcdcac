package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"shop-catalog-service/internal/auth"
	"shop-catalog-service/internal/store"
)

// AuthHandler holds dependencies for the authentication endpoints.
type AuthHandler struct {
	userStore store.UserStorer
	tokens    *auth.TokenManager
	validate  *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with dependencies.
func NewAuthHandler(us store.UserStorer, tm *auth.TokenManager) *AuthHandler {
	return &AuthHandler{
		userStore: us,
		tokens:    tm,
		validate:  newValidator(),
	}
}

// LoginInput defines the expected input for the login endpoint.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges a username/password pair for access + refresh tokens.
// The response is deliberately identical for unknown users and wrong
// passwords.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithValidationError(w, err)
		return
	}

	user, err := h.userStore.GetUserByUsername(r.Context(), input.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		} else {
			log.Printf("ERROR: Login user lookup failed: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to authenticate")
		}
		return
	}

	if !auth.CheckPasswordHash(input.Password, user.PasswordHash) {
		respondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	pair, err := h.tokens.IssuePair(user)
	if err != nil {
		log.Printf("ERROR: Login token issuance for user %d failed: %v", user.ID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to authenticate")
		return
	}

	respondWithJSON(w, http.StatusOK, pair)
}

// RefreshInput defines the expected input for the token refresh endpoint.
type RefreshInput struct {
	Refresh string `json:"refresh" validate:"required"`
}

// RefreshToken exchanges a valid refresh token for a new access token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var input RefreshInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithValidationError(w, err)
		return
	}

	access, err := h.tokens.Refresh(input.Refresh)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"access": access})
}

// SignupResponse carries the generated credentials. This is the only place
// the plaintext password ever leaves the process; there is no recovery if
// the caller loses it.
type SignupResponse struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Message  string `json:"message"`
}

// Signup bootstraps one admin account with random credentials and returns
// them exactly once.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	username, password, err := auth.BootstrapAdmin(r.Context(), h.userStore)
	if err != nil {
		log.Printf("ERROR: Signup admin bootstrap failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, SignupResponse{
		Username: username,
		Password: password,
		Message:  "Admin account created. Sign in at /api/v1/auth/login with these credentials to get tokens.",
	})
}

// RegisterRoutes sets up the authentication HTTP routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/token/refresh", h.RefreshToken)
		r.Post("/signup", h.Signup)
	})
}
