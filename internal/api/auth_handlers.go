package api

import (
	"net/http"
	"time"

	"github.com/example/pharmacy-storefront/internal/api/middleware"
	"github.com/example/pharmacy-storefront/internal/auth"
	"github.com/example/pharmacy-storefront/internal/domain/user"
)

const refreshCookiePath = "/api/auth/refresh"

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ProfileRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// AuthResponse carries the user and, for API clients, the tokens also set as cookies
type AuthResponse struct {
	User    UserResponse    `json:"user"`
	Tokens  *auth.TokenPair `json:"tokens,omitempty"`
	Message string          `json:"message,omitempty"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Address:   u.Address,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Register handles user registration
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	// Check if email already exists
	_, exists, err := h.queryHandler.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if exists {
		respondError(w, r, user.ErrEmailTaken)
		return
	}

	newUser, err := h.users.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}

	tokens, err := h.setAuthCookies(w, r, newUser.ID, newUser.Email, newUser.Role)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, AuthResponse{
		User:    newUserResponse(newUser),
		Tokens:  tokens,
		Message: "Registration successful",
	})
}

// Login handles user login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	userModel, exists, err := h.queryHandler.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !exists {
		respondError(w, r, user.ErrInvalidCredentials)
		return
	}
	if !userModel.IsActive {
		respondError(w, r, user.ErrUserDeactivated)
		return
	}
	if !auth.CheckPassword(req.Password, userModel.PasswordHash) {
		respondError(w, r, user.ErrInvalidCredentials)
		return
	}

	tokens, err := h.setAuthCookies(w, r, userModel.ID, userModel.Email, userModel.Role)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{
		User: UserResponse{
			ID:        userModel.ID,
			Email:     userModel.Email,
			Name:      userModel.Name,
			Phone:     userModel.Phone,
			Address:   userModel.Address,
			Role:      userModel.Role,
			CreatedAt: userModel.CreatedAt,
		},
		Tokens:  tokens,
		Message: "Login successful",
	})
}

// Logout clears the auth cookies. Tokens already handed out stay valid until they expire.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Refresh exchanges a refresh token, from the cookie or the body, for a new pair
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := h.decodeJSON(w, r, &req); err == nil {
			token = req.RefreshToken
		}
	}
	if token == "" {
		respondJSONError(w, "No refresh token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(token)
	if err != nil {
		clearAuthCookies(w)
		respondError(w, r, err)
		return
	}

	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		clearAuthCookies(w)
		respondError(w, r, auth.ErrInvalidToken)
		return
	}
	if !u.IsActive {
		clearAuthCookies(w)
		respondError(w, r, user.ErrUserDeactivated)
		return
	}

	tokens, err := h.setAuthCookies(w, r, u.ID, u.Email, u.Role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{User: newUserResponse(u), Tokens: tokens, Message: "Token refreshed"})
}

// Me returns the current authenticated user's information
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), getUserID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newUserResponse(u))
}

// UpdateProfile replaces the caller's name, phone and address
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), getUserID(r), user.Profile{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newUserResponse(u))
}

// Helper methods

func (h *Handlers) setAuthCookies(w http.ResponseWriter, r *http.Request, userID, email, role string) (*auth.TokenPair, error) {
	tokens, err := h.jwtService.Issue(userID, email, role)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return tokens, nil
}

func clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
	})
}
