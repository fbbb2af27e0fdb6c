package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/auth"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/facematch"
	"github.com/kozaktomas/geo-attendance/internal/logging"
	"github.com/kozaktomas/geo-attendance/internal/web/middleware"
	"go.uber.org/zap"
)

// AuthHandler handles registration, login and face enrollment
type AuthHandler struct {
	issuer *auth.TokenIssuer
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(issuer *auth.TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		issuer: issuer,
		logger: logger,
		now:    time.Now,
	}
}

func getUserWriter(r *http.Request, w http.ResponseWriter) database.UserWriter {
	writer, err := database.GetUserWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "user storage not available")
		return nil
	}
	return writer
}

func getUserReader(r *http.Request, w http.ResponseWriter) database.UserReader {
	reader, err := database.GetUserReader(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "user storage not available")
		return nil
	}
	return reader
}

// respondInternal logs err with the request-scoped logger and hides it from the client.
func respondInternal(w http.ResponseWriter, r *http.Request, fallback *zap.Logger, msg string, err error) {
	logging.FromContext(r.Context(), fallback).Error(msg, zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal server error")
}

// currentUser loads the authenticated caller. It writes the error response itself.
func currentUser(w http.ResponseWriter, r *http.Request, users database.UserReader, logger *zap.Logger) *database.StoredUser {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return nil
	}
	user, err := users.GetUser(r.Context(), identity.UserID)
	if err != nil {
		respondInternal(w, r, logger, "load current user", err)
		return nil
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "User not found")
		return nil
	}
	return user
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Register creates an employee account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		respondError(w, http.StatusBadRequest, auth.ErrPasswordTooLong.Error())
		return
	}

	users := getUserWriter(r, w)
	if users == nil {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondInternal(w, r, h.logger, "hash password", err)
		return
	}

	user := &database.StoredUser{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		Role:         database.RoleEmployee,
		PasswordHash: hash,
		CreatedAt:    h.now().UTC(),
	}
	if err := users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			respondError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		respondInternal(w, r, h.logger, "create user", err)
		return
	}

	logging.FromContext(r.Context(), h.logger).Info("user registered", zap.String("user_id", user.ID.String()))
	respondJSON(w, http.StatusOK, newUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

// Login verifies credentials and issues an access token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	users := getUserReader(r, w)
	if users == nil {
		return
	}

	user, err := users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondInternal(w, r, h.logger, "get user by email", err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		logging.FromContext(r.Context(), h.logger).Info("login failed",
			zap.String("email", sanitizeForLog(req.Email)))
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Role)
	if err != nil {
		respondInternal(w, r, h.logger, "issue token", err)
		return
	}

	middleware.SetTokenCookie(w, token, h.issuer.TTL(), r.TLS != nil)
	respondJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   auth.TokenType,
		User:        newUserResponse(user),
	})
}

// Logout clears the access token cookie. Bearer tokens stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearTokenCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

type meResponse struct {
	userResponse
	FaceRegistered bool `json:"face_registered"`
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	users := getUserWriter(r, w)
	if users == nil {
		return
	}
	user := currentUser(w, r, users, h.logger)
	if user == nil {
		return
	}

	descriptors, err := users.GetFaceDescriptors(r.Context(), user.ID)
	if err != nil {
		respondInternal(w, r, h.logger, "get face descriptors", err)
		return
	}

	respondJSON(w, http.StatusOK, meResponse{
		userResponse:   newUserResponse(user),
		FaceRegistered: len(descriptors) > 0,
	})
}

type registerFaceRequest struct {
	Descriptors [][]float32 `json:"descriptors" validate:"required,min=1,dive,required,min=1"`
}

// RegisterFace replaces the caller's enrolled face descriptors
func (h *AuthHandler) RegisterFace(w http.ResponseWriter, r *http.Request) {
	var req registerFaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, d := range req.Descriptors[1:] {
		if len(d) != len(req.Descriptors[0]) {
			respondError(w, http.StatusBadRequest, "descriptors must all have the same length")
			return
		}
	}

	users := getUserWriter(r, w)
	if users == nil {
		return
	}
	user := currentUser(w, r, users, h.logger)
	if user == nil {
		return
	}

	descriptors := make([]facematch.Descriptor, len(req.Descriptors))
	for i, d := range req.Descriptors {
		descriptors[i] = d
	}
	if err := users.ReplaceFaceDescriptors(r.Context(), user.ID, descriptors); err != nil {
		respondInternal(w, r, h.logger, "replace face descriptors", err)
		return
	}

	logging.FromContext(r.Context(), h.logger).Info("face registered",
		zap.String("user_id", user.ID.String()), zap.Int("descriptors", len(descriptors)))
	respondJSON(w, http.StatusOK, map[string]any{
		"message":           "Face registered successfully",
		"descriptors_count": len(descriptors),
	})
}
