package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vietddude/fencer/internal/core/config"
	"github.com/vietddude/fencer/internal/core/domain"
	"github.com/vietddude/fencer/internal/infra/storage"
	"github.com/vietddude/fencer/internal/metrics"
)

const (
	ctxUserID    = "auth.user_id"
	ctxSessionID = "auth.session_id"

	minPasswordLength = 8
)

// SessionCache is the optional hot path in front of the session store.
// A miss returns (nil, nil); the caller falls back to the database.
type SessionCache interface {
	CacheSession(ctx context.Context, s *domain.Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	DropSession(ctx context.Context, id string) error
}

// accessClaims is the access token payload. The session ID ties the
// short-lived token back to a revocable session.
type accessClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// refreshClaims is the refresh token payload. The token ID must match
// the session's current refresh token ID; rotation invalidates old ones.
type refreshClaims struct {
	SessionID      string `json:"sid"`
	RefreshTokenID string `json:"rtid"`
	jwt.RegisteredClaims
}

// AuthHandler implements registration, login, token refresh and logout.
type AuthHandler struct {
	cfg      config.AuthConfig
	users    storage.UserRepository
	sessions storage.SessionRepository
	audit    storage.AuditRepository
	cache    SessionCache
	now      func() time.Time
}

// NewAuthHandler creates the auth controller. cache may be nil.
func NewAuthHandler(
	cfg config.AuthConfig,
	users storage.UserRepository,
	sessions storage.SessionRepository,
	audit storage.AuditRepository,
	cache SessionCache,
) *AuthHandler {
	return &AuthHandler{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		audit:    audit,
		cache:    cache,
		now:      time.Now,
	}
}

// BasePath implements APIController.
func (h *AuthHandler) BasePath() string {
	return "auth"
}

// Handlers implements APIController. Auth routes are unauthenticated
// except logout, which guards itself.
func (h *AuthHandler) Handlers() []gin.HandlerFunc {
	return nil
}

// Register implements APIController.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/refresh", h.refresh)
	rg.POST("/logout", h.RequireAuth(), h.logout)
}

// =============================================================================
// Handlers
// =============================================================================

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if len(req.Password) < minPasswordLength {
		respondBadRequest(c, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, err)
		return
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		CreatedAt:    h.now().UTC(),
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	slog.Info("user registered", "user_id", user.ID)
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *domain.User `json:"user,omitempty"`
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, domain.ErrUserNotFound) {
		metrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
		respondError(c, domain.ErrInvalidCredentials)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		metrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
		respondError(c, domain.ErrInvalidCredentials)
		return
	}

	now := h.now().UTC()
	sess := &domain.Session{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		RefreshTokenID: uuid.NewString(),
		IssuedAt:       now,
		ExpiresAt:      now.Add(h.cfg.SessionTTL),
	}
	if err := h.sessions.Create(ctx, sess); err != nil {
		respondError(c, err)
		return
	}
	h.cacheSession(ctx, sess)
	metrics.SessionOperationsTotal.WithLabelValues("created").Inc()

	resp, err := h.issueTokens(user.ID, sess)
	if err != nil {
		respondError(c, err)
		return
	}
	resp.User = user

	slog.Info("user logged in", "user_id", user.ID, "session_id", sess.ID)
	c.JSON(http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	claims := &refreshClaims{}
	if _, err := h.parseToken(req.RefreshToken, claims); err != nil {
		h.refreshFailed(c, "invalid refresh token")
		return
	}

	ctx := c.Request.Context()
	now := h.now().UTC()

	sess, err := h.lookupSession(ctx, claims.SessionID)
	if err != nil {
		h.refreshFailed(c, "session lookup failed")
		return
	}
	if !sess.Active(now) || sess.RefreshTokenID != claims.RefreshTokenID {
		h.refreshFailed(c, "session inactive or token rotated away")
		return
	}

	sess.RefreshTokenID = uuid.NewString()
	sess.ExpiresAt = now.Add(h.cfg.SessionTTL)
	if err := h.sessions.Rotate(ctx, sess.ID, sess.RefreshTokenID, sess.ExpiresAt); err != nil {
		h.refreshFailed(c, "session rotation failed")
		return
	}
	h.cacheSession(ctx, sess)
	metrics.SessionOperationsTotal.WithLabelValues("refreshed").Inc()

	resp, err := h.issueTokens(sess.UserID, sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// refreshFailed rejects a refresh attempt. The response message is
// fixed wording that clients match on.
func (h *AuthHandler) refreshFailed(c *gin.Context, reason string) {
	slog.Warn("token refresh rejected", "reason", reason)
	metrics.AuthFailuresTotal.WithLabelValues("refresh").Inc()
	respondError(c, domain.ErrTokenRefreshFailed)
}

func (h *AuthHandler) logout(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.GetString(ctxSessionID)
	userID := c.GetString(ctxUserID)

	if err := h.sessions.Revoke(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		respondError(c, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.DropSession(ctx, sessionID); err != nil {
			slog.Warn("failed to drop cached session", "session_id", sessionID, "error", err)
		}
	}
	metrics.SessionOperationsTotal.WithLabelValues("revoked").Inc()

	_ = h.audit.Record(ctx, &domain.AuditEvent{
		ID:        uuid.NewString(),
		ActorID:   userID,
		Action:    domain.AuditSessionRevoked,
		SubjectID: sessionID,
		CreatedAt: h.now().UTC(),
	})

	slog.Info("user logged out", "user_id", userID, "session_id", sessionID)
	c.Status(http.StatusNoContent)
}

// =============================================================================
// Middleware
// =============================================================================

// RequireAuth validates the bearer token and loads the session. The
// 401 messages are fixed wording that clients match on.
func (h *AuthHandler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			metrics.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		claims := &accessClaims{}
		_, err := h.parseToken(strings.TrimPrefix(header, prefix), claims)
		if err != nil {
			var ve *jwt.ValidationError
			if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
				metrics.AuthFailuresTotal.WithLabelValues("expired").Inc()
				respondError(c, domain.ErrSessionExpired)
				return
			}
			metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}

		sess, err := h.lookupSession(c.Request.Context(), claims.SessionID)
		if err != nil || !sess.Active(h.now().UTC()) {
			metrics.AuthFailuresTotal.WithLabelValues("session_inactive").Inc()
			respondError(c, domain.ErrSessionExpired)
			return
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxSessionID, sess.ID)
		c.Next()
	}
}

// =============================================================================
// Token helpers
// =============================================================================

func (h *AuthHandler) issueTokens(userID string, sess *domain.Session) (*tokenResponse, error) {
	now := h.now().UTC()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, &accessClaims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.cfg.AccessTTL)),
		},
	})
	accessSigned, err := access.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, &refreshClaims{
		SessionID:      sess.ID,
		RefreshTokenID: sess.RefreshTokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	refreshSigned, err := refresh.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &tokenResponse{
		AccessToken:  accessSigned,
		RefreshToken: refreshSigned,
		ExpiresIn:    int64(h.cfg.AccessTTL.Seconds()),
	}, nil
}

func (h *AuthHandler) parseToken(raw string, claims jwt.Claims) (*jwt.Token, error) {
	return jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(h.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
}

// lookupSession checks the cache first and falls back to the store.
// Cache errors degrade to a database read, never to a rejection.
func (h *AuthHandler) lookupSession(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrSessionNotFound
	}
	if h.cache != nil {
		sess, err := h.cache.GetSession(ctx, id)
		if err != nil {
			slog.Debug("session cache read failed", "session_id", id, "error", err)
		} else if sess != nil {
			return sess, nil
		}
	}
	return h.sessions.GetByID(ctx, id)
}

func (h *AuthHandler) cacheSession(ctx context.Context, sess *domain.Session) {
	if h.cache == nil {
		return
	}
	ttl := sess.ExpiresAt.Sub(h.now().UTC())
	if err := h.cache.CacheSession(ctx, sess, ttl); err != nil {
		slog.Warn("failed to cache session", "session_id", sess.ID, "error", err)
	}
}
