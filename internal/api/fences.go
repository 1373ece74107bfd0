package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vietddude/fencer/internal/core/domain"
	"github.com/vietddude/fencer/internal/infra/storage"
	"github.com/vietddude/fencer/internal/metrics"
)

const auditPageSize = 50

// FenceHandler implements geofence CRUD and membership management.
// All routes require an authenticated session.
type FenceHandler struct {
	fences  storage.FenceRepository
	members storage.MemberRepository
	users   storage.UserRepository
	audit   storage.AuditRepository
	auth    *AuthHandler
	now     func() time.Time
}

// NewFenceHandler creates the fence controller.
func NewFenceHandler(
	fences storage.FenceRepository,
	members storage.MemberRepository,
	users storage.UserRepository,
	audit storage.AuditRepository,
	auth *AuthHandler,
) *FenceHandler {
	return &FenceHandler{
		fences:  fences,
		members: members,
		users:   users,
		audit:   audit,
		auth:    auth,
		now:     time.Now,
	}
}

// BasePath implements APIController.
func (h *FenceHandler) BasePath() string {
	return "fences"
}

// Handlers implements APIController.
func (h *FenceHandler) Handlers() []gin.HandlerFunc {
	return []gin.HandlerFunc{h.auth.RequireAuth()}
}

// Register implements APIController.
func (h *FenceHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.GET("/:id", h.get)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)

	rg.GET("/:id/members", h.listMembers)
	rg.POST("/:id/members", h.addMember)
	rg.DELETE("/:id/members/:userID", h.removeMember)

	rg.GET("/:id/audit", h.listAudit)
}

// =============================================================================
// Fence CRUD
// =============================================================================

type fenceRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	RadiusM     float64 `json:"radius_m"`
	HysteresisM float64 `json:"hysteresis_m"`
}

func (h *FenceHandler) list(c *gin.Context) {
	fences, err := h.fences.ListByUser(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fences": fences})
}

func (h *FenceHandler) create(c *gin.Context) {
	var req fenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	userID := c.GetString(ctxUserID)
	now := h.now().UTC()
	fence := &domain.Geofence{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		RadiusM:     req.RadiusM,
		HysteresisM: req.HysteresisM,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := fence.Validate(); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.fences.Create(ctx, fence); err != nil {
		respondError(c, err)
		return
	}
	if err := h.members.Add(ctx, &domain.Member{
		FenceID: fence.ID,
		UserID:  userID,
		Role:    domain.RoleOwner,
		AddedAt: now,
	}); err != nil {
		respondError(c, err)
		return
	}

	h.record(c, domain.AuditFenceCreated, fence.ID, map[string]any{"name": fence.Name})
	metrics.FenceOperationsTotal.WithLabelValues("create").Inc()
	slog.Info("fence created", "fence_id", fence.ID, "owner_id", userID)
	c.JSON(http.StatusCreated, fence)
}

func (h *FenceHandler) get(c *gin.Context) {
	fenceID := c.Param("id")
	if _, ok := h.requireMember(c, fenceID); !ok {
		return
	}
	fence, err := h.fences.GetByID(c.Request.Context(), fenceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fence)
}

func (h *FenceHandler) update(c *gin.Context) {
	fenceID := c.Param("id")
	member, ok := h.requireMember(c, fenceID)
	if !ok {
		return
	}
	if !member.Role.CanEdit() {
		respondError(c, domain.ErrForbidden)
		return
	}

	var req fenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	fence, err := h.fences.GetByID(ctx, fenceID)
	if err != nil {
		respondError(c, err)
		return
	}

	fence.Name = req.Name
	fence.Description = req.Description
	fence.Latitude = req.Latitude
	fence.Longitude = req.Longitude
	fence.RadiusM = req.RadiusM
	fence.HysteresisM = req.HysteresisM
	fence.UpdatedAt = h.now().UTC()
	if err := fence.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if err := h.fences.Update(ctx, fence); err != nil {
		respondError(c, err)
		return
	}

	h.record(c, domain.AuditFenceUpdated, fence.ID, map[string]any{"name": fence.Name})
	metrics.FenceOperationsTotal.WithLabelValues("update").Inc()
	c.JSON(http.StatusOK, fence)
}

func (h *FenceHandler) delete(c *gin.Context) {
	fenceID := c.Param("id")
	member, ok := h.requireMember(c, fenceID)
	if !ok {
		return
	}
	if member.Role != domain.RoleOwner {
		respondError(c, domain.ErrForbidden)
		return
	}

	if err := h.fences.SoftDelete(c.Request.Context(), fenceID, h.now().UTC()); err != nil {
		respondError(c, err)
		return
	}

	h.record(c, domain.AuditFenceDeleted, fenceID, nil)
	metrics.FenceOperationsTotal.WithLabelValues("delete").Inc()
	slog.Info("fence deleted", "fence_id", fenceID, "actor_id", c.GetString(ctxUserID))
	c.Status(http.StatusNoContent)
}

// =============================================================================
// Membership
// =============================================================================

type addMemberRequest struct {
	UserID string      `json:"user_id" binding:"required"`
	Role   domain.Role `json:"role" binding:"required"`
}

func (h *FenceHandler) listMembers(c *gin.Context) {
	fenceID := c.Param("id")
	if _, ok := h.requireMember(c, fenceID); !ok {
		return
	}
	members, err := h.members.ListByFence(c.Request.Context(), fenceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *FenceHandler) addMember(c *gin.Context) {
	fenceID := c.Param("id")
	member, ok := h.requireMember(c, fenceID)
	if !ok {
		return
	}
	if member.Role != domain.RoleOwner {
		respondError(c, domain.ErrForbidden)
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if !req.Role.Valid() {
		respondError(c, domain.ErrInvalidRole)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.GetByID(ctx, req.UserID); err != nil {
		respondError(c, err)
		return
	}

	added := &domain.Member{
		FenceID: fenceID,
		UserID:  req.UserID,
		Role:    req.Role,
		AddedAt: h.now().UTC(),
	}
	if err := h.members.Add(ctx, added); err != nil {
		respondError(c, err)
		return
	}

	h.record(c, domain.AuditMemberAdded, fenceID, map[string]any{
		"user_id": req.UserID,
		"role":    string(req.Role),
	})
	c.JSON(http.StatusCreated, added)
}

func (h *FenceHandler) removeMember(c *gin.Context) {
	fenceID := c.Param("id")
	targetID := c.Param("userID")

	member, ok := h.requireMember(c, fenceID)
	if !ok {
		return
	}
	// Owners can remove anyone; everyone else may only remove themselves.
	actorID := c.GetString(ctxUserID)
	if member.Role != domain.RoleOwner && targetID != actorID {
		respondError(c, domain.ErrForbidden)
		return
	}

	ctx := c.Request.Context()
	target, err := h.members.Get(ctx, fenceID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	if target.Role == domain.RoleOwner {
		owners, err := h.members.CountOwners(ctx, fenceID)
		if err != nil {
			respondError(c, err)
			return
		}
		if owners <= 1 {
			respondError(c, domain.ErrLastOwner)
			return
		}
	}

	if err := h.members.Remove(ctx, fenceID, targetID); err != nil {
		respondError(c, err)
		return
	}

	h.record(c, domain.AuditMemberRemoved, fenceID, map[string]any{"user_id": targetID})
	c.Status(http.StatusNoContent)
}

// =============================================================================
// Audit
// =============================================================================

func (h *FenceHandler) listAudit(c *gin.Context) {
	fenceID := c.Param("id")
	if _, ok := h.requireMember(c, fenceID); !ok {
		return
	}
	events, err := h.audit.ListBySubject(c.Request.Context(), fenceID, auditPageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// =============================================================================
// Helpers
// =============================================================================

// requireMember loads the caller's membership for the fence. Missing
// membership renders as 404 so non-members cannot probe fence IDs.
func (h *FenceHandler) requireMember(c *gin.Context, fenceID string) (*domain.Member, bool) {
	member, err := h.members.Get(c.Request.Context(), fenceID, c.GetString(ctxUserID))
	if errors.Is(err, domain.ErrNotAMember) {
		respondError(c, domain.ErrFenceNotFound)
		return nil, false
	}
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return member, true
}

func (h *FenceHandler) record(c *gin.Context, action domain.AuditAction, subjectID string, meta map[string]any) {
	err := h.audit.Record(c.Request.Context(), &domain.AuditEvent{
		ID:        uuid.NewString(),
		ActorID:   c.GetString(ctxUserID),
		Action:    action,
		SubjectID: subjectID,
		Metadata:  meta,
		CreatedAt: h.now().UTC(),
	})
	if err != nil {
		slog.Warn("failed to record audit event", "action", action, "subject_id", subjectID, "error", err)
	}
}
