package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/service"
	pkglog "github.com/weiawesome/wes-io-live/follow-graph-service/pkg/log"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/middleware"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/response"
)

// Handler handles HTTP requests for the follow graph service.
type Handler struct {
	svc            service.FollowGraphService
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
}

// NewHandler creates a new HTTP handler. rateLimiter may be nil, in which
// case mutations are not throttled.
func NewHandler(svc service.FollowGraphService, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter) *Handler {
	return &Handler{
		svc:            svc,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	requireAuth := h.authMiddleware.RequireAuth()
	optionalAuth := h.authMiddleware.OptionalAuth()
	limit := func(c *gin.Context) { c.Next() }
	if h.rateLimiter != nil {
		limit = h.rateLimiter.Middleware()
	}

	api := r.Group("/api/v1")
	{
		users := api.Group("/users/:user_id")
		{
			users.GET("/profile", optionalAuth, h.GetProfile)
			users.GET("/followers", optionalAuth, h.ListFollowers)
			users.GET("/following", optionalAuth, h.ListFollowing)

			users.POST("/follow", requireAuth, limit, h.Follow)
			users.DELETE("/follow", requireAuth, limit, h.Unfollow)
			users.GET("/relation", requireAuth, h.Relation)

			users.POST("/follow-requests", requireAuth, limit, h.SendFollowRequest)
			users.GET("/follow-requests/status", requireAuth, h.FollowRequestStatus)
			users.DELETE("/follow-requests", requireAuth, limit, h.CancelFollowRequest)
		}

		me := api.Group("/me", requireAuth)
		{
			me.GET("/follow-requests", h.ListFollowRequests)
			me.POST("/follow-requests/:requester_id/accept", limit, h.AcceptFollowRequest)
			me.POST("/follow-requests/:requester_id/reject", limit, h.RejectFollowRequest)
			me.PUT("/privacy", limit, h.UpdatePrivacy)
			me.POST("/following/status", h.BatchIsFollowing)
		}
	}
}

// identity builds the caller identity from the claims set by the auth middleware.
func identity(c *gin.Context) domain.Identity {
	return domain.Identity{
		UserID:      middleware.GetUserID(c),
		DisplayName: middleware.GetUsername(c),
	}
}

type pageQuery struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// GetProfile handles GET /api/v1/users/:user_id/profile.
func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.svc.GetProfile(c.Request.Context(), identity(c), c.Param("user_id"))
	if err != nil {
		h.fail(c, "get profile", err)
		return
	}
	response.Success(c, profile)
}

// Follow handles POST /api/v1/users/:user_id/follow.
// Public accounts are followed; private accounts receive a follow request.
func (h *Handler) Follow(c *gin.Context) {
	rel, err := h.svc.RequestOrFollow(c.Request.Context(), identity(c), c.Param("user_id"))
	if err != nil {
		h.fail(c, "follow user", err)
		return
	}
	h.relation(c, rel)
}

// Unfollow handles DELETE /api/v1/users/:user_id/follow.
func (h *Handler) Unfollow(c *gin.Context) {
	rel, err := h.svc.Unfollow(c.Request.Context(), identity(c), c.Param("user_id"))
	if err != nil {
		h.fail(c, "unfollow user", err)
		return
	}
	response.Success(c, rel)
}

// Relation handles GET /api/v1/users/:user_id/relation.
func (h *Handler) Relation(c *gin.Context) {
	rel, err := h.svc.RelationStatus(c.Request.Context(), identity(c), c.Param("user_id"))
	if err != nil {
		h.fail(c, "get relation", err)
		return
	}
	response.Success(c, rel)
}

// SendFollowRequest handles POST /api/v1/users/:user_id/follow-requests.
func (h *Handler) SendFollowRequest(c *gin.Context) {
	rel, err := h.svc.SendFollowRequest(c.Request.Context(), identity(c), c.Param("user_id"))
	if err != nil {
		h.fail(c, "send follow request", err)
		return
	}
	h.relation(c, rel)
}

// FollowRequestStatus handles GET /api/v1/users/:user_id/follow-requests/status.
func (h *Handler) FollowRequestStatus(c *gin.Context) {
	pending, err := h.svc.CheckFollowRequestStatus(c.Request.Context(), identity(c), c.Param("user_id"))
	if err != nil {
		h.fail(c, "check follow request", err)
		return
	}
	response.Success(c, gin.H{"pending": pending})
}

// CancelFollowRequest handles DELETE /api/v1/users/:user_id/follow-requests.
func (h *Handler) CancelFollowRequest(c *gin.Context) {
	rel, err := h.svc.CancelFollowRequest(c.Request.Context(), identity(c), c.Param("user_id"))
	if err != nil {
		h.fail(c, "cancel follow request", err)
		return
	}
	response.Success(c, rel)
}

// ListFollowers handles GET /api/v1/users/:user_id/followers.
func (h *Handler) ListFollowers(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.svc.ListFollowers(c.Request.Context(), identity(c), c.Param("user_id"), q.Cursor, q.Limit)
	if err != nil {
		h.fail(c, "list followers", err)
		return
	}
	response.Paged(c, page.Items, page.NextCursor)
}

// ListFollowing handles GET /api/v1/users/:user_id/following.
func (h *Handler) ListFollowing(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.svc.ListFollowing(c.Request.Context(), identity(c), c.Param("user_id"), q.Cursor, q.Limit)
	if err != nil {
		h.fail(c, "list following", err)
		return
	}
	response.Paged(c, page.Items, page.NextCursor)
}

// ListFollowRequests handles GET /api/v1/me/follow-requests.
func (h *Handler) ListFollowRequests(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.svc.ListFollowRequests(c.Request.Context(), identity(c), q.Cursor, q.Limit)
	if err != nil {
		h.fail(c, "list follow requests", err)
		return
	}
	response.Paged(c, page.Items, page.NextCursor)
}

// AcceptFollowRequest handles POST /api/v1/me/follow-requests/:requester_id/accept.
func (h *Handler) AcceptFollowRequest(c *gin.Context) {
	rel, err := h.svc.AcceptFollowRequest(c.Request.Context(), identity(c), c.Param("requester_id"))
	if err != nil {
		h.fail(c, "accept follow request", err)
		return
	}
	response.Success(c, rel)
}

// RejectFollowRequest handles POST /api/v1/me/follow-requests/:requester_id/reject.
func (h *Handler) RejectFollowRequest(c *gin.Context) {
	rel, err := h.svc.RejectFollowRequest(c.Request.Context(), identity(c), c.Param("requester_id"))
	if err != nil {
		h.fail(c, "reject follow request", err)
		return
	}
	response.Success(c, rel)
}

type privacyRequest struct {
	AccountType domain.AccountType `json:"account_type" binding:"required"`
}

// UpdatePrivacy handles PUT /api/v1/me/privacy.
func (h *Handler) UpdatePrivacy(c *gin.Context) {
	l := pkglog.Ctx(c.Request.Context())

	var req privacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid privacy request")
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.svc.SetAccountType(c.Request.Context(), identity(c), req.AccountType)
	if err != nil {
		h.fail(c, "update privacy", err)
		return
	}
	response.Success(c, user)
}

// followingStatusRequest is the request body for POST /me/following/status.
type followingStatusRequest struct {
	TargetIDs []string `json:"target_ids" binding:"required"`
}

// BatchIsFollowing handles POST /api/v1/me/following/status.
func (h *Handler) BatchIsFollowing(c *gin.Context) {
	l := pkglog.Ctx(c.Request.Context())

	var req followingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid following status request")
		response.BadRequest(c, err.Error())
		return
	}

	results, err := h.svc.BatchIsFollowing(c.Request.Context(), identity(c), req.TargetIDs)
	if err != nil {
		h.fail(c, "check following status", err)
		return
	}
	response.Success(c, gin.H{"results": results})
}

// relation answers a mutation: 201 when something was created, 200 otherwise.
func (h *Handler) relation(c *gin.Context, rel *domain.Relation) {
	if rel.Changed {
		response.Created(c, rel)
		return
	}
	response.Success(c, rel)
}

// fail maps service errors to HTTP responses.
func (h *Handler) fail(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		response.Unauthorized(c, "unauthorized")
	case errors.Is(err, service.ErrSelfFollow),
		errors.Is(err, service.ErrInvalidAccountType),
		errors.Is(err, service.ErrInvalidCursor),
		errors.Is(err, service.ErrTooManyTargets):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRequestNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	default:
		l := pkglog.Ctx(c.Request.Context())
		l.Error().Err(err).
			Str(pkglog.FieldUserID, middleware.GetUserID(c)).
			Str(pkglog.FieldPath, c.FullPath()).
			Msg(action + " failed")
		response.InternalError(c, "failed to "+action)
	}
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
