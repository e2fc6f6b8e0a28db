package api

import (
	"errors"
	"net/http"
	"strconv"

	"loyalty-analytics-go/internal/entities"

	"github.com/gin-gonic/gin"
)

// Handler exposes AnalyticsService over HTTP
type Handler struct {
	svc *AnalyticsService
}

func NewHandler(svc *AnalyticsService) *Handler {
	return &Handler{svc: svc}
}

// NewRouter builds the gin engine with metrics and request logging.
func NewRouter(svc *AnalyticsService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), PrometheusMiddleware(), RequestLogger())
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	v1 := r.Group("/api/v1")
	v1.GET("/stats", h.getStats)
	v1.GET("/tiers", h.getTiers)
	v1.GET("/leaderboards/:name", h.getLeaderboard)
	v1.GET("/daily", h.getDaily)
	v1.GET("/users/search", h.searchUsers)
	v1.GET("/users/:id", h.getUser)
	v1.GET("/withdrawals/pending", h.getPendingWithdrawals)
	v1.POST("/withdrawals/:id/approve", h.approveWithdrawal)
	v1.POST("/withdrawals/:id/reject", h.rejectWithdrawal)

	wh := v1.Group("/warehouse")
	wh.GET("/roi", h.getROI)
	wh.GET("/summary", h.getSummary)
	wh.GET("/leaderboards/:name", h.getWarehouseLeaderboard)
	wh.GET("/users", h.listUsers)
	wh.GET("/transactions", h.listTransactions)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.svc.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getStats(c *gin.Context) {
	resp, err := h.svc.GetStats(c.Request.Context())
	respond(c, resp, err)
}

func (h *Handler) getTiers(c *gin.Context) {
	resp, err := h.svc.GetTierStats(c.Request.Context())
	respond(c, resp, err)
}

func (h *Handler) getLeaderboard(c *gin.Context) {
	resp, err := h.svc.GetLeaderboard(c.Request.Context(), c.Param("name"), queryInt(c, "limit", 0))
	respond(c, resp, err)
}

func (h *Handler) getDaily(c *gin.Context) {
	resp, err := h.svc.GetDailyMetrics(c.Request.Context(), queryInt(c, "days", 7))
	respond(c, resp, err)
}

func (h *Handler) searchUsers(c *gin.Context) {
	users, err := h.svc.SearchUsers(c.Request.Context(), c.Query("q"))
	respond(c, gin.H{"users": users}, err)
}

func (h *Handler) getUser(c *gin.Context) {
	resp, err := h.svc.GetUserProfile(c.Request.Context(), c.Param("id"))
	respond(c, resp, err)
}

func (h *Handler) getPendingWithdrawals(c *gin.Context) {
	resp, err := h.svc.PendingWithdrawals(c.Request.Context())
	respond(c, resp, err)
}

func (h *Handler) approveWithdrawal(c *gin.Context) {
	resp, err := h.svc.ReviewWithdrawal(c.Request.Context(), c.Param("id"), true)
	respond(c, resp, err)
}

func (h *Handler) rejectWithdrawal(c *gin.Context) {
	resp, err := h.svc.ReviewWithdrawal(c.Request.Context(), c.Param("id"), false)
	respond(c, resp, err)
}

func (h *Handler) getROI(c *gin.Context) {
	resp, err := h.svc.ReferralROI(c.Request.Context())
	respond(c, resp, err)
}

func (h *Handler) getSummary(c *gin.Context) {
	resp, err := h.svc.WarehouseSummary(c.Request.Context())
	respond(c, resp, err)
}

func (h *Handler) getWarehouseLeaderboard(c *gin.Context) {
	resp, err := h.svc.WarehouseLeaderboard(c.Request.Context(), c.Param("name"), c.Query("period"), queryInt(c, "limit", 0))
	respond(c, resp, err)
}

func (h *Handler) listUsers(c *gin.Context) {
	resp, err := h.svc.WarehouseUsers(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "pageSize", 0))
	respond(c, resp, err)
}

func (h *Handler) listTransactions(c *gin.Context) {
	resp, err := h.svc.WarehouseTransactions(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "pageSize", 0))
	respond(c, resp, err)
}

func respond(c *gin.Context, body any, err error) {
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrUnknownLeaderboard):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserNotFound), errors.Is(err, entities.ErrWithdrawalNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, ErrWarehouseDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
