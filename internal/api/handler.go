package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rewear/internal/service"
	"rewear/internal/store"
	"rewear/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Handler contains the HTTP handlers
type Handler struct {
	auth        *service.AuthService
	items       *service.ItemService
	orders      *service.OrderService
	points      *service.PointsService
	reviews     *service.ReviewService
	admin       *service.AdminService
	store       *store.Store
	demoEnabled bool
}

// NewHandler creates a new HTTP handler
func NewHandler(
	auth *service.AuthService,
	items *service.ItemService,
	orders *service.OrderService,
	points *service.PointsService,
	reviews *service.ReviewService,
	admin *service.AdminService,
	st *store.Store,
	demoEnabled bool,
) *Handler {
	return &Handler{
		auth:        auth,
		items:       items,
		orders:      orders,
		points:      points,
		reviews:     reviews,
		admin:       admin,
		store:       st,
		demoEnabled: demoEnabled,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.register)
			auth.POST("/login", h.login)
			auth.GET("/profile", h.authRequired(), h.getProfile)
			auth.PUT("/profile", h.authRequired(), h.updateProfile)
		}

		items := api.Group("/items")
		{
			items.GET("", h.authOptional(), h.listItems)
			items.GET("/:id", h.authOptional(), h.getItem)
			items.POST("", h.authRequired(), h.createItem)
			items.PUT("/:id", h.authRequired(), h.updateItem)
			items.DELETE("/:id", h.authRequired(), h.deleteItem)
			items.POST("/:id/like", h.authRequired(), h.likeItem)
			items.POST("/:id/flag", h.authRequired(), h.flagItem)
		}

		orders := api.Group("/orders", h.authRequired())
		{
			orders.POST("", h.createOrder)
			orders.POST("/verify-payment", h.verifyPayment)
			orders.GET("/my-orders", h.myOrders)
			orders.GET("/:id", h.getOrder)
			orders.PUT("/:id/cancel", h.cancelOrder)
			orders.PUT("/:id/status", h.updateOrderStatus)
			orders.POST("/:id/review", h.createReview)
		}

		points := api.Group("/points", h.authRequired())
		{
			points.GET("/balance", h.pointsBalance)
			points.GET("/history", h.pointsHistory)
		}

		api.GET("/users/:id/reviews", h.userReviews)
		api.PUT("/reviews/:id/response", h.authRequired(), h.respondToReview)

		wishlist := api.Group("/wishlist", h.authRequired())
		{
			wishlist.GET("", h.getWishlist)
			wishlist.POST("", h.addToWishlist)
			wishlist.DELETE("/:itemId", h.removeFromWishlist)
		}

		admin := api.Group("/admin", h.authRequired(), h.adminRequired())
		{
			admin.GET("/stats", h.adminStats)
			admin.GET("/items/pending", h.adminPendingItems)
			admin.GET("/items/flagged", h.adminFlaggedItems)
			admin.PUT("/items/:id/approve", h.adminApproveItem)
			admin.PUT("/items/:id/reject", h.adminRejectItem)
			admin.PUT("/items/:id/quality", h.adminSetQuality)
			admin.PUT("/items/:id/remove", h.adminRemoveItem)
			admin.PUT("/items/:id/restore", h.adminRestoreItem)
			admin.POST("/users/:id/points", h.adminGrantPoints)
			admin.PUT("/reviews/:id/moderate", h.adminModerateReview)
		}

		if h.demoEnabled {
			demo := api.Group("/demo")
			{
				demo.POST("/seed", h.demoSeed)
				demo.DELETE("/clear", h.demoClear)
				demo.GET("/status", h.demoStatus)
			}
		}
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// authRequired verifies the bearer token and loads the caller into the
// request context.
func (h *Handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := h.bearerClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "authentication required",
			})
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// authOptional loads the caller when a valid token is present but lets
// anonymous requests through.
func (h *Handler) authOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := h.bearerClaims(c); ok {
			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxRole, claims.Role)
		}
		c.Next()
	}
}

func (h *Handler) bearerClaims(c *gin.Context) (*service.Claims, bool) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header {
		return nil, false
	}
	claims, err := h.auth.ParseToken(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// adminRequired rejects callers without the admin role
func (h *Handler) adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "admin access required",
			})
			return
		}
		c.Next()
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// fail maps business errors to HTTP statuses with the uniform error
// shape; anything unmapped is a 500.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrNotParticipant):
		respondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrItemUnavailable),
		errors.Is(err, service.ErrOwnItem),
		errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, service.ErrItemNotListed),
		errors.Is(err, service.ErrImageUpload),
		errors.Is(err, service.ErrNotPending),
		errors.Is(err, service.ErrOrderNotDelivered),
		errors.Is(err, service.ErrAlreadyReviewed),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrConflict):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		util.GetLogger().Error("Unhandled request error: " + err.Error())
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
