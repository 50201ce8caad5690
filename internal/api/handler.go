package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bajo3/Meli-test/internal/auth"
	"github.com/bajo3/Meli-test/internal/gateway"
	"github.com/bajo3/Meli-test/internal/service"
	"github.com/bajo3/Meli-test/internal/store"
	"github.com/bajo3/Meli-test/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	listings *service.ListingService
	relists  *service.RelistOrchestrator
}

// NewHandler creates a new HTTP handler
func NewHandler(listings *service.ListingService, relists *service.RelistOrchestrator) *Handler {
	return &Handler{
		listings: listings,
		relists:  relists,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/listings", h.getListings)
		v1.POST("/listings/reload", h.reloadListings)
		v1.PUT("/listings/:id/price", h.updatePrice)
		v1.POST("/listings/:id/close", h.closeListing)
		v1.POST("/listings/:id/relist", h.relistListing)
		v1.GET("/quota", h.getQuota)
		v1.POST("/quota/reload", h.reloadQuota)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// getListings returns the filtered working set
func (h *Handler) getListings(c *gin.Context) {
	search := c.Query("search")
	tier := store.TierFilter(c.DefaultQuery("tier", string(store.TierFilterAll)))
	order := store.SortOrder(c.DefaultQuery("sort", string(store.SortNewestFirst)))

	c.JSON(http.StatusOK, gin.H{
		"listings": h.listings.Listings(search, tier, order),
	})
}

// reloadListings refreshes the working set from the remote catalog
func (h *Handler) reloadListings(c *gin.Context) {
	listings, err := h.listings.LoadListings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listings": listings,
		"count":    len(listings),
	})
}

type updatePriceRequest struct {
	Price float64 `json:"price" binding:"required"`
}

// updatePrice handles a price change for one listing
func (h *Handler) updatePrice(c *gin.Context) {
	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	listing, err := h.listings.UpdatePrice(c.Request.Context(), c.Param("id"), req.Price)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// closeListing closes one listing
func (h *Handler) closeListing(c *gin.Context) {
	if err := h.listings.CloseListing(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"closed": c.Param("id")})
}

type relistRequest struct {
	ListingTypeID string `json:"listing_type_id" binding:"required"`
}

// relistListing clones a listing under the requested tier
func (h *Handler) relistListing(c *gin.Context) {
	var req relistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	op, err := h.relists.Relist(c.Request.Context(), c.Param("id"), req.ListingTypeID)
	if err != nil {
		status, payload := relistErrorResponse(err)
		if op != nil {
			payload["operation"] = op
		}
		c.JSON(status, payload)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"operation": op})
}

// getQuota returns the current quota snapshot
func (h *Handler) getQuota(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"quota": h.listings.Quota()})
}

// reloadQuota refreshes the quota snapshot from the remote promotion packs
func (h *Handler) reloadQuota(c *gin.Context) {
	quota, err := h.listings.ReloadQuota(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quota": quota})
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		inFlightErr   *service.OperationInFlightError
		authErr       *auth.AuthError
		remoteErr     *gateway.RemoteError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &inFlightErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &remoteErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":         remoteErr.Message,
			"remote_status": remoteErr.StatusCode,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// relistErrorResponse maps relist failure states; partial failures carry a
// distinct state so the UI can tell the user what actually happened.
func relistErrorResponse(err error) (int, gin.H) {
	var (
		quotaErr   *service.QuotaExhaustedError
		closeErr   *service.CloseNotConfirmedError
		partialErr *service.ClosedButCreateFailedError
		inFlight   *service.OperationInFlightError
		authErr    *auth.AuthError
	)

	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, gin.H{"error": err.Error(), "state": "auth_failed"}
	case errors.As(err, &quotaErr):
		return http.StatusConflict, gin.H{"error": err.Error(), "state": "quota_exhausted"}
	case errors.As(err, &closeErr):
		return http.StatusBadGateway, gin.H{"error": err.Error(), "state": "close_not_confirmed"}
	case errors.As(err, &partialErr):
		return http.StatusBadGateway, gin.H{"error": err.Error(), "state": "closed_but_create_failed"}
	case errors.As(err, &inFlight):
		return http.StatusConflict, gin.H{"error": err.Error(), "state": "in_flight"}
	default:
		return http.StatusBadGateway, gin.H{"error": err.Error(), "state": "relist_failed"}
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
