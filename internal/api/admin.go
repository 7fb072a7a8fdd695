package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.admin.GetStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (h *Handler) adminPendingItems(c *gin.Context) {
	limit, offset := pagination(c)
	items, total, err := h.admin.PendingItems(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"items":   items,
		"total":   total,
	})
}

func (h *Handler) adminFlaggedItems(c *gin.Context) {
	limit, offset := pagination(c)
	items, total, err := h.admin.FlaggedItems(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"items":   items,
		"total":   total,
	})
}

func (h *Handler) adminApproveItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := h.admin.Approve(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}

type rejectItemRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) adminRejectItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req rejectItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.admin.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}

type setQualityRequest struct {
	Badge string `json:"badge" binding:"required"`
}

func (h *Handler) adminSetQuality(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req setQualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.admin.SetQuality(c.Request.Context(), id, req.Badge)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}

func (h *Handler) adminRemoveItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.admin.Remove(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "listing removed"})
}

func (h *Handler) adminRestoreItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.admin.Restore(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "listing restored"})
}

type grantPointsRequest struct {
	Points int64  `json:"points" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) adminGrantPoints(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req grantPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.admin.GrantPoints(c.Request.Context(), id, req.Points, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transaction": entry})
}

type moderateReviewRequest struct {
	Hide *bool `json:"hide" binding:"required"`
}

func (h *Handler) adminModerateReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req moderateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reviews.Moderate(c.Request.Context(), id, *req.Hide); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "review moderated"})
}

func (h *Handler) demoSeed(c *gin.Context) {
	if err := h.store.SeedDemoData(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "demo data seeded"})
}

func (h *Handler) demoClear(c *gin.Context) {
	if err := h.store.ClearDemoData(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "demo data cleared"})
}

func (h *Handler) demoStatus(c *gin.Context) {
	users, items, err := h.store.DemoStatus(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   users,
		"items":   items,
	})
}
