package api

import (
	"net/http"
	"strconv"

	"rewear/internal/models"
	"rewear/internal/service"
	"rewear/internal/store"

	"github.com/gin-gonic/gin"
)

const maxImageSize = 5 << 20 // 5 MiB per image

// normalizeListingFilter clamps a browse query to what the caller may
// see. Non-active listings are only browsable by their own seller; any
// other seller filter is forced onto active listings so the default
// cannot be bypassed.
func normalizeListingFilter(f store.ItemFilter, callerID int64) (store.ItemFilter, bool) {
	browsingOwn := f.SellerID != 0 && callerID != 0 && f.SellerID == callerID

	if f.Status == "" && !browsingOwn {
		f.Status = models.ItemStatusActive
	}
	if f.Status != "" && f.Status != models.ItemStatusActive && !browsingOwn {
		return f, false
	}
	return f, true
}

func (h *Handler) createItem(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		respondError(c, http.StatusBadRequest, "invalid multipart form")
		return
	}

	price, err := strconv.ParseInt(c.PostForm("price"), 10, 64)
	if err != nil || price <= 0 {
		respondError(c, http.StatusBadRequest, "price must be a positive integer")
		return
	}

	req := &service.SubmitItemRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		Size:        c.PostForm("size"),
		Condition:   c.PostForm("condition"),
		Price:       price,
	}
	if req.Title == "" || req.Category == "" || req.Condition == "" {
		respondError(c, http.StatusBadRequest, "title, category and condition are required")
		return
	}

	files := c.Request.MultipartForm.File["images"]
	for _, fh := range files {
		if fh.Size > maxImageSize {
			respondError(c, http.StatusBadRequest, "image too large")
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "unreadable image upload")
			return
		}
		defer f.Close()

		req.Images = append(req.Images, service.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Reader:      f,
			Size:        fh.Size,
		})
	}

	item, err := h.items.Submit(c.Request.Context(), userID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "item": item})
}

func (h *Handler) listItems(c *gin.Context) {
	limit, offset := pagination(c)
	sellerID, _ := strconv.ParseInt(c.Query("seller_id"), 10, 64)

	filter, ok := normalizeListingFilter(store.ItemFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Size:     c.Query("size"),
		Search:   c.Query("search"),
		SellerID: sellerID,
		Limit:    limit,
		Offset:   offset,
	}, userID(c))
	if !ok {
		respondError(c, http.StatusForbidden, "cannot browse other sellers' non-active listings")
		return
	}

	items, total, err := h.items.List(c.Request.Context(), filter)
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

func (h *Handler) getItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := h.items.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	liked := false
	if uid := userID(c); uid != 0 {
		liked, _ = h.items.HasLiked(c.Request.Context(), id, uid)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"item":    item,
		"liked":   liked,
	})
}

type updateItemRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	Size        string `json:"size"`
	Condition   string `json:"condition" binding:"required"`
	Price       int64  `json:"price" binding:"required,gt=0"`
}

func (h *Handler) updateItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.items.Update(c.Request.Context(), id, userID(c), &service.UpdateItemRequest{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Size:        req.Size,
		Condition:   req.Condition,
		Price:       req.Price,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}

func (h *Handler) deleteItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.items.Delete(c.Request.Context(), id, userID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "listing deleted"})
}

func (h *Handler) likeItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	liked, likes, err := h.items.ToggleLike(c.Request.Context(), id, userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"liked":   liked,
		"likes":   likes,
	})
}

type flagItemRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) flagItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req flagItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	count, flagged, err := h.items.Flag(c.Request.Context(), id, userID(c), req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"flags":   count,
		"flagged": flagged,
	})
}

func (h *Handler) getWishlist(c *gin.Context) {
	entries, err := h.reviews.Wishlist(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wishlist": entries})
}

type addWishlistRequest struct {
	ItemID int64  `json:"item_id" binding:"required"`
	Notes  string `json:"notes"`
}

func (h *Handler) addToWishlist(c *gin.Context) {
	var req addWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reviews.AddToWishlist(c.Request.Context(), userID(c), req.ItemID, req.Notes); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "added to wishlist"})
}

func (h *Handler) removeFromWishlist(c *gin.Context) {
	id, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	if err := h.reviews.RemoveFromWishlist(c.Request.Context(), userID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "removed from wishlist"})
}
