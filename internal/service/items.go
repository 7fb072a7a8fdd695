package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"rewear/config"
	"rewear/internal/models"
	"rewear/internal/objstore"
	"rewear/internal/redisclient"
	"rewear/internal/store"
	"rewear/internal/util"

	"go.uber.org/zap"
)

var (
	ErrNotOwner      = errors.New("not the owner of this listing")
	ErrItemNotListed = errors.New("listing is not editable in its current state")
	ErrImageUpload   = errors.New("image upload failed")
)

// ItemService handles the listing lifecycle
type ItemService struct {
	store  *store.Store
	redis  *redisclient.Client
	images *objstore.Client
	cfg    *config.Config
	logger *zap.Logger
}

// NewItemService creates a new item service
func NewItemService(st *store.Store, redis *redisclient.Client, images *objstore.Client, cfg *config.Config) *ItemService {
	return &ItemService{
		store:  st,
		redis:  redis,
		images: images,
		cfg:    cfg,
		logger: util.GetLogger(),
	}
}

// SubmitItemRequest is a new listing submission
type SubmitItemRequest struct {
	Title       string
	Description string
	Category    string
	Size        string
	Condition   string
	Price       int64
	Images      []ImageUpload
}

// ImageUpload is one multipart image part
type ImageUpload struct {
	Filename    string
	ContentType string
	Reader      io.Reader
	Size        int64
}

// Submit uploads the listing images and creates the listing in pending
// status awaiting moderation.
func (s *ItemService) Submit(ctx context.Context, sellerID int64, req *SubmitItemRequest) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.Submit")
	defer span.End()

	urls := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		url, err := s.images.UploadImage(ctx, img.Filename, img.ContentType, img.Reader, img.Size)
		if err != nil {
			// drop the partial set so the bucket holds no orphans
			for _, u := range urls {
				_ = s.images.DeleteImage(ctx, u)
			}
			return nil, fmt.Errorf("%w: %v", ErrImageUpload, err)
		}
		urls = append(urls, url)
	}

	item := &models.Item{
		SellerID:     sellerID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Size:         req.Size,
		Condition:    req.Condition,
		Price:        req.Price,
		Images:       urls,
		Status:       models.ItemStatusPending,
		QualityBadge: models.BadgeForCondition(req.Condition),
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	util.ItemsListedTotal.Inc()
	s.logger.Info("Listing submitted",
		zap.Int64("item_id", item.ID),
		zap.Int64("seller_id", sellerID))
	return item, nil
}

const listingCacheTTL = 30 * time.Second

// Get retrieves one listing through a short-lived cache
func (s *ItemService) Get(ctx context.Context, itemID int64) (*models.Item, error) {
	if cached, err := s.redis.GetCachedListing(ctx, itemID); err == nil && cached != nil {
		var item models.Item
		if err := json.Unmarshal(cached, &item); err == nil {
			return &item, nil
		}
	}

	item, err := s.store.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(item); err == nil {
		if err := s.redis.CacheListing(ctx, itemID, payload, listingCacheTTL); err != nil {
			s.logger.Warn("Failed to cache listing",
				zap.Int64("item_id", itemID), zap.Error(err))
		}
	}
	return item, nil
}

// HasLiked reports whether a user has liked a listing
func (s *ItemService) HasLiked(ctx context.Context, itemID, userID int64) (bool, error) {
	return s.store.HasLiked(ctx, itemID, userID)
}

// List retrieves a page of listings; browsing defaults to active ones
func (s *ItemService) List(ctx context.Context, f store.ItemFilter) ([]models.Item, int64, error) {
	if f.Status == "" && f.SellerID == 0 {
		f.Status = models.ItemStatusActive
	}
	return s.store.ListItems(ctx, f)
}

// UpdateItemRequest is an owner edit of a listing
type UpdateItemRequest struct {
	Title       string
	Description string
	Category    string
	Size        string
	Condition   string
	Price       int64
}

// Update applies an owner edit. Editing a rejected listing resubmits it
// for moderation; reserved and sold listings cannot be edited.
func (s *ItemService) Update(ctx context.Context, itemID, sellerID int64, req *UpdateItemRequest) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "ItemService.Update")
	defer span.End()

	current, err := s.store.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if current.SellerID != sellerID {
		return nil, ErrNotOwner
	}

	item := &models.Item{
		ID:          itemID,
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Size:        req.Size,
		Condition:   req.Condition,
		Price:       req.Price,
		Images:      current.Images,
	}

	updated, err := s.store.UpdateItem(ctx, item)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrItemNotListed
	}
	if err != nil {
		return nil, err
	}

	_ = s.redis.InvalidateListing(ctx, itemID)
	return updated, nil
}

// Delete removes an owner's listing and its stored images
func (s *ItemService) Delete(ctx context.Context, itemID, sellerID int64) error {
	ctx, span := util.StartSpan(ctx, "ItemService.Delete")
	defer span.End()

	item, err := s.store.GetItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.SellerID != sellerID {
		return ErrNotOwner
	}

	if err := s.store.DeleteItem(ctx, itemID, sellerID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrItemNotListed
		}
		return err
	}

	for _, url := range item.Images {
		if err := s.images.DeleteImage(ctx, url); err != nil {
			s.logger.Warn("Failed to delete listing image",
				zap.Int64("item_id", itemID),
				zap.Error(err))
		}
	}

	_ = s.redis.InvalidateListing(ctx, itemID)
	return nil
}

// ToggleLike flips the caller's like on a listing
func (s *ItemService) ToggleLike(ctx context.Context, itemID, userID int64) (liked bool, likes int, err error) {
	return s.store.ToggleLike(ctx, itemID, userID)
}

// Flag reports a listing; reaching the distinct-flagger threshold pulls
// it from the marketplace.
func (s *ItemService) Flag(ctx context.Context, itemID, userID int64, reason string) (int, bool, error) {
	count, flagged, err := s.store.FlagItem(ctx, itemID, userID, reason, s.cfg.Business.FlagThreshold)
	if err != nil {
		return 0, false, err
	}
	if flagged {
		util.ItemsFlaggedTotal.Inc()
		s.logger.Warn("Listing auto-flagged",
			zap.Int64("item_id", itemID),
			zap.Int("flags", count))
		_ = s.redis.InvalidateListing(ctx, itemID)
	}
	return count, flagged, nil
}
