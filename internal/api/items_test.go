package api

import (
	"testing"

	"rewear/internal/models"
	"rewear/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeListingFilterDefaultsToActive(t *testing.T) {
	f, ok := normalizeListingFilter(store.ItemFilter{}, 0)
	require.True(t, ok)
	assert.Equal(t, models.ItemStatusActive, f.Status)
}

func TestNormalizeListingFilterSellerQueryStaysActive(t *testing.T) {
	// filtering by another seller without a status must not expose
	// their pending/rejected/inactive listings
	f, ok := normalizeListingFilter(store.ItemFilter{SellerID: 42}, 0)
	require.True(t, ok)
	assert.Equal(t, models.ItemStatusActive, f.Status)

	f, ok = normalizeListingFilter(store.ItemFilter{SellerID: 42}, 7)
	require.True(t, ok)
	assert.Equal(t, models.ItemStatusActive, f.Status)
}

func TestNormalizeListingFilterRejectsForeignNonActive(t *testing.T) {
	_, ok := normalizeListingFilter(store.ItemFilter{Status: models.ItemStatusPending}, 0)
	assert.False(t, ok)

	_, ok = normalizeListingFilter(store.ItemFilter{SellerID: 42, Status: models.ItemStatusRejected}, 7)
	assert.False(t, ok)
}

func TestNormalizeListingFilterOwnerSeesEverything(t *testing.T) {
	f, ok := normalizeListingFilter(store.ItemFilter{SellerID: 7}, 7)
	require.True(t, ok)
	assert.Empty(t, f.Status)

	f, ok = normalizeListingFilter(store.ItemFilter{SellerID: 7, Status: models.ItemStatusRejected}, 7)
	require.True(t, ok)
	assert.Equal(t, models.ItemStatusRejected, f.Status)
}
