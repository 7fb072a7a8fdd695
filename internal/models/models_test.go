package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadgeForCondition(t *testing.T) {
	assert.Equal(t, BadgePremium, BadgeForCondition("Like New"))
	assert.Equal(t, BadgeHigh, BadgeForCondition("Excellent"))
	assert.Equal(t, BadgeMedium, BadgeForCondition("Good"))
	assert.Equal(t, BadgeBasic, BadgeForCondition("Fair"))

	// unknown conditions fall back to the lowest badge
	assert.Equal(t, BadgeBasic, BadgeForCondition("Worn Out"))
	assert.Equal(t, BadgeBasic, BadgeForCondition(""))
}

func TestLevelForPoints(t *testing.T) {
	assert.Equal(t, "bronze", LevelForPoints(0))
	assert.Equal(t, "bronze", LevelForPoints(999))
	assert.Equal(t, "silver", LevelForPoints(1000))
	assert.Equal(t, "silver", LevelForPoints(4999))
	assert.Equal(t, "gold", LevelForPoints(5000))
	assert.Equal(t, "gold", LevelForPoints(19999))
	assert.Equal(t, "platinum", LevelForPoints(20000))
}

func TestItemTransitions(t *testing.T) {
	assert.True(t, ItemCanTransition(ItemStatusPending, ItemStatusActive))
	assert.True(t, ItemCanTransition(ItemStatusPending, ItemStatusRejected))
	assert.True(t, ItemCanTransition(ItemStatusRejected, ItemStatusPending))
	assert.True(t, ItemCanTransition(ItemStatusActive, ItemStatusReserved))
	assert.True(t, ItemCanTransition(ItemStatusReserved, ItemStatusSold))
	assert.True(t, ItemCanTransition(ItemStatusReserved, ItemStatusActive))
	assert.True(t, ItemCanTransition(ItemStatusFlagged, ItemStatusActive))

	// sold is terminal
	assert.False(t, ItemCanTransition(ItemStatusSold, ItemStatusActive))
	// a reserved item cannot be flagged out from under its buyer
	assert.False(t, ItemCanTransition(ItemStatusReserved, ItemStatusFlagged))
	assert.False(t, ItemCanTransition(ItemStatusPending, ItemStatusSold))
}

func TestOrderTransitions(t *testing.T) {
	assert.True(t, OrderCanTransition(OrderStatusPending, OrderStatusPaid))
	assert.True(t, OrderCanTransition(OrderStatusPending, OrderStatusCancelled))
	assert.True(t, OrderCanTransition(OrderStatusPaid, OrderStatusShipped))
	assert.True(t, OrderCanTransition(OrderStatusShipped, OrderStatusDelivered))

	assert.False(t, OrderCanTransition(OrderStatusDelivered, OrderStatusCancelled))
	assert.False(t, OrderCanTransition(OrderStatusCancelled, OrderStatusPaid))
	assert.False(t, OrderCanTransition(OrderStatusPending, OrderStatusShipped))
}
