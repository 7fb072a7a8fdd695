package service

import (
	"testing"

	"rewear/config"

	"github.com/stretchr/testify/assert"
)

func testRates() config.BusinessConfig {
	return config.BusinessConfig{
		ShippingCost:   50,
		PointsPerRupee: 10,
		SellerEarnRate: 5,
		BuyerEarnRate:  1,
		ApprovalBonus:  10,
	}
}

func TestRequiredPoints(t *testing.T) {
	ps := &PointsService{rates: testRates()}

	// a 950 rupee item plus 50 shipping costs 10000 points
	assert.Equal(t, int64(10000), ps.RequiredPoints(1000))
	assert.Equal(t, int64(10), ps.RequiredPoints(1))
}

func TestSaleRewards(t *testing.T) {
	ps := &PointsService{rates: testRates()}

	assert.Equal(t, int64(5000), ps.SellerReward(1000))
	assert.Equal(t, int64(1000), ps.BuyerReward(1000))
	assert.Equal(t, int64(10), ps.ApprovalBonus())
}
