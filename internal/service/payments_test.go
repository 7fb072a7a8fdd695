package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	secret := "test-secret"
	sig := SignPayment("order_abc", "pay_123", secret)

	assert.True(t, VerifySignature("order_abc", "pay_123", sig, secret))
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	secret := "test-secret"
	sig := SignPayment("order_abc", "pay_123", secret)

	assert.False(t, VerifySignature("order_abc", "pay_456", sig, secret))
	assert.False(t, VerifySignature("order_xyz", "pay_123", sig, secret))
	assert.False(t, VerifySignature("order_abc", "pay_123", sig, "wrong-secret"))
	assert.False(t, VerifySignature("order_abc", "pay_123", "", secret))
}

func TestCreateProviderOrder(t *testing.T) {
	t.Skip("Integration test - requires payment provider sandbox")
}
