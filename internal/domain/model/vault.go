package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// VaultToken is a stored payment type that can be reused for one-click checkout.
type VaultToken struct {
	PublicHash   string
	CustomerID   string
	Method       string
	GatewayToken string // provider payment type id
	Details      map[string]string
	Active       bool
	CreatedAt    time.Time
}

// NewVaultToken builds a token for the customer. The public hash is what the
// storefront sees instead of the gateway token.
func NewVaultToken(customerID, method string, pt *PaymentType, charge Charge) *VaultToken {
	details := map[string]string{
		"brand":      pt.Brand,
		"number":     pt.Number,
		"expiryDate": pt.ExpiryDate,
		"email":      pt.Email,
		"currency":   charge.Currency,
	}
	for k, v := range details {
		if v == "" {
			delete(details, k)
		}
	}
	return &VaultToken{
		PublicHash:   PublicHash(customerID, pt.ID),
		CustomerID:   customerID,
		Method:       method,
		GatewayToken: pt.ID,
		Details:      details,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
}

func PublicHash(customerID, gatewayToken string) string {
	sum := sha256.Sum256([]byte(customerID + ":" + gatewayToken))
	return hex.EncodeToString(sum[:])
}
