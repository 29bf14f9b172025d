package testutil

import (
	"time"

	"eduhub/internal/credential/models"
)

// Holders used across ledger, service and handler tests.
const (
	HolderOCID    = "alice.edu"
	HolderAddress = "0x52908400098527886E0F7030069857D2E4169EE7"
)

// FixedTime is the reference "now" for deterministic tests.
var FixedTime = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

// ClaimBuilder builds ClaimRecords with sensible defaults.
type ClaimBuilder struct {
	claim models.ClaimRecord
}

// NewClaimBuilder starts from an achievement claim for HolderOCID.
func NewClaimBuilder() *ClaimBuilder {
	return &ClaimBuilder{claim: models.ClaimRecord{
		HolderOCID:     HolderOCID,
		CredentialType: "bootcamp",
		IssuedAt:       FixedTime,
	}}
}

func (b *ClaimBuilder) ForOCID(ocid string) *ClaimBuilder {
	b.claim.HolderOCID = ocid
	b.claim.HolderAddress = ""
	b.claim.IsOCB = false
	return b
}

func (b *ClaimBuilder) ForAddress(addr string) *ClaimBuilder {
	b.claim.HolderAddress = addr
	b.claim.HolderOCID = ""
	b.claim.IsOCB = true
	return b
}

func (b *ClaimBuilder) OfType(credentialType string) *ClaimBuilder {
	b.claim.CredentialType = credentialType
	return b
}

func (b *ClaimBuilder) IssuedAt(t time.Time) *ClaimBuilder {
	b.claim.IssuedAt = t
	return b
}

func (b *ClaimBuilder) Build() models.ClaimRecord {
	return b.claim
}

// AchievementRequest returns a valid identity-bound issuance request.
func AchievementRequest(credentialType string) models.IssuanceRequest {
	return models.IssuanceRequest{
		CredentialType: credentialType,
		HolderOCID:     HolderOCID,
		UserName:       "Alice",
		UserEmail:      "a@x.com",
	}
}

// BadgeRequest returns a valid wallet-bound issuance request.
func BadgeRequest(credentialType string) models.IssuanceRequest {
	return models.IssuanceRequest{
		CredentialType: credentialType,
		HolderAddress:  HolderAddress,
		UserName:       "Alice",
		UserEmail:      "a@x.com",
		IsOCB:          true,
	}
}
