// Package events publishes a record of every confirmed issuance to a log
// stream and, when configured, a Kafka topic.
package events

import (
	"context"
	"strings"
	"time"

	"eduhub/internal/credential/models"
	"eduhub/pkg/platform/privacy"
	"eduhub/pkg/requestcontext"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

// TypeClaimIssued is the event type emitted after the issuer confirms a claim.
const TypeClaimIssued = "claim.issued"

// ClaimIssued carries no raw email or client IP.
type ClaimIssued struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	OccurredAt     time.Time `json:"occurredAt"`
	RequestID      string    `json:"requestId,omitempty"`
	Mode           string    `json:"mode"`
	CredentialType string    `json:"credentialType"`
	HolderID       string    `json:"holderId"`
	MaskedEmail    string    `json:"maskedEmail,omitempty"`
	Client         string    `json:"client,omitempty"`
	ClientNetwork  string    `json:"clientNetwork,omitempty"`
}

// Publisher delivers claim events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event ClaimIssued) error
}

// NewClaimIssued builds the event for claim, taking request metadata from ctx.
func NewClaimIssued(ctx context.Context, claim models.ClaimRecord, email string) ClaimIssued {
	return ClaimIssued{
		ID:             uuid.NewString(),
		Type:           TypeClaimIssued,
		OccurredAt:     claim.IssuedAt,
		RequestID:      requestcontext.RequestID(ctx),
		Mode:           string(models.ModeFor(claim.IsOCB)),
		CredentialType: claim.CredentialType,
		HolderID:       claim.HolderID(),
		MaskedEmail:    privacy.MaskEmail(email),
		Client:         ClientFamily(requestcontext.UserAgent(ctx)),
		ClientNetwork:  privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
	}
}

// ClientFamily reduces a User-Agent header to "browser/os", e.g.
// "chrome/windows". Empty input gives "".
func ClientFamily(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}
	return normalize(browser) + "/" + normalize(firstWord(os))
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}

func firstWord(s string) string {
	if i := strings.IndexByte(strings.TrimSpace(s), ' '); i > 0 {
		return strings.TrimSpace(s)[:i]
	}
	return s
}
