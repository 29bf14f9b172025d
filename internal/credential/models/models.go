package models

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"eduhub/pkg/platform/privacy"
	strutil "eduhub/pkg/platform/strings"
)

// Mode selects how a credential is bound to its holder.
type Mode string

const (
	// ModeAchievement issues an Open Campus Achievement to an identity handle (OCID).
	ModeAchievement Mode = "achievement"
	// ModeBadge issues an Open Campus Badge to a directly connected wallet.
	ModeBadge Mode = "badge"
)

// ModeFor maps the wire-level isOCB flag to a Mode.
func ModeFor(isOCB bool) Mode {
	if isOCB {
		return ModeBadge
	}
	return ModeAchievement
}

// IsBadge reports whether m is wallet-bound.
func (m Mode) IsBadge() bool {
	return m == ModeBadge
}

// KeyName is the environment variable an operator sets for this mode's API key.
func (m Mode) KeyName() string {
	if m == ModeBadge {
		return "OCB_API_KEY"
	}
	return "OCA_API_KEY"
}

// IssuanceRequest is one request to issue a credential. It is never persisted.
type IssuanceRequest struct {
	CredentialType string `json:"credentialType"`
	HolderOCID     string `json:"holderOcId,omitempty"`
	HolderAddress  string `json:"holderAddress,omitempty"`
	UserName       string `json:"userName"`
	UserEmail      string `json:"userEmail"`
	IsOCB          bool   `json:"isOCB"`
	AlreadyClaimed bool   `json:"alreadyClaimed"`
}

// Mode returns the issuance mode requested.
func (r IssuanceRequest) Mode() Mode {
	return ModeFor(r.IsOCB)
}

// TrackingID is the holder the claim ledger is keyed on: the wallet for
// badges, the identity handle otherwise.
func (r IssuanceRequest) TrackingID() string {
	if r.IsOCB {
		return r.HolderAddress
	}
	return r.HolderOCID
}

// Normalize trims surrounding whitespace from every string field.
func (r *IssuanceRequest) Normalize() {
	strutil.TrimStrings(&r.CredentialType, &r.HolderOCID, &r.HolderAddress, &r.UserName, &r.UserEmail)
}

// LogValue renders the request for logs with the email masked and the
// display name left out.
func (r IssuanceRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("credential_type", r.CredentialType),
		slog.String("mode", string(r.Mode())),
		slog.String("holder_oc_id", r.HolderOCID),
		slog.String("holder_address", r.HolderAddress),
		slog.String("email", privacy.MaskEmail(r.UserEmail)),
		slog.Bool("has_name", r.UserName != ""),
		slog.Bool("already_claimed", r.AlreadyClaimed),
	)
}

// ClaimRecord is one issued credential. Exactly one of HolderOCID and
// HolderAddress is set, matching the issuance mode.
type ClaimRecord struct {
	HolderOCID     string
	HolderAddress  string
	CredentialType string
	IsOCB          bool
	IssuedAt       time.Time
}

// NewClaimRecord builds the record for a confirmed issuance. IssuedAt is
// truncated to milliseconds, the precision it is stored with.
func NewClaimRecord(req IssuanceRequest, issuedAt time.Time) ClaimRecord {
	c := ClaimRecord{
		CredentialType: req.CredentialType,
		IsOCB:          req.IsOCB,
		IssuedAt:       issuedAt.UTC().Truncate(time.Millisecond),
	}
	if req.IsOCB {
		c.HolderAddress = req.HolderAddress
	} else {
		c.HolderOCID = req.HolderOCID
	}
	return c
}

// HolderID returns whichever holder field is populated.
func (c ClaimRecord) HolderID() string {
	if c.HolderAddress != "" {
		return c.HolderAddress
	}
	return c.HolderOCID
}

// HeldBy reports whether holderID equals either holder field. An empty
// holderID never matches.
func (c ClaimRecord) HeldBy(holderID string) bool {
	if holderID == "" {
		return false
	}
	return c.HolderOCID == holderID || c.HolderAddress == holderID
}

// Matches reports whether c is the claim for (holderID, credentialType).
func (c ClaimRecord) Matches(holderID, credentialType string) bool {
	return c.CredentialType == credentialType && c.HeldBy(holderID)
}

// claimRecordJSON is the stored layout: issuedAt in epoch milliseconds and
// absent holder fields omitted. Null holder fields are accepted on read.
type claimRecordJSON struct {
	HolderOCID     *string `json:"holderOcId,omitempty"`
	HolderAddress  *string `json:"holderAddress,omitempty"`
	CredentialType string  `json:"credentialType"`
	IsOCB          bool    `json:"isOCB"`
	IssuedAt       int64   `json:"issuedAt"`
}

func (c ClaimRecord) MarshalJSON() ([]byte, error) {
	out := claimRecordJSON{
		CredentialType: c.CredentialType,
		IsOCB:          c.IsOCB,
		IssuedAt:       c.IssuedAt.UnixMilli(),
	}
	if c.HolderOCID != "" {
		out.HolderOCID = &c.HolderOCID
	}
	if c.HolderAddress != "" {
		out.HolderAddress = &c.HolderAddress
	}
	return json.Marshal(out)
}

func (c *ClaimRecord) UnmarshalJSON(data []byte) error {
	var in claimRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode claim record: %w", err)
	}
	*c = ClaimRecord{
		CredentialType: in.CredentialType,
		IsOCB:          in.IsOCB,
		IssuedAt:       time.UnixMilli(in.IssuedAt).UTC(),
	}
	if in.HolderOCID != nil {
		c.HolderOCID = *in.HolderOCID
	}
	if in.HolderAddress != nil {
		c.HolderAddress = *in.HolderAddress
	}
	return nil
}

// Outcome is the terminal state of an issuance attempt that did not fail.
type Outcome string

const (
	// OutcomeIssued means the issuer confirmed a new credential.
	OutcomeIssued Outcome = "issued"
	// OutcomeAlreadyClaimed means the caller reported a prior claim.
	OutcomeAlreadyClaimed Outcome = "already_claimed"
	// OutcomeAlreadyIssued means the ledger already holds the claim.
	OutcomeAlreadyIssued Outcome = "already_issued"
)

// IssuanceResult is returned by the gateway for every non-error outcome.
type IssuanceResult struct {
	Outcome Outcome
	Message string
	// Data is the issuer's response body on OutcomeIssued.
	Data json.RawMessage
	// Claim is set on OutcomeIssued.
	Claim *ClaimRecord
	// IssuedAt is the original issuance time on OutcomeAlreadyIssued.
	IssuedAt *time.Time
}

// Issued reports whether a new credential was created.
func (r *IssuanceResult) Issued() bool {
	return r != nil && r.Outcome == OutcomeIssued
}

// Achievement describes what was achieved.
type Achievement struct {
	Name            string `json:"name"`
	Identifier      string `json:"identifier"`
	Description     string `json:"description"`
	AchievementType string `json:"achievementType"`
}

// CredentialSubject is the holder-facing part of the payload. Badges carry
// only an image; achievements add name, email and profile link.
type CredentialSubject struct {
	Name        string      `json:"name,omitempty"`
	Type        string      `json:"type"`
	Email       string      `json:"email,omitempty"`
	Image       string      `json:"image"`
	ProfileURL  string      `json:"profileUrl,omitempty"`
	Achievement Achievement `json:"achievement"`
}

// CredentialPayload is the document sent to the issuer.
type CredentialPayload struct {
	ValidFrom         string            `json:"validFrom"`
	AwardedDate       string            `json:"awardedDate"`
	Description       string            `json:"description"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
}
