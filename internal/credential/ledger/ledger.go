// Package ledger records which (holder, credential type) pairs have been
// issued so repeat requests can be answered without calling the issuer.
//
// Every backend makes Record first-write-wins: re-recording an existing pair
// is a no-op, so two racing issuances leave a single entry. The ledger is a
// best-effort cache; the issuer remains the final arbiter of duplicates.
package ledger

import (
	"context"
	"errors"

	"eduhub/internal/credential/models"
	dErrors "eduhub/pkg/domain-errors"
)

var (
	// ErrNotFound is returned by Find when no claim matches.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "claim not found")

	// ErrNoHolder rejects claims with neither holder field set.
	ErrNoHolder = dErrors.New(dErrors.CodeValidation, "claim has no holder")
)

// Ledger is the claim store consulted by the issuance gateway.
type Ledger interface {
	// Has reports whether a claim exists for holderID, matched against
	// either the identity handle or the wallet address.
	Has(ctx context.Context, holderID, credentialType string) (bool, error)
	// Find returns the claim for the pair or ErrNotFound.
	Find(ctx context.Context, holderID, credentialType string) (models.ClaimRecord, error)
	// Record stores claim unless the pair is already present.
	Record(ctx context.Context, claim models.ClaimRecord) error
	// ListFor returns the holder's claims, oldest first.
	ListFor(ctx context.Context, holderID string) ([]models.ClaimRecord, error)
	// Clear removes every claim.
	Clear(ctx context.Context) error
}

// has derives Has from Find for backends that have no cheaper existence check.
func has(ctx context.Context, l Ledger, holderID, credentialType string) (bool, error) {
	_, err := l.Find(ctx, holderID, credentialType)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func validateClaim(claim models.ClaimRecord) error {
	if claim.HolderID() == "" {
		return ErrNoHolder
	}
	if claim.CredentialType == "" {
		return dErrors.New(dErrors.CodeValidation, "claim has no credential type")
	}
	return nil
}

func findIn(claims []models.ClaimRecord, holderID, credentialType string) (models.ClaimRecord, bool) {
	for _, c := range claims {
		if c.Matches(holderID, credentialType) {
			return c, true
		}
	}
	return models.ClaimRecord{}, false
}

func filterHolder(claims []models.ClaimRecord, holderID string) []models.ClaimRecord {
	out := make([]models.ClaimRecord, 0)
	for _, c := range claims {
		if c.HeldBy(holderID) {
			out = append(out, c)
		}
	}
	sortOldestFirst(out)
	return out
}
