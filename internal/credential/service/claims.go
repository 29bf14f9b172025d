package service

import (
	"context"
	"errors"

	"eduhub/internal/credential/ledger"
	"eduhub/internal/credential/models"
	dErrors "eduhub/pkg/domain-errors"
)

// Claims lists a holder's claims, oldest first.
func (s *Service) Claims(ctx context.Context, holderID string) ([]models.ClaimRecord, error) {
	holderID = normalizeHolder(holderID)
	if holderID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "holderId is required")
	}
	claims, err := s.ledger.ListFor(ctx, holderID)
	s.metrics.IncLedgerOp("list", err)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}

// HasClaim returns the claim for (holderID, credentialType) if one exists.
func (s *Service) HasClaim(ctx context.Context, holderID, credentialType string) (*models.ClaimRecord, bool, error) {
	holderID = normalizeHolder(holderID)
	if holderID == "" || credentialType == "" {
		return nil, false, dErrors.New(dErrors.CodeValidation, "holderId and credentialType are required")
	}
	claim, err := s.ledger.Find(ctx, holderID, credentialType)
	if errors.Is(err, ledger.ErrNotFound) {
		s.metrics.IncLedgerOp("find", nil)
		return nil, false, nil
	}
	s.metrics.IncLedgerOp("find", err)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up claim")
	}
	return &claim, true, nil
}

// ClearClaims removes every claim from the ledger.
func (s *Service) ClearClaims(ctx context.Context) error {
	err := s.ledger.Clear(ctx)
	s.metrics.IncLedgerOp("clear", err)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear claims")
	}
	s.logger.InfoContext(ctx, "claim ledger cleared")
	return nil
}
