package service

import (
	"context"
	"errors"
	"time"

	"eduhub/internal/credential/events"
	"eduhub/internal/credential/issuer"
	"eduhub/internal/credential/ledger"
	"eduhub/internal/credential/models"
	dErrors "eduhub/pkg/domain-errors"
)

const (
	msgAlreadyClaimed  = "Credential already claimed"
	msgAlreadyIssued   = "Credential already issued"
	msgBadgeIssued     = "Badge issued successfully"
	msgCredentialIssue = "Credential issued successfully"
	msgNetworkError    = "Network error when connecting to OCA API"
	msgIssueFailed     = "Error issuing credential"
)

// recordTimeout bounds the ledger write after a confirmed issuance.
const recordTimeout = 5 * time.Second

// Issue runs one issuance request.
//
// Non-error outcomes (issued, already claimed, already issued) come back as
// an IssuanceResult. Errors carry a domain code: CodeValidation,
// CodeMisconfigured, CodeUpstreamUnavailable wrapping *issuer.TransportError,
// CodeUpstream wrapping *issuer.IssuerError, or CodeInternal.
//
// The ledger is written exactly once, after the issuer confirms. A failed
// ledger read is treated as "not claimed"; a failed ledger write is logged
// and the issuance still succeeds.
func (s *Service) Issue(ctx context.Context, req models.IssuanceRequest) (*models.IssuanceResult, error) {
	mode := req.Mode()
	result, err := s.issue(ctx, req)
	if err != nil {
		s.metrics.IncIssuanceOutcome(string(mode), string(dErrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.IncIssuanceOutcome(string(mode), string(result.Outcome))
	return result, nil
}

func (s *Service) issue(ctx context.Context, req models.IssuanceRequest) (*models.IssuanceResult, error) {
	req, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}
	mode := req.Mode()

	if req.AlreadyClaimed {
		return &models.IssuanceResult{
			Outcome: models.OutcomeAlreadyClaimed,
			Message: msgAlreadyClaimed,
		}, nil
	}

	apiKey := s.keys.APIKey(mode.IsBadge())
	if apiKey == "" {
		s.logger.ErrorContext(ctx, "issuer API key not configured", "mode", mode, "env", mode.KeyName())
		return nil, dErrors.New(dErrors.CodeMisconfigured,
			"API key not configured. Please set the "+mode.KeyName()+" environment variable.")
	}

	trackingID := req.TrackingID()
	existing, err := s.ledger.Find(ctx, trackingID, req.CredentialType)
	switch {
	case err == nil:
		s.metrics.IncLedgerOp("find", nil)
		issuedAt := existing.IssuedAt
		return &models.IssuanceResult{
			Outcome:  models.OutcomeAlreadyIssued,
			Message:  msgAlreadyIssued,
			IssuedAt: &issuedAt,
		}, nil
	case errors.Is(err, ledger.ErrNotFound):
		s.metrics.IncLedgerOp("find", nil)
	default:
		s.metrics.IncLedgerOp("find", err)
		s.logger.WarnContext(ctx, "claim ledger read failed, treating as unclaimed",
			"credential_type", req.CredentialType,
			"error", err,
		)
	}

	now := s.now(ctx)
	data, err := s.issuer.Submit(ctx, issuer.Submission{
		Mode:          mode,
		APIKey:        apiKey,
		Payload:       s.builder.Build(req, now),
		HolderOCID:    req.HolderOCID,
		HolderAddress: req.HolderAddress,
	})
	if err != nil {
		return nil, translateIssuerError(err)
	}

	claim := models.NewClaimRecord(req, now)
	if err := s.record(ctx, claim); err != nil {
		s.metrics.IncLedgerOp("record", err)
		s.metrics.IncLedgerWriteFailure()
		s.logger.ErrorContext(ctx, "failed to record issued claim",
			"credential_type", claim.CredentialType,
			"holder_id", claim.HolderID(),
			"error", err,
		)
	} else {
		s.metrics.IncLedgerOp("record", nil)
	}

	s.publish(ctx, claim, req.UserEmail)

	message := msgCredentialIssue
	if mode.IsBadge() {
		message = msgBadgeIssued
	}
	return &models.IssuanceResult{
		Outcome: models.OutcomeIssued,
		Message: message,
		Data:    data,
		Claim:   &claim,
	}, nil
}

// record writes the claim on a context detached from the caller: once the
// issuer has confirmed, a client disconnect must not drop the write.
func (s *Service) record(ctx context.Context, claim models.ClaimRecord) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	return s.ledger.Record(ctx, claim)
}

func translateIssuerError(err error) error {
	var te *issuer.TransportError
	if errors.As(err, &te) {
		return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, msgNetworkError)
	}
	var ie *issuer.IssuerError
	if errors.As(err, &ie) {
		return dErrors.Wrap(err, dErrors.CodeUpstream, ie.Error())
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msgIssueFailed)
}

func (s *Service) publish(ctx context.Context, claim models.ClaimRecord, email string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewClaimIssued(ctx, claim, email)); err != nil {
		s.logger.WarnContext(ctx, "failed to publish claim event",
			"credential_type", claim.CredentialType,
			"error", err,
		)
	}
}
