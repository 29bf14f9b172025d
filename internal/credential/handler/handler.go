package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eduhub/internal/credential/issuer"
	"eduhub/internal/credential/models"
	"eduhub/internal/credential/service"
	dErrors "eduhub/pkg/domain-errors"
	"eduhub/pkg/platform/httputil"
	"eduhub/pkg/requestcontext"
)

// timestampLayout matches what browsers produce for Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

const (
	msgUnexpected    = "Error issuing credential"
	msgMisconfigured = "server configuration incomplete"
)

// Service defines the gateway operations used by the handler.
type Service interface {
	Issue(ctx context.Context, req models.IssuanceRequest) (*models.IssuanceResult, error)
	Claims(ctx context.Context, holderID string) ([]models.ClaimRecord, error)
	HasClaim(ctx context.Context, holderID, credentialType string) (*models.ClaimRecord, bool, error)
	ClearClaims(ctx context.Context) error
}

// Handler wires the issuance and claim endpoints to the gateway.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/issue-credential", h.HandleIssue)
	r.Get("/claims/{holderId}", h.HandleListClaims)
	r.Get("/claims/{holderId}/{credentialType}", h.HandleHasClaim)
}

// RegisterAdmin mounts operator endpoints. The caller guards r.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Delete("/admin/claims", h.HandleClearClaims)
}

// ClaimRecordResponse is a claim on the wire. The holder field that does
// not apply to the claim's mode is null.
type ClaimRecordResponse struct {
	HolderOCID     *string `json:"holderOcId"`
	HolderAddress  *string `json:"holderAddress"`
	CredentialType string  `json:"credentialType"`
	IsOCB          bool    `json:"isOCB"`
	IssuedAt       int64   `json:"issuedAt"`
}

func toClaimResponse(c models.ClaimRecord) ClaimRecordResponse {
	out := ClaimRecordResponse{
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
	return out
}

// IssueResponse is the body of a 200 from POST /issue-credential.
type IssueResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Data        json.RawMessage     `json:"data"`
	ClaimRecord ClaimRecordResponse `json:"claimRecord"`
}

// ConflictResponse is the body of a 409 from POST /issue-credential.
type ConflictResponse struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	AlreadyIssued bool    `json:"alreadyIssued"`
	IssuedAt      *string `json:"issuedAt,omitempty"`
}

// ClaimsResponse is the body of GET /claims/{holderId}.
type ClaimsResponse struct {
	HolderID string                `json:"holderId"`
	Claims   []ClaimRecordResponse `json:"claims"`
}

// HasClaimResponse is the body of GET /claims/{holderId}/{credentialType}.
type HasClaimResponse struct {
	Claimed     bool                 `json:"claimed"`
	ClaimRecord *ClaimRecordResponse `json:"claimRecord,omitempty"`
}

// ClearResponse is the body of DELETE /admin/claims.
type ClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleIssue handles POST /issue-credential requests.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.IssuanceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Issue(ctx, *req)
	if err != nil {
		h.writeIssueError(ctx, w, *req, err)
		return
	}

	switch result.Outcome {
	case models.OutcomeIssued:
		httputil.WriteJSON(w, http.StatusOK, IssueResponse{
			Success:     true,
			Message:     result.Message,
			Data:        result.Data,
			ClaimRecord: toClaimResponse(*result.Claim),
		})
	default:
		resp := ConflictResponse{
			Message:       result.Message,
			AlreadyIssued: true,
		}
		if result.IssuedAt != nil {
			stamp := result.IssuedAt.UTC().Format(timestampLayout)
			resp.IssuedAt = &stamp
		}
		h.logger.InfoContext(ctx, "issuance skipped",
			"request_id", requestID,
			"outcome", result.Outcome,
			"credential_type", req.CredentialType,
		)
		httputil.WriteJSON(w, http.StatusConflict, resp)
	}
}

func (h *Handler) writeIssueError(ctx context.Context, w http.ResponseWriter, req models.IssuanceRequest, err error) {
	requestID := requestcontext.RequestID(ctx)

	var ie *issuer.IssuerError
	if errors.As(err, &ie) {
		h.logger.WarnContext(ctx, "issuer rejected credential",
			"request_id", requestID,
			"status", ie.StatusCode,
			"request", req,
		)
		status := ie.StatusCode
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		retryable := ie.Retryable()
		httputil.WriteJSON(w, status, httputil.ErrorResponse{
			Error:     ie.Error(),
			Code:      httputil.DomainCodeToHTTPCode(dErrors.CodeUpstream),
			Details:   ie.Details,
			Data:      ie.Data,
			Retryable: &retryable,
		})
		return
	}

	var te *issuer.TransportError
	if errors.As(err, &te) {
		h.logger.ErrorContext(ctx, "issuer unreachable",
			"request_id", requestID,
			"reason", te.Reason,
			"error", te,
		)
		retryable := true
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{
			Error:     err.Error(),
			Code:      httputil.DomainCodeToHTTPCode(dErrors.CodeUpstreamUnavailable),
			Message:   te.Error(),
			Retryable: &retryable,
		})
		return
	}

	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeBadRequest:
		httputil.WriteError(w, err)
	case dErrors.CodeMisconfigured:
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{
			Error:   err.Error(),
			Code:    httputil.DomainCodeToHTTPCode(dErrors.CodeMisconfigured),
			Message: msgMisconfigured,
		})
	default:
		h.logger.ErrorContext(ctx, "unexpected issuance failure",
			"request_id", requestID,
			"request", req,
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{
			Error:   msgUnexpected,
			Code:    httputil.DomainCodeToHTTPCode(dErrors.CodeInternal),
			Message: "internal server error",
		})
	}
}

// HandleListClaims handles GET /claims/{holderId} requests.
func (h *Handler) HandleListClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holderID := chi.URLParam(r, "holderId")

	claims, err := h.service.Claims(ctx, holderID)
	if err != nil {
		h.logFailure(ctx, "failed to list claims", err)
		httputil.WriteError(w, err)
		return
	}

	resp := ClaimsResponse{
		HolderID: holderID,
		Claims:   make([]ClaimRecordResponse, 0, len(claims)),
	}
	for _, c := range claims {
		resp.Claims = append(resp.Claims, toClaimResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleHasClaim handles GET /claims/{holderId}/{credentialType} requests.
func (h *Handler) HandleHasClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claim, ok, err := h.service.HasClaim(ctx, chi.URLParam(r, "holderId"), chi.URLParam(r, "credentialType"))
	if err != nil {
		h.logFailure(ctx, "failed to look up claim", err)
		httputil.WriteError(w, err)
		return
	}

	resp := HasClaimResponse{Claimed: ok}
	if ok {
		c := toClaimResponse(*claim)
		resp.ClaimRecord = &c
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleClearClaims handles DELETE /admin/claims requests.
func (h *Handler) HandleClearClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.ClearClaims(ctx); err != nil {
		h.logFailure(ctx, "failed to clear claims", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.WarnContext(ctx, "claim ledger cleared by operator",
		"request_id", requestcontext.RequestID(ctx),
		"client_ip", requestcontext.ClientIP(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, ClearResponse{Success: true, Message: "Claim ledger cleared"})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeValidation) {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}

var _ Service = (*service.Service)(nil)
