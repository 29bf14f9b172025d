package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"eduhub/internal/credential/handler/mocks"
	"eduhub/internal/credential/issuer"
	"eduhub/internal/credential/models"
	dErrors "eduhub/pkg/domain-errors"
	"eduhub/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router      http.Handler
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	logs        *bytes.Buffer
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	s.logs = &bytes.Buffer{}
	h := New(s.mockService, slog.New(slog.NewJSONHandler(s.logs, nil)))

	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) body(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const achievementBody = `{"credentialType":"bootcamp","holderOcId":" alice.edu ","userName":"Alice","userEmail":"a@x.com","isOCB":false}`

func (s *HandlerSuite) TestIssue_InvalidJSON() {
	rec := s.do(http.MethodPost, "/issue-credential", "not valid json")

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("invalid request body", s.body(rec)["error"])
}

func (s *HandlerSuite) TestIssue_Success() {
	claim := testutil.NewClaimBuilder().Build()
	s.mockService.EXPECT().Issue(gomock.Any(), models.IssuanceRequest{
		CredentialType: "bootcamp",
		HolderOCID:     "alice.edu",
		UserName:       "Alice",
		UserEmail:      "a@x.com",
	}).Return(&models.IssuanceResult{
		Outcome: models.OutcomeIssued,
		Message: "Credential issued successfully",
		Data:    json.RawMessage(`{"id":"vc-1"}`),
		Claim:   &claim,
	}, nil)

	rec := s.do(http.MethodPost, "/issue-credential", achievementBody)

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{
		"success": true,
		"message": "Credential issued successfully",
		"data": {"id": "vc-1"},
		"claimRecord": {
			"holderOcId": "alice.edu",
			"holderAddress": null,
			"credentialType": "bootcamp",
			"isOCB": false,
			"issuedAt": 1741944413589
		}
	}`, rec.Body.String())
}

func (s *HandlerSuite) TestIssue_AlreadyIssued() {
	issuedAt := testutil.FixedTime
	s.mockService.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(&models.IssuanceResult{
		Outcome:  models.OutcomeAlreadyIssued,
		Message:  "Credential already issued",
		IssuedAt: &issuedAt,
	}, nil)

	rec := s.do(http.MethodPost, "/issue-credential", achievementBody)

	s.Equal(http.StatusConflict, rec.Code)
	s.JSONEq(`{
		"success": false,
		"message": "Credential already issued",
		"alreadyIssued": true,
		"issuedAt": "2025-03-14T09:26:53.589Z"
	}`, rec.Body.String())
}

func (s *HandlerSuite) TestIssue_AlreadyClaimedHasNoTimestamp() {
	s.mockService.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(&models.IssuanceResult{
		Outcome: models.OutcomeAlreadyClaimed,
		Message: "Credential already claimed",
	}, nil)

	rec := s.do(http.MethodPost, "/issue-credential", `{"credentialType":"tutorial","alreadyClaimed":true}`)

	s.Equal(http.StatusConflict, rec.Code)
	body := s.body(rec)
	s.Equal(true, body["alreadyIssued"])
	s.NotContains(body, "issuedAt")
}

func (s *HandlerSuite) TestIssue_ErrorMapping() {
	tests := []struct {
		name   string
		err    error
		status int
		want   map[string]any
	}{
		{
			name:   "validation",
			err:    dErrors.New(dErrors.CodeValidation, "Missing required parameters for OCA"),
			status: http.StatusBadRequest,
			want:   map[string]any{"error": "Missing required parameters for OCA", "code": "validation_error"},
		},
		{
			name:   "missing api key",
			err:    dErrors.New(dErrors.CodeMisconfigured, "API key not configured. Please set the OCA_API_KEY environment variable."),
			status: http.StatusInternalServerError,
			want: map[string]any{
				"error":   "API key not configured. Please set the OCA_API_KEY environment variable.",
				"code":    "server_misconfigured",
				"message": "server configuration incomplete",
			},
		},
		{
			name: "issuer unavailable",
			err: dErrors.Wrap(&issuer.TransportError{Reason: "timeout", Err: context.DeadlineExceeded},
				dErrors.CodeUpstreamUnavailable, "Network error when connecting to OCA API"),
			status: http.StatusInternalServerError,
			want: map[string]any{
				"error":     "Network error when connecting to OCA API",
				"code":      "issuer_unreachable",
				"message":   "issuer unreachable (timeout): context deadline exceeded",
				"retryable": true,
			},
		},
		{
			name: "issuer bad gateway passes through",
			err: dErrors.Wrap(&issuer.IssuerError{StatusCode: 502, Details: "Bad Gateway"},
				dErrors.CodeUpstream, "OCA API error: HTTP 502"),
			status: http.StatusBadGateway,
			want: map[string]any{
				"error":     "OCA API error: HTTP 502",
				"code":      "issuer_error",
				"details":   "Bad Gateway",
				"retryable": true,
			},
		},
		{
			name: "issuer rejection with json body",
			err: dErrors.Wrap(&issuer.IssuerError{
				StatusCode: 422,
				Details:    "{\n  \"message\": \"holderOcId unknown\"\n}",
				Data:       json.RawMessage(`{"message":"holderOcId unknown"}`),
			}, dErrors.CodeUpstream, "OCA API error: HTTP 422"),
			status: http.StatusUnprocessableEntity,
			want: map[string]any{
				"error":     "OCA API error: HTTP 422",
				"code":      "issuer_error",
				"details":   "{\n  \"message\": \"holderOcId unknown\"\n}",
				"data":      map[string]any{"message": "holderOcId unknown"},
				"retryable": false,
			},
		},
		{
			name:   "unexpected failure hides cause",
			err:    dErrors.Wrap(errors.New("encode: secret detail"), dErrors.CodeInternal, "Error issuing credential"),
			status: http.StatusInternalServerError,
			want: map[string]any{
				"error":   "Error issuing credential",
				"code":    "internal_error",
				"message": "internal server error",
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.mockService.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			rec := s.do(http.MethodPost, "/issue-credential", achievementBody)

			s.Equal(tt.status, rec.Code)
			s.Equal(tt.want, s.body(rec))
		})
	}
	s.NotContains(s.logs.String(), "a@x.com", "emails are masked in logs")
}

func (s *HandlerSuite) TestListClaims() {
	s.mockService.EXPECT().Claims(gomock.Any(), testutil.HolderAddress).Return([]models.ClaimRecord{
		testutil.NewClaimBuilder().ForAddress(testutil.HolderAddress).OfType("eduplus").Build(),
	}, nil)

	rec := s.do(http.MethodGet, "/claims/"+testutil.HolderAddress, "")

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{
		"holderId": "0x52908400098527886E0F7030069857D2E4169EE7",
		"claims": [{
			"holderOcId": null,
			"holderAddress": "0x52908400098527886E0F7030069857D2E4169EE7",
			"credentialType": "eduplus",
			"isOCB": true,
			"issuedAt": 1741944413589
		}]
	}`, rec.Body.String())
}

func (s *HandlerSuite) TestListClaims_EmptyIsArray() {
	s.mockService.EXPECT().Claims(gomock.Any(), "bob.edu").Return(nil, nil)

	rec := s.do(http.MethodGet, "/claims/bob.edu", "")

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"holderId":"bob.edu","claims":[]}`, rec.Body.String())
}

func (s *HandlerSuite) TestListClaims_StoreFailure() {
	s.mockService.EXPECT().Claims(gomock.Any(), "bob.edu").
		Return(nil, dErrors.Wrap(errors.New("redis down"), dErrors.CodeInternal, "failed to list claims"))

	rec := s.do(http.MethodGet, "/claims/bob.edu", "")

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("failed to list claims", s.body(rec)["error"])
}

func (s *HandlerSuite) TestHasClaim() {
	s.Run("claimed", func() {
		claim := testutil.NewClaimBuilder().Build()
		s.mockService.EXPECT().HasClaim(gomock.Any(), "alice.edu", "bootcamp").Return(&claim, true, nil)

		rec := s.do(http.MethodGet, "/claims/alice.edu/bootcamp", "")

		s.Equal(http.StatusOK, rec.Code)
		body := s.body(rec)
		s.Equal(true, body["claimed"])
		s.Equal("bootcamp", body["claimRecord"].(map[string]any)["credentialType"])
	})

	s.Run("not claimed", func() {
		s.mockService.EXPECT().HasClaim(gomock.Any(), "alice.edu", "tutorial").Return(nil, false, nil)

		rec := s.do(http.MethodGet, "/claims/alice.edu/tutorial", "")

		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"claimed":false}`, rec.Body.String())
	})
}

func (s *HandlerSuite) TestClearClaims() {
	s.mockService.EXPECT().ClearClaims(gomock.Any()).Return(nil)

	rec := s.do(http.MethodDelete, "/admin/claims", "")

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(true, s.body(rec)["success"])
}
