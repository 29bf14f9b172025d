package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"eduhub/internal/credential/models"
	dErrors "eduhub/pkg/domain-errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

const (
	msgMissingBadgeFields       = "Missing required parameters for OCB. Need holderAddress (wallet), userName and userEmail."
	msgMissingAchievementFields = "Missing required parameters for OCA"
	msgIdentityLinkedBadge      = "badges require a directly connected wallet, not an identity-linked one"
	msgInvalidAddress           = "holderAddress must be a 20-byte hex wallet address"
	msgMissingCredentialType    = "credentialType is required"
)

// fieldRules are the length and format limits applied once presence has
// been checked.
type fieldRules struct {
	CredentialType string `json:"credentialType" validate:"max=64"`
	HolderOCID     string `json:"holderOcId"     validate:"max=128"`
	UserName       string `json:"userName"       validate:"max=128"`
	UserEmail      string `json:"userEmail"      validate:"email,max=254"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// validateRequest checks req for its mode and returns it with a badge
// address in EIP-55 checksum form. Failures are CodeValidation errors.
func (s *Service) validateRequest(req models.IssuanceRequest) (models.IssuanceRequest, error) {
	if req.CredentialType == "" {
		return req, dErrors.New(dErrors.CodeValidation, msgMissingCredentialType)
	}

	if req.IsOCB {
		if req.HolderAddress == "" || req.UserName == "" || req.UserEmail == "" {
			return req, dErrors.New(dErrors.CodeValidation, msgMissingBadgeFields)
		}
		if req.HolderOCID != "" {
			return req, dErrors.New(dErrors.CodeValidation, msgIdentityLinkedBadge)
		}
		if !common.IsHexAddress(req.HolderAddress) {
			return req, dErrors.New(dErrors.CodeValidation, msgInvalidAddress)
		}
		req.HolderAddress = common.HexToAddress(req.HolderAddress).Hex()
	} else if req.HolderOCID == "" || req.UserName == "" || req.UserEmail == "" {
		return req, dErrors.New(dErrors.CodeValidation, msgMissingAchievementFields)
	}

	err := s.validate.Struct(fieldRules{
		CredentialType: req.CredentialType,
		HolderOCID:     req.HolderOCID,
		UserName:       req.UserName,
		UserEmail:      req.UserEmail,
	})
	if err != nil {
		return req, dErrors.New(dErrors.CodeValidation, describe(err))
	}
	return req, nil
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request"
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// normalizeHolder lets callers look up a wallet in any letter case.
func normalizeHolder(holderID string) string {
	holderID = strings.TrimSpace(holderID)
	if common.IsHexAddress(holderID) {
		return common.HexToAddress(holderID).Hex()
	}
	return holderID
}
