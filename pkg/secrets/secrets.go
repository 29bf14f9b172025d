// Package secrets mints and checks X-Admin-Token values for the operator routes.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "eduhub/pkg/domain-errors"
)

// AdminTokenPrefix marks tokens minted by claimctl. Header values without it
// are refused before bcrypt runs.
const AdminTokenPrefix = "ehat_"

const adminTokenBytes = 32

// AdminToken is the plaintext an operator sends in X-Admin-Token.
type AdminToken string

// NewAdminToken returns AdminTokenPrefix followed by 32 random bytes in
// unpadded base64url.
func NewAdminToken() (AdminToken, error) {
	buf := make([]byte, adminTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate admin token")
	}
	return AdminToken(AdminTokenPrefix + base64.RawURLEncoding.EncodeToString(buf)), nil
}

func (t AdminToken) String() string { return string(t) }

// Hash returns the bcrypt hash to deploy as ADMIN_TOKEN_HASH.
func (t AdminToken) Hash() (string, error) {
	if !t.minted() {
		return "", dErrors.New(dErrors.CodeValidation, "admin token must start with "+AdminTokenPrefix)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(t), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "admin token is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash admin token")
	}
	return string(hashed), nil
}

func (t AdminToken) minted() bool {
	return len(t) > len(AdminTokenPrefix) && strings.HasPrefix(string(t), AdminTokenPrefix)
}

// VerifyAdminToken checks a presented header value against ADMIN_TOKEN_HASH.
func VerifyAdminToken(presented, hash string) error {
	t := AdminToken(presented)
	if !t.minted() {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid admin token")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(t)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid admin token")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify admin token")
	}
	return nil
}
