package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives that every layer of the
// issuance flow uses to report a finite set of failure kinds.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeValidation, Message: "userEmail is required"}
		s.Equal("userEmail is required", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeMisconfigured}
		s.Equal("misconfigured", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("dial tcp: connection refused")
		err := &Error{Code: CodeUpstreamUnavailable, Message: "issuer unreachable", Err: inner}
		s.Equal(inner, err.Unwrap())
		s.Equal(inner, errors.Unwrap(err))
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeNotFound, Message: "not found"}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeUpstream, Message: "HTTP 502"}
		err2 := &Error{Code: CodeUpstream, Message: "HTTP 500"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		s.False((&Error{Code: CodeUpstream}).Is(&Error{Code: CodeUpstreamUnavailable}))
	})

	s.Run("does not match non-domain errors", func() {
		s.False((&Error{Code: CodeNotFound}).Is(errors.New("not_found")))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeMisconfigured, Message: "OCA_API_KEY missing"}
		wrapped := fmt.Errorf("issue: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeMisconfigured}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code when wrapping domain error", func() {
		original := New(CodeValidation, "holderAddress is required")
		wrapped := Wrap(original, CodeInternal, "issue credential")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeValidation, domainErr.Code)
		s.Equal("issue credential", domainErr.Message)
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		wrapped := Wrap(errors.New("i/o timeout"), CodeUpstreamUnavailable, "issuer unreachable")
		s.Equal(CodeUpstreamUnavailable, CodeOf(wrapped))
	})

	s.Run("wrapped error is accessible via Unwrap", func() {
		original := errors.New("root cause")
		s.True(errors.Is(Wrap(original, CodeInternal, "service error"), original))
	})
}

func (s *DomainErrorsSuite) TestHasCodeAndCodeOf() {
	s.Run("matching and non-matching codes", func() {
		err := New(CodeConflict, "already issued")
		s.True(HasCode(err, CodeConflict))
		s.False(HasCode(err, CodeInternal))
	})

	s.Run("plain errors report internal", func() {
		err := errors.New("boom")
		s.False(HasCode(err, CodeNotFound))
		s.Equal(CodeInternal, CodeOf(err))
	})

	s.Run("nil error has no code", func() {
		s.False(HasCode(nil, CodeNotFound))
	})
}
