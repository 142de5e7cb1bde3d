package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// These are the error primitives used at every boundary between the console
// views and the session/backend layers, so invariants like "wrapped domain
// errors preserve the original code" must hold.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeBadCredentials, Message: "invalid email or password"}
		s.Equal("invalid email or password", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeUnavailable}
		s.Equal("unavailable", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeNotFound, Message: "association not found"}
		err2 := &Error{Code: CodeNotFound, Message: "member not found"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		s.False((&Error{Code: CodeNotFound}).Is(&Error{Code: CodeInternal}))
	})

	s.Run("does not match non-domain errors", func() {
		s.False((&Error{Code: CodeNotFound}).Is(errors.New("not found")))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeTimeout, Message: "original"}
		wrapped := fmt.Errorf("loading dashboard: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeTimeout}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code when wrapping domain error", func() {
		original := New(CodeUnauthorized, "token rejected")
		wrapped := Wrap(original, CodeInternal, "members request failed")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeUnauthorized, domainErr.Code)
		s.Equal("members request failed", domainErr.Message)
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		original := errors.New("dial tcp: connection refused")
		wrapped := Wrap(original, CodeUnavailable, "backend unreachable")

		s.True(HasCode(wrapped, CodeUnavailable))
		s.True(errors.Is(wrapped, original))
	})
}

func (s *DomainErrorsSuite) TestHasCodeAndCodeOf() {
	s.Run("finds code through error chain", func() {
		wrapped := Wrap(New(CodeNotFound, "original"), CodeInternal, "wrapped")
		s.True(HasCode(wrapped, CodeNotFound))
		s.Equal(CodeNotFound, CodeOf(wrapped))
	})

	s.Run("nil and plain errors", func() {
		s.False(HasCode(nil, CodeNotFound))
		s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	})
}

func (s *DomainErrorsSuite) TestUserMessage() {
	s.Equal("invalid email or password", UserMessage(New(CodeBadCredentials, "invalid email or password")))
	s.Equal("Something went wrong. Please try again.", UserMessage(errors.New("EOF")))
}
