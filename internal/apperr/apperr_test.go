package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf_Wrapped(t *testing.T) {
	base := Wrap(CodeRateLimited, "embedding call", errors.New("429"))
	wrapped := fmt.Errorf("retriever: %w", base)

	if CodeOf(wrapped) != CodeRateLimited {
		t.Errorf("expected %s, got %s", CodeRateLimited, CodeOf(wrapped))
	}
}

func TestCodeOf_Plain(t *testing.T) {
	if CodeOf(errors.New("boom")) != CodeUnknown {
		t.Error("plain errors should map to CodeUnknown")
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		code Code
		want bool
	}{
		{CodeServiceUnavailable, true},
		{CodeRateLimited, true},
		{CodeRetrievalUnavailable, true},
		{CodeTimeoutExceeded, false},
		{CodeInvalidQuery, false},
		{CodeInvalidDomain, false},
		{CodeDomainMismatch, false},
	}

	for _, c := range cases {
		if got := Retryable(New(c.code, "x")); got != c.want {
			t.Errorf("Retryable(%s) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestUserMessage_NeverEmpty(t *testing.T) {
	codes := []Code{
		CodeUnknown, CodeServiceUnavailable, CodeRateLimited, CodeTimeoutExceeded,
		CodeRetrievalUnavailable, CodeNoDataFound, CodeInvalidQuery,
		CodeInvalidDomain, CodeDomainMismatch, CodeAgentNotFound, CodeUnauthorized,
	}
	for _, code := range codes {
		msg := UserMessage(New(code, "internal detail"))
		if msg == "" {
			t.Errorf("empty user message for %s", code)
		}
		if msg == "internal detail" {
			t.Errorf("internal message leaked for %s", code)
		}
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeRetrievalUnavailable, "index query", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable with errors.Is")
	}
}
