package domain

import (
	"errors"
	"testing"
)

func TestKindOfPrefersAuthorizationOverTemporary(t *testing.T) {
	err := WrapError(ErrUnauthorized, "generate content", WrapError(ErrTemporary, "transport", errors.New("403")))
	if got := KindOf(err); got != ErrUnauthorized {
		t.Fatalf("KindOf() = %v, want %v", got, ErrUnauthorized)
	}
	if got := ClassifyFailure(err); got != FailureUnauthorized {
		t.Fatalf("ClassifyFailure() = %s, want %s", got, FailureUnauthorized)
	}
}

func TestKindOfUntypedError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != nil {
		t.Fatalf("KindOf() = %v, want nil", got)
	}
	if got := ClassifyFailure(errors.New("boom")); got != FailureUnknown {
		t.Fatalf("ClassifyFailure() = %s, want %s", got, FailureUnknown)
	}
	if WrapError(ErrTemporary, "op", nil) != nil {
		t.Fatalf("WrapError(nil) must stay nil")
	}
}
