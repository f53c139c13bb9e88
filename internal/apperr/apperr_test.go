package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsAndKindOf(t *testing.T) {
	err := New(NotFound, "character missing")
	if !Is(err, NotFound) {
		t.Fatalf("expected Is(NotFound) true")
	}
	if Is(err, Conflict) {
		t.Fatalf("expected Is(Conflict) false")
	}
	if KindOf(err) != NotFound {
		t.Fatalf("expected KindOf = NotFound, got %v", KindOf(err))
	}

	wrapped := fmt.Errorf("lookup failed: %w", err)
	if !Is(wrapped, NotFound) {
		t.Fatalf("expected Is to see through fmt.Errorf wrapping")
	}

	plain := errors.New("boring")
	if KindOf(plain) != Internal {
		t.Fatalf("expected KindOf(plain) = Internal, got %v", KindOf(plain))
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(Upstream, "catalog query failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if err.Error() == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		BadInput: http.StatusBadRequest,
		NotFound: http.StatusNotFound,
		Conflict: http.StatusConflict,
		Upstream: http.StatusBadGateway,
		Timeout:  http.StatusGatewayTimeout,
		Internal: http.StatusInternalServerError,
		Kind("bogus"): http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", kind, got, want)
		}
	}
}
