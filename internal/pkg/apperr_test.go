package pkg

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	if got := KindOf(NewError(KindConflict, "boom")); got != KindConflict {
		t.Fatalf("got %d", got)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Fatalf("plain error: got %d", got)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Fatalf("nil: got %d", got)
	}

	// 包一层也能认出来
	wrapped := fmt.Errorf("outer: %w", NewError(KindNotFound, "gone"))
	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("wrapped: got %d", got)
	}
}

func TestWrapUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapUpstream(cause)
	if KindOf(err) != KindUpstream {
		t.Fatal("kind must be upstream")
	}
	if !errors.Is(err, cause) {
		t.Fatal("must unwrap to cause")
	}
}
