package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("load content: %w", E(KindNotFound, "get content", errors.New("record rec1 missing")))

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not_found match, got %v", err)
	}
	if errors.Is(err, ErrStoreFailed) {
		t.Fatalf("not_found must not match store_failed")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("unexpected kind: %s", KindOf(err))
	}
}

func TestErrorMessageIncludesPlatform(t *testing.T) {
	t.Parallel()

	err := Errorf(KindGenerationFailed, "generate", "empty completion").ForPlatform("X")
	want := "generate: generation_failed [X]: empty completion"
	if err.Error() != want {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestKindOfPlainError(t *testing.T) {
	t.Parallel()

	if kind := KindOf(errors.New("boom")); kind != "" {
		t.Fatalf("expected empty kind, got %s", kind)
	}
}

func TestParseContentStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]ContentStatus{
		"Y":        StatusPosted,
		"posted":   StatusPosted,
		"N":        StatusUnposted,
		"unposted": StatusUnposted,
		"":         StatusUnposted,
	}
	for in, want := range cases {
		got, err := ParseContentStatus(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %s, want %s", in, got, want)
		}
	}

	if _, err := ParseContentStatus("maybe"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestPlatformSessionKeyTracksVersion(t *testing.T) {
	t.Parallel()

	v1 := Platform{Name: "X", Version: "1"}
	v2 := Platform{Name: "X", Version: "2"}
	if v1.SessionKey() == v2.SessionKey() {
		t.Fatalf("session keys must differ across versions")
	}
	if v1.SessionKey() != "X-1" {
		t.Fatalf("unexpected session key: %s", v1.SessionKey())
	}
}
