package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	id := uuid.New()

	cursor := EncodeCursor(createdAt, id)

	gotAt, gotID, err := DecodeCursor(cursor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotAt.Equal(createdAt) {
		t.Fatalf("timestamp mismatch: want %v, got %v", createdAt, gotAt)
	}
	if gotID != id {
		t.Fatalf("id mismatch: want %v, got %v", id, gotID)
	}
}

func TestDecodeCursor_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!not-base64!!"},
		{"missing separator", "bm8tc2VwYXJhdG9y"},
		{"bad timestamp", "bm90LWEtdGltZXwxMjM0"},
		{"empty", ""},
	}

	for _, tc := range cases {
		if _, _, err := DecodeCursor(tc.cursor); err == nil {
			t.Fatalf("%s: expected error for cursor %q", tc.name, tc.cursor)
		}
	}
}

func TestCursorOrdering(t *testing.T) {
	// Two documents with the same timestamp must still produce distinct
	// cursors so the (created_at, id) tuple comparison stays strict.
	at := time.Now().UTC()
	a := EncodeCursor(at, uuid.New())
	b := EncodeCursor(at, uuid.New())
	if a == b {
		t.Fatal("cursors for distinct documents must differ")
	}
}
