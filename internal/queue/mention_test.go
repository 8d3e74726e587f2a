package queue

import (
	"errors"
	"testing"

	"schedbot/internal/transport"
)

func TestMentionPayload(t *testing.T) {
	t.Parallel()
	tests := []struct {
		mention Mention
		want    string
	}{
		{mention: Mention{}, want: "hello"},
		{mention: Everyone(), want: "@everyone hello"},
		{mention: Here(), want: "@here hello"},
		{mention: Role("42", "Mods"), want: "<@&42> hello"},
	}
	for _, tt := range tests {
		it := Item{Message: "hello", Mention: tt.mention}
		if got := it.Payload(); got != tt.want {
			t.Fatalf("Payload(%v) = %q, want %q", tt.mention.Kind, got, tt.want)
		}
	}
}

func TestMentionColumnsRoundTrip(t *testing.T) {
	t.Parallel()
	for _, m := range []Mention{{}, Everyone(), Here(), Role("42", "Mods")} {
		got := MentionFromColumns(m.Column(), m.Label())
		if got != m {
			t.Fatalf("round trip %+v -> %+v", m, got)
		}
	}
}

func TestItemDue(t *testing.T) {
	t.Parallel()
	it := Item{SendTime: "2024-01-01T10:00"}
	if !it.Due("2024-01-01T10:00") || !it.Due("2024-01-01T10:05") {
		t.Fatal("expected item to be due at and after its send time")
	}
	if it.Due("2024-01-01T09:59") {
		t.Fatal("item must not be due before its send time")
	}
	if got := it.DisplayTime(); got != "2024-01-01 10:00" {
		t.Fatalf("DisplayTime = %q", got)
	}
}

func TestDeliveryErrorKinds(t *testing.T) {
	t.Parallel()
	it := Item{ID: 3, ChannelID: "9"}
	err := error(NewDeliveryError(it, transport.ErrPermissionDenied))
	if !errors.Is(err, transport.ErrPermissionDenied) {
		t.Fatalf("expected permission denied kind, got %v", err)
	}
	err = NewDeliveryError(it, errors.New("socket reset"))
	if !errors.Is(err, transport.ErrTransient) {
		t.Fatalf("expected transient kind, got %v", err)
	}
	var de *DeliveryError
	if !errors.As(err, &de) || de.ItemID != 3 {
		t.Fatalf("expected DeliveryError for item 3, got %v", err)
	}
}
