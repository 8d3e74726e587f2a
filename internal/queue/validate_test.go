package queue

import (
	"errors"
	"testing"
)

func TestValidateChannelFallbacks(t *testing.T) {
	t.Parallel()
	def := Defaults{ChannelID: "100"}
	tests := []struct {
		name     string
		token    string
		wantID   string
		wantName string
		wantFB   Fallback
	}{
		{name: "selected", token: "555|Guild - general", wantID: "555", wantName: "Guild - general", wantFB: FallbackNone},
		{name: "missing", token: "", wantID: "100", wantName: LabelDefault, wantFB: FallbackMissing},
		{name: "garbage", token: "garbage", wantID: "100", wantName: LabelDefaultParseError, wantFB: FallbackParseError},
		{name: "non numeric id", token: "abc|general", wantID: "100", wantName: LabelDefaultParseError, wantFB: FallbackParseError},
		{name: "empty name", token: "555|", wantID: "555", wantName: LabelUnknown, wantFB: FallbackNone},
		{name: "pipe in name", token: "555|a|b", wantID: "555", wantName: "a|b", wantFB: FallbackNone},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			it, fb, err := Validate(Submission{Content: "hi", DateTime: "2024-01-01T10:00", ChannelSelect: tt.token}, def)
			if err != nil {
				t.Fatalf("Validate error: %v", err)
			}
			if it.ChannelID != tt.wantID || it.ChannelName != tt.wantName {
				t.Fatalf("channel = %q/%q, want %q/%q", it.ChannelID, it.ChannelName, tt.wantID, tt.wantName)
			}
			if fb != tt.wantFB {
				t.Fatalf("fallback = %v, want %v", fb, tt.wantFB)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		sub  Submission
		want error
	}{
		{name: "empty message", sub: Submission{Content: "  ", DateTime: "2024-01-01T10:00"}, want: ErrEmptyMessage},
		{name: "missing time", sub: Submission{Content: "x"}, want: ErrBadSendTime},
		{name: "bad time", sub: Submission{Content: "x", DateTime: "tomorrow"}, want: ErrBadSendTime},
		{name: "bad month", sub: Submission{Content: "x", DateTime: "2024-13-01T10:00"}, want: ErrBadSendTime},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Validate(tt.sub, Defaults{ChannelID: "1"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want it to wrap ErrValidation", err)
			}
		})
	}
}

func TestParseSendTimeNormalizes(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"2024-01-01T10:00", "2024-01-01T10:00:59", "2024-01-01 10:00", " 2024-01-01 10:00:00 "} {
		got, err := ParseSendTime(raw)
		if err != nil {
			t.Fatalf("ParseSendTime(%q) error: %v", raw, err)
		}
		if got != "2024-01-01T10:00" {
			t.Fatalf("ParseSendTime(%q) = %q", raw, got)
		}
	}
}

func TestParseMention(t *testing.T) {
	t.Parallel()
	tests := []struct {
		token string
		want  Mention
	}{
		{token: "", want: Mention{}},
		{token: "none", want: Mention{}},
		{token: "everyone", want: Everyone()},
		{token: "here", want: Here()},
		{token: "777|Guild - Mods", want: Role("777", "Guild - Mods")},
		{token: "moderators", want: Mention{}},
		{token: "x|Mods", want: Mention{}},
	}
	for _, tt := range tests {
		if got := ParseMention(tt.token); got != tt.want {
			t.Fatalf("ParseMention(%q) = %+v, want %+v", tt.token, got, tt.want)
		}
	}
}

func TestCheckPassword(t *testing.T) {
	t.Parallel()
	if err := CheckPassword("secret", "secret"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := CheckPassword("nope", "secret"); !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	if err := CheckPassword("", ""); !errors.Is(err, ErrAuth) {
		t.Fatalf("empty configured secret must never match, got %v", err)
	}
}
