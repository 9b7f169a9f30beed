package updates

import "testing"

func TestFixUnicodeStringLittleEndian(t *testing.T) {
	got := fixUnicodeString("ÿþH\x00i\x00")
	if got != "Hi" {
		t.Errorf("fixUnicodeString(LE) = %q, want %q", got, "Hi")
	}
}

func TestFixUnicodeStringBigEndian(t *testing.T) {
	got := fixUnicodeString("þÿ\x00H\x00i")
	if got != "Hi" {
		t.Errorf("fixUnicodeString(BE) = %q, want %q", got, "Hi")
	}
}

func TestFixUnicodeStringPassesThroughUnprefixed(t *testing.T) {
	for _, s := range []string{"hello", "", "日本語", "already valid utf-8"} {
		if got := fixUnicodeString(s); got != s {
			t.Errorf("fixUnicodeString(%q) = %q, want unchanged", s, got)
		}
	}
}

func TestFixUnicodeStringOddPayloadIsReplacementChar(t *testing.T) {
	got := fixUnicodeString("ÿþH\x00i")
	if got != "�" {
		t.Errorf("fixUnicodeString(odd-length payload) = %q, want U+FFFD", got)
	}
}

func TestFixUnicodeStringBareBOMIsEmpty(t *testing.T) {
	// Just the 4-byte mangled BOM with no payload behind it: zero UTF-16
	// units to decode, so the result is the empty string, not U+FFFD.
	got := fixUnicodeString("ÿþ")
	if got != "" {
		t.Errorf("fixUnicodeString(bare BOM) = %q, want empty string", got)
	}
}
