package tagmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderParseTextRoundTripAllEncodings(t *testing.T) {
	values := []string{"héllo", "wörld"}
	for _, enc := range []Encoding{EncodingLatin1, EncodingUTF16, EncodingUTF16BE, EncodingUTF8} {
		body := RenderText(enc, values)
		got := ParseText(body)
		assert.Equal(t, values, got, "encoding byte %d", enc)
	}
}

// Regression: decodeUTF16 must honor the requested byte order, not just the
// BOM policy — EncodingUTF16BE payloads have no BOM and are big-endian.
func TestParseTextUTF16BEDecodesBigEndian(t *testing.T) {
	// "AB" as UTF-16BE code units, no BOM: 0x0041 0x0042.
	payload := []byte{0x00, 0x41, 0x00, 0x42}
	body := append([]byte{byte(EncodingUTF16BE)}, payload...)
	got := ParseText(body)
	assert.Equal(t, []string{"AB"}, got)
}

func TestRenderTextUTF16BEMatchesParseTextUTF16BE(t *testing.T) {
	body := RenderText(EncodingUTF16BE, []string{"AB"})
	got := ParseText(body)
	assert.Equal(t, []string{"AB"}, got)
}

func TestParseTextUTF16LEWithBOM(t *testing.T) {
	// BOM (LE) + "AB" as UTF-16LE code units: 0x0041 0x0042.
	payload := []byte{0xFF, 0xFE, 0x41, 0x00, 0x42, 0x00}
	body := append([]byte{byte(EncodingUTF16)}, payload...)
	got := ParseText(body)
	assert.Equal(t, []string{"AB"}, got)
}

func TestParseTextUTF16BEAndUTF16LEDisagreeOnSwappedBytes(t *testing.T) {
	// The same two bytes per code unit decode to different text depending on
	// the declared encoding byte — this is exactly the bug a hardcoded
	// byte order would hide.
	payload := []byte{0x00, 0x41, 0x00, 0x42} // big-endian "AB"
	be := ParseText(append([]byte{byte(EncodingUTF16BE)}, payload...))
	assert.Equal(t, []string{"AB"}, be)
	// Behind an LE BOM the same code units read as U+4100 U+4200.
	le := ParseText(append([]byte{byte(EncodingUTF16), 0xFF, 0xFE}, payload...))
	assert.Equal(t, []string{"䄀䈀"}, le)
}

func TestRenderTextMultiValueAllEncodings(t *testing.T) {
	for _, enc := range []Encoding{EncodingLatin1, EncodingUTF16, EncodingUTF16BE, EncodingUTF8} {
		body := RenderText(enc, []string{"a", "b", "c"})
		got := ParseText(body)
		assert.Equal(t, []string{"a", "b", "c"}, got, "encoding byte %d", enc)
	}
}
