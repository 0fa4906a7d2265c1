package tagmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTextMultiValue(t *testing.T) {
	// "a\x00b\x00c" must decode to ["a","b","c"] (spec.md §8 boundary case).
	body := append([]byte{byte(EncodingUTF8)}, []byte("a\x00b\x00c")...)
	got := ParseText(body)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestParseTextTrailingNulOmitted(t *testing.T) {
	body := append([]byte{byte(EncodingUTF8)}, []byte("Title\x00")...)
	got := ParseText(body)
	assert.Equal(t, []string{"Title"}, got)
}

func TestRenderTextReproducesExactBytes(t *testing.T) {
	out := RenderText(EncodingUTF8, []string{"a", "b", "c"})
	assert.Equal(t, append([]byte{byte(EncodingUTF8)}, []byte("a\x00b\x00c")...), out)
}

func TestTextFrameRoundTrip(t *testing.T) {
	for _, tc := range [][]string{
		{"Title"},
		{"测试标题"},
		{"テスト"},
		{"테스트"},
	} {
		body := SerialiseFrame("TIT2", "", "", NewText(tc...))
		pf := ParseFrame("TIT2", body, 4)
		assert.Equal(t, tc, pf.Value.Text)
	}
}

func TestPairedTextFrameRoundTrip(t *testing.T) {
	body := SerialiseFrame("TRCK", "", "", NewPairs(Pair{Current: 5, Total: 12}))
	pf := ParseFrame("TRCK", body, 4)
	assert.Equal(t, []Pair{{Current: 5, Total: 12}}, pf.Value.Pairs)
}

func TestUserTextFrameHashKey(t *testing.T) {
	body := SerialiseFrame("TXXX", "REPLAYGAIN_TRACK_GAIN", "", NewText("-6.0 dB"))
	pf := ParseFrame("TXXX", body, 4)
	assert.Equal(t, "TXXX:REPLAYGAIN_TRACK_GAIN", pf.Key)
	assert.Equal(t, []string{"-6.0 dB"}, pf.Value.Text)
}

func TestUserTextDuplicateDescriptionsGetDistinctKeys(t *testing.T) {
	b1 := SerialiseFrame("TXXX", "REPLAYGAIN_TRACK_GAIN", "", NewText("-6.0 dB"))
	b2 := SerialiseFrame("TXXX", "CUSTOM_TAG", "", NewText("hello"))

	p1 := ParseFrame("TXXX", b1, 4)
	p2 := ParseFrame("TXXX", b2, 4)

	assert.Equal(t, "TXXX:REPLAYGAIN_TRACK_GAIN", p1.Key)
	assert.Equal(t, "TXXX:CUSTOM_TAG", p2.Key)
	assert.NotEqual(t, p1.Key, p2.Key)
}

func TestCommentFrameRoundTrip(t *testing.T) {
	body := SerialiseFrame("COMM", "desc", "eng", NewText("hello world"))
	pf := ParseFrame("COMM", body, 4)
	assert.Equal(t, "COMM:desc:eng", pf.Key)
	assert.Equal(t, []string{"hello world"}, pf.Value.Text)
}

func TestPictureFrameRoundTrip(t *testing.T) {
	pic := Picture{MIME: "image/jpeg", Type: 3, Description: "cover", Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	body := SerialiseFrame("APIC", "", "", NewPicture(pic))
	pf := ParseFrame("APIC", body, 4)
	assert.Equal(t, "APIC:cover", pf.Key)
	assert.Equal(t, pic, pf.Value.Pictures[0])
}

func TestUnknownFrameRoundTripsOpaque(t *testing.T) {
	body := []byte{0x01, 0x02, 0x03}
	pf := ParseFrame("XFOO", body, 4)
	assert.Equal(t, body, pf.Opaque)
}

func TestHashKeySplit(t *testing.T) {
	id, sub, lang := SplitHashKey("COMM:desc:eng")
	assert.Equal(t, "COMM", id)
	assert.Equal(t, "desc", sub)
	assert.Equal(t, "eng", lang)

	id, sub, lang = SplitHashKey("TIT2")
	assert.Equal(t, "TIT2", id)
	assert.Equal(t, "", sub)
	assert.Equal(t, "", lang)
}

func TestCollectionPreservesInsertionOrderAndDuplicates(t *testing.T) {
	c := NewCollection(false)
	c.Add("TXXX:REPLAYGAIN_TRACK_GAIN", NewText("-6.0 dB"))
	c.Add("TXXX:CUSTOM_TAG", NewText("hello"))

	keys := c.Keys()
	assert.Equal(t, []string{"TXXX:REPLAYGAIN_TRACK_GAIN", "TXXX:CUSTOM_TAG"}, keys)
}

func TestCollectionVorbisCaseInsensitiveLookupPreservesCase(t *testing.T) {
	c := NewCollection(true)
	c.Add("ARTIST", NewText("Artist One"))
	c.Add("ARTIST", NewText("Artist Two"))
	c.Add("ARTIST", NewText("Artist Three"))

	all := c.GetAll("artist")
	assert.Len(t, all, 3)
	assert.Equal(t, "Artist One", all[0].Text[0])
	assert.Equal(t, "Artist Two", all[1].Text[0])
	assert.Equal(t, "Artist Three", all[2].Text[0])
	assert.Equal(t, "ARTIST", c.Keys()[0], "original-case spelling must be preserved on write")
}
