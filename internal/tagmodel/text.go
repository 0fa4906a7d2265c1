package tagmodel

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding is an ID3v2 text-encoding byte (spec.md §4.2).
type Encoding byte

const (
	EncodingLatin1   Encoding = 0
	EncodingUTF16    Encoding = 1 // LE, BOM-prefixed
	EncodingUTF16BE  Encoding = 2
	EncodingUTF8     Encoding = 3
)

// replacementRune is substituted for malformed text per spec.md §4.2:
// "malformed text encoding -> replace with U+FFFD and continue".
const replacementRune = "�"

// RenderText serialises values as NUL-separated text in the given encoding,
// mirroring the teacher's SetText (internal/id3/frame.go), generalized to
// multi-value text and all four encodings via golang.org/x/text rather than
// a hand-rolled UTF-16 writer.
func RenderText(enc Encoding, values []string) []byte {
	joined := strings.Join(values, "\x00")

	var buf bytes.Buffer
	buf.WriteByte(byte(enc))

	switch enc {
	case EncodingLatin1:
		buf.Write(encodeLatin1(joined))
	case EncodingUTF16:
		buf.Write(encodeUTF16(joined, unicode.LittleEndian, unicode.UseBOM))
	case EncodingUTF16BE:
		buf.Write(encodeUTF16(joined, unicode.BigEndian, unicode.IgnoreBOM))
	default: // EncodingUTF8 and anything unrecognised fall back to UTF-8
		buf.WriteString(joined)
	}
	return buf.Bytes()
}

// ParseText decodes a text-frame body (encoding byte + payload) into its
// NUL-separated values. A trailing NUL is tolerated and omitted, matching
// spec.md §4.2. Malformed payloads never error; invalid code units become
// U+FFFD so parsing always continues (spec.md §4.2 error conditions).
func ParseText(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	enc := Encoding(data[0])
	payload := data[1:]

	var decoded string
	switch enc {
	case EncodingLatin1:
		decoded = decodeLatin1(payload)
	case EncodingUTF16:
		decoded = decodeUTF16(payload, unicode.LittleEndian, unicode.ExpectBOM)
	case EncodingUTF16BE:
		decoded = decodeUTF16(payload, unicode.BigEndian, unicode.IgnoreBOM)
	case EncodingUTF8:
		decoded = sanitizeUTF8(payload)
	default:
		decoded = replacementRune
	}

	decoded = strings.TrimSuffix(decoded, "\x00")
	if decoded == "" {
		return []string{""}
	}
	return strings.Split(decoded, "\x00")
}

// JoinNull renders values NUL-separated without an encoding byte, the
// shape used for Vorbis-comment-adjacent multi-value fields and for the
// "list-that-stringifies-specially" wrapper spec.md §9 calls out.
func JoinNull(values []string) string {
	return strings.Join(values, "\x00")
}

func encodeLatin1(s string) []byte {
	enc := charmap.ISO8859_1.NewEncoder()
	out, _, err := transform.Bytes(enc, []byte(s))
	if err != nil {
		// Non-Latin1 runes: best-effort substitution, never fail a render.
		out, _, _ = transform.Bytes(enc, []byte(sanitizeToLatin1(s)))
	}
	return append(out, 0x00)
}

func sanitizeToLatin1(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r > 0xFF {
			b.WriteRune('?')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func decodeLatin1(data []byte) string {
	dec := charmap.ISO8859_1.NewDecoder()
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return replacementRune
	}
	return string(out)
}

func encodeUTF16(s string, order unicode.Endianness, bom unicode.BOMPolicy) []byte {
	enc := unicode.UTF16(order, bom).NewEncoder()
	out, _, err := transform.Bytes(enc, []byte(s))
	if err != nil {
		return []byte{0xFF, 0xFE, 0x00, 0x00}
	}
	if bom == unicode.UseBOM {
		return append(out, 0x00, 0x00)
	}
	return append(out, 0x00, 0x00)
}

func decodeUTF16(data []byte, order unicode.Endianness, policy unicode.BOMPolicy) string {
	dec := unicode.UTF16(order, policy).NewDecoder()
	r := transform.NewReader(bytes.NewReader(data), dec)
	out, err := io.ReadAll(r)
	if err != nil {
		return replacementRune
	}
	return string(out)
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with U+FFFD rather than
// rejecting the whole frame, per spec.md §4.2.
func sanitizeUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b strings.Builder
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			b.WriteString(replacementRune)
			data = data[1:]
			continue
		}
		b.WriteRune(r)
		data = data[size:]
	}
	return b.String()
}
