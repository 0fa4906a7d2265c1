package mp4

import "github.com/kestrel-audio/tagcore/internal/bytecursor"

// findEsds scans a raw byte region (the tail of an mp4a sample entry,
// after its fixed sound-description header) for a nested "esds" atom,
// since mp4a isn't in containerTypes and so its children were kept opaque
// by the main atom walk.
func findEsds(region []byte) ([]byte, bool) {
	c := bytecursor.New(region)
	atoms, err := ReadAtoms(c)
	if err != nil && len(atoms) == 0 {
		return nil, false
	}
	for _, a := range atoms {
		if a.Type == "esds" {
			return a.Payload, true
		}
	}
	return nil, false
}

// parseEsdsObjectType extracts the MPEG-4 audio object type from an esds
// box's ES_Descriptor / DecoderConfigDescriptor / DecoderSpecificInfo chain
// (ISO 14496-1). esds bodies are a sequence of tag-length-value descriptors
// using a variable-length-size encoding (continuation bit in each length
// byte's high bit); we only need the top 5 bits of the DecoderSpecificInfo
// (tag 0x05)'s first byte.
func parseEsdsObjectType(body []byte) (int, bool) {
	if len(body) < 4 {
		return 0, false
	}
	// Skip the 4-byte version/flags prefix before the descriptor chain.
	return scanDescriptors(body[4:])
}

// scanDescriptors walks a sequence of tag-length-value descriptors looking
// for a DecoderSpecificInfo (tag 0x05), recursing into an ES_Descriptor
// (tag 0x03) and a DecoderConfigDescriptor (tag 0x04) since that's where
// it's nested in practice.
func scanDescriptors(body []byte) (int, bool) {
	pos := 0
	for pos < len(body) {
		tag := body[pos]
		pos++
		size, n, ok := readDescriptorSize(body[pos:])
		if !ok {
			return 0, false
		}
		pos += n
		if pos+size > len(body) {
			return 0, false
		}
		descBody := body[pos : pos+size]
		pos += size

		switch tag {
		case 0x03: // ES_Descriptor: ES_ID(2) + flags(1) precede its own chain
			if len(descBody) < 3 {
				return 0, false
			}
			if objType, ok := scanDescriptors(descBody[3:]); ok {
				return objType, true
			}
		case 0x04: // DecoderConfigDescriptor: 13 fixed bytes precede its own chain
			if len(descBody) < 13 {
				return 0, false
			}
			return scanDescriptors(descBody[13:])
		case 0x05: // DecoderSpecificInfo: AudioSpecificConfig's audio object type
			if len(descBody) < 1 {
				return 0, false
			}
			return int(descBody[0] >> 3), true
		}
	}
	return 0, false
}

// readDescriptorSize decodes esds's variable-length size field: up to four
// bytes, continuation bit in each byte's top bit, seven size bits each.
func readDescriptorSize(b []byte) (size int, consumed int, ok bool) {
	for i := 0; i < 4 && i < len(b); i++ {
		size = (size << 7) | int(b[i]&0x7F)
		consumed++
		if b[i]&0x80 == 0 {
			return size, consumed, true
		}
	}
	return 0, 0, false
}
