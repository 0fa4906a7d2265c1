package mp4

import "github.com/kestrel-audio/tagcore/internal/tagmodel"

// Well-known data type codes inside a "data" atom's flags field (spec.md
// §4.6 "Tags").
const (
	dataTypeImplicit  = 0
	dataTypeUTF8      = 1
	dataTypeUTF16BE   = 2
	dataTypeJPEG      = 13
	dataTypePNG       = 14
	dataTypeSignedInt = 21
	dataTypeUnsigned  = 22
)

// ParseIlst decodes moov/udta/meta/ilst into a Collection, mapping each
// child atom's four-byte type (or a freeform "----:mean:name" triple) to
// its value per spec.md §4.6 "Tags".
func ParseIlst(ilst Atom) *tagmodel.Collection {
	col := tagmodel.NewCollection(false)
	for _, child := range ilst.Children {
		if child.Type == "----" {
			key, v, ok := parseFreeform(child)
			if ok {
				col.Add(key, v)
			}
			continue
		}
		if v, ok := parseTagAtom(child); ok {
			col.Add(child.Type, v)
		}
	}
	return col
}

// parseTagAtom decodes every "data" child of an ilst entry into one Value.
func parseTagAtom(atom Atom) (tagmodel.Value, bool) {
	dataChildren := atom.FindAll("data")
	if len(dataChildren) == 0 {
		return tagmodel.Value{}, false
	}

	switch atom.Type {
	case "trkn", "disk":
		var pairs []tagmodel.Pair
		for _, d := range dataChildren {
			p, ok := parseTrknPayload(dataPayload(d))
			if ok {
				pairs = append(pairs, p)
			}
		}
		if len(pairs) == 0 {
			return tagmodel.Value{}, false
		}
		return tagmodel.NewPairs(pairs...), true
	case "covr":
		var pics []tagmodel.Picture
		for _, d := range dataChildren {
			typeCode := dataTypeCode(d)
			mime := "image/jpeg"
			if typeCode == dataTypePNG {
				mime = "image/png"
			}
			pics = append(pics, tagmodel.Picture{MIME: mime, Data: dataPayload(d)})
		}
		return tagmodel.Value{Kind: tagmodel.KindPicture, Pictures: pics}, true
	default:
		var texts []string
		var bins [][]byte
		isText := false
		for _, d := range dataChildren {
			switch dataTypeCode(d) {
			case dataTypeUTF8, dataTypeImplicit:
				texts = append(texts, string(dataPayload(d)))
				isText = true
			case dataTypeUTF16BE:
				texts = append(texts, decodeUTF16BE(dataPayload(d)))
				isText = true
			default:
				bins = append(bins, dataPayload(d))
			}
		}
		if isText {
			return tagmodel.NewText(texts...), true
		}
		if len(bins) > 0 {
			return tagmodel.NewBinary(bins...), true
		}
		return tagmodel.Value{}, false
	}
}

func parseFreeform(atom Atom) (string, tagmodel.Value, bool) {
	mean, ok := atom.Find("mean")
	if !ok || len(mean.Payload) < 4 {
		return "", tagmodel.Value{}, false
	}
	name, ok := atom.Find("name")
	if !ok || len(name.Payload) < 4 {
		return "", tagmodel.Value{}, false
	}
	key := "----:" + string(mean.Payload[4:]) + ":" + string(name.Payload[4:])

	var texts []string
	for _, d := range atom.FindAll("data") {
		texts = append(texts, string(dataPayload(d)))
	}
	if len(texts) == 0 {
		return "", tagmodel.Value{}, false
	}
	return key, tagmodel.NewText(texts...), true
}

// dataPayload strips a "data" atom's 8-byte [version:1, flags:3, reserved:4]
// prefix.
func dataPayload(d Atom) []byte {
	if len(d.Payload) < 8 {
		return nil
	}
	return d.Payload[8:]
}

func dataTypeCode(d Atom) uint32 {
	if len(d.Payload) < 4 {
		return 0
	}
	return be32(d.Payload[0:4]) & 0x00FFFFFF
}

// parseTrknPayload decodes [reserved:2, current:u16-BE, total:u16-BE,
// (reserved:2)] (spec.md §4.6 edge case 6).
func parseTrknPayload(payload []byte) (tagmodel.Pair, bool) {
	if len(payload) < 6 {
		return tagmodel.Pair{}, false
	}
	current := be16(payload[2:4])
	total := be16(payload[4:6])
	return tagmodel.Pair{Current: int(current), Total: int(total)}, true
}

func decodeUTF16BE(b []byte) string {
	var runes []rune
	for i := 0; i+1 < len(b); i += 2 {
		runes = append(runes, rune(uint16(b[i])<<8|uint16(b[i+1])))
	}
	return string(runes)
}

// EncodeIlst builds a fresh "ilst" Atom from col, the inverse of ParseIlst.
func EncodeIlst(col *tagmodel.Collection) Atom {
	children := []Atom{}
	col.Each(func(key string, v tagmodel.Value) {
		if child, ok := encodeTagAtom(key, v); ok {
			children = append(children, child)
		}
	})
	return Atom{Type: "ilst", Children: children}
}

func encodeTagAtom(key string, v tagmodel.Value) (Atom, bool) {
	if len(key) > 5 && key[:5] == "----:" {
		return encodeFreeform(key, v)
	}

	var dataChildren []Atom
	switch v.Kind {
	case tagmodel.KindPair:
		for _, p := range v.Pairs {
			payload := []byte{0, 0, byte(p.Current >> 8), byte(p.Current), byte(p.Total >> 8), byte(p.Total), 0, 0}
			dataChildren = append(dataChildren, makeDataAtom(dataTypeImplicit, payload))
		}
	case tagmodel.KindPicture:
		for _, pic := range v.Pictures {
			typeCode := uint32(dataTypeJPEG)
			if pic.MIME == "image/png" {
				typeCode = dataTypePNG
			}
			dataChildren = append(dataChildren, makeDataAtom(typeCode, pic.Data))
		}
	case tagmodel.KindBinary:
		for _, b := range v.Binary {
			dataChildren = append(dataChildren, makeDataAtom(dataTypeImplicit, b))
		}
	default:
		for _, t := range v.Text {
			dataChildren = append(dataChildren, makeDataAtom(dataTypeUTF8, []byte(t)))
		}
	}
	if len(dataChildren) == 0 {
		return Atom{}, false
	}
	return Atom{Type: key, Children: dataChildren}, true
}

func encodeFreeform(key string, v tagmodel.Value) (Atom, bool) {
	rest := key[5:]
	sep := -1
	for i, c := range rest {
		if c == ':' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return Atom{}, false
	}
	mean, name := rest[:sep], rest[sep+1:]

	var dataChildren []Atom
	for _, t := range v.Text {
		dataChildren = append(dataChildren, makeDataAtom(dataTypeUTF8, []byte(t)))
	}
	if len(dataChildren) == 0 {
		return Atom{}, false
	}

	meanAtom := Atom{Type: "mean", Payload: append([]byte{0, 0, 0, 0}, []byte(mean)...)}
	nameAtom := Atom{Type: "name", Payload: append([]byte{0, 0, 0, 0}, []byte(name)...)}
	children := append([]Atom{meanAtom, nameAtom}, dataChildren...)
	return Atom{Type: "----", Children: children}, true
}

func makeDataAtom(typeCode uint32, payload []byte) Atom {
	header := []byte{0, byte(typeCode >> 16), byte(typeCode >> 8), byte(typeCode), 0, 0, 0, 0}
	return Atom{Type: "data", Payload: append(header, payload...)}
}
