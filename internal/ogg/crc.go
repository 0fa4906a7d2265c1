package ogg

// crcTable is the Ogg container's CRC-32 lookup table: polynomial
// 0x04c11db7, no reflection, zero init/final xor — distinct from the
// standard IEEE/zlib CRC-32 that hash/crc32 provides. Grounded on the
// well-known Ogg/Vorbis page-checksum algorithm (the reference libogg
// "ogg_crc_table" values), since neither the teacher nor the rest of the
// pack carries an Ogg CRC implementation.
var crcTable = buildCRCTable()

func buildCRCTable() [256]uint32 {
	const poly = uint32(0x04c11db7)
	var table [256]uint32
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for bit := 0; bit < 8; bit++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

// CRC32 computes the Ogg page checksum over a full page (with the checksum
// field itself zeroed), per spec.md §4.5's "recompute CRCs" write step.
func CRC32(data []byte) uint32 {
	var crc uint32
	for _, b := range data {
		crc = (crc << 8) ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}
