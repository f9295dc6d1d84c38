package eufy

// decodeVarint reads a base-128 varint from data starting at pos.
// Low 7 bits of each byte accumulate little-endian; bit 7 marks
// continuation. Truncated input stops at the end of data instead of
// failing, so a short blob degrades the value rather than erroring.
// Returns the decoded value and the position after the last byte read.
func decodeVarint(data []byte, pos int) (int, int) {
	value := 0
	shift := 0
	for pos < len(data) {
		b := data[pos]
		value |= int(b&0x7F) << shift
		pos++
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return value, pos
}
