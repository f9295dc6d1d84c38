package eufy

import (
	"encoding/base64"

	"github.com/rs/zerolog/log"
)

// Statistics holds the cumulative counters recovered from the DP 167
// blob. Total cleaning time is also in there somewhere, but its position
// has not been identified, so it is deliberately not part of this struct.
type Statistics struct {
	TotalCount *int
	TotalArea  *int
}

// parseStatistics decodes the base64 DP 167 value and extracts the two
// known fields. The blob is a tag/length-value encoding reverse-engineered
// from observed S1 Pro output:
//
//   - total count is the last field written, tagged 0x18 (field 3,
//     varint wire type), so the tag is probed from the end at len-2,
//     len-3, len-4 in that order;
//   - total area is a 2-byte varint at the fixed offsets 14..15.
//
// Malformed or short input never errors; missing fields stay nil.
func parseStatistics(raw string) Statistics {
	var stats Statistics

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		log.Debug().Err(err).Msg("eufy: statistics blob is not valid base64")
		return stats
	}
	if len(data) == 0 {
		return stats
	}

	stats.TotalCount = parseTotalCount(data)
	stats.TotalArea = parseTotalArea(data)
	return stats
}

func parseTotalCount(data []byte) *int {
	n := len(data)
	switch {
	case n >= 2 && data[n-2] == 0x18:
		// 1-byte varint, values 0..127.
		v := int(data[n-1])
		return &v
	case n >= 3 && data[n-3] == 0x18:
		b1, b2 := data[n-2], data[n-1]
		var v int
		if b1&0x80 != 0 {
			v = int(b1&0x7F) + int(b2)<<7
		} else {
			// b1 was already a complete value; b2 is unrelated trailing data.
			v = int(b1)
		}
		return &v
	case n >= 4 && data[n-4] == 0x18:
		b1, b2, b3 := data[n-3], data[n-2], data[n-1]
		var v int
		switch {
		case b1&0x80 != 0 && b2&0x80 != 0:
			v = int(b1&0x7F) + int(b2&0x7F)<<7 + int(b3)<<14
		case b1&0x80 != 0:
			v = int(b1&0x7F) + int(b2)<<7
		default:
			v = int(b1)
		}
		return &v
	}
	return nil
}

func parseTotalArea(data []byte) *int {
	// Fixed position for this device family; no tag check.
	if len(data) < 16 {
		return nil
	}
	b1, b2 := data[14], data[15]
	var v int
	if b1&0x80 != 0 {
		v = int(b1&0x7F) + int(b2)<<7
	} else {
		v = int(b1)
	}
	return &v
}
