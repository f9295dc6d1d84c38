package eufy

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestDecodeVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 7, 127, 128, 148, 300, 16383, 16384, 1<<21 - 1}
	for _, want := range values {
		data := protowire.AppendVarint(nil, want)
		got, next := decodeVarint(data, 0)
		if uint64(got) != want {
			t.Errorf("decodeVarint(%v) = %d, want %d", data, got, want)
		}
		if next != len(data) {
			t.Errorf("decodeVarint(%v) consumed %d bytes, want %d", data, next, len(data))
		}
	}
}

func TestDecodeVarintOffset(t *testing.T) {
	data := append([]byte{0xFF, 0xFF}, protowire.AppendVarint(nil, 300)...)
	got, next := decodeVarint(data, 2)
	if got != 300 {
		t.Fatalf("decodeVarint at offset = %d, want 300", got)
	}
	if next != len(data) {
		t.Fatalf("next = %d, want %d", next, len(data))
	}
}

func TestDecodeVarintTruncated(t *testing.T) {
	// 300 is 0xAC 0x02; dropping the final byte leaves the low 7 bits.
	got, next := decodeVarint([]byte{0xAC}, 0)
	if got != 0x2C {
		t.Fatalf("truncated decode = %d, want %d", got, 0x2C)
	}
	if next != 1 {
		t.Fatalf("next = %d, want 1", next)
	}
}

func TestDecodeVarintPastEnd(t *testing.T) {
	got, next := decodeVarint([]byte{0x01}, 5)
	if got != 0 || next != 5 {
		t.Fatalf("decode past end = (%d, %d), want (0, 5)", got, next)
	}
}
