package eufy

import (
	"encoding/binary"
	"testing"
)

const broadcastJSON = `{"ip":"192.168.1.50","gwId":"dev1","productKey":"s1pro","version":"3.3"}`

func envelope(payload []byte) []byte {
	frame := make([]byte, frameHeaderLen)
	binary.BigEndian.PutUint32(frame[0:4], framePrefix)
	binary.BigEndian.PutUint32(frame[8:12], 0x13)
	binary.BigEndian.PutUint32(frame[12:16], uint32(4+len(payload)+frameTrailerLen))
	frame = append(frame, 0, 0, 0, 0)
	frame = append(frame, payload...)
	return append(frame, make([]byte, frameTrailerLen)...)
}

func TestDecodeBroadcastPlain(t *testing.T) {
	dev, err := decodeBroadcast([]byte(broadcastJSON))
	if err != nil {
		t.Fatalf("decodeBroadcast: %v", err)
	}
	if dev.DeviceID != "dev1" || dev.IP != "192.168.1.50" {
		t.Fatalf("unexpected device: %+v", dev)
	}
}

func TestDecodeBroadcastFramed(t *testing.T) {
	dev, err := decodeBroadcast(envelope([]byte(broadcastJSON)))
	if err != nil {
		t.Fatalf("decodeBroadcast: %v", err)
	}
	if dev.DeviceID != "dev1" || dev.Version != "3.3" {
		t.Fatalf("unexpected device: %+v", dev)
	}
}

func TestDecodeBroadcastEncrypted(t *testing.T) {
	encrypted, err := aesECBEncrypt([]byte(broadcastJSON), udpKey())
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	dev, err := decodeBroadcast(envelope(encrypted))
	if err != nil {
		t.Fatalf("decodeBroadcast: %v", err)
	}
	if dev.DeviceID != "dev1" || dev.ProductKey != "s1pro" {
		t.Fatalf("unexpected device: %+v", dev)
	}
}

func TestDecodeBroadcastGarbage(t *testing.T) {
	if _, err := decodeBroadcast([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Fatalf("expected error for garbage broadcast")
	}
}
