package eufy

import (
	"bytes"
	"testing"
)

func TestAESECBRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef")
	for _, plain := range [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("exactly 16 bytes"),
		[]byte(`{"dps":{"8":100,"153":"BgAEAAE="}}`),
	} {
		encrypted, err := aesECBEncrypt(plain, key)
		if err != nil {
			t.Fatalf("encrypt %q: %v", plain, err)
		}
		if len(encrypted)%16 != 0 {
			t.Fatalf("ciphertext length %d not block aligned", len(encrypted))
		}
		decrypted, err := aesECBDecrypt(encrypted, key)
		if err != nil {
			t.Fatalf("decrypt %q: %v", plain, err)
		}
		if !bytes.Equal(decrypted, plain) {
			t.Fatalf("round trip = %q, want %q", decrypted, plain)
		}
	}
}

func TestAESECBDecryptRejectsBadInput(t *testing.T) {
	key := []byte("0123456789abcdef")
	if _, err := aesECBDecrypt([]byte("short"), key); err == nil {
		t.Fatalf("expected error for unaligned ciphertext")
	}
	if _, err := aesECBDecrypt(nil, key); err == nil {
		t.Fatalf("expected error for empty ciphertext")
	}
}

func TestUDPKeyDerivation(t *testing.T) {
	key := udpKey()
	if len(key) != 16 {
		t.Fatalf("udp key length = %d, want 16", len(key))
	}
	if !bytes.Equal(key, udpKey()) {
		t.Fatalf("udp key must be deterministic")
	}
}

func TestPKCS7Unpad(t *testing.T) {
	if _, err := pkcs7Unpad([]byte{1, 2, 3}, 16); err == nil {
		t.Fatalf("expected error for unaligned data")
	}
	data := pkcs7Pad([]byte("abc"), 16)
	data[len(data)-1] = 0xFF
	if _, err := pkcs7Unpad(data, 16); err == nil {
		t.Fatalf("expected error for corrupted padding")
	}
}
