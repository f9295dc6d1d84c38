package eufy

import "testing"

func TestDecodeDPPayload(t *testing.T) {
	snap, err := decodeDPPayload([]byte(`{"devId":"dev1","dps":{"8":100,"2":true,"5":"auto"}}`))
	if err != nil {
		t.Fatalf("decodeDPPayload: %v", err)
	}
	if v, ok := snap["8"].(float64); !ok || v != 100 {
		t.Fatalf("dps 8 = %v", snap["8"])
	}
	if v, ok := snap["2"].(bool); !ok || !v {
		t.Fatalf("dps 2 = %v", snap["2"])
	}
	if v, ok := snap["5"].(string); !ok || v != "auto" {
		t.Fatalf("dps 5 = %v", snap["5"])
	}
}

func TestDecodeDPPayloadErrors(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("not json"),
		[]byte(`{"devId":"dev1"}`),
	}
	for _, payload := range cases {
		if _, err := decodeDPPayload(payload); err == nil {
			t.Errorf("decodeDPPayload(%q) should fail", payload)
		}
	}
}
