package eufy

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"
)

// Devices announce themselves over UDP: port 6666 carries plaintext
// JSON, port 6667 the same JSON encrypted with the fixed UDP key. Both
// use the standard frame envelope around the payload.
const (
	discoveryPortPlain     = 6666
	discoveryPortEncrypted = 6667
)

type discoveredDevice struct {
	DeviceID   string `json:"gwId"`
	IP         string `json:"ip"`
	ProductKey string `json:"productKey"`
	Version    string `json:"version"`
}

// discover listens on both broadcast ports until the timeout elapses
// and returns device id to announcement, last announcement winning.
func discover(ctx context.Context, timeout time.Duration) (map[string]discoveredDevice, error) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	found := make(map[string]discoveredDevice)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for _, port := range []int{discoveryPortPlain, discoveryPortEncrypted} {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		_ = conn.SetReadDeadline(deadline)
		wg.Add(1)
		go func(conn *net.UDPConn) {
			defer wg.Done()
			defer conn.Close()
			buf := make([]byte, 2048)
			for {
				n, _, err := conn.ReadFromUDP(buf)
				if err != nil {
					return
				}
				dev, err := decodeBroadcast(buf[:n])
				if err != nil || dev.DeviceID == "" || dev.IP == "" {
					continue
				}
				mu.Lock()
				found[dev.DeviceID] = dev
				mu.Unlock()
			}
		}(conn)
	}

	wg.Wait()
	if len(found) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return found, nil
}

func decodeBroadcast(data []byte) (discoveredDevice, error) {
	payload := data
	// Strip the frame envelope when present; some firmwares broadcast
	// the bare JSON.
	if len(data) > frameHeaderLen+frameTrailerLen && data[0] == 0x00 && data[2] == 0x55 && data[3] == 0xAA {
		payload = data[frameHeaderLen+4 : len(data)-frameTrailerLen]
	}

	var dev discoveredDevice
	if err := json.Unmarshal(payload, &dev); err == nil {
		return dev, nil
	}

	plain, err := aesECBDecrypt(payload, udpKey())
	if err != nil {
		return discoveredDevice{}, errors.New("broadcast is neither plain nor encrypted json")
	}
	if err := json.Unmarshal(plain, &dev); err != nil {
		return discoveredDevice{}, err
	}
	return dev, nil
}
