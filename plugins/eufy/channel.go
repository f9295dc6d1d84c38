package eufy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	localPort      = 6668
	localHeartbeat = 10 * time.Second
	localTimeout   = 5 * time.Second
)

// localChannel is one TCP connection to a device speaking the Tuya
// local protocol. Responses are fanned out to subscribers; the channel
// sends heartbeats so the device keeps the socket open.
type localChannel struct {
	host     string
	deviceID string
	localKey []byte

	conn    net.Conn
	decoder *frameDecoder
	seq     uint32
	mu      sync.Mutex

	subscribers map[int]func(tuyaMessage)
	nextSubID   int
	closed      chan struct{}
}

func newLocalChannel(host, deviceID, localKey string) *localChannel {
	return &localChannel{
		host:        host,
		deviceID:    deviceID,
		localKey:    []byte(localKey),
		subscribers: make(map[int]func(tuyaMessage)),
		closed:      make(chan struct{}),
	}
}

func (c *localChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", c.host, localPort))
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("dial %s: %w", c.host, err)
	}
	c.conn = conn
	c.decoder = newFrameDecoder(c.localKey)
	c.mu.Unlock()

	go c.readLoop()
	go c.keepAlive()
	return nil
}

func (c *localChannel) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			c.Close()
			return
		}
		messages, err := c.decoder.Feed(buf[:n])
		if err != nil {
			log.Debug().Err(err).Str("device_id", c.deviceID).Msg("eufy: dropping undecodable frame")
		}
		c.mu.Lock()
		subs := make([]func(tuyaMessage), 0, len(c.subscribers))
		for _, cb := range c.subscribers {
			subs = append(subs, cb)
		}
		c.mu.Unlock()
		for _, msg := range messages {
			for _, cb := range subs {
				cb(msg)
			}
		}
	}
}

func (c *localChannel) keepAlive() {
	ticker := time.NewTicker(localHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), localTimeout)
			_ = c.send(ctx, tuyaMessage{Cmd: cmdHeartbeat})
			cancel()
		}
	}
}

func (c *localChannel) Subscribe(cb func(tuyaMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = cb
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

func (c *localChannel) send(ctx context.Context, msg tuyaMessage) error {
	c.mu.Lock()
	conn := c.conn
	if msg.Seq == 0 {
		c.seq++
		msg.Seq = c.seq
	}
	c.mu.Unlock()
	if conn == nil {
		return errors.New("local channel not connected")
	}
	frame, err := encodeFrame(msg, c.localKey)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(localTimeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err = conn.Write(frame)
	_ = conn.SetWriteDeadline(time.Time{})
	return err
}

// QueryDP issues a DP_QUERY and returns the device's dps map. Both the
// direct query response and a proactive status push satisfy the wait.
func (c *localChannel) QueryDP(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, localTimeout)
	defer cancel()

	respCh := make(chan Snapshot, 1)
	unsub := c.Subscribe(func(msg tuyaMessage) {
		if msg.Cmd != cmdDPQuery && msg.Cmd != cmdStatus {
			return
		}
		snap, err := decodeDPPayload(msg.Payload)
		if err != nil {
			log.Debug().Err(err).Str("device_id", c.deviceID).Msg("eufy: unparseable dp payload")
			return
		}
		select {
		case respCh <- snap:
		default:
		}
	})
	defer unsub()

	payload, err := json.Marshal(map[string]any{
		"gwId":  c.deviceID,
		"devId": c.deviceID,
		"uid":   c.deviceID,
		"t":     fmt.Sprintf("%d", time.Now().Unix()),
	})
	if err != nil {
		return nil, err
	}
	if err := c.send(ctx, tuyaMessage{Cmd: cmdDPQuery, Payload: payload}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case snap := <-respCh:
		return snap, nil
	}
}

func decodeDPPayload(payload []byte) (Snapshot, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty dp payload")
	}
	var body struct {
		DPS map[string]any `json:"dps"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, err
	}
	if body.DPS == nil {
		return nil, errors.New("payload has no dps object")
	}
	return Snapshot(body.DPS), nil
}

func (c *localChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
