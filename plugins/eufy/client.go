package eufy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dracoqcca/eufyvac/internal/session"
)

// Device is one vacuum on the account.
type Device struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Model   string `json:"model"`
	IP      string `json:"ip,omitempty"`
	Version string `json:"version,omitempty"`
}

// DeviceTelemetry is the last derived reading for a device. Stale is
// set when the most recent poll failed and the values carry over from
// an earlier cycle.
type DeviceTelemetry struct {
	Device    Device    `json:"device"`
	Telemetry Telemetry `json:"telemetry"`
	DPS       Snapshot  `json:"dps,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Stale     bool      `json:"stale"`
}

// Client resolves devices through the Eufy and Tuya clouds and polls
// each one over the local protocol.
type Client struct {
	cfg  Config
	home *EufyHomeClient

	mu        sync.Mutex
	tuya      *TuyaAPISession
	devices   map[string]TuyaDevice
	channels  map[string]*localChannel
	ipCache   map[string]string
	overrides map[string]string
	derivers  map[string]*deriver
	readings  map[string]DeviceTelemetry
	publisher *Publisher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewClient(cfg Config, sessions *session.Manager) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:       cfg,
		home:      NewEufyHomeClient(sessions),
		devices:   make(map[string]TuyaDevice),
		channels:  make(map[string]*localChannel),
		ipCache:   make(map[string]string),
		overrides: cfg.IPOverrides,
		derivers:  make(map[string]*deriver),
		readings:  make(map[string]DeviceTelemetry),
	}, nil
}

// RefreshDevices rebuilds the device registry from the cloud.
func (c *Client) RefreshDevices(ctx context.Context) error {
	c.mu.Lock()
	tuya := c.tuya
	c.mu.Unlock()

	if tuya == nil {
		info, err := c.home.UserInfo(ctx)
		if err != nil {
			return err
		}
		countryCode := info.PhoneCode
		if countryCode == "" {
			countryCode = c.cfg.countryCode()
		}
		tuya = NewTuyaAPISession(info.ID, countryCode)
		c.mu.Lock()
		c.tuya = tuya
		c.mu.Unlock()
	}

	homes, err := tuya.ListHomes(ctx)
	if err != nil {
		return err
	}
	devices := make(map[string]TuyaDevice)
	for _, home := range homes {
		list, err := tuya.ListDevices(ctx, home.GroupID)
		if err != nil {
			return err
		}
		for _, dev := range list {
			if dev.LocalKey == "" {
				log.Warn().Str("device_id", dev.DevID).Msg("eufy: device has no local key, skipping")
				continue
			}
			devices[dev.DevID] = dev
		}
	}

	c.mu.Lock()
	c.devices = devices
	c.mu.Unlock()
	return nil
}

func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	if err := c.ensureDevices(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Device, 0, len(c.devices))
	for _, dev := range c.devices {
		out = append(out, Device{
			ID:    dev.DevID,
			Name:  dev.Name,
			Model: dev.ProductID,
			IP:    c.ipCache[dev.DevID],
		})
	}
	return out, nil
}

func (c *Client) ensureDevices(ctx context.Context) error {
	c.mu.Lock()
	n := len(c.devices)
	c.mu.Unlock()
	if n > 0 {
		return nil
	}
	return c.RefreshDevices(ctx)
}

// Start resolves the device list and launches one poll goroutine per
// device. Each goroutine owns that device's derived counters.
func (c *Client) Start(ctx context.Context) error {
	if err := c.ensureDevices(ctx); err != nil {
		return err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	devices := make([]TuyaDevice, 0, len(c.devices))
	for _, dev := range c.devices {
		devices = append(devices, dev)
	}
	c.mu.Unlock()

	for _, dev := range devices {
		c.wg.Add(1)
		go c.pollLoop(pollCtx, dev)
	}
	return nil
}

func (c *Client) pollLoop(ctx context.Context, dev TuyaDevice) {
	defer c.wg.Done()

	c.mu.Lock()
	d := c.derivers[dev.DevID]
	if d == nil {
		d = newDeriver(dev.DevID)
		c.derivers[dev.DevID] = d
	}
	c.mu.Unlock()

	ticker := time.NewTicker(c.cfg.pollInterval())
	defer ticker.Stop()

	c.pollOnce(ctx, dev, d)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx, dev, d)
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, dev TuyaDevice, d *deriver) {
	snap, err := c.querySnapshot(ctx, dev)
	if err != nil {
		log.Debug().Err(err).Str("device_id", dev.DevID).Msg("eufy: poll failed, keeping last reading")
		recordPollFailure(dev.DevID)
		c.markStale(dev)
		return
	}
	recordPollSuccess(dev.DevID)

	reading := DeviceTelemetry{
		Device: Device{
			ID:    dev.DevID,
			Name:  dev.Name,
			Model: dev.ProductID,
		},
		Telemetry: d.Derive(snap),
		DPS:       snap,
		UpdatedAt: time.Now(),
	}
	c.mu.Lock()
	reading.Device.IP = c.ipCache[dev.DevID]
	c.readings[dev.DevID] = reading
	publisher := c.publisher
	c.mu.Unlock()

	if publisher != nil {
		publisher.Publish(reading)
	}
}

// SetPublisher mirrors future readings to the given broker.
func (c *Client) SetPublisher(publisher *Publisher) {
	c.mu.Lock()
	c.publisher = publisher
	c.mu.Unlock()
}

func (c *Client) markStale(dev TuyaDevice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if reading, ok := c.readings[dev.DevID]; ok {
		reading.Stale = true
		c.readings[dev.DevID] = reading
	}
}

func (c *Client) querySnapshot(ctx context.Context, dev TuyaDevice) (Snapshot, error) {
	channel, err := c.getLocalChannel(ctx, dev)
	if err != nil {
		return nil, err
	}
	snap, err := channel.QueryDP(ctx)
	if err != nil {
		c.dropChannel(dev.DevID, channel)
		return nil, err
	}
	return snap, nil
}

// Telemetry reports the last reading for every device that has one.
func (c *Client) Telemetry() []DeviceTelemetry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DeviceTelemetry, 0, len(c.readings))
	for _, reading := range c.readings {
		out = append(out, reading)
	}
	return out
}

func (c *Client) DeviceTelemetry(deviceID string) (DeviceTelemetry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reading, ok := c.readings[deviceID]
	return reading, ok
}

func (c *Client) getLocalChannel(ctx context.Context, dev TuyaDevice) (*localChannel, error) {
	c.mu.Lock()
	if channel := c.channels[dev.DevID]; channel != nil {
		c.mu.Unlock()
		return channel, nil
	}
	c.mu.Unlock()

	ip, err := c.deviceIP(ctx, dev.DevID)
	if err != nil {
		return nil, err
	}
	channel := newLocalChannel(ip, dev.DevID, dev.LocalKey)
	if err := channel.Connect(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.channels[dev.DevID] = channel
	c.mu.Unlock()
	return channel, nil
}

func (c *Client) dropChannel(deviceID string, channel *localChannel) {
	channel.Close()
	c.mu.Lock()
	if c.channels[deviceID] == channel {
		delete(c.channels, deviceID)
	}
	c.mu.Unlock()
}

func (c *Client) deviceIP(ctx context.Context, deviceID string) (string, error) {
	c.mu.Lock()
	if override := c.overrides[deviceID]; override != "" {
		c.ipCache[deviceID] = override
		c.mu.Unlock()
		return override, nil
	}
	if ip := c.ipCache[deviceID]; ip != "" {
		c.mu.Unlock()
		return ip, nil
	}
	c.mu.Unlock()

	found, err := discover(ctx, 3*time.Second)
	if err != nil {
		return "", err
	}
	if dev, ok := found[deviceID]; ok {
		c.mu.Lock()
		c.ipCache[deviceID] = dev.IP
		c.mu.Unlock()
		return dev.IP, nil
	}
	return "", fmt.Errorf("device %s not found on broadcast", deviceID)
}

func (c *Client) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	channels := make([]*localChannel, 0, len(c.channels))
	for id, channel := range c.channels {
		channels = append(channels, channel)
		delete(c.channels, id)
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	for _, channel := range channels {
		channel.Close()
	}
}
