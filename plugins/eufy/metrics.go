package eufy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pollSuccessTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eufyvac_poll_success_total",
		Help: "Successful local poll cycles per device",
	}, []string{"device_id"})
	pollFailureTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eufyvac_poll_failure_total",
		Help: "Failed local poll cycles per device",
	}, []string{"device_id"})
)

func recordPollSuccess(deviceID string) {
	pollSuccessTotal.WithLabelValues(deviceID).Inc()
}

func recordPollFailure(deviceID string) {
	pollFailureTotal.WithLabelValues(deviceID).Inc()
}

// MetricsCollector exposes the last derived reading per device. It
// reads the poller's stored readings and never touches the network.
type MetricsCollector struct {
	client *Client

	batteryPercent    *prometheus.GaugeVec
	state             *prometheus.GaugeVec
	substatus         *prometheus.GaugeVec
	charging          *prometheus.GaugeVec
	totalCount        *prometheus.GaugeVec
	totalAreaSquareM  *prometheus.GaugeVec
	readingStale      *prometheus.GaugeVec
	readingAgeSeconds *prometheus.GaugeVec
}

func NewMetricsCollector(client *Client) *MetricsCollector {
	labels := []string{"device_id", "device_name", "model"}
	stateLabels := []string{"device_id", "device_name", "model", "state"}
	substatusLabels := []string{"device_id", "device_name", "model", "substatus"}
	return &MetricsCollector{
		client: client,
		batteryPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eufyvac_battery_percent",
			Help: "Battery percentage (0-100)",
		}, labels),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eufyvac_state",
			Help: "Vacuum state (label) derived from the status blob",
		}, stateLabels),
		substatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eufyvac_substatus",
			Help: "Vacuum substatus (label) derived from the status blob",
		}, substatusLabels),
		charging: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eufyvac_charging",
			Help: "Whether the vacuum is charging (1=yes, 0=no)",
		}, labels),
		totalCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eufyvac_total_cleaning_count",
			Help: "Lifetime cleaning count, monotonic per device",
		}, labels),
		totalAreaSquareM: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eufyvac_total_cleaning_area_square_meters",
			Help: "Lifetime cleaned area (square meters), monotonic per device",
		}, labels),
		readingStale: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eufyvac_reading_stale",
			Help: "Whether the last poll failed and the reading carried over (1=yes, 0=no)",
		}, labels),
		readingAgeSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eufyvac_reading_age_seconds",
			Help: "Seconds since the reading was derived",
		}, labels),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.batteryPercent.Describe(ch)
	c.state.Describe(ch)
	c.substatus.Describe(ch)
	c.charging.Describe(ch)
	c.totalCount.Describe(ch)
	c.totalAreaSquareM.Describe(ch)
	c.readingStale.Describe(ch)
	c.readingAgeSeconds.Describe(ch)
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	readings := c.client.Telemetry()

	c.batteryPercent.Reset()
	c.state.Reset()
	c.substatus.Reset()
	c.charging.Reset()
	c.totalCount.Reset()
	c.totalAreaSquareM.Reset()
	c.readingStale.Reset()
	c.readingAgeSeconds.Reset()

	for _, reading := range readings {
		labels := prometheus.Labels{
			"device_id":   reading.Device.ID,
			"device_name": reading.Device.Name,
			"model":       reading.Device.Model,
		}
		t := reading.Telemetry
		if t.Battery != nil {
			c.batteryPercent.With(labels).Set(float64(*t.Battery))
		}
		if t.TotalCount != nil {
			c.totalCount.With(labels).Set(float64(*t.TotalCount))
		}
		if t.TotalAreaSqm != nil {
			c.totalAreaSquareM.With(labels).Set(float64(*t.TotalAreaSqm))
		}
		if t.Charging {
			c.charging.With(labels).Set(1)
		} else {
			c.charging.With(labels).Set(0)
		}
		if reading.Stale {
			c.readingStale.With(labels).Set(1)
		} else {
			c.readingStale.With(labels).Set(0)
		}
		c.readingAgeSeconds.With(labels).Set(time.Since(reading.UpdatedAt).Seconds())

		stateLabels := prometheus.Labels{
			"device_id":   reading.Device.ID,
			"device_name": reading.Device.Name,
			"model":       reading.Device.Model,
			"state":       string(t.State),
		}
		c.state.With(stateLabels).Set(1)
		substatusLabels := prometheus.Labels{
			"device_id":   reading.Device.ID,
			"device_name": reading.Device.Name,
			"model":       reading.Device.Model,
			"substatus":   string(t.Substatus),
		}
		c.substatus.With(substatusLabels).Set(1)
	}

	c.batteryPercent.Collect(ch)
	c.state.Collect(ch)
	c.substatus.Collect(ch)
	c.charging.Collect(ch)
	c.totalCount.Collect(ch)
	c.totalAreaSquareM.Collect(ch)
	c.readingStale.Collect(ch)
	c.readingAgeSeconds.Collect(ch)
}

// PollCollectors returns the package counters tracking poll outcomes.
func PollCollectors() []prometheus.Collector {
	return []prometheus.Collector{pollSuccessTotal, pollFailureTotal}
}
