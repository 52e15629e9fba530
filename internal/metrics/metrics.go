package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"route-simulator/internal/playback"
)

type Collector struct {
	reg *prometheus.Registry

	Status     prometheus.Gauge // playback.Status as a number
	OffsetSecs prometheus.Gauge
	SpeedKmh   prometheus.Gauge
	DistanceKm prometheus.Gauge
	HeadingDeg prometheus.Gauge

	Samples          *prometheus.CounterVec // event label: tick|pause|restart|finish
	CommandsRejected *prometheus.CounterVec // command label

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	CacheWrites    prometheus.Counter
	CacheWriteErrs prometheus.Counter

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	SpeedMultiplier prometheus.Gauge
	TickInterval    prometheus.Gauge // seconds
	RouteDuration   prometheus.Gauge // seconds
	RouteWaypoints  prometheus.Gauge
	RouteDistanceKm prometheus.Gauge
}

func NewCollector(speedMultiplier float64, tickInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Status: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_playback_status",
			Help: "Playback status: 0 idle, 1 playing, 2 paused, 3 finished.",
		}),
		OffsetSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_offset_seconds",
			Help: "Simulated time elapsed since the route start.",
		}),
		SpeedKmh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_vehicle_speed_kmh",
			Help: "Instantaneous vehicle speed of the last sample.",
		}),
		DistanceKm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_vehicle_distance_km",
			Help: "Cumulative distance travelled along the route.",
		}),
		HeadingDeg: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_vehicle_heading_degrees",
			Help: "Heading of the vehicle in degrees from north.",
		}),
		Samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulator_samples_total",
			Help: "Samples emitted by the playback controller.",
		}, []string{"event"}),
		CommandsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulator_commands_rejected_total",
			Help: "Control commands rejected by the playback controller.",
		}, []string{"command"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		CacheWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_cache_writes_total",
			Help: "Total latest-sample writes to Redis.",
		}),
		CacheWriteErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_cache_write_errors_total",
			Help: "Total failed latest-sample writes to Redis.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_tick_duration_seconds",
			Help:    "Duration of a controller tick including observers.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		SpeedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_speed_multiplier",
			Help: "Current speed multiplier.",
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_tick_interval_seconds",
			Help: "Host tick interval in seconds.",
		}),
		RouteDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_route_duration_seconds",
			Help: "Total duration of the loaded route.",
		}),
		RouteWaypoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_route_waypoints",
			Help: "Number of waypoints in the loaded route.",
		}),
		RouteDistanceKm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_route_distance_km",
			Help: "Total length of the loaded route.",
		}),
	}

	// Register
	reg.MustRegister(
		c.Status, c.OffsetSecs, c.SpeedKmh, c.DistanceKm, c.HeadingDeg,
		c.Samples, c.CommandsRejected,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.CacheWrites, c.CacheWriteErrs,
		c.TickDuration, c.PublishDuration,
		c.SpeedMultiplier, c.TickInterval,
		c.RouteDuration, c.RouteWaypoints, c.RouteDistanceKm,
	)

	c.SpeedMultiplier.Set(speedMultiplier)
	c.TickInterval.Set(tickInterval.Seconds())

	return c
}

// SetRoute records the static shape of the loaded route.
func (c *Collector) SetRoute(waypoints int, durationMs, distanceKm float64) {
	c.RouteWaypoints.Set(float64(waypoints))
	c.RouteDuration.Set(durationMs / 1000)
	c.RouteDistanceKm.Set(distanceKm)
}

// OnSample mirrors the latest Sample into the gauges.
func (c *Collector) OnSample(s playback.Sample) {
	c.Status.Set(float64(s.Status))
	c.OffsetSecs.Set(s.OffsetMs / 1000)
	c.SpeedKmh.Set(s.SpeedKmh)
	c.DistanceKm.Set(s.DistanceKm)
	c.HeadingDeg.Set(s.HeadingDeg)
	c.Samples.WithLabelValues(string(s.Event)).Inc()
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Mux returns a mux serving /metrics plus any extra handlers keyed by path.
func (c *Collector) Mux(extra map[string]http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	for path, h := range extra {
		mux.Handle(path, h)
	}
	return mux
}

// Serve starts an HTTP server exposing /metrics and extra on the given address.
func (c *Collector) Serve(addr string, extra map[string]http.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: c.Mux(extra), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}

// Publisher adapts the collector to publisher.PublisherMetrics.
type Publisher struct{ C *Collector }

func (p Publisher) NATSPublishedInc()              { p.C.NATSPublished.Inc() }
func (p Publisher) NATSPublishErrInc()             { p.C.NATSPublishErrs.Inc() }
func (p Publisher) PublishObserve(d time.Duration) { p.C.PublishDuration.Observe(d.Seconds()) }
func (p Publisher) NATSSetConnected(b bool) {
	if b {
		p.C.NATSConnected.Set(1)
	} else {
		p.C.NATSConnected.Set(0)
	}
}

func (c *Collector) CacheWriteInc()    { c.CacheWrites.Inc() }
func (c *Collector) CacheWriteErrInc() { c.CacheWriteErrs.Inc() }
