package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"route-simulator/internal/cache"
	"route-simulator/internal/config"
	"route-simulator/internal/db"
	"route-simulator/internal/metrics"
	"route-simulator/internal/playback"
	"route-simulator/internal/publisher"
	"route-simulator/internal/route"
	"route-simulator/internal/trace"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r, err := loadRoute(ctx, cfg, time.Now())
	if err != nil {
		log.Fatalf("route error: %v", err)
	}
	if r.Synthesized() {
		log.Printf("route timestamps missing or invalid, synthesized at %s intervals", route.SyntheticStep)
	}

	mcol := metrics.NewCollector(cfg.SpeedMultiplier, cfg.TickInterval)
	path := trace.New()
	observers := playback.Observers{mcol, path, newProgressLogger(cfg.SessionID, 10*time.Second)}

	if cfg.MetricsAddr != "" {
		srv := mcol.Serve(cfg.MetricsAddr, map[string]http.Handler{"/trace": path})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Control commands arrive on NATS goroutines; the loop below is the only
	// goroutine allowed to touch the controller.
	cmds := make(chan publisher.Command, 16)

	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.SessionID, cfg.LogNATSSubjects, metrics.Publisher{C: mcol})
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		sub, err := pub.SubscribeControl(func(c publisher.Command) {
			select {
			case cmds <- c:
			default:
				log.Printf("control queue full, dropping command %q", c.Name)
				mcol.CommandsRejected.WithLabelValues(c.Name).Inc()
			}
		})
		if err != nil {
			log.Fatalf("nats subscribe error: %v", err)
		}
		defer func() { _ = sub.Unsubscribe() }()
		observers = append(observers, pub)
		log.Printf("publishing samples on %s, control on %s", pub.SampleSubject(), pub.ControlSubject())
	}

	if cfg.RedisAddr != "" {
		rc, err := cache.New(cfg.RedisAddr)
		if err != nil {
			log.Fatalf("redis error: %v", err)
		}
		defer rc.Close()
		observers = append(observers, &cache.Sink{Client: rc, SessionID: cfg.SessionID, TTL: cfg.RedisTTL, Metrics: mcol})
	}

	ctrl, err := playback.New(r, playback.WithSpeed(cfg.SpeedMultiplier), playback.WithObserver(observers))
	if err != nil {
		log.Fatalf("playback error: %v", err)
	}
	mcol.SetRoute(r.Len(), ctrl.DurationMs(), ctrl.TotalDistanceKm())
	log.Printf("session %s: %d waypoints, %s, %.2f km, speed x%g",
		cfg.SessionID, r.Len(), playback.FormatElapsed(ctrl.DurationMs()), ctrl.TotalDistanceKm(), cfg.SpeedMultiplier)

	if cfg.Autoplay {
		ctrl.Play()
	}
	if err := run(ctx, cfg, ctrl, cmds, mcol, path); err != nil {
		log.Printf("playback stopped: %v", err)
	}
	log.Println("shutdown complete")
}

// run drives the controller until the context is cancelled, or until the
// route finishes when EXIT_ON_FINISH is set.
func run(ctx context.Context, cfg *config.Config, ctrl *playback.Controller, cmds <-chan publisher.Command, mcol *metrics.Collector, path *trace.Trace) error {
	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	start := time.Now()
	reported := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-cmds:
			if err := applyCommand(ctrl, c); err != nil {
				log.Printf("command rejected: %v", err)
				mcol.CommandsRejected.WithLabelValues(c.Name).Inc()
			} else if c.Name == publisher.CommandSpeed {
				mcol.SpeedMultiplier.Set(ctrl.State().SpeedMultiplier)
			}
		case <-ticker.C:
			t0 := time.Now()
			ctrl.Tick(float64(time.Since(start)) / float64(time.Millisecond))
			mcol.TickDuration.Observe(time.Since(t0).Seconds())
		}

		finished := ctrl.State().Status == playback.StatusFinished
		if finished && !reported {
			finish(cfg, ctrl, path)
			if cfg.ExitOnFinish {
				return nil
			}
		}
		reported = finished
	}
}

func finish(cfg *config.Config, ctrl *playback.Controller, path *trace.Trace) {
	log.Printf("session %s finished: elapsed=%s distance=%.2fkm points=%d",
		cfg.SessionID, playback.FormatElapsed(ctrl.DurationMs()), ctrl.TotalDistanceKm(), path.Len())
	if cfg.TraceFile == "" {
		return
	}
	b, err := path.GeoJSON()
	if err == nil {
		err = os.WriteFile(cfg.TraceFile, b, 0o644)
	}
	if err != nil {
		log.Printf("write trace %s: %v", cfg.TraceFile, err)
		return
	}
	log.Printf("trace written to %s", cfg.TraceFile)
}

// loadRoute reads the route from ROUTE_FILE or from Postgres.
func loadRoute(ctx context.Context, cfg *config.Config, now time.Time) (*route.Route, error) {
	if !cfg.UsesDatabase() {
		log.Printf("loading route from %s", cfg.RouteFile)
		return route.LoadFile(cfg.RouteFile, now)
	}

	dsn := cfg.DatabaseURL
	if cfg.DatabaseName != "" {
		var err error
		if dsn, err = db.WithDBName(dsn, cfg.DatabaseName); err != nil {
			return nil, err
		}
	}
	sqlDB, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()
	if err := db.Ping(ctx, sqlDB); err != nil {
		return nil, err
	}
	log.Printf("connected to %s", db.Redact(dsn))

	routeID := cfg.RouteID
	if routeID == "" {
		if routeID, err = db.ResolveLatestRoute(ctx, sqlDB, cfg.VehicleID); err != nil {
			return nil, err
		}
		log.Printf("using latest route %q for vehicle %q", routeID, cfg.VehicleID)
	}
	return db.LoadRoute(ctx, sqlDB, routeID, now)
}
