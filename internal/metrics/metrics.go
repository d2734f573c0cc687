package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	commandsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldbot",
			Subsystem: "scheduler",
			Name:      "commands_started_total",
			Help:      "Top-level commands handed to the scheduler.",
		},
		[]string{"command"},
	)
	commandsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldbot",
			Subsystem: "scheduler",
			Name:      "commands_finished_total",
			Help:      "Top-level commands that left the scheduler, by outcome.",
		},
		[]string{"command", "status"},
	)
	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fieldbot",
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Time spent advancing every active command once.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .02, .05, .1},
		},
	)
	bindingTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldbot",
			Subsystem: "teleop",
			Name:      "binding_triggers_total",
			Help:      "Rising-edge button presses dispatched to handlers.",
		},
		[]string{"key"},
	)
	routinesBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldbot",
			Subsystem: "routine",
			Name:      "built_total",
			Help:      "Routine trees built, by requested side and whether the root was mirrored.",
		},
		[]string{"routine", "side", "mirrored"},
	)
)

// Register installs every collector on the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandsStarted, commandsFinished, tickDuration, bindingTriggers, routinesBuilt)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Recorder is the narrow surface the scheduler, poller and routine builder
// report through. The zero value records to the default registry.
type Recorder struct{}

func (Recorder) CommandStarted(name string) {
	Register()
	commandsStarted.WithLabelValues(name).Inc()
}

func (Recorder) CommandFinished(name, status string) {
	Register()
	commandsFinished.WithLabelValues(name, status).Inc()
}

func (Recorder) Tick(d time.Duration) {
	Register()
	tickDuration.Observe(d.Seconds())
}

func (Recorder) BindingTriggered(key string) {
	Register()
	bindingTriggers.WithLabelValues(key).Inc()
}

func (Recorder) RoutineBuilt(routine, side string, mirrored bool) {
	Register()
	label := "false"
	if mirrored {
		label = "true"
	}
	routinesBuilt.WithLabelValues(routine, side, label).Inc()
}
