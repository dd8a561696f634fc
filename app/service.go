// Package app wires the dispatch engine to its configured collaborators.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/dronedispatch/config"
	"github.com/kilianp07/dronedispatch/core/dispatch"
	coremetrics "github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/core/routing"
	"github.com/kilianp07/dronedispatch/infra/logger"
	"github.com/kilianp07/dronedispatch/infra/metrics"
	"github.com/kilianp07/dronedispatch/infra/mqtt"
	"github.com/kilianp07/dronedispatch/infra/observer"
	"github.com/kilianp07/dronedispatch/internal/eventbus"
)

// Options tweaks how the service reports progress.
type Options struct {
	// Verbose logs the carrier roster with every notification.
	Verbose bool
	// Observers are notified in addition to the built-in ones.
	Observers []dispatch.Observer
}

// Service owns the engine and its observers.
type Service struct {
	Engine  *dispatch.Engine
	Graph   *routing.Graph
	Tracker *observer.Tracker
	Bus     *eventbus.Bus[dispatch.Notification]

	publisher *mqtt.StatusPublisher
	promAddr  string
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts Options) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	graph, err := cfg.Network.Graph()
	if err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	svc := &Service{
		Graph:    graph,
		Tracker:  &observer.Tracker{},
		Bus:      eventbus.New[dispatch.Notification](eventbus.DefaultBuffer),
		promAddr: cfg.Metrics.PrometheusAddr,
		log:      logg,
	}
	observers := dispatch.MultiObserver{
		observer.Console{Log: logger.New("dispatch"), Verbose: opts.Verbose},
		svc.Tracker,
		observer.NewBus(svc.Bus),
	}
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewStatusPublisher(cfg.MQTT, logger.New("mqtt_publisher"))
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
		observers = append(observers, pub)
	}
	observers = append(observers, opts.Observers...)

	engine, err := dispatch.NewEngine(graph, cfg.Carriers(), dispatch.Options{
		Config:   cfg.Dispatch,
		Depot:    cfg.Network.Depot,
		Observer: observers,
		Sink:     sink,
		Logger:   logger.New("engine"),
	})
	if err != nil {
		svc.closePublisher()
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}
	svc.Engine = engine
	return svc, nil
}

// StartMetrics serves Prometheus metrics until ctx is canceled, when an
// address is configured.
func (s *Service) StartMetrics(ctx context.Context) {
	if s.promAddr == "" {
		return
	}
	go func() {
		if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
			s.log.Errorf("prom server: %v", err)
		}
	}()
}

// SubmitAll queues every request in order and stops at the first error.
func (s *Service) SubmitAll(reqs []*model.Request) error {
	for _, r := range reqs {
		if err := s.Engine.SubmitRequest(r); err != nil {
			return fmt.Errorf("submit %s: %w", r.Destination, err)
		}
	}
	return nil
}

// Close shuts the engine down and releases the observers. Forced
// termination of deliveries is reported but does not prevent the cleanup.
func (s *Service) Close(ctx context.Context) error {
	err := s.Engine.Shutdown(ctx)
	if errors.Is(err, dispatch.ErrShutdownTimeout) {
		s.log.Warnf("some deliveries were interrupted")
	}
	s.closePublisher()
	s.Bus.Close()
	return err
}

func (s *Service) closePublisher() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}
