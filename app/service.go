// Package app assembles a configured simulation: system data, decision
// stages, sequence, store, metrics and progress publishing.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/voltmesh/prodsim/api/results"
	"github.com/voltmesh/prodsim/app/plugins"
	"github.com/voltmesh/prodsim/config"
	"github.com/voltmesh/prodsim/core/chronology"
	"github.com/voltmesh/prodsim/core/decision"
	"github.com/voltmesh/prodsim/core/feedforward"
	"github.com/voltmesh/prodsim/core/model"
	"github.com/voltmesh/prodsim/core/sequence"
	"github.com/voltmesh/prodsim/core/simulation"
	"github.com/voltmesh/prodsim/core/store"
	"github.com/voltmesh/prodsim/core/system"
	"github.com/voltmesh/prodsim/core/template"
	"github.com/voltmesh/prodsim/infra/logger"
	"github.com/voltmesh/prodsim/infra/metrics"
	"github.com/voltmesh/prodsim/infra/mqtt"
	"github.com/voltmesh/prodsim/internal/eventbus"
)

// Service orchestrates one simulation run.
type Service struct {
	Sim     *simulation.Simulation
	results store.Store
	bus     *eventbus.Bus
	log     logger.Logger

	mqttClient *mqtt.Client
	progress   *mqtt.ProgressPublisher

	promEnabled bool
	promPort    int
	apiCfg      config.APIConfig
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	sys, err := cfg.System.Build()
	if err != nil {
		return nil, fmt.Errorf("system: %w", err)
	}
	if err := sys.Validate(); err != nil {
		return nil, fmt.Errorf("system: %w", err)
	}

	seq, err := buildSequence(cfg, sys)
	if err != nil {
		return nil, err
	}

	st, err := cfg.Storage.Open()
	if err != nil {
		return nil, fmt.Errorf("results store: %w", err)
	}

	sim, err := simulation.New(cfg.Simulation.Name, cfg.Simulation.Steps, seq, st)
	if err != nil {
		return nil, err
	}
	sim.SetLogger(logger.New("simulation"))
	sim.SetOptions(simulation.Options{ContinueOnSolveFailure: cfg.Simulation.ContinueOnFailure})

	sink, err := metrics.FromConfig(cfg.Metrics, logg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	sim.SetMetricsSink(sink)

	bus := eventbus.New()
	sim.SetEventBus(bus)

	svc := &Service{
		Sim:         sim,
		results:     st,
		bus:         bus,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
		apiCfg:      cfg.API,
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.NewClient(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqttClient = client
		svc.progress = mqtt.NewProgressPublisher(client, cfg.MQTT.TopicRoot)
		svc.progress.Start(bus)
	}
	return svc, nil
}

// buildSequence turns the stage configs into a validated sequence.
// Consecutive stages are chained: a unit-commitment stage feeds its
// commitment to the following dispatch stage, and every stage seeds
// the next one's initial conditions.
func buildSequence(cfg *config.Config, sys *system.System) (*sequence.Sequence, error) {
	backend, err := plugins.NewSolver(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("solver backend: %w", err)
	}

	models := make([]*decision.DecisionModel, 0, len(cfg.Stages))
	var rules []feedforward.Rule
	pairs := make(map[string]string)

	for i, sc := range cfg.Stages {
		f, err := sc.Formulation()
		if err != nil {
			return nil, err
		}
		m, err := decision.New(sc.Name, stageTemplate(sys, f), sys, backend, cfg.Solver, sc.Horizon())
		if err != nil {
			return nil, err
		}
		models = append(models, m)

		if i == 0 {
			continue
		}
		prev := cfg.Stages[i-1]
		pairs[sc.Name] = prev.Name
		if prev.Kind == "unit_commitment" && sc.Kind == "economic_dispatch" {
			rules = append(rules, feedforward.Rule{
				Kind:        feedforward.SemiContinuous,
				SourceStage: prev.Name,
				TargetStage: sc.Name,
				Source:      model.VariableKey{Name: model.VarOnStatus, Category: model.ThermalStandard},
				Affected:    []model.ParameterKey{{Name: model.ParamOnStatus, Category: model.ThermalStandard}},
			})
		}
	}

	var chrono chronology.Chronology
	if len(pairs) > 0 {
		chrono = chronology.NewInterStage(pairs)
	} else {
		chrono = chronology.NewIntraStage()
	}
	return sequence.New(models, rules, chrono)
}

// stageTemplate assigns a formulation to every category the system
// carries.
func stageTemplate(sys *system.System, thermal model.Formulation) *template.Template {
	tpl := template.New()
	tpl.SetNetworkFormulation(model.CopperPlateBalance)
	for _, cat := range sys.Categories() {
		switch cat {
		case model.ThermalStandard:
			tpl.SetFormulation(cat, thermal)
		case model.RenewableDispatch:
			tpl.SetFormulation(cat, model.RenewableFullDispatch)
		case model.HydroDispatch:
			tpl.SetFormulation(cat, model.HydroRunOfRiver)
		case model.PowerLoad:
			tpl.SetFormulation(cat, model.StaticLoad)
		}
	}
	return tpl
}

// Run builds and executes the simulation, blocking until it finishes
// or the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.apiCfg.Enabled {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", s.apiCfg.Port),
			Handler:           results.NewHandler(s.results, s.apiCfg.Token),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.log.Errorf("results api: %v", err)
			}
		}()
		defer srv.Close()
	}
	if err := s.Sim.Build(); err != nil {
		return err
	}
	return s.Sim.Execute(ctx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.progress != nil {
		s.progress.Stop()
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	s.bus.Close()
	return s.results.Close()
}
