package internal

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/script/feel"
	"github.com/gclaussn/go-cmmn/script/js"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// NewServices creates the services, shared by all contexts of an engine.
func NewServices(options engine.Options) (*Services, error) {
	node, err := snowflake.NewNode(options.NodeId)
	if err != nil {
		return nil, fmt.Errorf("failed to create ID generator: %v", err)
	}

	definitionCache, err := NewDefinitionCache(options.DefinitionCacheSize)
	if err != nil {
		return nil, err
	}

	jsEvaluator, err := js.New(options.ScriptCacheSize)
	if err != nil {
		return nil, err
	}

	metrics, err := newMetrics(options.MetricsRegisterer)
	if err != nil {
		return nil, err
	}

	return &Services{
		DefinitionCache: definitionCache,
		Feel:            feel.New(),
		Js:              jsEvaluator,
		Logger:          options.Logger,
		Metrics:         metrics,

		node: node,
	}, nil
}

type Services struct {
	DefinitionCache *DefinitionCache
	Feel            *feel.Evaluator
	Js              *js.Evaluator
	Logger          *zap.Logger
	Metrics         *Metrics

	node *snowflake.Node
}

// NextId generates a unique, time ordered entity ID.
func (s *Services) NextId() int64 {
	return s.node.Generate().Int64()
}

// CommandExecuted logs and counts the result of a command and passes its error through.
func (s *Services) CommandExecuted(command string, err error) error {
	if err != nil {
		if _, ok := err.(engine.Error); ok {
			s.Logger.Debug("command failed", zap.String("command", command), zap.Error(err))
		} else {
			s.Logger.Error("command failed", zap.String("command", command), zap.Error(err))
		}
	}
	return s.Metrics.CommandExecuted(command, err)
}

func newMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmmn_commands_total",
			Help: "Number of executed commands.",
		}, []string{"command", "result"}),
		listenerInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmmn_listener_invocations_total",
			Help: "Number of listener notifications.",
		}, []string{"kind", "event"}),
		listenerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmmn_listener_failures_total",
			Help: "Number of listener notifications, which returned an error.",
		}, []string{"kind"}),
	}

	if registerer == nil {
		return &m, nil
	}

	var err error
	if m.commands, err = register(registerer, m.commands); err != nil {
		return nil, err
	}
	if m.listenerInvocations, err = register(registerer, m.listenerInvocations); err != nil {
		return nil, err
	}
	if m.listenerFailures, err = register(registerer, m.listenerFailures); err != nil {
		return nil, err
	}

	return &m, nil
}

// register registers a counter or returns the counter, registered by another engine before.
func register(registerer prometheus.Registerer, counter *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := registerer.Register(counter); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			if existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to register metrics: %v", err)
	}
	return counter, nil
}

// Metrics count commands and listener notifications.
type Metrics struct {
	commands            *prometheus.CounterVec
	listenerInvocations *prometheus.CounterVec
	listenerFailures    *prometheus.CounterVec
}

// CommandExecuted counts a command and passes its error through.
func (m *Metrics) CommandExecuted(command string, err error) error {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.commands.WithLabelValues(command, result).Inc()
	return err
}

func (m *Metrics) listenerInvoked(kind string, event engine.EventName) {
	m.listenerInvocations.WithLabelValues(kind, string(event)).Inc()
}

func (m *Metrics) listenerFailed(kind string) {
	m.listenerFailures.WithLabelValues(kind).Inc()
}
