// Package pass implements a manager of graph transformation passes over a graph.Function, and a few passes:
// graph validation, no-op elimination and constant de-duplication.
package pass

import (
	"github.com/gomlx/graphir/graph"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// Pass transforms (or inspects) a Function in place.
type Pass interface {
	// Name of the pass, used for logging and error messages.
	Name() string

	// Run the pass on fn, and return whether fn was changed.
	Run(fn *graph.Function) (changed bool, err error)
}

// Config of a Manager.
type Config struct {
	// ValidateAfterEachPass runs Function.Validate after every pass.
	ValidateAfterEachPass bool

	// CheckCycles runs graph.CheckForCycles after every pass.
	CheckCycles bool
}

// Manager runs a sequence of passes over functions.
type Manager struct {
	config Config
	passes []Pass
}

// NewManager creates a Manager with the given configuration and no passes.
func NewManager(config Config) *Manager {
	return &Manager{config: config}
}

// Register appends passes to the sequence run by the manager. It returns the manager itself, so calls can be cascaded.
func (m *Manager) Register(passes ...Pass) *Manager {
	m.passes = append(m.passes, passes...)
	return m
}

// Passes returns the registered passes, in order.
func (m *Manager) Passes() []Pass {
	return append([]Pass(nil), m.passes...)
}

// Run runs every registered pass, in order, on fn. It stops at the first pass that fails, or that leaves the
// function in an invalid state.
//
// It returns whether any pass changed fn.
func (m *Manager) Run(fn *graph.Function) (changed bool, err error) {
	for _, p := range m.passes {
		klog.V(1).Infof("running pass %q on function %q", p.Name(), fn.Name())
		passChanged, err := p.Run(fn)
		if err != nil {
			return changed, errors.WithMessagef(err, "pass %q failed on function %q", p.Name(), fn.Name())
		}
		changed = changed || passChanged
		if err = m.check(fn); err != nil {
			return changed, errors.WithMessagef(err, "after pass %q", p.Name())
		}
	}
	return changed, nil
}

// RunAll runs the passes on each of the functions, and returns the combined errors.
// A function failing doesn't prevent the others from being processed.
func (m *Manager) RunAll(functions ...*graph.Function) (changed bool, err error) {
	for _, fn := range functions {
		fnChanged, fnErr := m.Run(fn)
		changed = changed || fnChanged
		err = multierr.Append(err, fnErr)
	}
	return changed, err
}

func (m *Manager) check(fn *graph.Function) error {
	if m.config.ValidateAfterEachPass {
		if err := fn.Validate(); err != nil {
			return err
		}
	}
	if m.config.CheckCycles {
		if report := graph.CheckForCycles(fn); report.HasCycle() {
			return graph.Errorf(graph.ErrCycle, report.Cycle[0], "function %q has a cycle: %s", fn.Name(), report)
		}
	}
	return nil
}
