// Package runtime connects finished functions to back-ends: it compiles a graph.Function into an Executable
// (running transformation passes and building a Plan), validates calls against the function signature,
// and delegates the execution to a pluggable Kernel.
//
// An Executable is immutable once compiled, and can be called concurrently, as long as the Kernel supports it.
package runtime

import (
	"fmt"
	"strings"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/pass"
	"github.com/gomlx/graphir/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Kernel executes plans on some device. Back-ends implement it.
type Kernel interface {
	// Execute the plan, reading the inputs (one per parameter) and writing the outputs (one per result).
	// Inputs and outputs have already been validated against the plan.
	Execute(plan *Plan, outputs, inputs []*HostTensor) error
}

// CompileConfig is created with Compile, and is a "builder pattern" to configure a compilation.
//
// Once finished call CompileConfig.Done to get back an Executable or an error.
type CompileConfig struct {
	fn     *graph.Function
	passes []pass.Pass
	kernel Kernel

	// err saves an error during the configuration.
	err error
}

// Compile returns a CompileConfig for the function. Call Done to trigger the compilation.
//
// Example:
//
//	exec, err := runtime.Compile(fn).WithPasses(pass.NopElimination{}).WithKernel(kernel).Done()
func Compile(fn *graph.Function) *CompileConfig {
	c := &CompileConfig{fn: fn}
	if fn == nil {
		c.err = errors.New("runtime.Compile() given a nil function")
	}
	return c
}

// WithPasses appends transformation passes run on the function before building the plan.
// Notice the passes change the function in place.
//
// It returns itself (CompileConfig) to allow cascading configuration calls.
func (c *CompileConfig) WithPasses(passes ...pass.Pass) *CompileConfig {
	if c.err != nil {
		return c
	}
	for i, p := range passes {
		if p == nil {
			c.err = errors.Errorf("runtime.Compile().WithPasses() given a nil pass at position %d", i)
			return c
		}
	}
	c.passes = append(c.passes, passes...)
	return c
}

// WithKernel sets the kernel that executes the compiled function. Without one, the Executable can still
// validate calls, but executing it fails.
//
// It returns itself (CompileConfig) to allow cascading configuration calls.
func (c *CompileConfig) WithKernel(kernel Kernel) *CompileConfig {
	c.kernel = kernel
	return c
}

// Done runs the passes, validates the function and builds its Plan.
func (c *CompileConfig) Done() (*Executable, error) {
	if c.err != nil {
		return nil, c.err
	}
	fn := c.fn
	manager := pass.NewManager(pass.Config{ValidateAfterEachPass: true, CheckCycles: true}).
		Register(c.passes...).
		Register(pass.ValidateGraph{})
	if _, err := manager.Run(fn); err != nil {
		return nil, errors.WithMessagef(err, "failed to compile function %q", fn.Name())
	}
	plan, err := NewPlan(fn)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to compile function %q", fn.Name())
	}
	klog.V(1).Infof("compiled function %q: %d nodes, %d parameters, %d results, %d bytes",
		fn.Name(), len(plan.Nodes), len(plan.Parameters), len(plan.Results), plan.TotalBytes())
	return &Executable{plan: plan, kernel: c.kernel}, nil
}

// Executable is a compiled function, ready to be called.
type Executable struct {
	plan   *Plan
	kernel Kernel
}

// Plan returns the execution plan. It must not be changed.
func (e *Executable) Plan() *Plan { return e.plan }

// Parameters of the compiled function, in order.
func (e *Executable) Parameters() []*graph.Node { return e.plan.Parameters }

// Results of the compiled function, in order.
func (e *Executable) Results() []*graph.Node { return e.plan.Results }

func joinDims(shape shapes.Shape) string {
	if shape.UnknownRank {
		return "..."
	}
	parts := make([]string, len(shape.Dimensions))
	for i, dim := range shape.Dimensions {
		if dim == shapes.UnknownDim {
			parts[i] = "?"
		} else {
			parts[i] = fmt.Sprintf("%d", dim)
		}
	}
	return strings.Join(parts, ", ")
}

// matches returns whether a tensor of the concrete shape can be bound to a value of the given descriptor.
func matches(descriptor, concrete shapes.Shape) bool {
	_, err := shapes.Merge(descriptor, concrete)
	return err == nil
}

// Validate checks the outputs and inputs match in count, dtype and shape the results and parameters of the
// compiled function. Parameters with dynamic descriptors accept any compatible input.
func (e *Executable) Validate(outputs, inputs []*HostTensor) error {
	parameters, results := e.plan.Parameters, e.plan.Results
	if len(parameters) != len(inputs) {
		return errors.Errorf("Call input count %d does not match Function's Parameter count %d", len(inputs), len(parameters))
	}
	if len(results) != len(outputs) {
		return errors.Errorf("Call output count %d does not match Function's Result count %d", len(outputs), len(results))
	}
	for i, parameter := range parameters {
		want := parameter.OutputShape(0)
		if inputs[i] == nil {
			return errors.Errorf("Input %d is nil", i)
		}
		got := inputs[i].Shape()
		if want.DType.IsStatic() && want.DType != got.DType {
			return errors.Errorf("Input %d type '%s' does not match Parameter type '%s'", i, got.DType, want.DType)
		}
		if !matches(want, got) {
			return errors.Errorf("Input %d shape {%s} does not match Parameter shape {%s}", i, joinDims(got), joinDims(want))
		}
	}
	for i, result := range results {
		want := result.OutputShape(0)
		if outputs[i] == nil {
			return errors.Errorf("Output %d is nil", i)
		}
		got := outputs[i].Shape()
		if want.DType.IsStatic() && want.DType != got.DType {
			return errors.Errorf("Output %d type '%s' does not match Result type '%s'", i, got.DType, want.DType)
		}
		if !matches(want, got) {
			return errors.Errorf("Output %d shape {%s} does not match Result shape {%s}", i, joinDims(got), joinDims(want))
		}
	}
	return nil
}

// Call the executable with the given inputs, one per parameter. It returns a CallConfig for further
// configuration: call CallConfig.Done to execute.
//
// Example:
//
//	outputs, err := exec.Call(x, y).Done()
func (e *Executable) Call(inputs ...*HostTensor) *CallConfig {
	return &CallConfig{executable: e, inputs: inputs}
}

// CallConfig holds the configuration of a call to an Executable. It is created with Executable.Call.
type CallConfig struct {
	executable *Executable
	inputs     []*HostTensor
	outputs    []*HostTensor
}

// WithOutputs sets the tensors where the results are written, one per result. By default, new tensors
// are allocated for results with static shapes.
//
// It returns itself (CallConfig) to allow cascading configuration calls.
func (c *CallConfig) WithOutputs(outputs ...*HostTensor) *CallConfig {
	c.outputs = outputs
	return c
}

// Done validates the call and executes it with the Executable's kernel. It returns the outputs.
func (c *CallConfig) Done() ([]*HostTensor, error) {
	e := c.executable
	outputs := c.outputs
	if outputs == nil {
		outputs = make([]*HostTensor, len(e.plan.Results))
		for i, result := range e.plan.Results {
			var err error
			outputs[i], err = NewHostTensor(result.OutputShape(0))
			if err != nil {
				return nil, errors.WithMessagef(err, "cannot allocate output %d, use WithOutputs to provide it", i)
			}
		}
	}
	if err := e.Validate(outputs, c.inputs); err != nil {
		return nil, err
	}
	if e.kernel == nil {
		return nil, errors.Errorf("executable of function %q has no kernel configured, see CompileConfig.WithKernel", e.plan.Function.Name())
	}
	if err := e.kernel.Execute(e.plan, outputs, c.inputs); err != nil {
		return nil, errors.WithMessagef(err, "failed to execute function %q", e.plan.Function.Name())
	}
	return outputs, nil
}
