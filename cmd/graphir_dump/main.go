// graphir_dump builds a small mean-squared-error function, optionally optimizes it and builds its
// backprop function, and prints them in the StableHLO-like text format.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/graphir/autodiff"
	"github.com/gomlx/graphir/builder"
	"github.com/gomlx/graphir/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/pass"
	"github.com/gomlx/graphir/shapes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagDims     = flag.String("dims", "2,3", "Comma-separated dimensions of the inputs; use ? for dynamic dimensions")
	flagDType    = flag.String("dtype", "F32", "DType of the inputs, e.g.: F32, F64, BF16")
	flagOptimize = flag.Bool("optimize", true, "Run the NopElimination and ConstantDeduplication passes")
	flagBackprop = flag.Bool("backprop", false, "Also print the backprop function")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `graphir_dump builds mse(x, y) = mean((x-y)^2) and prints it.

$ graphir_dump -dims=4,3 -backprop

Usage:
`)
		flag.PrintDefaults()
	}
	klog.InitFlags(flag.CommandLine)
	flag.Parse()

	dtype, err := dtypes.DTypeString(*flagDType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -dtype=%q: %v\n", *flagDType, err)
		os.Exit(1)
	}
	dims, err := parseDims(*flagDims)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -dims=%q: %v\n", *flagDims, err)
		os.Exit(1)
	}
	shape := shapes.Make(dtype, dims...)
	x := graph.NewParameter(shape, graph.WithFriendlyName("x"))
	y := graph.NewParameter(shape, graph.WithFriendlyName("y"))
	loss, err := builder.MeanSquaredError(x.Output(0), y.Output(0))
	if err != nil {
		klog.Exitf("Failed to build the function for %s: %+v", shape, err)
	}
	fn := must.M1(graph.NewFunctionFromOutputs("mse", []*graph.Output{loss}, []*graph.Node{x, y}))

	if *flagOptimize {
		manager := pass.NewManager(pass.Config{ValidateAfterEachPass: true, CheckCycles: true}).
			Register(pass.NopElimination{}, pass.ConstantDeduplication{})
		changed := must.M1(manager.Run(fn))
		klog.V(1).Infof("optimization changed the function: %v", changed)
	}
	fmt.Println(fn)

	if *flagBackprop {
		backprop, err := autodiff.BackpropFunction(fn)
		if err != nil {
			klog.Exitf("Failed to differentiate %q: %+v", fn.Name(), err)
		}
		fmt.Println()
		fmt.Println(backprop)
	}
}

func parseDims(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	dims := make([]int, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "?" {
			dims[i] = shapes.UnknownDim
			continue
		}
		dim, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		if dim < 0 {
			return nil, errors.Errorf("negative dimension %d", dim)
		}
		dims[i] = dim
	}
	return dims, nil
}
