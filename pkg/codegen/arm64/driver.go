// Package arm64 - Module-level selection driver
// Design: one selector per function, functions selected concurrently; the
// constant pool is the only state they share.
package arm64

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/logger"
	"github.com/GriffinCanCode/a64isel/pkg/target"
)

// Result summarizes the selection of one function
type Result struct {
	Function string
	Nodes    int
	Removed  int
}

// ModuleOptions controls SelectModule
type ModuleOptions struct {
	// Parallelism bounds concurrent functions; zero means GOMAXPROCS
	Parallelism int
	// NewMatcher builds a matcher per function; nil selects with NopMatcher
	NewMatcher func() Matcher
	Metrics    *Metrics
	// Validate runs the graph validator after selection
	Validate bool
	Strict   bool
}

// SelectModule selects every function of a module. pool must be safe for
// concurrent use. A contract violation in any function is returned as a
// *ContractError and cancels the functions not yet started.
func SelectModule(ctx context.Context, cfg target.Config, pool ConstantPool, fns []*dag.Function, opts ModuleOptions) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("select module: %w", err)
	}

	limit := opts.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	logger.LogPhase("instruction selection")
	results := make([]Result, len(fns))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	for i, fn := range fns {
		i, fn := i, fn // per-iteration copies (go1.22 loopvar semantics)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := selectFunction(cfg, pool, fn, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	logger.LogPhaseComplete("instruction selection")
	return results, nil
}

func selectFunction(cfg target.Config, pool ConstantPool, fn *dag.Function, opts ModuleOptions) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*ContractError)
			if !ok {
				panic(r)
			}
			err = ce
		}
	}()

	var m Matcher = NopMatcher{}
	if opts.NewMatcher != nil {
		m = opts.NewMatcher()
	}
	s := NewSelector(cfg, pool, m, WithFunctionName(fn.Name), WithMetrics(opts.Metrics))
	removed := s.SelectGraph(fn.Graph)

	if opts.Validate {
		if err := ValidateGraph(fn.Name, fn.Graph, opts.Strict); err != nil {
			return Result{}, fmt.Errorf("%s: %w", fn.Name, err)
		}
	}
	return Result{
		Function: fn.Name,
		Nodes:    len(fn.Graph.LiveNodes()),
		Removed:  removed,
	}, nil
}
