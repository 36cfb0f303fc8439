package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/a64isel/pkg/codegen/arm64"
	"github.com/GriffinCanCode/a64isel/pkg/constpool"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
)

type selectParams struct {
	matcher  string
	asm      bool
	stats    bool
	pool     bool
	validate bool
	strict   bool
	parallel int
}

func newSelectParams() selectParams {
	return selectParams{
		matcher:  "basic",
		validate: true,
		parallel: runtime.GOMAXPROCS(0),
	}
}

func init() {
	params := newSelectParams()

	selectCommand := &cobra.Command{
		Use:   "select <graph.yaml>",
		Short: "Select machine instructions for every function in a graph file",
		Long: `Select machine instructions for every function in a graph file.

Each function is lowered independently and printed as a table of its
selected nodes in operand-first order, or with --asm as an assembly
listing over virtual registers. Constants that need a literal
pool share one pool across the whole file; --pool prints it as
assembly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd, args[0], params)
		},
	}

	selectCommand.Flags().StringVarP(&params.matcher, "matcher", "m", params.matcher, "pattern matcher: basic or none")
	selectCommand.Flags().BoolVar(&params.asm, "asm", false, "print an assembly listing instead of node tables")
	selectCommand.Flags().BoolVar(&params.stats, "stats", false, "print selection counters")
	selectCommand.Flags().BoolVar(&params.pool, "pool", false, "print the constant pool")
	selectCommand.Flags().BoolVar(&params.validate, "validate", params.validate, "validate selected graphs")
	selectCommand.Flags().BoolVar(&params.strict, "strict", false, "treat generic nodes left after matching as errors")
	selectCommand.Flags().IntVarP(&params.parallel, "parallel", "j", params.parallel, "functions selected concurrently")

	RootCommand.AddCommand(selectCommand)
}

func newMatcherFactory(name string) (func() arm64.Matcher, error) {
	switch name {
	case "basic":
		return func() arm64.Matcher { return arm64.NewBasicMatcher() }, nil
	case "none":
		return func() arm64.Matcher { return arm64.NopMatcher{} }, nil
	}
	return nil, fmt.Errorf("unknown matcher %q (want basic or none)", name)
}

func runSelect(cmd *cobra.Command, path string, params selectParams) error {
	cfg, err := loadTarget(cmd)
	if err != nil {
		return err
	}
	newMatcher, err := newMatcherFactory(params.matcher)
	if err != nil {
		return err
	}
	fns, err := dag.LoadModuleFile(path)
	if err != nil {
		return err
	}

	pool := constpool.New(cfg.CodeModel)
	reg := prometheus.NewRegistry()
	results, err := arm64.SelectModule(context.Background(), cfg, pool, fns, arm64.ModuleOptions{
		Parallelism: params.parallel,
		NewMatcher:  newMatcher,
		Metrics:     arm64.NewMetrics(reg),
		Validate:    params.validate,
		Strict:      params.strict,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if params.asm {
		if err := arm64.NewPrinter(out).PrintModule(fns); err != nil {
			return err
		}
		fmt.Fprintln(out)
	} else {
		for i, fn := range fns {
			fmt.Fprintf(out, "%s (%d nodes, %d removed)\n", fn.Name, results[i].Nodes, results[i].Removed)
			printGraph(out, fn.Graph)
			fmt.Fprintln(out)
		}
	}

	if params.pool && pool.Len() > 0 {
		if err := pool.Emit(out); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	if params.stats {
		families, err := reg.Gather()
		if err != nil {
			return err
		}
		printStats(out, families)
	}
	return nil
}

func printGraph(out io.Writer, g *dag.Graph) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Node", "Selected"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, id := range g.TopoOrder() {
		n := g.Node(id)
		if n.Op.IsTargetLeaf() && !n.IsMachineOpcode() {
			continue
		}
		desc := g.Describe(id, arm64.Names)
		label, rest, _ := strings.Cut(desc, ": ")
		table.Append([]string{label, rest})
	}
	table.Render()
}

// statsRows flattens gathered counters into name, labels, value rows
func statsRows(families []*dto.MetricFamily) [][]string {
	var rows [][]string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)
			rows = append(rows, []string{
				mf.GetName(),
				strings.Join(labels, ","),
				strconv.FormatFloat(m.GetCounter().GetValue(), 'f', -1, 64),
			})
		}
	}
	return rows
}

func printStats(out io.Writer, families []*dto.MetricFamily) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Counter", "Labels", "Value"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.AppendBulk(statsRows(families))
	table.Render()
}
