package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/a64isel/pkg/codegen/arm64/imm"
	"github.com/GriffinCanCode/a64isel/pkg/dag"
)

type immParams struct {
	width int
	float bool
}

func init() {
	var params immParams

	immCommand := &cobra.Command{
		Use:   "imm <value>",
		Short: "Show which AArch64 immediate forms can encode a value",
		Long: `Show which AArch64 immediate forms can encode a value.

Integers may be written in decimal, hex (0x), octal (0o) or binary (0b)
and may be negative. With --float the value is parsed as a floating-point
literal and checked against the FMOV and fixed-point convert forms.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if params.width != 32 && params.width != 64 {
				return fmt.Errorf("width must be 32 or 64, got %d", params.width)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			var err error
			if params.float {
				rows, err = floatImmRows(args[0], params.width)
			} else {
				rows, err = intImmRows(args[0], params.width)
			}
			if err != nil {
				return err
			}
			printImmTable(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	immCommand.Flags().IntVarP(&params.width, "width", "w", 64, "register width in bits (32 or 64)")
	immCommand.Flags().BoolVar(&params.float, "float", false, "treat the value as a floating-point literal")

	RootCommand.AddCommand(immCommand)
}

func yesNo(ok bool, detail string) []string {
	if !ok {
		return []string{"no", ""}
	}
	return []string{"yes", detail}
}

func intImmRows(lit string, width int) ([][]string, error) {
	v, err := dag.ParseIntLiteral(lit)
	if err != nil {
		return nil, err
	}
	if width == 32 {
		v &= 0xffffffff
	}

	var rows [][]string
	add := func(form string, ok bool, detail string) {
		rows = append(rows, append([]string{form}, yesNo(ok, detail)...))
	}

	if uimm, shift, ok := imm.IsMOVZImm(width, v); ok {
		add("movz", true, fmt.Sprintf("#%#x, lsl #%d", uimm, shift*16))
	} else {
		add("movz", false, "")
	}
	if uimm, shift, ok := imm.IsMOVNImm(width, v); ok {
		add("movn", true, fmt.Sprintf("#%#x, lsl #%d", uimm, shift*16))
	} else {
		add("movn", false, "")
	}
	if width == 64 && v>>32 == 0 {
		uimm, shift, ok := imm.IsMOVNImm(32, v)
		add("movn (w, zero-extended)", ok, fmt.Sprintf("#%#x, lsl #%d", uimm, shift*16))
	}
	if lb, ok := imm.TestLogicalBitmask(v, width); ok {
		back, _ := imm.DecodeLogicalImm(width, lb.Bits)
		add("logical", true, fmt.Sprintf("N:immr:imms %#05x (decodes to %#x)", lb.Bits, back))
	} else {
		add("logical", false, "")
	}
	if sb, ok := imm.TestSingleBitIndex(v, width); ok {
		add("tbz/tbnz", true, fmt.Sprintf("bit %d", sb.Bit))
	} else {
		add("tbz/tbnz", false, "")
	}
	strategy := describe(imm.Classify(v, width))
	if v == 0 {
		strategy = "zero register"
	}
	rows = append(rows, []string{"strategy", strategy, ""})
	return rows, nil
}

func floatImmRows(lit string, width int) ([][]string, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid floating-point literal %q", lit)
	}
	double := width == 64
	if !double {
		f = float64(float32(f))
	}

	var rows [][]string
	add := func(form string, ok bool, detail string) {
		rows = append(rows, append([]string{form}, yesNo(ok, detail)...))
	}

	if imm8, ok := imm.IsFPImm(f, double); ok {
		add("fmov", true, fmt.Sprintf("imm8 %#02x", imm8))
	} else {
		add("fmov", false, "")
	}
	for _, regWidth := range []int{32, 64} {
		form := fmt.Sprintf("fcvt fixed-point (%d-bit)", regWidth)
		if fs, ok := imm.TestFixedPointShift(f, regWidth); ok {
			add(form, true, fmt.Sprintf("fbits %d, scale %d", fs.Shift, fs.Scale()))
		} else {
			add(form, false, "")
		}
	}
	return rows, nil
}

func describe(d imm.Descriptor) string {
	switch d := d.(type) {
	case imm.MoveWide:
		if d.Negated {
			return fmt.Sprintf("movn #%#x, lsl #%d", d.Value, d.LSL())
		}
		return fmt.Sprintf("movz #%#x, lsl #%d", d.Value, d.LSL())
	case imm.LogicalBitmask:
		return fmt.Sprintf("orr from zero register, %#05x", d.Bits)
	case imm.SingleBitIndex:
		return fmt.Sprintf("single bit %d", d.Bit)
	case imm.FixedPointShift:
		return fmt.Sprintf("fixed-point shift %d", d.Shift)
	}
	return "literal pool"
}

func printImmTable(out io.Writer, rows [][]string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Form", "Encodable", "Encoding"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}
