// Package arm64 - Register file used by selection
package arm64

import (
	"fmt"

	"github.com/GriffinCanCode/a64isel/pkg/dag"
)

// General purpose registers, numbered from 1 so that dag.NoReg stays free
const (
	X0 dag.Reg = iota + 1
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
	XZR
	WZR
	SP
)

// ZeroReg returns the hardwired zero register for a 32- or 64-bit value
func ZeroReg(vt dag.VT) (dag.Reg, bool) {
	switch vt {
	case dag.I32:
		return WZR, true
	case dag.I64:
		return XZR, true
	}
	return dag.NoReg, false
}

// RegName returns the assembler name of r
func RegName(r dag.Reg) string {
	switch {
	case r >= X0 && r <= X30:
		return fmt.Sprintf("x%d", int(r-X0))
	case r == XZR:
		return "xzr"
	case r == WZR:
		return "wzr"
	case r == SP:
		return "sp"
	}
	return fmt.Sprintf("reg(%d)", int(r))
}
