// Package arm64 - Contract violations raised by selection
package arm64

import (
	"fmt"

	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/logger"
)

// ContractError reports input the upstream legalizer should never have
// produced. Selection panics with it; it is not a recoverable condition.
type ContractError struct {
	Function string
	Node     string
	Reason   string
}

func (e *ContractError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("%s: %s\n  %s", e.Function, e.Reason, e.Node)
	}
	return fmt.Sprintf("%s\n  %s", e.Reason, e.Node)
}

// contractViolation logs and panics with a ContractError for node n
func (s *Selector) contractViolation(g *dag.Graph, n *dag.Node, format string, args ...any) {
	err := &ContractError{
		Function: s.function,
		Node:     g.Describe(n.ID, Names),
		Reason:   fmt.Sprintf(format, args...),
	}
	logger.LogContractViolation(err.Error())
	panic(err)
}
