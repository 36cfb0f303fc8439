package dag

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// moduleFile is the on-disk description of a set of legalized function graphs
type moduleFile struct {
	Functions []functionDecl `yaml:"functions"`
}

type functionDecl struct {
	Name  string     `yaml:"name"`
	Root  string     `yaml:"root"`
	Nodes []nodeDecl `yaml:"nodes"`
}

type nodeDecl struct {
	ID       string   `yaml:"id"`
	Op       string   `yaml:"op"`
	Type     string   `yaml:"type"`
	Value    string   `yaml:"value"`
	Index    int      `yaml:"index"`
	Mem      string   `yaml:"mem"`
	Ordering string   `yaml:"ordering"`
	Operands []string `yaml:"operands"`
}

// LoadModuleFile reads a YAML graph file from disk
func LoadModuleFile(path string) ([]*Function, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadModule(f)
}

// LoadModule decodes YAML function graphs. Node "entry" is predefined; a
// result other than 0 is referenced as "<id>.<resno>".
func LoadModule(r io.Reader) ([]*Function, error) {
	var mf moduleFile
	if err := yaml.NewDecoder(r).Decode(&mf); err != nil {
		return nil, fmt.Errorf("decoding graph file: %w", err)
	}

	fns := make([]*Function, 0, len(mf.Functions))
	for _, decl := range mf.Functions {
		fn, err := buildFunction(decl)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", decl.Name, err)
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

func buildFunction(decl functionDecl) (*Function, error) {
	g := New()
	names := map[string]NodeID{"entry": g.entry}

	var last Value
	for _, ns := range decl.Nodes {
		if ns.ID == "" {
			return nil, fmt.Errorf("node without id")
		}
		if _, dup := names[ns.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", ns.ID)
		}

		ops := make([]Value, 0, len(ns.Operands))
		for _, ref := range ns.Operands {
			v, err := resolveRef(names, ref)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", ns.ID, err)
			}
			ops = append(ops, v)
		}

		v, err := buildNode(g, ns, ops)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", ns.ID, err)
		}
		names[ns.ID] = v.Node
		last = Value{Node: v.Node, ResNo: len(g.nodes[v.Node].VTs) - 1}
	}

	switch {
	case decl.Root != "":
		root, err := resolveRef(names, decl.Root)
		if err != nil {
			return nil, fmt.Errorf("root: %w", err)
		}
		g.Root = root
	case len(decl.Nodes) > 0:
		g.Root = last
	}

	return &Function{Name: decl.Name, Graph: g}, nil
}

func resolveRef(names map[string]NodeID, ref string) (Value, error) {
	name, res := ref, 0
	if i := strings.LastIndexByte(ref, '.'); i > 0 {
		n, err := strconv.Atoi(ref[i+1:])
		if err == nil {
			name, res = ref[:i], n
		}
	}
	id, ok := names[name]
	if !ok {
		return Value{Node: NoNode}, fmt.Errorf("undefined operand %q", ref)
	}
	return Value{Node: id, ResNo: res}, nil
}

func buildNode(g *Graph, ns nodeDecl, ops []Value) (Value, error) {
	op, err := ParseOpcode(ns.Op)
	if err != nil {
		return Value{}, err
	}
	vt := Other
	if ns.Type != "" {
		if vt, err = ParseVT(ns.Type); err != nil {
			return Value{}, err
		}
	}

	switch {
	case op == OpConstant:
		bits, err := ParseIntLiteral(ns.Value)
		if err != nil {
			return Value{}, err
		}
		return g.Constant(bits, vt), nil

	case op == OpConstantFP:
		f, err := strconv.ParseFloat(strings.TrimSpace(ns.Value), 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid float literal %q: %w", ns.Value, err)
		}
		return g.ConstantFP(f, vt), nil

	case op == OpFrameIndex:
		return g.FrameIndex(ns.Index, vt), nil

	case op == OpConstantPool:
		return g.ConstantPool(ns.Index, vt), nil

	case op.IsAtomic():
		if len(ops) < 2 {
			return Value{}, fmt.Errorf("atomic needs chain and pointer operands")
		}
		memVT := vt
		if ns.Mem != "" {
			if memVT, err = ParseVT(ns.Mem); err != nil {
				return Value{}, err
			}
		}
		ord := SequentiallyConsistent
		if ns.Ordering != "" {
			if ord, err = ParseOrdering(ns.Ordering); err != nil {
				return Value{}, err
			}
		}
		mem := MemOperand{VT: memVT, Ordering: ord, Align: memVT.Bytes()}
		return g.Atomic(op, vt, mem, ops[0], ops[1], ops[2:]...), nil

	case op == OpLoad:
		if len(ops) != 2 {
			return Value{}, fmt.Errorf("load needs chain and pointer operands")
		}
		return g.Load(vt, ops[0], ops[1], MemOperand{Align: vt.Bytes()}), nil

	case op == OpStore, op == OpReturn, op == OpTokenFactor, op == OpCopyToReg:
		return g.Op(op, []VT{Other}, ops...), nil

	case op.IsTargetLeaf():
		return Value{}, fmt.Errorf("%s nodes cannot appear in legalized input", op)

	default:
		return g.Op(op, []VT{vt}, ops...), nil
	}
}

// ParseIntLiteral accepts signed or unsigned decimal, hex, octal and binary
// literals and returns the two's complement bit pattern.
func ParseIntLiteral(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if u, err := strconv.ParseUint(s, 0, 64); err == nil {
		return u, nil
	}
	i, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q", s)
	}
	return uint64(i), nil
}
