// Package ops defines the node kinds of the autodiff tape and their derivative rules.
//
// Every node on the tape belongs to one of a closed set of classes:
//   - ClassLeaf: independent variables, no operands
//   - ClassUnary: one operand plus an optional scalar constant (x+c, c/x, pow(x, c))
//   - ClassBinary: two operands
//   - ClassNary: any number of operands with partials fixed at construction
//     (reductions, dot products, caller-supplied gradients)
//   - ClassHub: a container-producing op (matrix multiply, softmax) whose
//     outputs are separate ClassProjection nodes
//   - ClassProjection: output j of a hub
//
// A Kind indexes a registration table of rules. The rule for a kind is the
// derivative formula of that operation; the tape dispatches on the class and
// calls the rule's function pointers. New math functions are added with
// RegisterUnary, RegisterBinary, RegisterNary or RegisterHub.
//
// Rules operate on primitive float64 values only and never see the tape.
package ops

import (
	"fmt"
	"sync"
)

// Class is the structural variant of a node.
type Class uint8

// Node classes.
const (
	ClassLeaf Class = iota
	ClassUnary
	ClassBinary
	ClassNary
	ClassHub
	ClassProjection
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassLeaf:
		return "leaf"
	case ClassUnary:
		return "unary"
	case ClassBinary:
		return "binary"
	case ClassNary:
		return "nary"
	case ClassHub:
		return "hub"
	case ClassProjection:
		return "projection"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Kind identifies a registered operation.
type Kind uint16

// UnaryRule describes y = f(x; c) where c is an optional scalar constant.
//
// Deriv receives the operand value, the forward value and the constant and
// returns dy/dx.
type UnaryRule struct {
	Name  string
	Eval  func(x, c float64) float64
	Deriv func(x, y, c float64) float64
}

// BinaryRule describes y = f(a, b).
type BinaryRule struct {
	Name string
	Eval func(a, b float64) float64
	DA   func(a, b, y float64) float64
	DB   func(a, b, y float64) float64
}

// NaryRule describes a reduction y = f(v_1..v_n; c).
//
// Partials writes dy/dv_i into dst at construction time, so the reverse sweep
// only scales them. A rule with nil Eval is built by the caller, which
// supplies the value and partials itself (data dot products, solver outputs).
type NaryRule struct {
	Name     string
	Eval     func(vals []float64, c float64) float64
	Partials func(vals []float64, y, c float64, dst []float64)
}

// HubRule describes a container-producing op out = f(in) with dims giving
// its shape parameters.
//
// Backward must add nothing to inAdj for constant inputs itself; the tape
// skips them when scattering. inAdj arrives zeroed.
type HubRule struct {
	Name     string
	Forward  func(dims [3]int32, in, out []float64)
	Backward func(dims [3]int32, in, out, outAdj, inAdj []float64)
}

// Rule is one entry of the registration table.
type Rule struct {
	Name   string
	Class  Class
	Unary  *UnaryRule
	Binary *BinaryRule
	Nary   *NaryRule
	Hub    *HubRule
}

var (
	mu     sync.RWMutex
	table  []Rule
	byName = map[string]Kind{}
)

func register(r Rule) Kind {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := byName[r.Name]; dup {
		panic(fmt.Sprintf("ops: kind %q already registered", r.Name))
	}
	k := Kind(len(table))
	table = append(table, r)
	byName[r.Name] = k
	return k
}

// RegisterUnary adds a unary kind.
func RegisterUnary(r UnaryRule) Kind {
	return register(Rule{Name: r.Name, Class: ClassUnary, Unary: &r})
}

// RegisterBinary adds a binary kind.
func RegisterBinary(r BinaryRule) Kind {
	return register(Rule{Name: r.Name, Class: ClassBinary, Binary: &r})
}

// RegisterNary adds an n-ary kind.
func RegisterNary(r NaryRule) Kind {
	return register(Rule{Name: r.Name, Class: ClassNary, Nary: &r})
}

// RegisterHub adds a container-producing kind.
func RegisterHub(r HubRule) Kind {
	return register(Rule{Name: r.Name, Class: ClassHub, Hub: &r})
}

// Lookup returns the rule for k. Rules are immutable once registered.
func Lookup(k Kind) *Rule {
	mu.RLock()
	defer mu.RUnlock()
	return &table[k]
}

// Table returns the current registration table.
// The slice must not be modified.
func Table() []Rule {
	mu.RLock()
	defer mu.RUnlock()
	return table[:len(table):len(table)]
}

// ByName resolves a registered kind by name.
func ByName(name string) (Kind, bool) {
	mu.RLock()
	defer mu.RUnlock()
	k, ok := byName[name]
	return k, ok
}

// Name returns the registered name of k.
func Name(k Kind) string {
	mu.RLock()
	defer mu.RUnlock()
	if int(k) >= len(table) {
		return fmt.Sprintf("kind(%d)", uint16(k))
	}
	return table[k].Name
}

// Structural kinds.
var (
	Leaf       = register(Rule{Name: "leaf", Class: ClassLeaf})
	Projection = register(Rule{Name: "projection", Class: ClassProjection})
)
