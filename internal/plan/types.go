// Package plan models a mission task plan as a behavior tree.
//
// The tree is a closed variant: every Node is one of Sequence, Fallback,
// Parallel, Action, AssertTrue or CheckValue. Consumers switch on the
// concrete type; the unexported marker method keeps other packages from
// adding node kinds.
package plan

import (
	"fmt"
	"math"
)

// Node is one behavior tree element.
type Node interface {
	Kind() NodeKind
	isNode()
}

// Condition is a leaf that tests a sensed value. Var returns the
// name of the variable the condition reads.
type Condition interface {
	Node
	Var() string
}

// NodeKind names a node variant. The values match the XML tags.
type NodeKind string

const (
	KindSequence   NodeKind = "Sequence"
	KindFallback   NodeKind = "Fallback"
	KindParallel   NodeKind = "Parallel"
	KindAction     NodeKind = "Action"
	KindAssertTrue NodeKind = "AssertTrue"
	KindCheckValue NodeKind = "CheckValue"
)

// Plan is a parsed task plan.
type Plan struct {
	// ID is the BehaviorTree element's ID attribute, if any.
	ID   string
	Root Node
}

// Sequence runs its children in order.
type Sequence struct {
	Children []Node
}

// Fallback tries its children in order until one succeeds.
type Fallback struct {
	Children []Node
}

// Parallel runs its children concurrently.
type Parallel struct {
	Children []Node
}

// Action is a task the robot performs.
type Action struct {
	Name       string
	ActionType string
}

// AssertTrue succeeds when ResultVar holds true.
type AssertTrue struct {
	ResultVar string
}

// CheckValue compares ValueVar against Threshold.
type CheckValue struct {
	ValueVar   string
	Threshold  int
	Comparator Comparator
}

// Threshold bounds. The model selects from Threshold-1 to Threshold+1 in a
// 32-bit Promela int, so both neighbours must fit.
const (
	MinThreshold = math.MinInt32 + 1
	MaxThreshold = math.MaxInt32 - 1
)

// ValidThreshold reports whether n is within [MinThreshold, MaxThreshold].
func ValidThreshold(n int) bool {
	return n >= MinThreshold && n <= MaxThreshold
}

func (*Sequence) Kind() NodeKind   { return KindSequence }
func (*Fallback) Kind() NodeKind   { return KindFallback }
func (*Parallel) Kind() NodeKind   { return KindParallel }
func (*Action) Kind() NodeKind     { return KindAction }
func (*AssertTrue) Kind() NodeKind { return KindAssertTrue }
func (*CheckValue) Kind() NodeKind { return KindCheckValue }

func (*Sequence) isNode()   {}
func (*Fallback) isNode()   {}
func (*Parallel) isNode()   {}
func (*Action) isNode()     {}
func (*AssertTrue) isNode() {}
func (*CheckValue) isNode() {}

func (c *AssertTrue) Var() string { return c.ResultVar }
func (c *CheckValue) Var() string { return c.ValueVar }

var (
	_ Condition = (*AssertTrue)(nil)
	_ Condition = (*CheckValue)(nil)
)

// Comparator is a CheckValue relation, stored in its Promela spelling.
type Comparator string

const (
	LT  Comparator = "<"
	LTE Comparator = "<="
	GT  Comparator = ">"
	GTE Comparator = ">="
	EQ  Comparator = "=="
	NEQ Comparator = "!="
)

var comparatorCodes = map[string]Comparator{
	"lt":  LT,
	"lte": LTE,
	"gt":  GT,
	"gte": GTE,
	"eq":  EQ,
	"neq": NEQ,
}

// ParseComparator maps a plan comparator code (lt, lte, gt, gte, eq, neq)
// to its Comparator.
func ParseComparator(code string) (Comparator, error) {
	c, ok := comparatorCodes[code]
	if !ok {
		return "", fmt.Errorf("plan: unknown comparator %q", code)
	}
	return c, nil
}

// Holds reports whether "v <c> threshold" is true.
func (c Comparator) Holds(v, threshold int) bool {
	switch c {
	case LT:
		return v < threshold
	case LTE:
		return v <= threshold
	case GT:
		return v > threshold
	case GTE:
		return v >= threshold
	case EQ:
		return v == threshold
	case NEQ:
		return v != threshold
	}
	return false
}

// Children returns the direct children of a composite node, or nil for a leaf.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Sequence:
		return n.Children
	case *Fallback:
		return n.Children
	case *Parallel:
		return n.Children
	}
	return nil
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's subtree.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}
