package plan

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoBehaviorTree is returned when a document has no BehaviorTree element.
	ErrNoBehaviorTree = errors.New("plan: no BehaviorTree element")
	// ErrMalformedPlan is returned for structurally invalid plans: an empty
	// BehaviorTree, a condition missing a required attribute, a
	// non-integer threshold.
	ErrMalformedPlan = errors.New("plan: malformed plan")
)

// UnknownNodeKindError reports an element that is not a control node,
// a condition or an action.
type UnknownNodeKindError struct {
	Tag string
}

func (e *UnknownNodeKindError) Error() string {
	return fmt.Sprintf("plan: unknown node kind %q", e.Tag)
}

// element is a generic XML element. Namespaces are ignored; tags are
// matched on their local name.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ParseXML parses a behavior-tree mission plan. The BehaviorTree element
// may be the document root or nested anywhere below it; its first child
// element becomes the plan root.
func ParseXML(data []byte) (*Plan, error) {
	var doc element
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}

	bt := findElement(&doc, "BehaviorTree")
	if bt == nil {
		return nil, ErrNoBehaviorTree
	}
	if len(bt.Children) == 0 {
		return nil, fmt.Errorf("%w: BehaviorTree has no children", ErrMalformedPlan)
	}

	root, err := convert(&bt.Children[0])
	if err != nil {
		return nil, err
	}
	id, _ := bt.attr("ID")
	return &Plan{ID: id, Root: root}, nil
}

func findElement(e *element, local string) *element {
	if e.XMLName.Local == local {
		return e
	}
	for i := range e.Children {
		if found := findElement(&e.Children[i], local); found != nil {
			return found
		}
	}
	return nil
}

func convert(e *element) (Node, error) {
	tag := e.XMLName.Local
	switch NodeKind(tag) {
	case KindSequence, KindFallback, KindParallel:
		children := make([]Node, 0, len(e.Children))
		for i := range e.Children {
			c, err := convert(&e.Children[i])
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		switch NodeKind(tag) {
		case KindSequence:
			return &Sequence{Children: children}, nil
		case KindFallback:
			return &Fallback{Children: children}, nil
		default:
			return &Parallel{Children: children}, nil
		}

	case KindAssertTrue:
		result, ok := e.attr("result")
		if !ok || stripBraces(result) == "" {
			return nil, fmt.Errorf("%w: AssertTrue without result", ErrMalformedPlan)
		}
		return &AssertTrue{ResultVar: stripBraces(result)}, nil

	case KindCheckValue:
		return convertCheckValue(e)
	}

	if name, ok := e.attr("name"); ok && name != "" {
		actionType, ok := e.attr("actionType")
		if !ok || actionType == "" {
			actionType = tag
		}
		return &Action{Name: name, ActionType: actionType}, nil
	}
	return nil, &UnknownNodeKindError{Tag: tag}
}

func convertCheckValue(e *element) (Node, error) {
	value, okV := e.attr("value")
	threshold, okT := e.attr("threshold")
	comp, okC := e.attr("comp")
	if !okV || !okT || !okC || stripBraces(value) == "" {
		return nil, fmt.Errorf("%w: CheckValue needs value, threshold and comp", ErrMalformedPlan)
	}
	n, err := strconv.Atoi(strings.TrimSpace(stripBraces(threshold)))
	if err != nil {
		return nil, fmt.Errorf("%w: CheckValue threshold %q is not an integer", ErrMalformedPlan, threshold)
	}
	if !ValidThreshold(n) {
		return nil, fmt.Errorf("%w: CheckValue threshold %d outside [%d, %d]", ErrMalformedPlan, n, MinThreshold, MaxThreshold)
	}
	c, err := ParseComparator(strings.TrimSpace(comp))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}
	return &CheckValue{ValueVar: stripBraces(value), Threshold: n, Comparator: c}, nil
}

// stripBraces removes the blackboard-variable braces in "{temp}".
func stripBraces(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
