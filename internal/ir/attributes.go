package ir

import (
	"github.com/gomlx/exceptions"
)

// AttrKind is the type tag of an Attribute value.
type AttrKind int

const (
	AttrInt AttrKind = iota
	AttrInts
	AttrFloat
	AttrFloats
	AttrString
	AttrStrings
)

// String implements fmt.Stringer.
func (k AttrKind) String() string {
	switch k {
	case AttrInt:
		return "INT"
	case AttrInts:
		return "INTS"
	case AttrFloat:
		return "FLOAT"
	case AttrFloats:
		return "FLOATS"
	case AttrString:
		return "STRING"
	case AttrStrings:
		return "STRINGS"
	}
	return "UNKNOWN"
}

// Attribute is one typed attribute of a Node. Only the field matching Kind
// is meaningful.
type Attribute struct {
	Name string
	Kind AttrKind

	I       int64
	Ints    []int64
	F       float32
	Floats  []float32
	S       string
	Strings []string
}

// IntAttr builds an integer attribute.
func IntAttr(name string, value int) Attribute {
	return Attribute{Name: name, Kind: AttrInt, I: int64(value)}
}

// IntsAttr builds an integer-list attribute.
func IntsAttr(name string, values ...int) Attribute {
	ints := make([]int64, len(values))
	for ii, v := range values {
		ints[ii] = int64(v)
	}
	return Attribute{Name: name, Kind: AttrInts, Ints: ints}
}

// FloatAttr builds a float attribute.
func FloatAttr(name string, value float32) Attribute {
	return Attribute{Name: name, Kind: AttrFloat, F: value}
}

// StringAttr builds a string attribute.
func StringAttr(name, value string) Attribute {
	return Attribute{Name: name, Kind: AttrString, S: value}
}

// attr returns the named attribute or nil.
func (n *Node) attr(name string) *Attribute {
	for ii := range n.Attrs {
		if n.Attrs[ii].Name == name {
			return &n.Attrs[ii]
		}
	}
	return nil
}

// assertAttrKind panics when an attribute is present with a kind other than
// the one the operator expects. A malformed attribute type is a precondition
// failure of the whole translation pass.
func (n *Node) assertAttrKind(attr *Attribute, kind AttrKind) {
	if attr.Kind != kind {
		exceptions.Panicf("attribute %q of %s must be %s, got %s", attr.Name, n, kind, attr.Kind)
	}
}

// IntAttrOr returns the named integer attribute, or defaultValue when absent.
// It panics when the attribute is present but of the wrong kind.
func (n *Node) IntAttrOr(name string, defaultValue int) int {
	attr := n.attr(name)
	if attr == nil {
		return defaultValue
	}
	n.assertAttrKind(attr, AttrInt)
	return int(attr.I)
}

// BoolAttrOr returns the named boolean attribute (carried as an int, 0 or 1),
// or defaultValue when absent.
func (n *Node) BoolAttrOr(name string, defaultValue bool) bool {
	defaultInt := 0
	if defaultValue {
		defaultInt = 1
	}
	return n.IntAttrOr(name, defaultInt) != 0
}

// IntsAttrOr returns the named integer-list attribute, or defaultValues when
// absent. It panics when the attribute is present but of the wrong kind.
func (n *Node) IntsAttrOr(name string, defaultValues []int) []int {
	attr := n.attr(name)
	if attr == nil {
		return defaultValues
	}
	n.assertAttrKind(attr, AttrInts)
	values := make([]int, len(attr.Ints))
	for ii, v := range attr.Ints {
		values[ii] = int(v)
	}
	return values
}

// FloatAttrOr returns the named float attribute, or defaultValue when absent.
func (n *Node) FloatAttrOr(name string, defaultValue float32) float32 {
	attr := n.attr(name)
	if attr == nil {
		return defaultValue
	}
	n.assertAttrKind(attr, AttrFloat)
	return attr.F
}

// StringAttrOr returns the named string attribute, or defaultValue when
// absent.
func (n *Node) StringAttrOr(name, defaultValue string) string {
	attr := n.attr(name)
	if attr == nil {
		return defaultValue
	}
	n.assertAttrKind(attr, AttrString)
	return attr.S
}
