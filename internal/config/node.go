package config

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// SelectorKey is the reserved attribute identifying the concrete component
// type a mapping should be instantiated as. A mapping without it is
// non-instantiable sub-config, not an error.
const SelectorKey = "uses"

// Node is a single entry in the configuration tree: either a mapping with
// ordered children, or an attribute holding a lazy expression.
type Node struct {
	name     string
	children []*Node
	index    map[string]*Node
	expr     hcl.Expression
	raw      string
	tree     *Tree
}

// NewMapping creates a mapping node. Intended for loaders; the tree is
// frozen once handed to NewTree.
func NewMapping(name string, children ...*Node) *Node {
	n := &Node{name: name, index: make(map[string]*Node)}
	for _, c := range children {
		n.SetChild(c)
	}
	return n
}

// NewAttr creates an attribute node holding a lazy expression and its
// unresolved source text.
func NewAttr(name string, expr hcl.Expression, raw string) *Node {
	return &Node{name: name, expr: expr, raw: raw}
}

// SetChild appends a child, or replaces an existing child with the same
// name in place so override composition keeps the original position.
func (n *Node) SetChild(child *Node) {
	if prev, ok := n.index[child.name]; ok {
		for i, c := range n.children {
			if c == prev {
				n.children[i] = child
				break
			}
		}
	} else {
		n.children = append(n.children, child)
	}
	n.index[child.name] = child
}

// Name returns the node's key within its parent mapping.
func (n *Node) Name() string { return n.name }

// IsMapping reports whether the node is a mapping rather than an attribute.
func (n *Node) IsMapping() bool { return n.index != nil }

// Children returns the mapping's children in iteration order.
func (n *Node) Children() []*Node { return n.children }

// Child returns the named child, or nil if absent or if n is an attribute.
func (n *Node) Child(name string) *Node {
	if n == nil || n.index == nil {
		return nil
	}
	return n.index[name]
}

// Has reports whether the mapping has a child with the given name.
func (n *Node) Has(name string) bool { return n.Child(name) != nil }

// Expr returns the attribute's unevaluated expression, or nil for mappings.
func (n *Node) Expr() hcl.Expression { return n.expr }

// Raw returns the attribute's unresolved source text. It is the degrade
// target when resolution fails during rendering.
func (n *Node) Raw() string { return n.raw }

// Selector returns the value of the reserved type-selector attribute.
func (n *Node) Selector() (string, bool) {
	sel := n.Child(SelectorKey)
	if sel == nil {
		return "", false
	}
	s, err := sel.AsString()
	if err != nil {
		return "", false
	}
	return s, true
}

// Resolve evaluates the node against the tree's evaluation context.
// Mappings resolve to an object of their resolved children.
func (n *Node) Resolve() (cty.Value, error) {
	if n.IsMapping() {
		vals := make(map[string]cty.Value, len(n.children))
		for _, c := range n.children {
			v, err := c.Resolve()
			if err != nil {
				return cty.NilVal, err
			}
			vals[c.name] = v
		}
		return cty.ObjectVal(vals), nil
	}
	v, diags := n.expr.Value(n.evalContext())
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("resolving %q: %w", n.name, diags)
	}
	return v, nil
}

func (n *Node) evalContext() *hcl.EvalContext {
	if n.tree == nil {
		return nil
	}
	return n.tree.evalCtx
}

// AsString resolves the node and converts it to a string.
func (n *Node) AsString() (string, error) {
	v, err := n.resolveAs(cty.String)
	if err != nil {
		return "", err
	}
	return v.AsString(), nil
}

// AsBool resolves the node and converts it to a bool.
func (n *Node) AsBool() (bool, error) {
	v, err := n.resolveAs(cty.Bool)
	if err != nil {
		return false, err
	}
	return v.True(), nil
}

// AsInt resolves the node and converts it to an int.
func (n *Node) AsInt() (int, error) {
	v, err := n.resolveAs(cty.Number)
	if err != nil {
		return 0, err
	}
	i, acc := v.AsBigFloat().Int64()
	if acc != big.Exact {
		return 0, fmt.Errorf("value of %q is not an integer", n.name)
	}
	return int(i), nil
}

// AsFloat resolves the node and converts it to a float64.
func (n *Node) AsFloat() (float64, error) {
	v, err := n.resolveAs(cty.Number)
	if err != nil {
		return 0, err
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

// AsStringSlice resolves the node to a list of strings.
func (n *Node) AsStringSlice() ([]string, error) {
	v, err := n.Resolve()
	if err != nil {
		return nil, err
	}
	if !v.CanIterateElements() {
		return nil, fmt.Errorf("value of %q is not a list", n.name)
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		sv, err := convert.Convert(ev, cty.String)
		if err != nil {
			return nil, fmt.Errorf("element of %q: %w", n.name, err)
		}
		out = append(out, sv.AsString())
	}
	return out, nil
}

func (n *Node) resolveAs(ty cty.Type) (cty.Value, error) {
	v, err := n.Resolve()
	if err != nil {
		return cty.NilVal, err
	}
	cv, err := convert.Convert(v, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("value of %q: %w", n.name, err)
	}
	if cv.IsNull() {
		return cty.NilVal, fmt.Errorf("value of %q is null", n.name)
	}
	return cv, nil
}

// Interface resolves the node into a native Go value: scalars, []any
// slices, and map[string]any mappings.
func (n *Node) Interface() (any, error) {
	v, err := n.Resolve()
	if err != nil {
		return nil, err
	}
	return ctyToGo(v), nil
}

func ctyToGo(v cty.Value) any {
	if v.IsNull() {
		return nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i
		}
		f, _ := bf.Float64()
		return f
	case ty == cty.Bool:
		return v.True()
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ctyToGo(ev))
		}
		return out
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			out[k.AsString()] = ctyToGo(ev)
		}
		return out
	}
	return v.GoString()
}

// --- required / optional attribute helpers for component factories ---

// String returns the named attribute as a string, failing if absent.
func (n *Node) String(key string) (string, error) {
	c := n.Child(key)
	if c == nil {
		return "", fmt.Errorf("missing required attribute %q in %q", key, n.name)
	}
	return c.AsString()
}

// OptString returns the named attribute as a string, or def if absent.
func (n *Node) OptString(key, def string) (string, error) {
	c := n.Child(key)
	if c == nil {
		return def, nil
	}
	return c.AsString()
}

// Int returns the named attribute as an int, failing if absent.
func (n *Node) Int(key string) (int, error) {
	c := n.Child(key)
	if c == nil {
		return 0, fmt.Errorf("missing required attribute %q in %q", key, n.name)
	}
	return c.AsInt()
}

// OptInt returns the named attribute as an int, or def if absent.
func (n *Node) OptInt(key string, def int) (int, error) {
	c := n.Child(key)
	if c == nil {
		return def, nil
	}
	return c.AsInt()
}

// OptFloat returns the named attribute as a float64, or def if absent.
func (n *Node) OptFloat(key string, def float64) (float64, error) {
	c := n.Child(key)
	if c == nil {
		return def, nil
	}
	return c.AsFloat()
}

// OptBool returns the named attribute as a bool, or def if absent.
func (n *Node) OptBool(key string, def bool) (bool, error) {
	c := n.Child(key)
	if c == nil {
		return def, nil
	}
	return c.AsBool()
}
