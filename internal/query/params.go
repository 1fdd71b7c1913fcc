package query

import (
	"net/url"
	"strings"
)

type nodeKind int

const (
	kindScalar nodeKind = iota
	kindList
	kindMap
)

// node is one value of the parameter bag: a scalar, a list, or a nested map.
// Map keys keep insertion order so encoding is deterministic.
type node struct {
	kind     nodeKind
	scalar   string
	list     []string
	keys     []string
	children map[string]*node
}

func newMap() *node {
	return &node{kind: kindMap, children: make(map[string]*node)}
}

// child returns the map child at key, creating it with kind when missing.
// An existing child is returned as is, whatever its kind.
func (n *node) child(key string, kind nodeKind) *node {
	if c, ok := n.children[key]; ok {
		return c
	}
	c := &node{kind: kind}
	if kind == kindMap {
		c.children = make(map[string]*node)
	}
	n.keys = append(n.keys, key)
	n.children[key] = c
	return c
}

// Params is the named parameter bag sent to the search service. Keys are
// paths: ["attrib", "price", "min"] encodes as attrib[price][min].
type Params struct {
	root      *node
	conflicts []string
}

// NewParams returns an empty parameter bag.
func NewParams() *Params {
	return &Params{root: newMap()}
}

// Set stores a scalar at path, replacing a previous scalar there. A path
// already holding a list or nested values is left untouched; the write is
// dropped, recorded in Conflicts and false is returned.
func (p *Params) Set(value string, path ...string) bool {
	leaf := p.leaf(path, kindScalar)
	if leaf == nil {
		return false
	}
	leaf.scalar = value
	return true
}

// Add appends values to the list at path. Like Set, it never replaces a
// value of another kind.
func (p *Params) Add(path []string, values ...string) bool {
	leaf := p.leaf(path, kindList)
	if leaf == nil {
		return false
	}
	leaf.list = append(leaf.list, values...)
	return true
}

// Conflicts lists the encoded names of writes dropped because their path
// already held a value of another kind.
func (p *Params) Conflicts() []string {
	return append([]string(nil), p.conflicts...)
}

func (p *Params) leaf(path []string, kind nodeKind) *node {
	n := p.walk(path[:len(path)-1])
	var leaf *node
	if n != nil {
		leaf = n.child(path[len(path)-1], kind)
	}
	if leaf == nil || leaf.kind != kind {
		p.conflicts = append(p.conflicts, encodeName(path))
		return nil
	}
	return leaf
}

// walk descends to the map at path, creating intermediate maps. It returns
// nil when a non-map value already sits on the path.
func (p *Params) walk(path []string) *node {
	n := p.root
	for _, key := range path {
		n = n.child(key, kindMap)
		if n.kind != kindMap {
			return nil
		}
	}
	return n
}

// Values returns the scalar or list values at path.
func (p *Params) Values(path ...string) []string {
	n := p.root
	for _, key := range path {
		if n.kind != kindMap {
			return nil
		}
		c, ok := n.children[key]
		if !ok {
			return nil
		}
		n = c
	}
	switch n.kind {
	case kindScalar:
		return []string{n.scalar}
	case kindList:
		return append([]string(nil), n.list...)
	default:
		return nil
	}
}

// Has reports whether anything is stored at path.
func (p *Params) Has(path ...string) bool {
	n := p.root
	for _, key := range path {
		if n.kind != kindMap {
			return false
		}
		c, ok := n.children[key]
		if !ok {
			return false
		}
		n = c
	}
	return true
}

// Encode renders the bag as a query string in insertion order using PHP
// array notation: attrib[cat][]=A_B&attrib[price][min]=10. Brackets stay
// literal; names and values are escaped.
func (p *Params) Encode() string {
	var parts []string
	for _, key := range p.root.keys {
		parts = encodeNode(parts, url.QueryEscape(key), p.root.children[key])
	}
	return strings.Join(parts, "&")
}

func encodeName(path []string) string {
	name := url.QueryEscape(path[0])
	for _, key := range path[1:] {
		name += "[" + url.QueryEscape(key) + "]"
	}
	return name
}

func encodeNode(parts []string, name string, n *node) []string {
	switch n.kind {
	case kindScalar:
		return append(parts, name+"="+url.QueryEscape(n.scalar))
	case kindList:
		for _, v := range n.list {
			parts = append(parts, name+"[]="+url.QueryEscape(v))
		}
		return parts
	default:
		for _, key := range n.keys {
			parts = encodeNode(parts, name+"["+url.QueryEscape(key)+"]", n.children[key])
		}
		return parts
	}
}
