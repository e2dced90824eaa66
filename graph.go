package gltfx

import (
	"github.com/cockroachdb/errors"
)

// LinkKind classifies the role of a Link.
type LinkKind int

const (
	// LinkGeneric covers every named role that is not a vertex attribute or
	// an index reference (buffer, mesh, input, output, ...).
	LinkGeneric LinkKind = iota
	// LinkAttribute references a vertex attribute; its name is the semantic.
	LinkAttribute
	// LinkIndex references the indices of a primitive.
	LinkIndex
)

func (k LinkKind) String() string {
	switch k {
	case LinkAttribute:
		return "attribute"
	case LinkIndex:
		return "index"
	default:
		return "generic"
	}
}

// Link is a directed edge from a parent Property to a child Property.
type Link struct {
	name     string
	kind     LinkKind
	parent   Property
	child    Property
	disposed bool
}

func (l *Link) Name() string     { return l.name }
func (l *Link) Kind() LinkKind   { return l.kind }
func (l *Link) Parent() Property { return l.parent }
func (l *Link) Child() Property  { return l.child }
func (l *Link) IsDisposed() bool { return l.disposed }

// Graph keeps the adjacency tables of a Document. Links are indexed from
// both ends so that every query touches only the edges of one node.
type Graph struct {
	parents  map[Property][]*Link // incoming, keyed by child
	children map[Property][]*Link // outgoing, keyed by parent
}

func newGraph() *Graph {
	return &Graph{
		parents:  map[Property][]*Link{},
		children: map[Property][]*Link{},
	}
}

func (g *Graph) link(name string, kind LinkKind, parent, child Property) *Link {
	l := &Link{name: name, kind: kind, parent: parent, child: child}
	g.parents[child] = append(g.parents[child], l)
	g.children[parent] = append(g.children[parent], l)
	return l
}

func (g *Graph) unlink(l *Link) {
	if l == nil || l.disposed {
		return
	}
	g.parents[l.child] = removeLink(g.parents[l.child], l)
	if len(g.parents[l.child]) == 0 {
		delete(g.parents, l.child)
	}
	g.children[l.parent] = removeLink(g.children[l.parent], l)
	if len(g.children[l.parent]) == 0 {
		delete(g.children, l.parent)
	}
	l.disposed = true
}

func removeLink(links []*Link, l *Link) []*Link {
	for i, x := range links {
		if x == l {
			return append(links[:i:i], links[i+1:]...)
		}
	}
	return links
}

// ListParentLinks returns the links pointing at p.
func (g *Graph) ListParentLinks(p Property) []*Link {
	return append([]*Link(nil), g.parents[p]...)
}

// ListChildLinks returns the links held by p.
func (g *Graph) ListChildLinks(p Property) []*Link {
	return append([]*Link(nil), g.children[p]...)
}

// ListParents returns the distinct properties holding a link to p, in link
// order.
func (g *Graph) ListParents(p Property) []Property {
	links := g.parents[p]
	out := make([]Property, 0, len(links))
	seen := make(map[Property]struct{}, len(links))
	for _, l := range links {
		if _, ok := seen[l.parent]; ok {
			continue
		}
		seen[l.parent] = struct{}{}
		out = append(out, l.parent)
	}
	return out
}

// Swap rewires every link pointing at old so that it points at replacement.
// Names and kinds are preserved.
func (g *Graph) Swap(old, replacement Property) {
	if old == replacement {
		return
	}
	for _, l := range g.parents[old] {
		l.child = replacement
		g.parents[replacement] = append(g.parents[replacement], l)
	}
	delete(g.parents, old)
}

// SwapChild rewires the links held by parent that point at old.
func (g *Graph) SwapChild(parent, old, replacement Property) {
	if old == replacement {
		return
	}
	for _, l := range g.children[parent] {
		if l.child != old {
			continue
		}
		g.parents[old] = removeLink(g.parents[old], l)
		l.child = replacement
		g.parents[replacement] = append(g.parents[replacement], l)
	}
	if len(g.parents[old]) == 0 {
		delete(g.parents, old)
	}
}

// Dispose detaches p from the graph. It fails if any link still points at
// p; the caller must release those references first.
func (g *Graph) Dispose(p Property) error {
	if p.IsDisposed() {
		return nil
	}
	if n := len(g.parents[p]); n > 0 {
		return errors.Wrapf(ErrInvariantViolation, "cannot dispose %s %q: %d parent link(s) remain", p.PropertyType(), p.Name(), n)
	}
	for _, l := range g.ListChildLinks(p) {
		g.unlink(l)
	}
	p.base().disposed = true
	return nil
}
