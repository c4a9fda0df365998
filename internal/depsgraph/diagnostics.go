package depsgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle — в графе операций есть цикл.
var ErrCycle = errors.New("cycle between operations")

// Operations возвращает все операции графа, упорядоченные по пути.
func (g *Graph) Operations() []*OperationNode {
	var ops []*OperationNode
	for _, e := range g.Entities() {
		for _, c := range e.Components() {
			ops = append(ops, c.Operations()...)
			if pose, ok := c.(*PoseComponentNode); ok {
				for _, b := range pose.Bones() {
					ops = append(ops, b.Operations()...)
				}
			}
		}
	}
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Path() < ops[j].Path() })
	return ops
}

// Relations возвращает все связи графа, упорядоченные по концам и типу.
// Каждая связь встречается один раз.
func (g *Graph) Relations() []*Relation {
	seen := make(map[*Relation]struct{})
	var rels []*Relation

	collect := func(l Linkable) {
		for _, rel := range l.linkSet().outlinks {
			if _, ok := seen[rel]; ok {
				continue
			}
			seen[rel] = struct{}{}
			rels = append(rels, rel)
		}
	}

	for _, e := range g.Entities() {
		for _, c := range e.Components() {
			collect(c)
			for _, op := range c.Operations() {
				collect(op)
			}
			if pose, ok := c.(*PoseComponentNode); ok {
				for _, b := range pose.Bones() {
					collect(b)
					for _, op := range b.Operations() {
						collect(op)
					}
				}
			}
		}
	}

	sort.SliceStable(rels, func(i, j int) bool {
		a, b := rels[i], rels[j]
		if pa, pb := endpointPath(a.From), endpointPath(b.From); pa != pb {
			return pa < pb
		}
		if pa, pb := endpointPath(a.To), endpointPath(b.To); pa != pb {
			return pa < pb
		}
		return a.Kind < b.Kind
	})
	return rels
}

// DetectCycles ищет цикл среди связей графа обходом в глубину.
// Возвращает ErrCycle с путём цикла или nil. Порядок вычисления
// не строится.
func (g *Graph) DetectCycles() error {
	const (
		white = iota
		grey
		black
	)

	rels := g.Relations()
	adj := make(map[Linkable][]Linkable)
	var nodes []Linkable
	known := make(map[Linkable]bool)
	add := func(n Linkable) {
		if !known[n] {
			known[n] = true
			nodes = append(nodes, n)
		}
	}
	for _, rel := range rels {
		add(rel.From)
		add(rel.To)
		adj[rel.From] = append(adj[rel.From], rel.To)
	}

	color := make(map[Linkable]int, len(nodes))
	var stack []Linkable

	var visit func(n Linkable) []Linkable
	visit = func(n Linkable) []Linkable {
		color[n] = grey
		stack = append(stack, n)
		for _, next := range adj[n] {
			switch color[next] {
			case grey:
				for i, s := range stack {
					if s == next {
						return append(append([]Linkable(nil), stack[i:]...), next)
					}
				}
			case white:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return nil
	}

	for _, n := range nodes {
		if color[n] != white {
			continue
		}
		if cycle := visit(n); cycle != nil {
			parts := make([]string, len(cycle))
			for i, c := range cycle {
				parts[i] = endpointPath(c)
			}
			return &InvariantError{Node: g.Name, Op: "detect cycles", Err: fmt.Errorf("%w: %s", ErrCycle, strings.Join(parts, " -> "))}
		}
	}
	return nil
}
