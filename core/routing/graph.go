// Package routing holds the static delivery network and answers shortest
// path queries over it with Dijkstra's algorithm.
package routing

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kilianp07/dronedispatch/core/model"
)

// Unreachable is returned as the distance between two locations that are not
// connected. It is larger than any real path sum.
const Unreachable = math.MaxInt

var (
	ErrEmptyLocation     = errors.New("routing: empty location name")
	ErrDuplicateLocation = errors.New("routing: duplicate location")
	ErrUnknownLocation   = errors.New("routing: unknown location")
	ErrSelfLoop          = errors.New("routing: self loop")
	ErrDuplicateEdge     = errors.New("routing: duplicate edge")
	ErrInvalidWeight     = errors.New("routing: edge weight must be positive")
)

// Edge is an undirected weighted connection between two locations.
type Edge struct {
	From   model.Location `json:"from" yaml:"from"`
	To     model.Location `json:"to" yaml:"to"`
	Weight int            `json:"weight" yaml:"weight"`
}

// Router answers distance queries. Graph is the default implementation.
type Router interface {
	ShortestDistance(start, end model.Location) int
}

// Graph is an immutable weighted undirected graph of named locations. All
// methods are safe for concurrent use.
type Graph struct {
	g     *simple.WeightedUndirectedGraph
	ids   map[model.Location]int64
	names []model.Location
}

// New builds a graph from the given locations and edges. Every edge is added
// in both directions.
func New(locations []model.Location, edges []Edge) (*Graph, error) {
	gr := &Graph{
		g:   simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		ids: make(map[model.Location]int64, len(locations)),
	}
	for _, loc := range locations {
		if loc == "" {
			return nil, ErrEmptyLocation
		}
		if _, ok := gr.ids[loc]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLocation, loc)
		}
		id := int64(len(gr.names))
		gr.ids[loc] = id
		gr.names = append(gr.names, loc)
		gr.g.AddNode(simple.Node(id))
	}
	for _, e := range edges {
		from, ok := gr.ids[e.From]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLocation, e.From)
		}
		to, ok := gr.ids[e.To]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLocation, e.To)
		}
		if from == to {
			return nil, fmt.Errorf("%w: %s", ErrSelfLoop, e.From)
		}
		if e.Weight <= 0 {
			return nil, fmt.Errorf("%w: %s-%s=%d", ErrInvalidWeight, e.From, e.To, e.Weight)
		}
		if gr.g.HasEdgeBetween(from, to) {
			return nil, fmt.Errorf("%w: %s-%s", ErrDuplicateEdge, e.From, e.To)
		}
		gr.g.SetWeightedEdge(gr.g.NewWeightedEdge(simple.Node(from), simple.Node(to), float64(e.Weight)))
	}
	return gr, nil
}

// DefaultTopology returns the four-location network the service ships with.
func DefaultTopology() ([]model.Location, []Edge) {
	return []model.Location{"Warehouse", "Downtown", "Uptown", "Airport"},
		[]Edge{
			{From: "Warehouse", To: "Downtown", Weight: 5},
			{From: "Warehouse", To: "Uptown", Weight: 3},
			{From: "Downtown", To: "Airport", Weight: 2},
			{From: "Uptown", To: "Airport", Weight: 6},
		}
}

// NewDefault builds the graph returned by DefaultTopology.
func NewDefault() *Graph {
	locs, edges := DefaultTopology()
	g, err := New(locs, edges)
	if err != nil {
		panic(err)
	}
	return g
}

// Has reports whether loc is part of the network.
func (gr *Graph) Has(loc model.Location) bool {
	_, ok := gr.ids[loc]
	return ok
}

// Locations returns the locations in declaration order.
func (gr *Graph) Locations() []model.Location {
	return append([]model.Location(nil), gr.names...)
}

// Neighbors returns the direct neighbours of loc with their edge weights.
func (gr *Graph) Neighbors(loc model.Location) map[model.Location]int {
	id, ok := gr.ids[loc]
	if !ok {
		return nil
	}
	res := make(map[model.Location]int)
	it := gr.g.From(id)
	for it.Next() {
		n := it.Node().ID()
		w, _ := gr.g.Weight(id, n)
		res[gr.names[n]] = int(w)
	}
	return res
}

// ShortestDistance returns the length of the shortest path between start and
// end, or Unreachable when no path exists or either location is unknown.
func (gr *Graph) ShortestDistance(start, end model.Location) int {
	_, d := gr.ShortestPath(start, end)
	return d
}

// ShortestPath returns the locations along a shortest path from start to end
// together with its length. The path is nil when end is unreachable.
func (gr *Graph) ShortestPath(start, end model.Location) ([]model.Location, int) {
	from, ok := gr.ids[start]
	if !ok {
		return nil, Unreachable
	}
	to, ok := gr.ids[end]
	if !ok {
		return nil, Unreachable
	}
	tree := path.DijkstraFrom(simple.Node(from), gr.g)
	nodes, w := tree.To(to)
	if nodes == nil || math.IsInf(w, 1) {
		return nil, Unreachable
	}
	route := make([]model.Location, len(nodes))
	for i, n := range nodes {
		route[i] = gr.names[n.ID()]
	}
	return route, int(math.Round(w))
}

// IsReachable reports whether d is a real distance.
func IsReachable(d int) bool { return d != Unreachable }
