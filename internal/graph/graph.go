// Package graph holds an in-memory directed graph addressed by symbol id.
// Nodes live in an arena and edges refer to them by index, so cycles need
// nothing more than a visited set.
package graph

import (
	"cix/internal/symbols"
)

// Edge is a directed edge between two symbol ids.
type Edge struct {
	From       string
	To         string
	Confidence *symbols.Confidence
}

// Graph is a sparse directed graph.
type Graph struct {
	nodes   []string
	nodeIdx map[string]int

	// outEdges[i] lists the edges leaving node i; inEdges mirrors them.
	outEdges [][]edgeEntry
	inEdges  [][]edgeEntry
}

type edgeEntry struct {
	target     int
	confidence *symbols.Confidence
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodeIdx: make(map[string]int),
	}
}

// AddNode adds a node if it doesn't exist, returns its index.
func (g *Graph) AddNode(id string) int {
	if idx, ok := g.nodeIdx[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.nodeIdx[id] = idx
	g.outEdges = append(g.outEdges, nil)
	g.inEdges = append(g.inEdges, nil)
	return idx
}

// AddEdge adds a directed edge from src to dst. Parallel edges collapse
// into one carrying the stronger confidence.
func (g *Graph) AddEdge(src, dst string, conf *symbols.Confidence) {
	srcIdx := g.AddNode(src)
	dstIdx := g.AddNode(dst)

	for i, e := range g.outEdges[srcIdx] {
		if e.target != dstIdx {
			continue
		}
		if stronger(conf, e.confidence) {
			g.outEdges[srcIdx][i].confidence = conf
			for j, in := range g.inEdges[dstIdx] {
				if in.target == srcIdx {
					g.inEdges[dstIdx][j].confidence = conf
				}
			}
		}
		return
	}

	g.outEdges[srcIdx] = append(g.outEdges[srcIdx], edgeEntry{target: dstIdx, confidence: conf})
	g.inEdges[dstIdx] = append(g.inEdges[dstIdx], edgeEntry{target: srcIdx, confidence: conf})
}

// AddEdges adds multiple edges at once.
func (g *Graph) AddEdges(edges []Edge) {
	for _, e := range edges {
		g.AddEdge(e.From, e.To, e.Confidence)
	}
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the total number of edges.
func (g *Graph) NumEdges() int {
	total := 0
	for _, edges := range g.outEdges {
		total += len(edges)
	}
	return total
}

// Nodes returns all node ids in insertion order.
func (g *Graph) Nodes() []string {
	return g.nodes
}

// HasNode checks if a node exists in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeIdx[id]
	return ok
}

// Neighbors returns the outgoing neighbors of a node.
func (g *Graph) Neighbors(id string) []string {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return nil
	}
	neighbors := make([]string, len(g.outEdges[idx]))
	for i, e := range g.outEdges[idx] {
		neighbors[i] = g.nodes[e.target]
	}
	return neighbors
}

// InDegree returns the number of distinct nodes pointing at id.
func (g *Graph) InDegree(id string) int {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return 0
	}
	return len(g.inEdges[idx])
}

// OutDegree returns the number of distinct nodes id points at.
func (g *Graph) OutDegree(id string) int {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return 0
	}
	return len(g.outEdges[idx])
}

// Reach is one node found by Walk.
type Reach struct {
	ID string
	// Path runs from the start node to ID inclusive.
	Path []string
	// MinConfidence is the weakest edge confidence along Path.
	MinConfidence *symbols.Confidence
}

// Walk explores breadth-first from start and reports every reachable node
// once, in discovery order, with the shortest path that reached it. Nodes
// for which stop returns true are reported but not expanded.
func (g *Graph) Walk(start string, stop func(id string) bool) []Reach {
	startIdx, ok := g.nodeIdx[start]
	if !ok {
		return nil
	}

	parent := map[int]int{startIdx: -1}
	minConf := map[int]*symbols.Confidence{}
	queue := []int{startIdx}
	var out []Reach

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur != startIdx && stop != nil && stop(g.nodes[cur]) {
			continue
		}
		for _, e := range g.outEdges[cur] {
			if _, seen := parent[e.target]; seen {
				continue
			}
			parent[e.target] = cur
			if cur == startIdx {
				minConf[e.target] = e.confidence
			} else {
				minConf[e.target] = symbols.MinConfidence(minConf[cur], e.confidence)
			}
			out = append(out, Reach{
				ID:            g.nodes[e.target],
				Path:          g.pathTo(e.target, parent),
				MinConfidence: minConf[e.target],
			})
			queue = append(queue, e.target)
		}
	}
	return out
}

func (g *Graph) pathTo(idx int, parent map[int]int) []string {
	var path []string
	for cur := idx; cur >= 0; cur = parent[cur] {
		path = append(path, g.nodes[cur])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// stronger reports whether a outranks b; a known confidence beats nil.
func stronger(a, b *symbols.Confidence) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.Rank() > b.Rank()
}
