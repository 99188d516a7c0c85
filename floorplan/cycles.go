package floorplan

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// findFacesFallback searches, for every edge, the shortest cycle through it
// and returns each distinct cycle as a counter-clockwise face. It is slower
// and less exact than findFacesPrimary but does not depend on a consistent
// embedding.
func findFacesFallback(ctx context.Context, g *PlanarGraph, maxCycles int) ([]Face, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	adj := make([][]adjacent, len(g.Vertices))
	for k, e := range g.Edges {
		adj[e.U] = append(adj[e.U], adjacent{to: e.V, edge: k})
		adj[e.V] = append(adj[e.V], adjacent{to: e.U, edge: k})
	}

	seen := make(map[string]struct{})
	var faces []Face
	for k, e := range g.Edges {
		if maxCycles > 0 && len(faces) >= maxCycles {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeadlineExceeded, err)
		}

		path := shortestPath(g.Vertices, adj, e.V, e.U, k)
		if len(path) < 3 {
			continue
		}
		key := cycleKey(path)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		shell := closeRing(walkRing(g.Vertices, path))
		a := signedArea(shell)
		if a == 0 {
			continue
		}
		if a < 0 {
			reverseRing(shell)
		}
		faces = append(faces, Face{
			Shell:     shell,
			Area:      math.Abs(a),
			Perimeter: planar.Length(shell),
			Source:    SourceFallback,
		})
	}
	return faces, nil
}

// cycleKey identifies a cycle by its vertex set.
func cycleKey(path []int) string {
	ids := append([]int(nil), path...)
	sort.Ints(ids)
	var b strings.Builder
	for i, v := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// shortestPath runs Dijkstra from src to dst without using edge skip and
// returns the vertex path, or nil when dst is unreachable.
func shortestPath(vertices []orb.Point, adj [][]adjacent, src, dst, skip int) []int {
	dist := make([]float64, len(vertices))
	prev := make([]int, len(vertices))
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[src] = 0

	pq := &vertexQueue{{vertex: src}}
	for pq.Len() > 0 {
		item := heap.Pop(pq).(queueItem)
		if item.dist > dist[item.vertex] {
			continue
		}
		if item.vertex == dst {
			break
		}
		for _, a := range adj[item.vertex] {
			if a.edge == skip {
				continue
			}
			d := item.dist + distance(vertices[item.vertex], vertices[a.to])
			if d < dist[a.to] {
				dist[a.to] = d
				prev[a.to] = item.vertex
				heap.Push(pq, queueItem{vertex: a.to, dist: d})
			}
		}
	}
	if math.IsInf(dist[dst], 1) {
		return nil
	}

	var path []int
	for v := dst; v != -1; v = prev[v] {
		path = append(path, v)
	}
	// path runs dst..src; reverse to src..dst.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type queueItem struct {
	vertex int
	dist   float64
}

// vertexQueue is a min-heap on distance, ties broken by vertex index.
type vertexQueue []queueItem

func (q vertexQueue) Len() int { return len(q) }
func (q vertexQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].vertex < q[j].vertex
}
func (q vertexQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *vertexQueue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *vertexQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
