package floorplan

import (
	"math"

	"github.com/paulmach/orb"
)

// maxGridCells caps the number of buckets in the grid, and with it the
// buckets a single long wall may occupy.
const maxGridCells = 1 << 20

// segmentGrid is a uniform bucket grid over padded segment bounds. It only
// narrows the candidate pairs for the splitter; a pair it reports may still
// not interact, and every interacting pair is reported.
type segmentGrid struct {
	origin   orb.Point
	cellSize float64
	cols     int
	rows     int
	cells    map[int][]int
	bounds   []orb.Bound
}

func newSegmentGrid(segments []WallSegment, pad float64) *segmentGrid {
	g := &segmentGrid{
		cells:  make(map[int][]int),
		bounds: make([]orb.Bound, len(segments)),
	}
	if len(segments) == 0 {
		return g
	}

	extent := segments[0].Bound()
	var totalLen float64
	for i, s := range segments {
		b := s.Bound().Pad(pad)
		g.bounds[i] = b
		extent = extent.Union(b)
		totalLen += s.Length()
	}

	// Cells about the size of an average segment keep both the per-cell
	// population and the per-segment cell count small.
	g.cellSize = math.Max(totalLen/float64(len(segments)), 4*pad)
	if g.cellSize <= 0 {
		g.cellSize = 1
	}
	g.cols, g.rows, g.cellSize = gridDims(extent, g.cellSize)
	g.origin = extent.Min

	for i, b := range g.bounds {
		c0, r0 := g.cell(b.Min)
		c1, r1 := g.cell(b.Max)
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				key := r*g.cols + c
				g.cells[key] = append(g.cells[key], i)
			}
		}
	}
	return g
}

func (g *segmentGrid) cell(p orb.Point) (col, row int) {
	return clampCell((p[0]-g.origin[0])/g.cellSize, g.cols),
		clampCell((p[1]-g.origin[1])/g.cellSize, g.rows)
}

// gridDims sizes the grid over extent, doubling cellSize until the grid has
// at most maxGridCells buckets. The counts stay in float64 until they are
// known to fit in an int. An extent too wide to measure gets one bucket.
func gridDims(extent orb.Bound, cellSize float64) (cols, rows int, size float64) {
	w := extent.Max[0] - extent.Min[0]
	h := extent.Max[1] - extent.Min[1]
	if !finite(w) || !finite(h) {
		return 1, 1, cellSize
	}
	fc := math.Floor(w/cellSize) + 1
	fr := math.Floor(h/cellSize) + 1
	for fc*fr > maxGridCells {
		cellSize *= 2
		fc = math.Floor(w/cellSize) + 1
		fr = math.Floor(h/cellSize) + 1
	}
	return int(fc), int(fr), cellSize
}

// clampCell converts a cell coordinate to an index in [0, n).
func clampCell(f float64, n int) int {
	switch {
	case !(f > 0):
		return 0
	case f >= float64(n):
		return n - 1
	default:
		return int(f)
	}
}

// pairs calls fn once for every unordered pair (i < j) whose padded bounds
// overlap. Iteration order is deterministic. fn returning false stops the scan.
func (g *segmentGrid) pairs(fn func(i, j int) bool) {
	seen := make(map[[2]int]struct{})
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			bucket := g.cells[r*g.cols+c]
			for x := 0; x < len(bucket); x++ {
				for y := x + 1; y < len(bucket); y++ {
					i, j := bucket[x], bucket[y]
					if i > j {
						i, j = j, i
					}
					key := [2]int{i, j}
					if _, ok := seen[key]; ok {
						continue
					}
					seen[key] = struct{}{}
					if !g.bounds[i].Intersects(g.bounds[j]) {
						continue
					}
					if !fn(i, j) {
						return
					}
				}
			}
		}
	}
}

// allPairs is the quadratic reference scan over the same padded bounds.
func allPairs(segments []WallSegment, pad float64, fn func(i, j int) bool) {
	bounds := make([]orb.Bound, len(segments))
	for i, s := range segments {
		bounds[i] = s.Bound().Pad(pad)
	}
	for i := 0; i < len(segments); i++ {
		for j := i + 1; j < len(segments); j++ {
			if !bounds[i].Intersects(bounds[j]) {
				continue
			}
			if !fn(i, j) {
				return
			}
		}
	}
}
