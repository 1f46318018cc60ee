package detector

import (
	"container/list"
	"image"

	"github.com/veridose/boxscan/internal/utils"
)

// cellSize is the edge-density grid resolution in working-image pixels.
// Boxes are large printed objects, so region proposal runs on a coarse
// grid rather than per pixel.
const cellSize = 16

// cellActivation is the minimum fraction of edge pixels for a grid cell
// to count as part of a candidate object.
const cellActivation = 0.08

// edgeGrid aggregates a binary edge mask into a coarse density grid.
type edgeGrid struct {
	w, h    int // grid dimensions
	density []float64
}

// buildEdgeGrid computes per-cell edge density from a binary edge image.
func buildEdgeGrid(mask *image.Gray) *edgeGrid {
	b := mask.Bounds()
	gw := (b.Dx() + cellSize - 1) / cellSize
	gh := (b.Dy() + cellSize - 1) / cellSize
	g := &edgeGrid{w: gw, h: gh, density: make([]float64, gw*gh)}

	counts := make([]int, gw*gh)
	totals := make([]int, gw*gh)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		gy := (y - b.Min.Y) / cellSize
		for x := b.Min.X; x < b.Max.X; x++ {
			gx := (x - b.Min.X) / cellSize
			idx := gy*gw + gx
			totals[idx]++
			if mask.GrayAt(x, y).Y > 0 {
				counts[idx]++
			}
		}
	}
	for i := range g.density {
		if totals[i] > 0 {
			g.density[i] = float64(counts[i]) / float64(totals[i])
		}
	}
	return g
}

func (g *edgeGrid) active(idx int) bool { return g.density[idx] >= cellActivation }

// gridComponent holds the stats of one connected group of active cells.
type gridComponent struct {
	count                  int
	sum                    float64
	minX, minY, maxX, maxY int
}

// connectedComponents finds 4-connected groups of active cells via BFS.
func connectedComponents(g *edgeGrid) []gridComponent {
	visited := make([]bool, g.w*g.h)
	var comps []gridComponent

	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			idx := y*g.w + x
			if !g.active(idx) || visited[idx] {
				continue
			}
			comps = append(comps, componentBFS(g, visited, x, y))
		}
	}
	return comps
}

func componentBFS(g *edgeGrid, visited []bool, startX, startY int) gridComponent {
	idx := func(x, y int) int { return y*g.w + x }
	st := gridComponent{minX: startX, minY: startY, maxX: startX, maxY: startY}

	q := list.New()
	q.PushBack(idx(startX, startY))
	visited[idx(startX, startY)] = true

	dirs := [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for q.Len() > 0 {
		e := q.Front()
		q.Remove(e)
		ci, ok := e.Value.(int)
		if !ok {
			continue
		}
		cx, cy := ci%g.w, ci/g.w

		st.count++
		st.sum += g.density[ci]
		if cx < st.minX {
			st.minX = cx
		}
		if cy < st.minY {
			st.minY = cy
		}
		if cx > st.maxX {
			st.maxX = cx
		}
		if cy > st.maxY {
			st.maxY = cy
		}

		for _, d := range dirs {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || nx >= g.w || ny < 0 || ny >= g.h {
				continue
			}
			ni := idx(nx, ny)
			if g.active(ni) && !visited[ni] {
				visited[ni] = true
				q.PushBack(ni)
			}
		}
	}
	return st
}

// proposalsFromComponents converts grid components into box proposals in
// working-image pixel coordinates.
func proposalsFromComponents(comps []gridComponent, imgW, imgH int) []proposal {
	props := make([]proposal, 0, len(comps))
	for _, c := range comps {
		if c.count == 0 {
			continue
		}
		box := utils.NewBox(
			float64(c.minX*cellSize),
			float64(c.minY*cellSize),
			minFloat(float64((c.maxX+1)*cellSize), float64(imgW)),
			minFloat(float64((c.maxY+1)*cellSize), float64(imgH)),
		)
		meanDensity := c.sum / float64(c.count)
		// A box fully covered in crisp print saturates around 0.2 density.
		conf := utils.Clamp01(meanDensity * 5)
		props = append(props, proposal{box: box, confidence: conf})
	}
	return props
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
