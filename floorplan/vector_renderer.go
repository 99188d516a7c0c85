package floorplan

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ErrNothingToRender is returned when a renderer has no walls and no rooms.
var ErrNothingToRender = errors.New("nothing to render")

// goldenAngle spreads successive hues evenly around the color wheel.
const goldenAngle = 137.50776405

// RoomColor returns a stable, visually distinct color for the i-th room.
func RoomColor(i int) color.NRGBA {
	c := colorful.Hsv(math.Mod(float64(i)*goldenAngle, 360), 0.55, 0.92).Clamped()
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 110}
}

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha
// This is needed for the canvas library which expects premultiplied RGBA
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// RoomRenderer draws walls, room bounding boxes and face outlines as vector
// graphics. All geometry is in output (canonical) coordinates.
type RoomRenderer struct {
	Walls      []WallSegment
	Rooms      []Room
	Faces      []Face
	Padding    float64           // Padding in drawing units
	Resolution canvas.Resolution // Resolution for PNG output
	WallWidth  float64
	// LoadBearingWidth is the stroke width of load-bearing walls.
	LoadBearingWidth float64
	// FlipY draws larger y lower on the page, matching image-space input.
	FlipY      bool
	ShowFaces  bool
	ShowLabels bool // PNG only
}

// NewRoomRenderer creates a renderer for a detection result with default settings.
func NewRoomRenderer(res *Result) *RoomRenderer {
	r := &RoomRenderer{
		Rooms:            res.Rooms,
		Faces:            res.Faces,
		Padding:          20,
		Resolution:       canvas.DPMM(1),
		WallWidth:        2,
		LoadBearingWidth: 5,
		FlipY:            true,
		ShowFaces:        true,
		ShowLabels:       true,
	}
	if res.Graph != nil {
		r.Walls = make([]WallSegment, len(res.Graph.Edges))
		for i := range res.Graph.Edges {
			s := res.Graph.Segment(i)
			s.Start = TransformPoint(s.Start, res.Transform)
			s.End = TransformPoint(s.End, res.Transform)
			r.Walls[i] = s
		}
	}
	return r
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// frame maps drawing coordinates to canvas coordinates.
type frame struct {
	bound   orb.Bound
	padding float64
	width   float64
	height  float64
	flipY   bool
}

func (f frame) toCanvas(p orb.Point) (float64, float64) {
	x := p[0] - f.bound.Min[0] + f.padding
	y := p[1] - f.bound.Min[1] + f.padding
	if f.flipY {
		y = f.height - y
	}
	return x, y
}

func (r *RoomRenderer) frame() (frame, error) {
	var b orb.Bound
	have := false
	extend := func(o orb.Bound) {
		if !have {
			b, have = o, true
			return
		}
		b = b.Union(o)
	}
	for _, w := range r.Walls {
		extend(w.Bound())
	}
	for _, room := range r.Rooms {
		extend(room.BoundingBox.Bound())
	}
	if !have {
		return frame{}, ErrNothingToRender
	}
	return frame{
		bound:   b,
		padding: r.Padding,
		width:   b.Max[0] - b.Min[0] + 2*r.Padding,
		height:  b.Max[1] - b.Min[1] + 2*r.Padding,
		flipY:   r.FlipY,
	}, nil
}

// RenderToSVG writes the plan as an SVG to the provided writer
func (r *RoomRenderer) RenderToSVG(w io.Writer) error {
	f, err := r.frame()
	if err != nil {
		return err
	}
	svgRenderer := svg.New(w, f.width, f.height, nil)
	r.renderToCanvas(svgRenderer, f)
	return svgRenderer.Close()
}

// RenderToPNG writes the plan as a PNG to the provided writer
func (r *RoomRenderer) RenderToPNG(w io.Writer) error {
	f, err := r.frame()
	if err != nil {
		return err
	}
	rast := rasterizer.New(f.width, f.height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, f)
	if r.ShowLabels {
		r.drawLabels(rast, f)
	}
	// Rasterizer implements draw.Image interface, which embeds image.Image
	return png.Encode(w, rast)
}

func (r *RoomRenderer) renderToCanvas(renderer canvasRenderer, f frame) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(f.width, f.height), bgStyle, canvas.Identity)

	// Room boxes first so walls stay on top.
	for i, room := range r.Rooms {
		fill := RoomColor(i)
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(fill)}
		style.Stroke = canvas.Paint{Color: color.RGBA{R: fill.R, G: fill.G, B: fill.B, A: 255}}
		style.StrokeWidth = 1

		b := room.BoundingBox
		renderer.RenderPath(r.ringPath(f, b.Bound().ToRing()), style, canvas.Identity)
	}

	if r.ShowFaces {
		faceStyle := canvas.DefaultStyle
		faceStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		faceStyle.Stroke = canvas.Paint{Color: canvas.Gray}
		faceStyle.StrokeWidth = 1
		faceStyle.Dashes = []float64{4, 4}
		for _, face := range r.Faces {
			renderer.RenderPath(r.ringPath(f, face.Shell), faceStyle, canvas.Identity)
			for _, h := range face.Holes {
				renderer.RenderPath(r.ringPath(f, h), faceStyle, canvas.Identity)
			}
		}
	}

	wallStyle := canvas.DefaultStyle
	wallStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	wallStyle.Stroke = canvas.Paint{Color: canvas.Black}
	for _, w := range r.Walls {
		style := wallStyle
		style.StrokeWidth = r.WallWidth
		if w.LoadBearing {
			style.StrokeWidth = r.LoadBearingWidth
		}
		p := &canvas.Path{}
		x1, y1 := f.toCanvas(w.Start)
		x2, y2 := f.toCanvas(w.End)
		p.MoveTo(x1, y1)
		p.LineTo(x2, y2)
		renderer.RenderPath(p, style, canvas.Identity)
	}
}

func (r *RoomRenderer) ringPath(f frame, ring orb.Ring) *canvas.Path {
	p := &canvas.Path{}
	for i, pt := range ring {
		x, y := f.toCanvas(pt)
		if i == 0 {
			p.MoveTo(x, y)
		} else {
			p.LineTo(x, y)
		}
	}
	p.Close()
	return p
}

// drawLabels writes each room id just inside the top edge of its box, in
// raster pixel space.
func (r *RoomRenderer) drawLabels(img draw.Image, f frame) {
	dpmm := r.Resolution.DPMM()
	for _, room := range r.Rooms {
		b := room.BoundingBox
		top := orb.Point{b.MinX(), b.MaxY()}
		if f.flipY {
			top[1] = b.MinY()
		}
		x, y := f.toCanvas(top)
		// Raster rows grow downward from the top of the canvas.
		px := int(x*dpmm) + 3
		py := int((f.height-y)*dpmm) + 13
		drawText(img, px, py, room.ID, color.RGBA{A: 255})
	}
}

// drawText renders text onto an image at the specified position
func drawText(img draw.Image, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
