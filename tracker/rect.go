package tracker

// Tlwh (top, left, width, height) represents a 1x4 matrix
type Tlwh [4]float32

// Tlbr (top, left, bottom, right) represents a 1x4 matrix
type Tlbr [4]float32

// Xyah (center x, center y, aspect ratio, height) represents a 1x4 matrix
type Xyah [4]float32

// Rect represents a rectangle with Tlwh (top, left, width, height) format.
// Rect has value semantics so copies never share coordinates.
type Rect struct {
	Tlwh Tlwh
}

// NewRect creates a new Rect with given coordinates
func NewRect(x, y, width, height float32) Rect {
	return Rect{
		Tlwh: Tlwh{x, y, width, height},
	}
}

// X returns the x coordinate of the rectangle
func (r Rect) X() float32 {
	return r.Tlwh[0]
}

// Y returns the y coordinate of the rectangle
func (r Rect) Y() float32 {
	return r.Tlwh[1]
}

// Width returns the width of the rectangle
func (r Rect) Width() float32 {
	return r.Tlwh[2]
}

// Height returns the height of the rectangle
func (r Rect) Height() float32 {
	return r.Tlwh[3]
}

// TLX returns the top-left x coordinate of the rectangle
func (r Rect) TLX() float32 {
	return r.Tlwh[0]
}

// TLY returns the top-left y coordinate of the rectangle
func (r Rect) TLY() float32 {
	return r.Tlwh[1]
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r Rect) BRX() float32 {
	return r.Tlwh[0] + r.Tlwh[2]
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r Rect) BRY() float32 {
	return r.Tlwh[1] + r.Tlwh[3]
}

// Center returns the center point of the rectangle
func (r Rect) Center() (float32, float32) {
	return r.Tlwh[0] + r.Tlwh[2]*0.5, r.Tlwh[1] + r.Tlwh[3]*0.5
}

// Area returns the area of the rectangle, zero for degenerate rectangles
func (r Rect) Area() float32 {
	if r.IsEmpty() {
		return 0
	}

	return r.Tlwh[2] * r.Tlwh[3]
}

// IsEmpty reports whether the rectangle has a non-positive width or height
func (r Rect) IsEmpty() bool {
	return r.Tlwh[2] <= 0 || r.Tlwh[3] <= 0
}

// ContainsPoint reports whether the point lies inside the rectangle, edges
// included
func (r Rect) ContainsPoint(x, y float32) bool {
	return x >= r.TLX() && x <= r.BRX() && y >= r.TLY() && y <= r.BRY()
}

// GetTlbr converts the rectangle to Tlbr (top, left, bottom, right) format
func (r Rect) GetTlbr() Tlbr {
	return Tlbr{r.TLX(), r.TLY(), r.BRX(), r.BRY()}
}

// GetXyah converts the rectangle to Xyah (center x, center y, aspect ratio,
// height) format
func (r Rect) GetXyah() Xyah {
	cx, cy := r.Center()
	return Xyah{cx, cy, r.Tlwh[2] / r.Tlwh[3], r.Tlwh[3]}
}

// CalcIoU calculates the Intersection over Union (IoU) with another rectangle.
// Returns 0 when the rectangles are disjoint.
func (r Rect) CalcIoU(other Rect) float32 {

	iw := minf(r.BRX(), other.BRX()) - maxf(r.TLX(), other.TLX())

	if iw <= 0 {
		return 0
	}

	ih := minf(r.BRY(), other.BRY()) - maxf(r.TLY(), other.TLY())

	if ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := r.Area() + other.Area() - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}

// GenerateRectByTlbr creates a Rect from Tlbr (top, left, bottom, right) format
func GenerateRectByTlbr(tlbr Tlbr) Rect {
	return NewRect(tlbr[0], tlbr[1], tlbr[2]-tlbr[0], tlbr[3]-tlbr[1])
}

// GenerateRectByXyah creates a Rect from Xyah (center x, center y,
// aspect ratio, height) format
func GenerateRectByXyah(xyah Xyah) Rect {
	width := xyah[2] * xyah[3]
	return NewRect(xyah[0]-width/2, xyah[1]-xyah[3]/2, width, xyah[3])
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
