package record

// Point is a location in a two-dimensional coordinate space.
type Point struct {
	X, Y float64
}

// Size is a width and height pair.
type Size struct {
	Width, Height float64
}

// Rect is a rectangle described by its origin and size.
type Rect struct {
	Origin Point
	Size   Size
}

const (
	keyX      = "x"
	keyY      = "y"
	keyWidth  = "width"
	keyHeight = "height"
	keyOrigin = "origin"
	keySize   = "size"
)

// ArchiveRecord encodes p as {"x", "y"}.
func (p Point) ArchiveRecord() Record {
	return Record{keyX: Float(p.X), keyY: Float(p.Y)}
}

// DecodePoint never fails: a missing or non-numeric coordinate reads as 0.
func DecodePoint(r Record) (Point, error) {
	x, _ := r.GetFloat(keyX)
	y, _ := r.GetFloat(keyY)
	return Point{X: x, Y: y}, nil
}

// ArchiveRecord encodes s as {"width", "height"}.
func (s Size) ArchiveRecord() Record {
	return Record{keyWidth: Float(s.Width), keyHeight: Float(s.Height)}
}

// DecodeSize never fails: a missing or non-numeric dimension reads as 0.
func DecodeSize(r Record) (Size, error) {
	w, _ := r.GetFloat(keyWidth)
	h, _ := r.GetFloat(keyHeight)
	return Size{Width: w, Height: h}, nil
}

// ArchiveRecord encodes rc as {"origin", "size"}.
func (rc Rect) ArchiveRecord() Record {
	return Record{
		keyOrigin: Nested(rc.Origin.ArchiveRecord()),
		keySize:   Nested(rc.Size.ArchiveRecord()),
	}
}

// DecodeRect returns the zero Rect when origin or size is missing or is
// not a record.
func DecodeRect(r Record) (Rect, error) {
	origin, ok := r.GetRecord(keyOrigin)
	if !ok {
		return Rect{}, nil
	}
	size, ok := r.GetRecord(keySize)
	if !ok {
		return Rect{}, nil
	}
	p, _ := DecodePoint(origin)
	s, _ := DecodeSize(size)
	return Rect{Origin: p, Size: s}, nil
}
