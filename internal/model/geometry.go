package model

// Point2D is an integer point in the plane of a rectangle bin.
type Point2D struct {
	X int64
	Y int64
}

// Point3D is an integer point inside a box bin.
type Point3D struct {
	X int64
	Y int64
	Z int64
}

// Rect is an axis-aligned rectangle given by its origin and extents.
type Rect struct {
	X, Y   int64
	Lx, Ly int64
}

// Box is an axis-aligned box given by its origin and extents.
type Box struct {
	X, Y, Z    int64
	Lx, Ly, Lz int64
}

// Intersects reports whether two rectangles overlap with non-zero area.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.Lx && o.X < r.X+r.Lx &&
		r.Y < o.Y+o.Ly && o.Y < r.Y+r.Ly
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y &&
		o.X+o.Lx <= r.X+r.Lx && o.Y+o.Ly <= r.Y+r.Ly
}

// Intersects reports whether two boxes overlap with non-zero volume.
func (b Box) Intersects(o Box) bool {
	return b.X < o.X+o.Lx && o.X < b.X+b.Lx &&
		b.Y < o.Y+o.Ly && o.Y < b.Y+b.Ly &&
		b.Z < o.Z+o.Lz && o.Z < b.Z+b.Lz
}

// Contains reports whether o lies entirely inside b.
func (b Box) Contains(o Box) bool {
	return o.X >= b.X && o.Y >= b.Y && o.Z >= b.Z &&
		o.X+o.Lx <= b.X+b.Lx && o.Y+o.Ly <= b.Y+b.Ly && o.Z+o.Lz <= b.Z+b.Lz
}

// YIntersects reports whether the vertical bands [y1s,y1e) and [y2s,y2e)
// overlap, used by the rectangle scheme's staircase maintenance and
// dominance test.
func YIntersects(y1s, y1e, y2s, y2e int64) bool {
	return y1s < y2e && y2s < y1e
}

// ZIntersects is the z-axis analogue of YIntersects, used by the box
// scheme.
func ZIntersects(z1s, z1e, z2s, z2e int64) bool {
	return z1s < z2e && z2s < z1e
}
