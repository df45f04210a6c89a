package entity

import (
	"github.com/rkm/dwg/internal/bitio"
	"github.com/rkm/dwg/internal/version"
)

// Solid is the supplemented SOLID entity: a filled quadrilateral (or
// triangle, when Corner3 equals Corner4) in a single elevation plane.
type Solid struct {
	base
	Thickness                          float64
	Elevation                          float64
	Corner1, Corner2, Corner3, Corner4 bitio.Point2D
	Extrusion                          bitio.Point3D
}

func decodeSolid(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	s := &Solid{base: base{handle: handle, typeName: typeName}, Extrusion: bitio.Point3D{X: 0, Y: 0, Z: 1}}
	var err error
	s.Thickness, err = r.BT(0)
	if err != nil {
		return nil, wrapErr(err)
	}
	s.Elevation, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	for _, p := range []*bitio.Point2D{&s.Corner1, &s.Corner2, &s.Corner3, &s.Corner4} {
		*p, err = r.RD2()
		if err != nil {
			return nil, wrapErr(err)
		}
	}
	s.Extrusion, err = r.BE()
	if err != nil {
		return nil, wrapErr(err)
	}
	return s, nil
}

// Trace is the supplemented TRACE entity, schema-identical to SOLID (a
// four-corner filled quadrilateral used for wide line segments).
type Trace struct {
	base
	Thickness                         float64
	Elevation                          float64
	Corner1, Corner2, Corner3, Corner4 bitio.Point2D
	Extrusion                          bitio.Point3D
}

func decodeTrace(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	t := &Trace{base: base{handle: handle, typeName: typeName}, Extrusion: bitio.Point3D{X: 0, Y: 0, Z: 1}}
	var err error
	t.Thickness, err = r.BT(0)
	if err != nil {
		return nil, wrapErr(err)
	}
	t.Elevation, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	for _, p := range []*bitio.Point2D{&t.Corner1, &t.Corner2, &t.Corner3, &t.Corner4} {
		*p, err = r.RD2()
		if err != nil {
			return nil, wrapErr(err)
		}
	}
	t.Extrusion, err = r.BE()
	if err != nil {
		return nil, wrapErr(err)
	}
	return t, nil
}

// Vertex2D is the supplemented VERTEX_2D entity: one polyline vertex with
// its own bulge, tangent direction, and segment width, owned by a
// POLYLINE_2D (not itself decoded; this decoder never chases the owning
// polyline's handle-stream).
type Vertex2D struct {
	base
	Flags                uint16
	Point                bitio.Point3D
	Bulge                float64
	StartWidth, EndWidth float64
	TangentDir           float64
}

func decodeVertex2D(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	vx := &Vertex2D{base: base{handle: handle, typeName: typeName}}
	var err error
	vx.Flags, err = r.RS()
	if err != nil {
		return nil, wrapErr(err)
	}
	vx.Point, err = r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	vx.StartWidth, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	if vx.StartWidth < 0 {
		vx.StartWidth = -vx.StartWidth
		vx.EndWidth = vx.StartWidth
	} else {
		vx.EndWidth, err = r.BD()
		if err != nil {
			return nil, wrapErr(err)
		}
	}
	vx.Bulge, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	vx.TangentDir, err = r.BD()
	if err != nil {
		return nil, wrapErr(err)
	}
	return vx, nil
}

// Vertex3D is the supplemented VERTEX_3D entity: a single 3D point owned
// by a POLYLINE_3D or POLYMESH.
type Vertex3D struct {
	base
	Flags uint8
	Point bitio.Point3D
}

func decodeVertex3D(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	flags, err := r.RC()
	if err != nil {
		return nil, wrapErr(err)
	}
	pt, err := r.BD3()
	if err != nil {
		return nil, wrapErr(err)
	}
	return &Vertex3D{base: base{handle: handle, typeName: typeName}, Flags: flags, Point: pt}, nil
}

// Polyline3D is the supplemented POLYLINE_3D entity: the owning object for
// a chain of VERTEX_3D entities. It carries its own flags and the count of
// owned vertices; the owned-object handle list itself lives in the
// handle-stream and is not walked here.
type Polyline3D struct {
	base
	Flags75       uint8
	Flags70       uint8
	OwnedObjCount uint32
}

func decodePolyline3D(handle uint64, typeName string, r *bitio.Reader, v version.Version) (Record, error) {
	flags75, err := r.RC()
	if err != nil {
		return nil, wrapErr(err)
	}
	flags70, err := r.RC()
	if err != nil {
		return nil, wrapErr(err)
	}
	ownedObjCount, err := r.BL()
	if err != nil {
		return nil, wrapErr(err)
	}
	return &Polyline3D{
		base:          base{handle: handle, typeName: typeName},
		Flags75:       flags75,
		Flags70:       flags70,
		OwnedObjCount: ownedObjCount,
	}, nil
}
