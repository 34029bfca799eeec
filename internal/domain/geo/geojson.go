package geo

import (
	"encoding/json"
	"fmt"
)

// GeoJSON closed rings repeat the first position, so four positions is
// the smallest ring that can enclose anything.
const minRingPositions = 4

// geometry is the wire shape of a GeoJSON geometry object.
type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// DecodeGeometry parses a GeoJSON geometry object of type Polygon or
// MultiPolygon into a boundary. Positions are [lon, lat] per the GeoJSON
// spec. Anything structurally unusable comes back as an error; a
// boundary never decodes to something that silently contains nothing.
func DecodeGeometry(raw []byte) (MultiPolygon, error) {
	var g geometry
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}

	switch g.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("decode polygon coordinates: %w", err)
		}
		p, err := buildPolygon(rings, 0)
		if err != nil {
			return nil, err
		}
		return MultiPolygon{p}, nil
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("decode multipolygon coordinates: %w", err)
		}
		if len(polys) == 0 {
			return nil, ErrEmptyGeometry
		}
		out := make(MultiPolygon, 0, len(polys))
		for i, rings := range polys {
			p, err := buildPolygon(rings, i)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	case "":
		return nil, ErrEmptyGeometry
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGeometry, g.Type)
	}
}

// buildPolygon converts one ring list: ring 0 is the shell, the rest are
// holes.
func buildPolygon(rings [][][]float64, index int) (Polygon, error) {
	if len(rings) == 0 {
		return Polygon{}, fmt.Errorf("%w: polygon %d has no rings", ErrEmptyGeometry, index)
	}
	converted := make([]Ring, 0, len(rings))
	for j, ring := range rings {
		if len(ring) < minRingPositions {
			return Polygon{}, fmt.Errorf("%w: polygon %d ring %d has %d positions, need at least %d",
				ErrMalformedRing, index, j, len(ring), minRingPositions)
		}
		r := make(Ring, 0, len(ring))
		for _, pos := range ring {
			if len(pos) < 2 {
				return Polygon{}, fmt.Errorf("%w: polygon %d ring %d has a short position",
					ErrMalformedRing, index, j)
			}
			r = append(r, Point{Lat: pos[1], Lon: pos[0]})
		}
		converted = append(converted, r)
	}
	return NewPolygon(converted[0], converted[1:]...), nil
}

// EncodeGeometry renders the boundary back to a GeoJSON MultiPolygon
// geometry object with explicitly closed rings.
func EncodeGeometry(m MultiPolygon) ([]byte, error) {
	if m.Empty() {
		return nil, ErrEmptyGeometry
	}
	polys := make([][][][]float64, 0, len(m))
	for _, p := range m {
		rings := make([][][]float64, 0, 1+len(p.Holes))
		rings = append(rings, encodeRing(p.Outer))
		for _, h := range p.Holes {
			rings = append(rings, encodeRing(h))
		}
		polys = append(polys, rings)
	}
	return json.Marshal(geometry{
		Type:        "MultiPolygon",
		Coordinates: mustMarshal(polys),
	})
}

func encodeRing(r Ring) [][]float64 {
	out := make([][]float64, 0, len(r)+1)
	for _, p := range r {
		out = append(out, []float64{p.Lon, p.Lat})
	}
	if len(r) > 0 && r[0] != r[len(r)-1] {
		out = append(out, []float64{r[0].Lon, r[0].Lat})
	}
	return out
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// Only reachable with unmarshalable input types, which
		// [][][][]float64 is not.
		panic(err)
	}
	return b
}
