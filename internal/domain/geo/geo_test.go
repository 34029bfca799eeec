package geo_test

import (
	"math"
	"testing"

	geo "github.com/jlenander/firestat/internal/domain/geo"
	. "github.com/smartystreets/goconvey/convey"
)

// closedSquare returns a closed ring spanning [lo,hi] on both axes.
func closedSquare(lo, hi float64) geo.Ring {
	return geo.Ring{
		{Lat: lo, Lon: lo},
		{Lat: lo, Lon: hi},
		{Lat: hi, Lon: hi},
		{Lat: hi, Lon: lo},
		{Lat: lo, Lon: lo},
	}
}

func TestPointValid(t *testing.T) {
	Convey("Given coordinate validation", t, func() {
		Convey("Then real positions are valid", func() {
			So(geo.Point{Lat: 40.7, Lon: -73.9}.Valid(), ShouldBeTrue)
			So(geo.Point{Lat: -90, Lon: 180}.Valid(), ShouldBeTrue)
			So(geo.Point{}.Valid(), ShouldBeTrue)
		})

		Convey("Then out-of-range and NaN positions are invalid", func() {
			So(geo.Point{Lat: 91, Lon: 0}.Valid(), ShouldBeFalse)
			So(geo.Point{Lat: 0, Lon: -181}.Valid(), ShouldBeFalse)
			So(geo.Point{Lat: 40.7, Lon: math.NaN()}.Valid(), ShouldBeFalse)
		})
	})
}

func TestContainment(t *testing.T) {
	Convey("Given a square territory from 0 to 10 on both axes", t, func() {
		territory := geo.MultiPolygon{geo.NewPolygon(closedSquare(0, 10))}

		Convey("Then interior points are contained", func() {
			So(territory.Contains(geo.Point{Lat: 5, Lon: 5}), ShouldBeTrue)
			So(territory.Contains(geo.Point{Lat: 9.999, Lon: 0.001}), ShouldBeTrue)
		})

		Convey("Then exterior points are not contained", func() {
			So(territory.Contains(geo.Point{Lat: 5, Lon: 11}), ShouldBeFalse)
			So(territory.Contains(geo.Point{Lat: -1, Lon: 5}), ShouldBeFalse)
			So(territory.Contains(geo.Point{Lat: 50, Lon: 50}), ShouldBeFalse)
		})

		Convey("Then the west and south edges count as inside", func() {
			So(territory.Contains(geo.Point{Lat: 5, Lon: 0}), ShouldBeTrue)
			So(territory.Contains(geo.Point{Lat: 0, Lon: 5}), ShouldBeTrue)
			So(territory.Contains(geo.Point{Lat: 0, Lon: 0}), ShouldBeTrue)
		})

		Convey("Then the east and north edges count as outside", func() {
			So(territory.Contains(geo.Point{Lat: 5, Lon: 10}), ShouldBeFalse)
			So(territory.Contains(geo.Point{Lat: 10, Lon: 5}), ShouldBeFalse)
			So(territory.Contains(geo.Point{Lat: 10, Lon: 10}), ShouldBeFalse)
		})
	})

	Convey("Given a territory with a hole from 2 to 8", t, func() {
		territory := geo.MultiPolygon{geo.NewPolygon(closedSquare(0, 10), closedSquare(2, 8))}

		Convey("Then points in the hole are not contained", func() {
			So(territory.Contains(geo.Point{Lat: 5, Lon: 5}), ShouldBeFalse)
		})

		Convey("Then points between shell and hole are contained", func() {
			So(territory.Contains(geo.Point{Lat: 1, Lon: 1}), ShouldBeTrue)
			So(territory.Contains(geo.Point{Lat: 9, Lon: 5}), ShouldBeTrue)
		})

		Convey("Then hole edges follow the same convention as the shell", func() {
			// West edge of the hole belongs to the hole, so it is excluded.
			So(territory.Contains(geo.Point{Lat: 5, Lon: 2}), ShouldBeFalse)
			// East edge of the hole is outside the hole, so it is kept.
			So(territory.Contains(geo.Point{Lat: 5, Lon: 8}), ShouldBeTrue)
		})
	})

	Convey("Given a multipolygon with two disjoint parts", t, func() {
		territory := geo.MultiPolygon{
			geo.NewPolygon(closedSquare(0, 2)),
			geo.NewPolygon(closedSquare(5, 7)),
		}

		Convey("Then points in either part are contained", func() {
			So(territory.Contains(geo.Point{Lat: 1, Lon: 1}), ShouldBeTrue)
			So(territory.Contains(geo.Point{Lat: 6, Lon: 6}), ShouldBeTrue)
		})

		Convey("Then points in the gap are not", func() {
			So(territory.Contains(geo.Point{Lat: 3.5, Lon: 3.5}), ShouldBeFalse)
		})
	})

	Convey("Given an empty boundary", t, func() {
		var territory geo.MultiPolygon

		Convey("Then nothing is contained", func() {
			So(territory.Contains(geo.Point{Lat: 0, Lon: 0}), ShouldBeFalse)
			So(territory.Empty(), ShouldBeTrue)
		})
	})
}

func TestDecodeGeometry(t *testing.T) {
	Convey("Given GeoJSON geometry decoding", t, func() {
		Convey("When decoding a Polygon geometry", func() {
			raw := []byte(`{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}`)
			boundary, err := geo.DecodeGeometry(raw)

			Convey("Then it decodes to a single-polygon boundary", func() {
				So(err, ShouldBeNil)
				So(boundary, ShouldHaveLength, 1)
				So(boundary[0].Holes, ShouldBeEmpty)
			})

			Convey("And positions are read as lon,lat", func() {
				So(err, ShouldBeNil)
				So(boundary.Contains(geo.Point{Lat: 5, Lon: 5}), ShouldBeTrue)
				So(boundary.Contains(geo.Point{Lat: 5, Lon: -5}), ShouldBeFalse)
			})
		})

		Convey("When decoding a MultiPolygon with a hole", func() {
			raw := []byte(`{"type":"MultiPolygon","coordinates":[[[[0,0],[10,0],[10,10],[0,10],[0,0]],[[2,2],[8,2],[8,8],[2,8],[2,2]]]]}`)
			boundary, err := geo.DecodeGeometry(raw)

			Convey("Then ring zero is the shell and ring one the hole", func() {
				So(err, ShouldBeNil)
				So(boundary, ShouldHaveLength, 1)
				So(boundary[0].Holes, ShouldHaveLength, 1)
				So(boundary.Contains(geo.Point{Lat: 1, Lon: 1}), ShouldBeTrue)
				So(boundary.Contains(geo.Point{Lat: 5, Lon: 5}), ShouldBeFalse)
			})
		})

		Convey("When the geometry type is unsupported", func() {
			_, err := geo.DecodeGeometry([]byte(`{"type":"Point","coordinates":[0,0]}`))

			Convey("Then it reports the type", func() {
				So(err, ShouldWrap, geo.ErrUnsupportedGeometry)
			})
		})

		Convey("When a ring is too short to close", func() {
			raw := []byte(`{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10]]]}`)
			_, err := geo.DecodeGeometry(raw)

			Convey("Then it is an error, not an empty territory", func() {
				So(err, ShouldWrap, geo.ErrMalformedRing)
			})
		})

		Convey("When the coordinates are empty", func() {
			_, err := geo.DecodeGeometry([]byte(`{"type":"MultiPolygon","coordinates":[]}`))

			Convey("Then it is an error, not an empty territory", func() {
				So(err, ShouldWrap, geo.ErrEmptyGeometry)
			})
		})

		Convey("When the payload is not JSON", func() {
			_, err := geo.DecodeGeometry([]byte(`not-geometry`))

			Convey("Then decoding fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestEncodeGeometry(t *testing.T) {
	Convey("Given boundary re-encoding", t, func() {
		original := geo.MultiPolygon{geo.NewPolygon(closedSquare(0, 10), closedSquare(2, 8))}

		Convey("When encoding and decoding again", func() {
			raw, err := geo.EncodeGeometry(original)
			So(err, ShouldBeNil)

			decoded, err := geo.DecodeGeometry(raw)
			So(err, ShouldBeNil)

			Convey("Then containment behavior survives the round trip", func() {
				for _, pt := range []geo.Point{
					{Lat: 1, Lon: 1},
					{Lat: 5, Lon: 5},
					{Lat: 9, Lon: 9},
					{Lat: 11, Lon: 11},
				} {
					So(decoded.Contains(pt), ShouldEqual, original.Contains(pt))
				}
			})
		})

		Convey("When encoding an unclosed ring", func() {
			open := geo.MultiPolygon{geo.NewPolygon(geo.Ring{
				{Lat: 0, Lon: 0}, {Lat: 0, Lon: 4}, {Lat: 4, Lon: 4}, {Lat: 4, Lon: 0},
			})}
			raw, err := geo.EncodeGeometry(open)
			So(err, ShouldBeNil)

			Convey("Then the output ring is explicitly closed", func() {
				decoded, err := geo.DecodeGeometry(raw)
				So(err, ShouldBeNil)
				So(decoded[0].Outer[0], ShouldResemble, decoded[0].Outer[len(decoded[0].Outer)-1])
			})
		})

		Convey("When encoding an empty boundary", func() {
			_, err := geo.EncodeGeometry(nil)

			Convey("Then it refuses", func() {
				So(err, ShouldWrap, geo.ErrEmptyGeometry)
			})
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given boundary validation", t, func() {
		Convey("When the boundary is well formed", func() {
			boundary := geo.MultiPolygon{geo.NewPolygon(closedSquare(0, 10), closedSquare(2, 8))}

			Convey("Then it validates", func() {
				So(boundary.Validate(), ShouldBeNil)
			})
		})

		Convey("When the boundary is empty", func() {
			So(geo.MultiPolygon{}.Validate(), ShouldWrap, geo.ErrEmptyGeometry)
		})

		Convey("When the shell is too short", func() {
			boundary := geo.MultiPolygon{{Outer: geo.Ring{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}}}

			Convey("Then validation names the ring", func() {
				err := boundary.Validate()
				So(err, ShouldWrap, geo.ErrMalformedRing)
				So(err.Error(), ShouldContainSubstring, "outer ring")
			})
		})

		Convey("When a hole is too short", func() {
			boundary := geo.MultiPolygon{geo.NewPolygon(closedSquare(0, 10), geo.Ring{{Lat: 2, Lon: 2}})}

			Convey("Then validation names the hole", func() {
				err := boundary.Validate()
				So(err, ShouldWrap, geo.ErrMalformedRing)
				So(err.Error(), ShouldContainSubstring, "hole")
			})
		})
	})
}
