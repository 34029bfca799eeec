package partition_test

import (
	"context"
	"math"
	"testing"

	geo "github.com/jlenander/firestat/internal/domain/geo"
	model "github.com/jlenander/firestat/internal/domain/model"
	partition "github.com/jlenander/firestat/internal/domain/partition"
	. "github.com/smartystreets/goconvey/convey"
)

func squareTerritory(lo, hi float64) geo.MultiPolygon {
	return geo.MultiPolygon{geo.NewPolygon(geo.Ring{
		{Lat: lo, Lon: lo},
		{Lat: lo, Lon: hi},
		{Lat: hi, Lon: hi},
		{Lat: hi, Lon: lo},
		{Lat: lo, Lon: lo},
	})}
}

func box(code string, lat, lon float64) model.AlarmBox {
	return model.AlarmBox{Code: code, Latitude: lat, Longitude: lon}
}

func TestBuildAssignment(t *testing.T) {
	Convey("Given two overlapping territories and a pool of boxes", t, func() {
		companies := []model.FireCompany{
			{Name: "Engine 1", Boundary: squareTerritory(0, 10)},
			{Name: "Ladder 2", Boundary: squareTerritory(5, 15)},
		}
		boxes := []model.AlarmBox{
			box("B0001", 2, 2),   // Engine 1 only
			box("B0002", 7, 7),   // overlap: first match wins
			box("B0003", 12, 12), // Ladder 2 only
			box("B0004", 20, 20), // nobody
		}

		part, err := partition.Build(context.Background(), companies, boxes)
		So(err, ShouldBeNil)

		Convey("Then companies keep their input order", func() {
			So(part.Companies(), ShouldResemble, []string{"Engine 1", "Ladder 2"})
		})

		Convey("Then the overlap goes to the earlier company", func() {
			So(part.Codes("Engine 1"), ShouldResemble, []string{"B0001", "B0002"})
			So(part.Codes("Ladder 2"), ShouldResemble, []string{"B0003"})
		})

		Convey("Then every box has at most one owner", func() {
			seen := map[string]string{}
			for _, company := range part.Companies() {
				for _, code := range part.Codes(company) {
					So(seen, ShouldNotContainKey, code)
					seen[code] = company
				}
			}
			owner, ok := part.Owner("B0002")
			So(ok, ShouldBeTrue)
			So(owner, ShouldEqual, "Engine 1")
		})

		Convey("Then unmatched boxes are reported, not lost", func() {
			So(part.Unassigned(), ShouldResemble, []string{"B0004"})
			So(part.Assigned(), ShouldEqual, 3)
			So(len(part.AssignedCodes())+len(part.Unassigned()), ShouldEqual, len(boxes))
		})

		Convey("Then containment tests were counted", func() {
			So(part.Tests(), ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given a company whose territory matches nothing", t, func() {
		companies := []model.FireCompany{
			{Name: "Engine 1", Boundary: squareTerritory(0, 10)},
			{Name: "Squad 9", Boundary: squareTerritory(100, 110)},
		}
		boxes := []model.AlarmBox{box("M0001", 5, 5)}

		part, err := partition.Build(context.Background(), companies, boxes)
		So(err, ShouldBeNil)

		Convey("Then the company is present with an empty claim list", func() {
			So(part.Codes("Squad 9"), ShouldNotBeNil)
			So(part.Codes("Squad 9"), ShouldBeEmpty)
		})

		Convey("And an unknown company yields nil", func() {
			So(part.Codes("Marine 6"), ShouldBeNil)
		})
	})
}

func TestBuildSkipsUnusableCoordinates(t *testing.T) {
	Convey("Given boxes with unusable coordinates", t, func() {
		companies := []model.FireCompany{{Name: "Engine 1", Boundary: squareTerritory(0, 10)}}
		boxes := []model.AlarmBox{
			box("B0001", 5, 5),
			box("B0002", math.NaN(), 5),
			box("B0003", 5, 999),
		}

		part, err := partition.Build(context.Background(), companies, boxes)
		So(err, ShouldBeNil)

		Convey("Then the bad boxes are skipped, not fatal", func() {
			So(part.Skipped(), ShouldResemble, []string{"B0002", "B0003"})
			So(part.Codes("Engine 1"), ShouldResemble, []string{"B0001"})
			So(part.Unassigned(), ShouldBeEmpty)
		})
	})
}

func TestBuildRejectsBadInput(t *testing.T) {
	Convey("Given build preconditions", t, func() {
		Convey("When a boundary is malformed", func() {
			companies := []model.FireCompany{
				{Name: "Engine 1", Boundary: squareTerritory(0, 10)},
				{Name: "Ladder 7", Boundary: geo.MultiPolygon{{Outer: geo.Ring{{Lat: 0, Lon: 0}}}}},
			}
			_, err := partition.Build(context.Background(), companies, nil)

			Convey("Then the error names the company", func() {
				So(err, ShouldWrap, partition.ErrMalformedBoundary)
				So(err.Error(), ShouldContainSubstring, "Ladder 7")
			})
		})

		Convey("When a company has an empty boundary", func() {
			companies := []model.FireCompany{{Name: "Engine 1"}}
			_, err := partition.Build(context.Background(), companies, nil)

			Convey("Then it is rejected instead of matching nothing", func() {
				So(err, ShouldWrap, partition.ErrMalformedBoundary)
			})
		})

		Convey("When two companies share a name", func() {
			companies := []model.FireCompany{
				{Name: "Engine 1", Boundary: squareTerritory(0, 10)},
				{Name: "Engine 1", Boundary: squareTerritory(5, 15)},
			}
			_, err := partition.Build(context.Background(), companies, nil)

			So(err, ShouldWrap, partition.ErrDuplicateCompany)
		})

		Convey("When two boxes share a code", func() {
			companies := []model.FireCompany{{Name: "Engine 1", Boundary: squareTerritory(0, 10)}}
			boxes := []model.AlarmBox{box("B0001", 1, 1), box("B0001", 2, 2)}
			_, err := partition.Build(context.Background(), companies, boxes)

			So(err, ShouldWrap, partition.ErrDuplicateBox)
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			companies := []model.FireCompany{{Name: "Engine 1", Boundary: squareTerritory(0, 10)}}
			_, err := partition.Build(ctx, companies, []model.AlarmBox{box("B0001", 1, 1)})

			So(err, ShouldWrap, context.Canceled)
		})
	})
}

func TestPartitionImmutability(t *testing.T) {
	Convey("Given a built partition", t, func() {
		companies := []model.FireCompany{{Name: "Engine 1", Boundary: squareTerritory(0, 10)}}
		boxes := []model.AlarmBox{box("B0001", 1, 1), box("B0002", 2, 2)}

		part, err := partition.Build(context.Background(), companies, boxes)
		So(err, ShouldBeNil)

		Convey("When a caller mutates a returned slice", func() {
			claimed := part.Codes("Engine 1")
			claimed[0] = "tampered"
			names := part.Companies()
			names[0] = "tampered"

			Convey("Then later reads are unaffected", func() {
				So(part.Codes("Engine 1"), ShouldResemble, []string{"B0001", "B0002"})
				So(part.Companies(), ShouldResemble, []string{"Engine 1"})
			})
		})

		Convey("When the partition is reused across lookups", func() {
			first := part.Codes("Engine 1")
			second := part.Codes("Engine 1")

			Convey("Then results are identical", func() {
				So(first, ShouldResemble, second)
			})
		})
	})
}
