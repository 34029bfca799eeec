package results_test

import (
	"context"
	"testing"

	"github.com/jlenander/firestat/internal/adapters/results"
	"github.com/jlenander/firestat/internal/domain/model"
	"github.com/jlenander/firestat/internal/pipeline"
	. "github.com/smartystreets/goconvey/convey"
)

func twoMonthRun() *pipeline.Result {
	return &pipeline.Result{
		RunID: "run-1",
		Rows: []model.CompanyResponse{
			{CompanyName: "Engine 70", ResponseTimes: 228.75, IncidentCount: 412, Period: "2019-03"},
			{CompanyName: "Ladder 53", ResponseTimes: 251.5, IncidentCount: 377, Period: "2019-03"},
			{CompanyName: "Engine 70", ResponseTimes: 240.1, IncidentCount: 398, Period: "2019-04"},
			{CompanyName: "Ladder 53", ResponseTimes: 0, IncidentCount: 0, Period: "2019-04"},
		},
		Summary: pipeline.Summary{Count: 3, Min: 228.75, Max: 251.5, Mean: 240.12},
	}
}

func TestMemStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store over a two period run", t, func() {
		res := twoMonthRun()
		store := results.NewMemStore(res)

		Convey("Then the unfiltered table comes back in order", func() {
			rows, err := store.Rows(ctx, results.Query{})

			So(err, ShouldBeNil)
			So(rows, ShouldResemble, res.Rows)
		})

		Convey("And filtering by period keeps table order", func() {
			rows, err := store.Rows(ctx, results.Query{Period: "2019-03"})

			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].CompanyName, ShouldEqual, "Engine 70")
			So(rows[1].CompanyName, ShouldEqual, "Ladder 53")
		})

		Convey("And a period the run never produced is rejected", func() {
			_, err := store.Rows(ctx, results.Query{Period: "2031-01"})

			So(err, ShouldWrap, results.ErrUnknownPeriod)
			So(err.Error(), ShouldContainSubstring, "2031-01")
		})

		Convey("And filtering by company spans periods", func() {
			rows, err := store.Rows(ctx, results.Query{Company: "Engine 70"})

			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].Period, ShouldEqual, "2019-03")
			So(rows[1].Period, ShouldEqual, "2019-04")
		})

		Convey("And period plus company narrows to one row", func() {
			rows, err := store.Rows(ctx, results.Query{Period: "2019-04", Company: "Ladder 53"})

			So(err, ShouldBeNil)
			So(rows, ShouldResemble, []model.CompanyResponse{
				{CompanyName: "Ladder 53", ResponseTimes: 0, IncidentCount: 0, Period: "2019-04"},
			})
		})

		Convey("And an unknown company yields no rows without error", func() {
			rows, err := store.Rows(ctx, results.Query{Company: "Marine 6"})

			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("And labels come back sorted and deduplicated", func() {
			So(store.Periods(ctx), ShouldResemble, []string{"2019-03", "2019-04"})
			So(store.Companies(ctx), ShouldResemble, []string{"Engine 70", "Ladder 53"})
		})

		Convey("And counts and the summary pass through", func() {
			So(store.Count(ctx), ShouldEqual, 4)
			So(store.Summary(ctx), ShouldResemble, res.Summary)
		})

		Convey("And the store is detached from the source result", func() {
			res.Rows[0].CompanyName = "scribbled"

			rows, err := store.Rows(ctx, results.Query{Period: "2019-03"})

			So(err, ShouldBeNil)
			So(rows[0].CompanyName, ShouldEqual, "Engine 70")
		})

		Convey("And returned slices are the caller's to mutate", func() {
			rows, err := store.Rows(ctx, results.Query{})
			So(err, ShouldBeNil)
			rows[0].CompanyName = "scribbled"

			again, err := store.Rows(ctx, results.Query{})
			So(err, ShouldBeNil)
			So(again[0].CompanyName, ShouldEqual, "Engine 70")
		})
	})

	Convey("Given an empty store", t, func() {
		store := results.NewMemStore(nil)

		_, err := store.Rows(ctx, results.Query{})

		So(err, ShouldWrap, results.ErrNoResults)
		So(store.Count(ctx), ShouldEqual, 0)
		So(store.Periods(ctx), ShouldBeEmpty)
		So(store.Companies(ctx), ShouldBeEmpty)
	})
}
