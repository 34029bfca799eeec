// Package synthetic generates deterministic fixture datasets shaped like
// the production extracts: a grid of company territories across three
// borough rows, alarm boxes gridded inside each territory, station
// locations, and a seeded incident stream over a date range. Equal seeds
// produce byte-identical files.
package synthetic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/jlenander/firestat/internal/adapters/dataset"
	"github.com/jlenander/firestat/internal/domain/geo"
	"github.com/jlenander/firestat/internal/domain/model"
	"github.com/jlenander/firestat/pkg/logger"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidConfig marks a generation request that cannot be satisfied.
var ErrInvalidConfig = errors.New("invalid generator config")

// City layout constants. Each territory is one grid cell; the first cell
// carries a park-shaped hole cut out of its center.
const (
	baseLat  = 40.55
	baseLon  = -74.05
	cellSpan = 0.03

	// The hole spans the middle tenth of the first cell, small enough
	// that regular box grids land outside it; only a cell-center box
	// (odd grids) falls in and stays unassigned.
	holeFrom = 0.45
	holeTo   = 0.55
)

// Response time distribution anchors, seconds.
const (
	typicalResponse = 240.0
	responseSpread  = 0.35
)

// boroughRows are the borough bands of the synthetic city, south to
// north. Prefixes of the derived box codes stay distinct.
var boroughRows = []string{"MANHATTAN", "BROOKLYN", "QUEENS"}

// Config selects the size, window, and seed of the generated city.
type Config struct {
	Seed                int64     // equal seeds produce equal files
	CompaniesPerBorough int       // territories per borough row
	BoxesPerCompany     int       // boxes gridded inside each territory
	Incidents           int       // dispatch rows across the window
	From, To            time.Time // half-open incident window
	Dir                 string    // output directory
}

func (c Config) validate() error {
	switch {
	case c.Dir == "":
		return fmt.Errorf("%w: dir must not be empty", ErrInvalidConfig)
	case c.CompaniesPerBorough < 1:
		return fmt.Errorf("%w: companies per borough must be positive", ErrInvalidConfig)
	case c.BoxesPerCompany < 1:
		return fmt.Errorf("%w: boxes per company must be positive", ErrInvalidConfig)
	case c.Incidents < 0:
		return fmt.Errorf("%w: incident count must not be negative", ErrInvalidConfig)
	case !c.From.Before(c.To):
		return fmt.Errorf("%w: window start %s is not before end %s",
			ErrInvalidConfig, c.From.Format(time.DateOnly), c.To.Format(time.DateOnly))
	}
	return nil
}

// Output reports what one generation run wrote.
type Output struct {
	Companies  int
	Boxes      int
	Firehouses int
	Incidents  int
}

// Generate builds the synthetic city and writes the four extract files
// into cfg.Dir under their conventional names.
func Generate(ctx context.Context, cfg Config) (Output, error) {
	if err := cfg.validate(); err != nil {
		return Output{}, err
	}

	companies, houses := buildTerritories(cfg)
	boxes := buildBoxes(cfg)
	incidents := buildIncidents(cfg, boxes)

	if err := dataset.SaveIncidents(ctx, filepath.Join(cfg.Dir, dataset.IncidentsFile), incidents); err != nil {
		return Output{}, err
	}
	if err := dataset.SaveAlarmBoxes(ctx, filepath.Join(cfg.Dir, dataset.AlarmBoxesFile), boxes); err != nil {
		return Output{}, err
	}
	if err := dataset.SaveFireCompanies(ctx, filepath.Join(cfg.Dir, dataset.FireCompaniesFile), companies); err != nil {
		return Output{}, err
	}
	if err := dataset.SaveFirehouses(ctx, filepath.Join(cfg.Dir, dataset.FirehousesFile), houses); err != nil {
		return Output{}, err
	}

	out := Output{
		Companies:  len(companies),
		Boxes:      len(boxes),
		Firehouses: len(houses),
		Incidents:  len(incidents),
	}
	logger.Named("synthetic").Info(ctx, "generated fixture city",
		logger.String("dir", cfg.Dir),
		logger.Int("companies", out.Companies),
		logger.Int("boxes", out.Boxes),
		logger.Int("firehouses", out.Firehouses),
		logger.Int("incidents", out.Incidents))
	return out, nil
}

// cellOrigin returns the south-west corner of a grid cell.
func cellOrigin(row, col int) (lat, lon float64) {
	return baseLat + float64(row)*cellSpan, baseLon + float64(col)*cellSpan
}

// buildTerritories lays out companies and their stations. Adjacent cell
// pairs in each row share a house labeled "Engine X/Ladder Y"; an odd
// trailing cell becomes a squad with its own house. The very first
// territory carries a hole.
func buildTerritories(cfg Config) ([]model.FireCompany, []model.Firehouse) {
	var (
		companies []model.FireCompany
		houses    []model.Firehouse
		engines   int
		ladders   int
		squads    int
	)

	for row, borough := range boroughRows {
		for col := 0; col < cfg.CompaniesPerBorough; col++ {
			lat, lon := cellOrigin(row, col)
			outer := geo.Ring{
				{Lat: lat, Lon: lon},
				{Lat: lat, Lon: lon + cellSpan},
				{Lat: lat + cellSpan, Lon: lon + cellSpan},
				{Lat: lat + cellSpan, Lon: lon},
			}

			var holes []geo.Ring
			if row == 0 && col == 0 {
				holes = append(holes, geo.Ring{
					{Lat: lat + holeFrom*cellSpan, Lon: lon + holeFrom*cellSpan},
					{Lat: lat + holeFrom*cellSpan, Lon: lon + holeTo*cellSpan},
					{Lat: lat + holeTo*cellSpan, Lon: lon + holeTo*cellSpan},
					{Lat: lat + holeTo*cellSpan, Lon: lon + holeFrom*cellSpan},
				})
			}

			var (
				kind   model.CompanyType
				number int
			)
			lastLone := col == cfg.CompaniesPerBorough-1 && col%2 == 0
			switch {
			case lastLone:
				squads++
				kind, number = model.Squad, squads
			case col%2 == 0:
				engines++
				kind, number = model.Engine, engines
			default:
				ladders++
				kind, number = model.Ladder, ladders
			}
			name := fmt.Sprintf("%s %d", kind, number)

			companies = append(companies, model.FireCompany{
				Name:      name,
				Type:      kind,
				Number:    number,
				Battalion: fmt.Sprintf("%02d", col+1),
				Division:  fmt.Sprintf("%02d", row+1),
				Boundary:  geo.MultiPolygon{geo.NewPolygon(outer, holes...)},
			})

			// Even columns open a house; the next cell joins it.
			if col%2 == 0 {
				houses = append(houses, model.Firehouse{
					FacilityName: name,
					Address:      fmt.Sprintf("%d Grid Street", 100*(row+1)+col),
					Borough:      borough,
					Latitude:     lat + 0.5*cellSpan,
					Longitude:    lon + 0.9*cellSpan,
					Companies:    []string{name},
				})
			} else {
				prev := &houses[len(houses)-1]
				prev.FacilityName += "/" + name
				prev.Companies = append(prev.Companies, name)
			}
		}
	}
	return companies, houses
}

// buildBoxes grids boxes inside every cell at interior fractions, so a
// box never sits on a territory edge.
func buildBoxes(cfg Config) []model.AlarmBox {
	grid := int(math.Ceil(math.Sqrt(float64(cfg.BoxesPerCompany))))
	var boxes []model.AlarmBox

	for row, borough := range boroughRows {
		number := 0
		for col := 0; col < cfg.CompaniesPerBorough; col++ {
			lat, lon := cellOrigin(row, col)
			for k := 0; k < cfg.BoxesPerCompany; k++ {
				gx, gy := k%grid, k/grid
				fx := float64(gx+1) / float64(grid+1)
				fy := float64(gy+1) / float64(grid+1)
				number++

				code, err := model.BoxCode(borough, number)
				if err != nil {
					// Unreachable: boroughRows holds known labels.
					panic(err)
				}
				boxes = append(boxes, model.AlarmBox{
					Code:      code,
					Location:  fmt.Sprintf("%c AV & E %d ST", 'A'+gx, 2*(gy+1)),
					Borough:   borough,
					ZipCode:   10000 + 100*(row+1) + col,
					Type:      boxType(number),
					Latitude:  lat + fy*cellSpan,
					Longitude: lon + fx*cellSpan,
				})
			}
		}
	}
	return boxes
}

func boxType(number int) string {
	if number%2 == 0 {
		return "BARS"
	}
	return "ERS"
}

// buildIncidents draws a seeded stream: a uniform box, a uniform dispatch
// time inside the window, and a log-normal response centered on the
// typical value.
func buildIncidents(cfg Config, boxes []model.AlarmBox) []model.Incident {
	src := rand.NewSource(uint64(cfg.Seed))
	rng := rand.New(src)
	response := distuv.LogNormal{Mu: math.Log(typicalResponse), Sigma: responseSpread, Src: src}
	window := int64(cfg.To.Sub(cfg.From))

	incidents := make([]model.Incident, 0, cfg.Incidents)
	for i := 0; i < cfg.Incidents; i++ {
		box := boxes[rng.Intn(len(boxes))]
		when := cfg.From.Add(time.Duration(rng.Int63n(window))).Truncate(time.Second)
		seconds := math.Round(response.Rand()*100) / 100

		incidents = append(incidents, model.Incident{
			AlarmBoxCode:     box.Code,
			IncidentDatetime: when,
			ResponseSeconds:  seconds,
			Borough:          box.Borough,
			ZipCode:          box.ZipCode,
		})
	}
	return incidents
}
