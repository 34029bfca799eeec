// Package dataset is the file boundary of the pipeline: the raw portal
// extracts saved by the fetch step, the long-form results table, and the
// boundary GeoJSON served to the map page.
//
// Extract loaders are strict. The portal enforces column types upstream,
// so a row that fails to parse here means a truncated or corrupt file,
// and the error names the offending line.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jlenander/firestat/internal/domain/model"
	"github.com/jlenander/firestat/pkg/logger"
	"github.com/jlenander/firestat/pkg/metrics"
)

// Dataset labels used in log fields and load metrics.
const (
	incidentsName  = "incidents"
	boxesName      = "alarm_boxes"
	companiesName  = "fire_companies"
	firehousesName = "firehouses"
	responsesName  = "company_responses"
)

// Conventional file names under the data directory, shared by the fetch,
// process, and fixture generation steps.
const (
	IncidentsFile     = "incidents.csv"
	AlarmBoxesFile    = "alarm_boxes.csv"
	FireCompaniesFile = "fire_companies.json"
	FirehousesFile    = "firehouses.json"
	ResponsesFile     = "company_responses.csv"
	BoundariesFile    = "companies.geojson"
)

// missingZip marks rows whose source has no usable ZIP code.
const missingZip = -1

// Timestamp layouts seen in dispatch extracts; some vintages carry
// fractional seconds.
var incidentTimeLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

// Column orders written by the savers; loaders locate columns by name and
// accept any order.
var (
	incidentHeader = []string{
		"incident_datetime", "incident_borough", "zipcode",
		"alarm_box_borough", "alarm_box_number", "incident_response_seconds_qy",
	}
	boxHeader      = []string{"BOROBOX", "BOX_TYPE", "LOCATION", "ZIP", "BOROUGH", "LATITUDE", "LONGITUDE"}
	responseHeader = []string{"company_name", "response_times", "incident_count", "period"}
)

// LoadIncidents reads a dispatch extract. Alarm box codes are derived
// from the borough and box number columns, rows without a ZIP code get
// the missing marker, and the result comes back sorted by dispatch time.
func LoadIncidents(ctx context.Context, path string) ([]model.Incident, error) {
	incidents, err := readIncidents(path)
	if err != nil {
		metrics.RecordLoadError(incidentsName)
		return nil, err
	}
	metrics.RecordRowsLoaded(incidentsName, len(incidents))
	logger.Named("dataset").Info(ctx, "loaded incidents",
		logger.String("path", path),
		logger.Int("rows", len(incidents)))
	return incidents, nil
}

func readIncidents(path string) ([]model.Incident, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fileErr(ErrLoadFailed, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	cols, err := readHeader(r, path, incidentHeader...)
	if err != nil {
		return nil, err
	}

	var out []model.Incident
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fileErr(ErrLoadFailed, path, err)
		}
		line, _ := r.FieldPos(0)

		when, err := parseIncidentTime(rec[cols["incident_datetime"]])
		if err != nil {
			return nil, rowErr(path, line, err)
		}
		boxNum, err := strconv.Atoi(strings.TrimSpace(rec[cols["alarm_box_number"]]))
		if err != nil {
			return nil, rowErr(path, line, fmt.Errorf("invalid alarm_box_number %q", rec[cols["alarm_box_number"]]))
		}
		code, err := model.BoxCode(rec[cols["alarm_box_borough"]], boxNum)
		if err != nil {
			return nil, rowErr(path, line, err)
		}
		seconds, err := strconv.ParseFloat(strings.TrimSpace(rec[cols["incident_response_seconds_qy"]]), 64)
		if err != nil {
			return nil, rowErr(path, line, fmt.Errorf("invalid incident_response_seconds_qy %q", rec[cols["incident_response_seconds_qy"]]))
		}

		out = append(out, model.Incident{
			AlarmBoxCode:     code,
			IncidentDatetime: when,
			ResponseSeconds:  seconds,
			Borough:          strings.TrimSpace(rec[cols["incident_borough"]]),
			ZipCode:          parseZip(rec[cols["zipcode"]]),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].IncidentDatetime.Before(out[j].IncidentDatetime)
	})
	return out, nil
}

// SaveIncidents writes a dispatch extract in the portal's CSV shape. The
// box number is recovered from the derived code so a reload round-trips.
func SaveIncidents(ctx context.Context, path string, incidents []model.Incident) error {
	records := make([][]string, 0, len(incidents)+1)
	records = append(records, incidentHeader)
	for i, inc := range incidents {
		num, err := boxNumber(inc.AlarmBoxCode)
		if err != nil {
			return fmt.Errorf("%w: %s: row %d: %v", ErrSaveFailed, path, i, err)
		}
		records = append(records, []string{
			inc.IncidentDatetime.Format(incidentTimeLayouts[0]),
			inc.Borough,
			formatZip(inc.ZipCode),
			inc.Borough,
			strconv.Itoa(num),
			strconv.FormatFloat(inc.ResponseSeconds, 'f', -1, 64),
		})
	}
	return writeCSV(ctx, path, "saved incidents", records)
}

// boxNumber strips the borough prefix off a derived box code.
func boxNumber(code string) (int, error) {
	if len(code) < 2 {
		return 0, fmt.Errorf("invalid alarm box code %q", code)
	}
	num, err := strconv.Atoi(code[1:])
	if err != nil {
		return 0, fmt.Errorf("invalid alarm box code %q", code)
	}
	return num, nil
}

// LoadAlarmBoxes reads the in-service box extract. The city file carries
// administrative duplicates, one row per overlapping district; the first
// row for a code wins.
func LoadAlarmBoxes(ctx context.Context, path string) ([]model.AlarmBox, error) {
	boxes, dupes, err := readAlarmBoxes(path)
	if err != nil {
		metrics.RecordLoadError(boxesName)
		return nil, err
	}
	metrics.RecordRowsLoaded(boxesName, len(boxes))
	logger.Named("dataset").Info(ctx, "loaded alarm boxes",
		logger.String("path", path),
		logger.Int("rows", len(boxes)),
		logger.Int("duplicates_dropped", dupes))
	return boxes, nil
}

func readAlarmBoxes(path string) ([]model.AlarmBox, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fileErr(ErrLoadFailed, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	cols, err := readHeader(r, path, boxHeader...)
	if err != nil {
		return nil, 0, err
	}

	var (
		out   []model.AlarmBox
		seen  = map[string]bool{}
		dupes int
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fileErr(ErrLoadFailed, path, err)
		}
		line, _ := r.FieldPos(0)

		code := strings.ToUpper(strings.TrimSpace(rec[cols["BOROBOX"]]))
		if code == "" {
			return nil, 0, rowErr(path, line, errors.New("empty BOROBOX"))
		}
		if seen[code] {
			dupes++
			continue
		}
		seen[code] = true

		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[cols["LATITUDE"]]), 64)
		if err != nil {
			return nil, 0, rowErr(path, line, fmt.Errorf("invalid LATITUDE %q", rec[cols["LATITUDE"]]))
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[cols["LONGITUDE"]]), 64)
		if err != nil {
			return nil, 0, rowErr(path, line, fmt.Errorf("invalid LONGITUDE %q", rec[cols["LONGITUDE"]]))
		}

		out = append(out, model.AlarmBox{
			Code:      code,
			Location:  strings.TrimSpace(rec[cols["LOCATION"]]),
			Borough:   strings.TrimSpace(rec[cols["BOROUGH"]]),
			ZipCode:   parseZip(rec[cols["ZIP"]]),
			Type:      strings.TrimSpace(rec[cols["BOX_TYPE"]]),
			Latitude:  lat,
			Longitude: lon,
		})
	}
	return out, dupes, nil
}

// SaveAlarmBoxes writes a box extract in the city file's CSV shape.
func SaveAlarmBoxes(ctx context.Context, path string, boxes []model.AlarmBox) error {
	records := make([][]string, 0, len(boxes)+1)
	records = append(records, boxHeader)
	for _, b := range boxes {
		records = append(records, []string{
			b.Code,
			b.Type,
			b.Location,
			formatZip(b.ZipCode),
			b.Borough,
			strconv.FormatFloat(b.Latitude, 'f', -1, 64),
			strconv.FormatFloat(b.Longitude, 'f', -1, 64),
		})
	}
	return writeCSV(ctx, path, "saved alarm boxes", records)
}

// LoadFireCompanies reads the territory file: JSON rows with embedded
// GeoJSON boundaries, the same shape the portal API returns.
func LoadFireCompanies(ctx context.Context, path string) ([]model.FireCompany, error) {
	f, err := os.Open(path)
	if err != nil {
		metrics.RecordLoadError(companiesName)
		return nil, fileErr(ErrLoadFailed, path, err)
	}
	defer f.Close()

	companies, err := DecodeFireCompanies(f)
	if err != nil {
		metrics.RecordLoadError(companiesName)
		return nil, fileErr(ErrLoadFailed, path, err)
	}
	metrics.RecordRowsLoaded(companiesName, len(companies))
	logger.Named("dataset").Info(ctx, "loaded fire companies",
		logger.String("path", path),
		logger.Int("rows", len(companies)))
	return companies, nil
}

// SaveFireCompanies writes the territory file in the portal's JSON shape.
func SaveFireCompanies(ctx context.Context, path string, companies []model.FireCompany) error {
	f, err := os.Create(path)
	if err != nil {
		return fileErr(ErrSaveFailed, path, err)
	}
	if err := EncodeFireCompanies(f, companies); err != nil {
		f.Close()
		return fileErr(ErrSaveFailed, path, err)
	}
	if err := f.Close(); err != nil {
		return fileErr(ErrSaveFailed, path, err)
	}
	logger.Named("dataset").Info(ctx, "saved fire companies",
		logger.String("path", path),
		logger.Int("rows", len(companies)))
	return nil
}

// LoadFirehouses reads the station file.
func LoadFirehouses(ctx context.Context, path string) ([]model.Firehouse, error) {
	f, err := os.Open(path)
	if err != nil {
		metrics.RecordLoadError(firehousesName)
		return nil, fileErr(ErrLoadFailed, path, err)
	}
	defer f.Close()

	houses, err := DecodeFirehouses(f)
	if err != nil {
		metrics.RecordLoadError(firehousesName)
		return nil, fileErr(ErrLoadFailed, path, err)
	}
	metrics.RecordRowsLoaded(firehousesName, len(houses))
	logger.Named("dataset").Info(ctx, "loaded firehouses",
		logger.String("path", path),
		logger.Int("rows", len(houses)))
	return houses, nil
}

// SaveFirehouses writes the station file in the portal's JSON shape.
func SaveFirehouses(ctx context.Context, path string, houses []model.Firehouse) error {
	f, err := os.Create(path)
	if err != nil {
		return fileErr(ErrSaveFailed, path, err)
	}
	if err := EncodeFirehouses(f, houses); err != nil {
		f.Close()
		return fileErr(ErrSaveFailed, path, err)
	}
	if err := f.Close(); err != nil {
		return fileErr(ErrSaveFailed, path, err)
	}
	logger.Named("dataset").Info(ctx, "saved firehouses",
		logger.String("path", path),
		logger.Int("rows", len(houses)))
	return nil
}

// SaveCompanyResponses writes the long-form output table. Averages keep
// their shortest round-trip form so a reload reproduces the run exactly.
func SaveCompanyResponses(ctx context.Context, path string, rows []model.CompanyResponse) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, responseHeader)
	for _, row := range rows {
		records = append(records, []string{
			row.CompanyName,
			strconv.FormatFloat(row.ResponseTimes, 'f', -1, 64),
			strconv.Itoa(row.IncidentCount),
			row.Period,
		})
	}
	return writeCSV(ctx, path, "saved company responses", records)
}

// writeCSV creates the file, writes header plus rows, and logs the count.
func writeCSV(ctx context.Context, path, msg string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fileErr(ErrSaveFailed, path, err)
	}
	if err := csv.NewWriter(f).WriteAll(records); err != nil {
		f.Close()
		return fileErr(ErrSaveFailed, path, err)
	}
	if err := f.Close(); err != nil {
		return fileErr(ErrSaveFailed, path, err)
	}

	logger.Named("dataset").Info(ctx, msg,
		logger.String("path", path),
		logger.Int("rows", len(records)-1))
	return nil
}

// LoadCompanyResponses reads a table produced by SaveCompanyResponses.
func LoadCompanyResponses(ctx context.Context, path string) ([]model.CompanyResponse, error) {
	rows, err := readCompanyResponses(path)
	if err != nil {
		metrics.RecordLoadError(responsesName)
		return nil, err
	}
	metrics.RecordRowsLoaded(responsesName, len(rows))
	logger.Named("dataset").Info(ctx, "loaded company responses",
		logger.String("path", path),
		logger.Int("rows", len(rows)))
	return rows, nil
}

func readCompanyResponses(path string) ([]model.CompanyResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fileErr(ErrLoadFailed, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	cols, err := readHeader(r, path, responseHeader...)
	if err != nil {
		return nil, err
	}

	var out []model.CompanyResponse
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fileErr(ErrLoadFailed, path, err)
		}
		line, _ := r.FieldPos(0)

		avg, err := strconv.ParseFloat(rec[cols["response_times"]], 64)
		if err != nil {
			return nil, rowErr(path, line, fmt.Errorf("invalid response_times %q", rec[cols["response_times"]]))
		}
		count, err := strconv.Atoi(rec[cols["incident_count"]])
		if err != nil {
			return nil, rowErr(path, line, fmt.Errorf("invalid incident_count %q", rec[cols["incident_count"]]))
		}
		out = append(out, model.CompanyResponse{
			CompanyName:   rec[cols["company_name"]],
			ResponseTimes: avg,
			IncidentCount: count,
			Period:        rec[cols["period"]],
		})
	}
	return out, nil
}

// readHeader consumes the header row and locates every required column.
// The first cell may carry a UTF-8 BOM from portal exports.
func readHeader(r *csv.Reader, path string, names ...string) (map[string]int, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fileErr(ErrLoadFailed, path, fmt.Errorf("reading header: %v", err))
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range names {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %s: %q", ErrMissingColumn, path, name)
		}
	}
	return index, nil
}

func parseIncidentTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range incidentTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid incident_datetime %q", s)
}

// parseZip reads a ZIP column leniently. ZIP codes are informational
// only, so blank or junk values map to the missing marker instead of
// failing the load.
func parseZip(s string) int {
	z, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return missingZip
	}
	return z
}

func formatZip(z int) string {
	if z == missingZip {
		return ""
	}
	return strconv.Itoa(z)
}

// fileErr wraps a whole-file failure with its sentinel and path.
func fileErr(kind error, path string, err error) error {
	return fmt.Errorf("%w: %s: %v", kind, path, err)
}

// rowErr marks a row that cannot be parsed, naming its source line.
func rowErr(path string, line int, err error) error {
	return fmt.Errorf("%w: %s: line %d: %v", ErrLoadFailed, path, line, err)
}
