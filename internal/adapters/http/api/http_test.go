package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jlenander/firestat/internal/adapters/http/api"
	"github.com/jlenander/firestat/internal/adapters/results"
	"github.com/jlenander/firestat/internal/domain/geo"
	"github.com/jlenander/firestat/internal/domain/model"
	"github.com/jlenander/firestat/internal/pipeline"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockStore struct {
	rows       []model.CompanyResponse
	rowsErr    error
	periods    []string
	companies  []string
	summary    pipeline.Summary
	boundaries []model.FireCompany
	firehouses []model.Firehouse
	gotQuery   results.Query
}

func (m *mockStore) Rows(ctx context.Context, q results.Query) ([]model.CompanyResponse, error) {
	m.gotQuery = q
	if m.rowsErr != nil {
		return nil, m.rowsErr
	}
	return m.rows, nil
}

func (m *mockStore) Periods(ctx context.Context) []string { return m.periods }

func (m *mockStore) Companies(ctx context.Context) []string { return m.companies }

func (m *mockStore) Count(ctx context.Context) int { return len(m.rows) }

func (m *mockStore) Summary(ctx context.Context) pipeline.Summary { return m.summary }

func (m *mockStore) Boundaries(ctx context.Context) []model.FireCompany { return m.boundaries }

func (m *mockStore) Firehouses(ctx context.Context) []model.Firehouse { return m.firehouses }

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} { return m.stats }

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func squareCompany(name string) model.FireCompany {
	return model.FireCompany{
		Name:      name,
		Type:      model.Engine,
		Number:    70,
		Battalion: "09",
		Division:  "03",
		Boundary: geo.MultiPolygon{geo.NewPolygon(geo.Ring{
			{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 1, Lon: 0},
		})},
	}
}

func testRows() []model.CompanyResponse {
	return []model.CompanyResponse{
		{CompanyName: "Engine 70", ResponseTimes: 228.75, IncidentCount: 412, Period: "2019-03"},
		{CompanyName: "Ladder 53", ResponseTimes: 251.5, IncidentCount: 98, Period: "2019-03"},
	}
}

func newTestServer(store *mockStore, stats map[string]interface{}) *http.ServeMux {
	server := api.NewServer(store, &mockStatsProvider{stats: stats})
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		store := &mockStore{
			rows:       testRows(),
			periods:    []string{"2019-03"},
			companies:  []string{"Engine 70", "Ladder 53"},
			boundaries: []model.FireCompany{squareCompany("Engine 70")},
		}
		mux := newTestServer(store, map[string]interface{}{"rows": 2})

		Convey("Then the health endpoint should be accessible", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the summary endpoint should be accessible", func() {
			req := httptest.NewRequest("GET", "/api/summary", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the responses endpoint should be accessible", func() {
			req := httptest.NewRequest("GET", "/api/responses", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the periods endpoint should be accessible", func() {
			req := httptest.NewRequest("GET", "/api/periods", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the companies endpoint should be accessible", func() {
			req := httptest.NewRequest("GET", "/api/companies", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the boundaries endpoint should be accessible", func() {
			req := httptest.NewRequest("GET", "/api/companies.geojson", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the firehouses endpoint should be accessible", func() {
			req := httptest.NewRequest("GET", "/api/firehouses", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then unknown routes should return 404", func() {
			req := httptest.NewRequest("GET", "/api/unknown", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then non-GET methods should return 404", func() {
			req := httptest.NewRequest("POST", "/api/responses", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestResponsesHandler(t *testing.T) {
	Convey("Given a responses handler", t, func() {
		store := &mockStore{rows: testRows()}
		handler := api.NewResponsesHandler(store)

		Convey("When requesting the full table", func() {
			req := httptest.NewRequest("GET", "/api/responses", nil)
			w := httptest.NewRecorder()
			handler.HandleResponses(w, req)

			Convey("Then all rows come back as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				var got []model.CompanyResponse
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got, ShouldResemble, testRows())
			})
		})

		Convey("When filtering by period and company", func() {
			req := httptest.NewRequest("GET", "/api/responses?period=2019-03&company=Engine+70", nil)
			w := httptest.NewRecorder()
			handler.HandleResponses(w, req)

			Convey("Then both filters reach the store", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(store.gotQuery, ShouldResemble, results.Query{Period: "2019-03", Company: "Engine 70"})
			})
		})

		Convey("When the period is unknown", func() {
			store.rowsErr = fmt.Errorf("%w: %q", results.ErrUnknownPeriod, "2031-01")
			req := httptest.NewRequest("GET", "/api/responses?period=2031-01", nil)
			w := httptest.NewRecorder()
			handler.HandleResponses(w, req)

			Convey("Then the handler responds 404 unknown_period", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				var got apiError
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got.Code, ShouldEqual, "unknown_period")
				So(got.Message, ShouldContainSubstring, "2031-01")
			})
		})

		Convey("When no results are loaded", func() {
			store.rowsErr = results.ErrNoResults
			req := httptest.NewRequest("GET", "/api/responses", nil)
			w := httptest.NewRecorder()
			handler.HandleResponses(w, req)

			Convey("Then the handler responds 404 no_results", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				var got apiError
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got.Code, ShouldEqual, "no_results")
			})
		})

		Convey("When the store fails unexpectedly", func() {
			store.rowsErr = errors.New("store exploded")
			req := httptest.NewRequest("GET", "/api/responses", nil)
			w := httptest.NewRecorder()
			handler.HandleResponses(w, req)

			Convey("Then the handler responds 500 internal_error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				var got apiError
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got.Code, ShouldEqual, "internal_error")
			})
		})

		Convey("When the filter matches nothing", func() {
			store.rows = nil
			req := httptest.NewRequest("GET", "/api/responses?company=Marine+6", nil)
			w := httptest.NewRecorder()
			handler.HandleResponses(w, req)

			Convey("Then the body is an empty JSON array", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldStartWith, "[]")
			})
		})
	})
}

func TestLabelsHandler(t *testing.T) {
	Convey("Given a labels handler", t, func() {
		store := &mockStore{
			periods:   []string{"2019-03", "2019-04"},
			companies: []string{"Engine 70", "Ladder 53"},
		}
		handler := api.NewLabelsHandler(store)

		Convey("When requesting periods", func() {
			req := httptest.NewRequest("GET", "/api/periods", nil)
			w := httptest.NewRecorder()
			handler.HandlePeriods(w, req)

			Convey("Then the period labels come back in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []string
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got, ShouldResemble, []string{"2019-03", "2019-04"})
			})
		})

		Convey("When requesting companies", func() {
			req := httptest.NewRequest("GET", "/api/companies", nil)
			w := httptest.NewRecorder()
			handler.HandleCompanies(w, req)

			Convey("Then the company labels come back sorted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []string
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got, ShouldResemble, []string{"Engine 70", "Ladder 53"})
			})
		})

		Convey("When the store has no labels", func() {
			empty := api.NewLabelsHandler(&mockStore{})
			req := httptest.NewRequest("GET", "/api/periods", nil)
			w := httptest.NewRecorder()
			empty.HandlePeriods(w, req)

			Convey("Then the body is an empty JSON array", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldStartWith, "[]")
			})
		})
	})
}

func TestSummaryHandler(t *testing.T) {
	Convey("Given a summary handler", t, func() {
		stats := map[string]interface{}{
			"run_id": "0f3b",
			"rows":   336,
		}
		handler := api.NewSummaryHandler(&mockStatsProvider{stats: stats})

		Convey("When requesting the summary", func() {
			req := httptest.NewRequest("GET", "/api/summary", nil)
			w := httptest.NewRecorder()
			handler.HandleSummary(w, req)

			Convey("Then the stats map is returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got map[string]interface{}
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got["run_id"], ShouldEqual, "0f3b")
				So(got["rows"], ShouldEqual, 336)
			})
		})

		Convey("When using a non-GET method", func() {
			req := httptest.NewRequest("DELETE", "/api/summary", nil)
			w := httptest.NewRecorder()
			handler.HandleSummary(w, req)

			Convey("Then the handler responds 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestFirehousesHandler(t *testing.T) {
	Convey("Given a firehouses handler", t, func() {
		store := &mockStore{firehouses: []model.Firehouse{{
			FacilityName: "Engine 70/Ladder 53",
			Address:      "169 Schofield Street",
			Borough:      "Bronx",
			Latitude:     40.852,
			Longitude:    -73.787,
			Companies:    []string{"Engine 70", "Ladder 53"},
		}}}
		handler := api.NewFirehousesHandler(store)

		Convey("When requesting the station list", func() {
			req := httptest.NewRequest("GET", "/api/firehouses", nil)
			w := httptest.NewRecorder()
			handler.HandleFirehouses(w, req)

			Convey("Then stations come back with coordinates and companies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []struct {
					FacilityName string   `json:"facility_name"`
					Latitude     float64  `json:"latitude"`
					Longitude    float64  `json:"longitude"`
					Companies    []string `json:"companies"`
				}
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].FacilityName, ShouldEqual, "Engine 70/Ladder 53")
				So(got[0].Latitude, ShouldEqual, 40.852)
				So(got[0].Companies, ShouldResemble, []string{"Engine 70", "Ladder 53"})
			})
		})

		Convey("When no stations are loaded", func() {
			empty := api.NewFirehousesHandler(&mockStore{})
			req := httptest.NewRequest("GET", "/api/firehouses", nil)
			w := httptest.NewRecorder()
			empty.HandleFirehouses(w, req)

			Convey("Then the body is an empty JSON array", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldStartWith, "[]")
			})
		})
	})
}

func TestBoundariesHandler(t *testing.T) {
	Convey("Given a boundaries handler", t, func() {
		Convey("When the territories are valid", func() {
			store := &mockStore{boundaries: []model.FireCompany{squareCompany("Engine 70")}}
			handler := api.NewBoundariesHandler(store)
			req := httptest.NewRequest("GET", "/api/companies.geojson", nil)
			w := httptest.NewRecorder()
			handler.HandleBoundaries(w, req)

			Convey("Then a FeatureCollection is served as geo+json", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/geo+json")

				var got struct {
					Type     string `json:"type"`
					Features []struct {
						Properties map[string]interface{} `json:"properties"`
						Geometry   struct {
							Type string `json:"type"`
						} `json:"geometry"`
					} `json:"features"`
				}
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got.Type, ShouldEqual, "FeatureCollection")
				So(got.Features, ShouldHaveLength, 1)
				So(got.Features[0].Properties["company"], ShouldEqual, "Engine 70")
				So(got.Features[0].Geometry.Type, ShouldEqual, "MultiPolygon")
			})
		})

		Convey("When a territory has no geometry", func() {
			broken := model.FireCompany{Name: "Engine 1", Type: model.Engine, Number: 1}
			store := &mockStore{boundaries: []model.FireCompany{broken}}
			handler := api.NewBoundariesHandler(store)
			req := httptest.NewRequest("GET", "/api/companies.geojson", nil)
			w := httptest.NewRecorder()
			handler.HandleBoundaries(w, req)

			Convey("Then the handler responds 500 naming the company", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				var got apiError
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(got.Code, ShouldEqual, "internal_error")
				So(got.Message, ShouldContainSubstring, "Engine 1")
			})
		})
	})
}
