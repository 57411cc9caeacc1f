package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/medalist/internal/adapters/http/api"
	"github.com/okian/medalist/internal/adapters/repository"
	service "github.com/okian/medalist/internal/app"
	"github.com/okian/medalist/internal/domain/model"
)

func newTestServer(t *testing.T) (*httptest.Server, *repository.SQLite) {
	t.Helper()
	store, err := repository.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	mux := http.NewServeMux()
	api.NewServer(service.New(store)).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func seedCompetitors(t *testing.T, store *repository.SQLite, names ...string) {
	t.Helper()
	ctx := context.Background()
	if err := store.PutCompetition(ctx, "comp-1", "State Cup"); err != nil {
		t.Fatalf("put competition: %v", err)
	}
	for i, name := range names {
		err := store.PutParticipant(ctx, model.Participant{
			ID:            fmt.Sprintf("p%d", i+1),
			CompetitionID: "comp-1",
			StudentName:   name,
			Zone:          "North",
			SchoolName:    "School " + name,
			Age:           16,
			AgeCategory:   model.AgeUnder17,
			Gender:        model.GenderMale,
			Event:         model.EventAirPistol,
			LaneNo:        i + 1,
			SectionType:   model.SectionMain,
			SeriesCount:   4,
		})
		if err != nil {
			t.Fatalf("put participant %s: %v", name, err)
		}
	}
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func postCard(t *testing.T, base, participant string, series int, shots []int) *http.Response {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/scores/%s/series/%d", base, participant, series),
		map[string]any{"shots": shots})
	return resp
}

func evenCard(v int) []int {
	shots := make([]int, 10)
	for i := range shots {
		shots[i] = v
	}
	return shots
}

func TestScoreEndpoints(t *testing.T) {
	Convey("Given a running server with one participant", t, func() {
		srv, store := newTestServer(t)
		seedCompetitors(t, store, "Alice")

		Convey("When posting a valid series", func() {
			resp := postCard(t, srv.URL, "p1", 1, evenCard(9))
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			Convey("Then the series is listable", func() {
				resp, raw := doJSON(t, http.MethodGet, srv.URL+"/scores/p1", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var series []model.SeriesScore
				So(json.Unmarshal(raw, &series), ShouldBeNil)
				So(series, ShouldHaveLength, 1)
				So(series[0].TotalScore, ShouldEqual, 90)
			})
		})

		Convey("When posting a short card", func() {
			resp := postCard(t, srv.URL, "p1", 1, []int{9, 9})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When posting a card with an out-of-range shot", func() {
			card := evenCard(9)
			card[3] = 11
			resp := postCard(t, srv.URL, "p1", 1, card)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When posting for an unknown participant", func() {
			resp := postCard(t, srv.URL, "ghost", 1, evenCard(9))
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When updating a single shot", func() {
			So(postCard(t, srv.URL, "p1", 1, evenCard(9)).StatusCode, ShouldEqual, http.StatusOK)
			resp, _ := doJSON(t, http.MethodPut, srv.URL+"/scores/p1/series/1/shots/1",
				map[string]int{"score": 10})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			p, err := store.GetParticipant(context.Background(), "p1")
			So(err, ShouldBeNil)
			So(p.TotalScore, ShouldEqual, 91)
			So(p.TenPointers, ShouldEqual, 1)
		})

		Convey("When deleting a series", func() {
			So(postCard(t, srv.URL, "p1", 1, evenCard(9)).StatusCode, ShouldEqual, http.StatusOK)
			resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/scores/p1/series/1", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/scores/p1/series/1", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRankingEndpoints(t *testing.T) {
	Convey("Given three scored participants", t, func() {
		srv, store := newTestServer(t)
		seedCompetitors(t, store, "Alice", "Bob", "Carol")
		So(postCard(t, srv.URL, "p1", 1, evenCard(8)).StatusCode, ShouldEqual, http.StatusOK)
		So(postCard(t, srv.URL, "p2", 1, evenCard(10)).StatusCode, ShouldEqual, http.StatusOK)
		So(postCard(t, srv.URL, "p3", 1, evenCard(9)).StatusCode, ShouldEqual, http.StatusOK)

		Convey("When fetching the ranking", func() {
			resp, raw := doJSON(t, http.MethodGet, srv.URL+"/rankings/comp-1", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("Content-Type"), ShouldStartWith, "application/json")

			var body struct {
				Entries []struct {
					Rank        int               `json:"rank_position"`
					Medal       string            `json:"medal"`
					Participant model.Participant `json:"participant"`
				} `json:"entries"`
				Total int `json:"total"`
			}
			So(json.Unmarshal(raw, &body), ShouldBeNil)
			So(body.Total, ShouldEqual, 3)
			So(body.Entries[0].Participant.StudentName, ShouldEqual, "Bob")
			So(body.Entries[0].Rank, ShouldEqual, 1)
			So(body.Entries[0].Medal, ShouldEqual, model.MedalGold)
		})

		Convey("When the limit is not a number", func() {
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/rankings/comp-1?limit=abc", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the competition is unknown", func() {
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/rankings/nope", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When fetching category rankings", func() {
			resp, raw := doJSON(t, http.MethodGet, srv.URL+"/rankings/comp-1/categories", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(raw), ShouldContainSubstring, "AP_under_17_Male")
		})

		Convey("When fetching the medal tally", func() {
			resp, raw := doJSON(t, http.MethodGet, srv.URL+"/rankings/comp-1/medals?group_by=school", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(raw), ShouldContainSubstring, "School Bob")

			resp, _ = doJSON(t, http.MethodGet, srv.URL+"/rankings/comp-1/medals?group_by=lane", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When exporting CSV", func() {
			resp, raw := doJSON(t, http.MethodGet, srv.URL+"/rankings/comp-1/export", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("Content-Type"), ShouldStartWith, "text/csv")
			So(resp.Header.Get("Content-Disposition"), ShouldContainSubstring, "attachment")

			lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
			So(lines[0], ShouldStartWith, "Rank,Name,Zone,Event,School")
			So(lines, ShouldHaveLength, 4)
		})
	})
}

func TestQualifyEndpoints(t *testing.T) {
	Convey("Given three scored participants", t, func() {
		srv, store := newTestServer(t)
		seedCompetitors(t, store, "Alice", "Bob", "Carol")
		So(postCard(t, srv.URL, "p1", 1, evenCard(8)).StatusCode, ShouldEqual, http.StatusOK)
		So(postCard(t, srv.URL, "p2", 1, evenCard(10)).StatusCode, ShouldEqual, http.StatusOK)
		So(postCard(t, srv.URL, "p3", 1, evenCard(9)).StatusCode, ShouldEqual, http.StatusOK)

		Convey("When auto-qualifying the top two", func() {
			resp, raw := doJSON(t, http.MethodPost, srv.URL+"/rankings/comp-1/qualify",
				map[string]any{"auto_qualify_top": 2})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(raw), ShouldContainSubstring, `"qualified_count":2`)

			p, err := store.GetParticipant(context.Background(), "p2")
			So(err, ShouldBeNil)
			So(p.QualifiedForFinal, ShouldBeTrue)
		})

		Convey("When qualifying manually", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/rankings/comp-1/qualify",
				map[string]any{"participant_ids": []string{"p1"}})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("When a manual id set contains a stranger", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/rankings/comp-1/qualify",
				map[string]any{"participant_ids": []string{"p1", "ghost"}})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

			p, err := store.GetParticipant(context.Background(), "p1")
			So(err, ShouldBeNil)
			So(p.QualifiedForFinal, ShouldBeFalse)
		})

		Convey("When both modes are supplied at once", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/rankings/comp-1/qualify",
				map[string]any{"participant_ids": []string{"p1"}, "auto_qualify_top": 2})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When neither mode is supplied", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/rankings/comp-1/qualify",
				map[string]any{})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When previewing qualifiers", func() {
			resp, raw := doJSON(t, http.MethodGet,
				srv.URL+"/rankings/comp-1/qualifiers?qualify_count=2", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var preview service.QualifierPreview
			So(json.Unmarshal(raw, &preview), ShouldBeNil)
			So(preview.Qualified, ShouldHaveLength, 2)
			So(preview.Reserves, ShouldHaveLength, 1)
			So(preview.Qualified[0].Participant.StudentName, ShouldEqual, "Bob")
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv, store := newTestServer(t)
		seedCompetitors(t, store, "Alice")

		Convey("When fetching stats", func() {
			resp, raw := doJSON(t, http.MethodGet, srv.URL+"/stats", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(raw), ShouldContainSubstring, `"participants":1`)
		})
	})
}
