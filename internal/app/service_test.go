package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/medalist/internal/adapters/repository"
	service "github.com/okian/medalist/internal/app"
	"github.com/okian/medalist/internal/domain/medals"
	"github.com/okian/medalist/internal/domain/model"
)

func newTestEngine(t *testing.T) (*service.Service, *repository.SQLite) {
	t.Helper()
	store, err := repository.Open(context.Background(), filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return service.New(store), store
}

func seedParticipant(t *testing.T, store *repository.SQLite, id, name string, lane int) {
	t.Helper()
	err := store.PutParticipant(context.Background(), model.Participant{
		ID:            id,
		CompetitionID: "comp-1",
		StudentName:   name,
		Zone:          "North",
		SchoolName:    "School " + id,
		Age:           16,
		AgeCategory:   model.AgeUnder17,
		Gender:        model.GenderMale,
		Event:         model.EventAirPistol,
		LaneNo:        lane,
		SectionType:   model.SectionMain,
		SeriesCount:   4,
	})
	if err != nil {
		t.Fatalf("seed participant %s: %v", id, err)
	}
}

func perfectCard() []int {
	return []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10}
}

func cardTotalling(total int) []int {
	// Ten shots, no tens, summing to total. Valid for 0 <= total <= 90.
	shots := make([]int, 10)
	for i := range shots {
		v := total
		if v > 9 {
			v = 9
		}
		shots[i] = v
		total -= v
	}
	return shots
}

func TestRecordSeries(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with one registered participant", t, func() {
		svc, store := newTestEngine(t)
		So(svc.EnsureCompetition(ctx, "comp-1", "State Cup"), ShouldBeNil)
		seedParticipant(t, store, "p1", "Alice", 1)

		Convey("When recording four perfect series", func() {
			for n := 1; n <= 4; n++ {
				sc, err := svc.RecordSeries(ctx, "p1", n, perfectCard())
				So(err, ShouldBeNil)
				So(sc.TotalScore, ShouldEqual, 100)
				So(sc.TenPointers, ShouldEqual, 10)
			}

			Convey("Then the participant aggregates reflect the whole card", func() {
				p, err := store.GetParticipant(ctx, "p1")
				So(err, ShouldBeNil)
				So(p.TotalScore, ShouldEqual, 400)
				So(p.TenPointers, ShouldEqual, 40)
				So(p.FirstSeriesScore, ShouldEqual, 100)
				So(p.LastSeriesScore, ShouldEqual, 100)
			})
		})

		Convey("When resubmitting the same series number", func() {
			first, err := svc.RecordSeries(ctx, "p1", 1, perfectCard())
			So(err, ShouldBeNil)
			second, err := svc.RecordSeries(ctx, "p1", 1, cardTotalling(80))
			So(err, ShouldBeNil)

			Convey("Then the series keeps its id and the totals are replaced", func() {
				So(second.ID, ShouldEqual, first.ID)
				p, err := store.GetParticipant(ctx, "p1")
				So(err, ShouldBeNil)
				So(p.TotalScore, ShouldEqual, 80)
				So(p.TenPointers, ShouldEqual, 0)
			})
		})

		Convey("When the card is malformed", func() {
			_, err := svc.RecordSeries(ctx, "p1", 1, []int{10, 10})
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)

			_, err = svc.RecordSeries(ctx, "p1", 1,
				[]int{11, 0, 0, 0, 0, 0, 0, 0, 0, 0})
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When the series number exceeds the participant's count", func() {
			_, err := svc.RecordSeries(ctx, "p1", 5, perfectCard())
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When the participant does not exist", func() {
			_, err := svc.RecordSeries(ctx, "ghost", 1, perfectCard())
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestRecordShotAndDelete(t *testing.T) {
	ctx := context.Background()

	Convey("Given a participant with two recorded series", t, func() {
		svc, store := newTestEngine(t)
		So(svc.EnsureCompetition(ctx, "comp-1", "State Cup"), ShouldBeNil)
		seedParticipant(t, store, "p1", "Alice", 1)
		_, err := svc.RecordSeries(ctx, "p1", 1, cardTotalling(90))
		So(err, ShouldBeNil)
		_, err = svc.RecordSeries(ctx, "p1", 4, perfectCard())
		So(err, ShouldBeNil)

		Convey("When correcting a single shot", func() {
			So(svc.RecordShot(ctx, "p1", 1, 1, 10), ShouldBeNil)

			Convey("Then both the series and the participant are recomputed", func() {
				sc, err := store.GetSeries(ctx, "p1", 1)
				So(err, ShouldBeNil)
				So(sc.TotalScore, ShouldEqual, 91)
				So(sc.TenPointers, ShouldEqual, 1)

				p, err := store.GetParticipant(ctx, "p1")
				So(err, ShouldBeNil)
				So(p.TotalScore, ShouldEqual, 191)
				So(p.FirstSeriesScore, ShouldEqual, 91)
			})
		})

		Convey("When correcting a shot of a missing series", func() {
			So(errors.Is(svc.RecordShot(ctx, "p1", 2, 1, 10), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When deleting the trailing series", func() {
			So(svc.DeleteSeries(ctx, "p1", 4), ShouldBeNil)

			Convey("Then the last series slot drops back to zero", func() {
				p, err := store.GetParticipant(ctx, "p1")
				So(err, ShouldBeNil)
				So(p.TotalScore, ShouldEqual, 90)
				So(p.LastSeriesScore, ShouldEqual, 0)
				So(p.FirstSeriesScore, ShouldEqual, 90)
			})
		})

		Convey("When listing series", func() {
			all, err := svc.ListSeries(ctx, "p1")
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 2)

			_, err = svc.ListSeries(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestComputeRanking(t *testing.T) {
	ctx := context.Background()

	Convey("Given three participants with distinct totals", t, func() {
		svc, store := newTestEngine(t)
		So(svc.EnsureCompetition(ctx, "comp-1", "State Cup"), ShouldBeNil)
		seedParticipant(t, store, "p1", "Alice", 1)
		seedParticipant(t, store, "p2", "Bob", 2)
		seedParticipant(t, store, "p3", "Carol", 3)
		_, err := svc.RecordSeries(ctx, "p1", 1, cardTotalling(80))
		So(err, ShouldBeNil)
		_, err = svc.RecordSeries(ctx, "p2", 1, perfectCard())
		So(err, ShouldBeNil)
		_, err = svc.RecordSeries(ctx, "p3", 1, cardTotalling(85))
		So(err, ShouldBeNil)

		f := model.Filter{CompetitionID: "comp-1", SectionType: model.SectionMain}

		Convey("When ranking the main section", func() {
			entries, total, err := svc.ComputeRanking(ctx, f, 0, 0)
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 3)
			So(entries[0].Participant.StudentName, ShouldEqual, "Bob")
			So(entries[0].Rank, ShouldEqual, 1)
			So(entries[0].Medal, ShouldEqual, model.MedalGold)
			So(entries[2].Participant.StudentName, ShouldEqual, "Alice")
			So(entries[2].Medal, ShouldEqual, model.MedalBronze)
		})

		Convey("When paginating", func() {
			page, total, err := svc.ComputeRanking(ctx, f, 2, 2)
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 3)
			So(page, ShouldHaveLength, 1)
			So(page[0].Rank, ShouldEqual, 3)
		})

		Convey("When the filter carries an unknown enum", func() {
			_, _, err := svc.ComputeRanking(ctx, model.Filter{
				CompetitionID: "comp-1", Event: "crossbow",
			}, 0, 0)
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When the competition is unknown", func() {
			_, _, err := svc.ComputeRanking(ctx, model.Filter{CompetitionID: "nope"}, 0, 0)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When asking for per-category rankings", func() {
			byCat, err := svc.ComputeCategoryRankings(ctx, "comp-1", model.SectionMain, 2)
			So(err, ShouldBeNil)
			key := model.CategoryKey{
				Event:       model.EventAirPistol,
				AgeCategory: model.AgeUnder17,
				Gender:      model.GenderMale,
			}
			So(byCat, ShouldContainKey, key)
			So(byCat[key], ShouldHaveLength, 2)
			So(byCat[key][0].Participant.StudentName, ShouldEqual, "Bob")
		})

		Convey("When tallying medals by school", func() {
			standings, err := svc.ComputeMedalTally(ctx, "comp-1", model.SectionMain, medals.GroupBySchool)
			So(err, ShouldBeNil)
			So(standings, ShouldHaveLength, 3)
			So(standings[0].GroupName, ShouldEqual, "School p2")
			So(standings[0].GoldCount, ShouldEqual, 1)

			_, err = svc.ComputeMedalTally(ctx, "comp-1", model.SectionMain, "lane")
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}

func TestQualification(t *testing.T) {
	ctx := context.Background()

	Convey("Given five participants ranked 90 down to 70", t, func() {
		svc, store := newTestEngine(t)
		So(svc.EnsureCompetition(ctx, "comp-1", "State Cup"), ShouldBeNil)
		names := []string{"Alice", "Bob", "Carol", "Dave", "Eve"}
		for i, name := range names {
			id := "p" + name
			seedParticipant(t, store, id, name, i+1)
			_, err := svc.RecordSeries(ctx, id, 1, cardTotalling(90-i*5))
			So(err, ShouldBeNil)
		}

		Convey("When auto-qualifying the top three", func() {
			n, err := svc.QualifyAutoTop(ctx, "comp-1", model.Filter{}, 3)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)

			qualified := qualifiedNames(t, store)
			So(qualified, ShouldResemble, []string{"Alice", "Bob", "Carol"})

			Convey("And re-qualifying with a smaller cutoff resets prior flags", func() {
				n, err := svc.QualifyAutoTop(ctx, "comp-1", model.Filter{}, 2)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				So(qualifiedNames(t, store), ShouldResemble, []string{"Alice", "Bob"})
			})
		})

		Convey("When qualifying manually with a valid id set", func() {
			n, err := svc.QualifyManual(ctx, "comp-1", []string{"pEve", "pDave"})
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			So(qualifiedNames(t, store), ShouldResemble, []string{"Dave", "Eve"})
		})

		Convey("When a manual id set contains a stranger", func() {
			_, err := svc.QualifyManual(ctx, "comp-1", []string{"pAlice", "ghost"})
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)

			Convey("Then nobody is marked", func() {
				So(qualifiedNames(t, store), ShouldHaveLength, 0)
			})
		})

		Convey("When a manual id set is empty", func() {
			_, err := svc.QualifyManual(ctx, "comp-1", nil)
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When previewing the cutoff", func() {
			preview, err := svc.PreviewQualifiers(ctx, "comp-1", model.Filter{}, 3)
			So(err, ShouldBeNil)
			So(preview.Qualified, ShouldHaveLength, 3)
			So(preview.Reserves, ShouldHaveLength, 2)
			So(preview.Qualified[0].Participant.StudentName, ShouldEqual, "Alice")
			So(preview.Reserves[0].Participant.StudentName, ShouldEqual, "Dave")

			Convey("Then nothing was persisted", func() {
				So(qualifiedNames(t, store), ShouldHaveLength, 0)
			})
		})
	})
}

func qualifiedNames(t *testing.T, store *repository.SQLite) []string {
	t.Helper()
	all, err := store.ListParticipants(context.Background(), model.Filter{CompetitionID: "comp-1"})
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	names := make([]string, 0, len(all))
	for _, p := range all {
		if p.QualifiedForFinal {
			names = append(names, p.StudentName)
		}
	}
	return names
}

func TestExportAndStats(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with a ranked participant", t, func() {
		svc, store := newTestEngine(t)
		So(svc.EnsureCompetition(ctx, "comp-1", "State Cup"), ShouldBeNil)
		seedParticipant(t, store, "p1", "Alice", 1)
		_, err := svc.RecordSeries(ctx, "p1", 1, perfectCard())
		So(err, ShouldBeNil)

		Convey("When exporting the ranking", func() {
			out, err := svc.ExportRankingCSV(ctx, model.Filter{CompetitionID: "comp-1"})
			So(err, ShouldBeNil)
			So(string(out), ShouldStartWith, "Rank,Name,Zone,Event,School")
			So(string(out), ShouldContainSubstring, "Alice")
		})

		Convey("When reading stats", func() {
			stats := svc.GetStats(ctx)
			So(stats["participants"], ShouldEqual, 1)
			So(stats["series_scores"], ShouldEqual, 1)
			So(stats["default_top_n"], ShouldEqual, 8)
		})

		Convey("When ensuring a competition without an id", func() {
			So(errors.Is(svc.EnsureCompetition(ctx, "", "x"), service.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}
