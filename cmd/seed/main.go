// Command seed fills a database with a synthetic competition for
// manual testing and demos: participants spread across every category
// partition, each with a full card of random shots.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/okian/medalist/internal/adapters/repository"
	service "github.com/okian/medalist/internal/app"
	"github.com/okian/medalist/internal/domain/model"
)

// Default configuration constants.
const (
	defaultParticipants = 48
	defaultSeed         = 42
	defaultTimeout      = 2 * time.Minute
)

var zones = []string{"North", "South", "East", "West"}

func main() {
	var (
		dbPath        = flag.String("db", "medalist.db", "SQLite database path")
		competitionID = flag.String("competition", "comp-demo", "Competition id to create")
		name          = flag.String("name", "Demo Championship", "Competition name")
		participants  = flag.Int("participants", defaultParticipants, "Number of participants to create")
		seed          = flag.Int64("seed", defaultSeed, "Random seed for reproducible data")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := run(ctx, *dbPath, *competitionID, *name, *participants, *seed); err != nil {
		os.Stderr.WriteString("seed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath, competitionID, name string, count int, seed int64) error {
	store, err := repository.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := service.New(store)
	if err := svc.EnsureCompetition(ctx, competitionID, name); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible data

	events := []string{model.EventAirPistol, model.EventPeepSight, model.EventOpenSight}
	genders := []string{model.GenderMale, model.GenderFemale}

	for i := 0; i < count; i++ {
		age := 12 + rng.Intn(7) // 12..18
		p := model.Participant{
			ID:            uuid.NewString(),
			CompetitionID: competitionID,
			StudentName:   fmt.Sprintf("Shooter %03d", i+1),
			Zone:          zones[rng.Intn(len(zones))],
			SchoolName:    fmt.Sprintf("School %c", 'A'+rune(rng.Intn(6))),
			Age:           age,
			AgeCategory:   model.DeriveAgeCategory(age),
			Gender:        genders[rng.Intn(len(genders))],
			Event:         events[rng.Intn(len(events))],
			LaneNo:        i%20 + 1,
			SectionType:   model.SectionMain,
			SeriesCount:   model.SeriesCountShort,
		}
		if err := store.PutParticipant(ctx, p); err != nil {
			return err
		}

		for sn := 1; sn <= p.SeriesCount; sn++ {
			shots := make([]int, model.ShotsPerSeries)
			for j := range shots {
				shots[j] = 5 + rng.Intn(6) // 5..10, competitive cards
			}
			if _, err := svc.RecordSeries(ctx, p.ID, sn, shots); err != nil {
				return err
			}
		}
	}

	fmt.Printf("seeded competition %s with %d participants into %s\n", competitionID, count, dbPath)
	return nil
}
