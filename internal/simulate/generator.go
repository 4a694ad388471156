package simulate

import (
	"fmt"
	"strconv"

	"github.com/brianvoe/gofakeit/v7"
	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/types"
)

// Score generation ranges.
const (
	minTimeSeconds = 150
	timeCapSeconds = 20 * 60
	capChance      = 15 // percent of time results that hit the cap
	maxRepsLeft    = 60
	minReps        = 40
	maxReps        = 400
	minLoad        = 60.0
	maxLoad        = 180.0
	blankChance    = 5 // percent of results submitted without a score
	maxPointsStep  = 50
)

var wodNames = []string{
	"Fran", "Grace", "Isabel", "Diane", "Helen", "Karen", "Annie", "Jackie",
	"Cindy", "Murph", "DT", "Nancy", "Amanda", "Elizabeth", "Kelly", "Linda",
}

var modes = []model.ScoringMode{model.ScoringTime, model.ScoringReps, model.ScoringLoad}

// Generate builds a competition from cfg. The same non-zero Seed always
// produces the same plan.
func Generate(cfg *Config) Plan {
	faker := gofakeit.New(uint64(cfg.Seed))
	plan := Plan{Category: cfg.Category}

	for i := 0; i < cfg.Events; i++ {
		name := wodNames[i%len(wodNames)]
		if i >= len(wodNames) {
			name += " " + strconv.Itoa(i/len(wodNames)+1)
		}
		plan.Events = append(plan.Events, model.Event{
			ID:          fmt.Sprintf("%s-wod-%02d", cfg.Category, i+1),
			Name:        name,
			ScoringMode: modes[faker.Number(0, len(modes)-1)],
			Category:    cfg.Category,
			MaxPoints:   maxPointsStep * faker.Number(2, 4),
			Status:      model.StatusInProgress,
			Order:       i + 1,
			Description: faker.Sentence(faker.Number(4, 9)),
		})
	}

	for i := 0; i < cfg.Teams; i++ {
		plan.Teams = append(plan.Teams, model.Team{
			ID:       fmt.Sprintf("%s-team-%03d", cfg.Category, i+1),
			Name:     faker.Company(),
			Category: cfg.Category,
			Box:      faker.City() + " CrossFit",
		})
	}

	for _, ev := range plan.Events {
		for _, t := range plan.Teams {
			plan.Results = append(plan.Results, generateResult(faker, ev, t.ID))
		}
	}
	return plan
}

func generateResult(faker *gofakeit.Faker, ev model.Event, teamID string) types.ResultInput {
	in := types.ResultInput{EventID: ev.ID, TeamID: teamID}
	if chance(faker, blankChance) {
		return in
	}
	in.RawScore = generateScore(faker, ev.ScoringMode, &in)
	return in
}

// generateScore returns a raw score for mode. Capped time results also set
// the cap fields of in.
func generateScore(faker *gofakeit.Faker, mode model.ScoringMode, in *types.ResultInput) model.RawScore {
	switch mode {
	case model.ScoringTime:
		if chance(faker, capChance) {
			in.TimeCapReached = true
			in.RepsRemaining = faker.Number(1, maxRepsLeft)
			return model.TextScore("CAP")
		}
		s := faker.Number(minTimeSeconds, timeCapSeconds-1)
		return model.TextScore(fmt.Sprintf("%d:%02d", s/60, s%60))
	case model.ScoringReps:
		return model.NumberScore(float64(faker.Number(minReps, maxReps)))
	default:
		return model.NumberScore(float64(int(faker.Float64Range(minLoad, maxLoad)*2)) / 2)
	}
}

// chance reports true pct percent of the time.
func chance(faker *gofakeit.Faker, pct int) bool {
	return faker.Number(1, 100) <= pct
}

// correct returns in with a freshly generated score.
func correct(faker *gofakeit.Faker, mode model.ScoringMode, in types.ResultInput) types.ResultInput {
	in.TimeCapReached, in.RepsRemaining = false, 0
	in.RawScore = generateScore(faker, mode, &in)
	return in
}
