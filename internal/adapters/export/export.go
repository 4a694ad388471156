// Package export renders leaderboards as XLSX workbooks.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/types"
	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// ErrNoCategory is returned when a workbook has no category to name it by.
var ErrNoCategory = errors.New("export: category is required")

// Workbook is everything written for one category.
type Workbook struct {
	Category  string
	Standings []types.StandingEntry
	Events    []model.Event
	// Results holds each event's leaderboard keyed by event id.
	Results map[string][]types.ResultEntry
}

// WriteStandings writes the category leaderboard as the first sheet, with one
// column per event holding the team's rank in it, followed by one sheet per
// event.
func WriteStandings(w io.Writer, wb Workbook) error {
	if strings.TrimSpace(wb.Category) == "" {
		return ErrNoCategory
	}

	f := excelize.NewFile()
	defer f.Close()

	main := sheetName(wb.Category)
	if err := f.SetSheetName("Sheet1", main); err != nil {
		return fmt.Errorf("export: name sheet: %w", err)
	}

	ranks := eventRanks(wb.Results)
	header := []any{"Rank", "Team", "Box", "Total Points"}
	for _, ev := range wb.Events {
		header = append(header, ev.Name)
	}
	if err := setRow(f, main, 1, header); err != nil {
		return err
	}
	for i, s := range wb.Standings {
		row := []any{rankCell(s.Rank), s.TeamName, s.Box, s.TotalPoints}
		for _, ev := range wb.Events {
			row = append(row, rankCell(ranks[ev.ID][s.TeamID]))
		}
		if err := setRow(f, main, i+2, row); err != nil {
			return err
		}
	}

	for i, ev := range wb.Events {
		name := sheetName(fmt.Sprintf("%d %s", i+1, ev.Name))
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export: sheet %q: %w", name, err)
		}
		if err := setRow(f, name, 1, []any{"Rank", "Team", "Score", "Time Cap", "Reps Remaining", "Points"}); err != nil {
			return err
		}
		for j, r := range wb.Results[ev.ID] {
			capped := ""
			if r.TimeCapReached {
				capped = "CAP"
			}
			row := []any{rankCell(r.Rank), r.TeamName, r.RawScore, capped, r.RepsRemaining, r.AwardedPoints}
			if err := setRow(f, name, j+2, row); err != nil {
				return err
			}
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export: row %d of %q: %w", row, sheet, err)
	}
	return nil
}

// rankCell leaves unranked cells blank.
func rankCell(rank int) any {
	if rank <= 0 {
		return ""
	}
	return rank
}

func eventRanks(results map[string][]types.ResultEntry) map[string]map[string]int {
	out := make(map[string]map[string]int, len(results))
	for eventID, rows := range results {
		byTeam := make(map[string]int, len(rows))
		for _, r := range rows {
			byTeam[r.TeamID] = r.Rank
		}
		out[eventID] = byTeam
	}
	return out
}

var sheetNameReplacer = strings.NewReplacer(":", "-", `\`, "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

func sheetName(s string) string {
	s = strings.TrimSpace(sheetNameReplacer.Replace(s))
	if s == "" {
		s = "Sheet"
	}
	r := []rune(s)
	if len(r) > maxSheetName {
		r = r[:maxSheetName]
	}
	return string(r)
}
