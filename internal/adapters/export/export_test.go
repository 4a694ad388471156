package export

import (
	"bytes"
	"errors"
	"testing"

	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"
)

func TestWriteStandings(t *testing.T) {
	Convey("Given a ranked category", t, func() {
		wb := Workbook{
			Category: "rx",
			Events: []model.Event{
				{ID: "wod1", Name: "Fran"},
				{ID: "wod2", Name: "Grace: 30 C&J"},
			},
			Standings: []types.StandingEntry{
				{Rank: 1, TeamID: "C", TeamName: "Team C", TotalPoints: 195, EventRanks: []int{1, 2}},
				{Rank: 2, TeamID: "A", TeamName: "Team A", Box: "North", TotalPoints: 95, EventRanks: []int{2}},
			},
			Results: map[string][]types.ResultEntry{
				"wod1": {
					{Rank: 1, ResultID: "rc", TeamID: "C", TeamName: "Team C", RawScore: "9:59", AwardedPoints: 100},
					{Rank: 2, ResultID: "ra", TeamID: "A", TeamName: "Team A", RawScore: "CAP", TimeCapReached: true, RepsRemaining: 4, AwardedPoints: 95},
				},
				"wod2": {
					{Rank: 2, ResultID: "rc2", TeamID: "C", TeamName: "Team C", RawScore: "120", AwardedPoints: 95},
				},
			},
		}

		Convey("When the workbook is written", func() {
			var buf bytes.Buffer
			So(WriteStandings(&buf, wb), ShouldBeNil)

			f, err := excelize.OpenReader(&buf)
			So(err, ShouldBeNil)
			defer f.Close()

			Convey("Then the standings sheet comes first with one column per event", func() {
				So(f.GetSheetList(), ShouldResemble, []string{"rx", "1 Fran", "2 Grace- 30 C&J"})
				rows, err := f.GetRows("rx")
				So(err, ShouldBeNil)
				So(rows[0], ShouldResemble, []string{"Rank", "Team", "Box", "Total Points", "Fran", "Grace: 30 C&J"})
				So(rows[1], ShouldResemble, []string{"1", "Team C", "", "195", "1", "2"})
				So(rows[2][:5], ShouldResemble, []string{"2", "Team A", "North", "95", "2"})
			})

			Convey("Then each event has its own sheet", func() {
				rows, err := f.GetRows("1 Fran")
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 3)
				So(rows[2], ShouldResemble, []string{"2", "Team A", "CAP", "CAP", "4", "95"})
			})
		})

		Convey("When the category is missing", func() {
			wb.Category = " "
			err := WriteStandings(&bytes.Buffer{}, wb)

			Convey("Then ErrNoCategory is returned", func() {
				So(errors.Is(err, ErrNoCategory), ShouldBeTrue)
			})
		})
	})
}

func TestSheetName(t *testing.T) {
	Convey("Sheet names are sanitized and truncated", t, func() {
		So(sheetName("a/b?c*[d]"), ShouldEqual, "a-bc(d)")
		So(sheetName(""), ShouldEqual, "Sheet")
		So(len([]rune(sheetName("0123456789012345678901234567890123456789"))), ShouldEqual, maxSheetName)
	})
}
