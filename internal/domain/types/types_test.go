package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/wodboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReport(t *testing.T) {
	Convey("Given a bulk delete report", t, func() {
		r := types.Report{Success: true, Message: "deleted 3 results", DeletedCount: 3}

		Convey("When encoding it", func() {
			b, err := json.Marshal(r)

			Convey("Then only the relevant count is present", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, `{"success":true,"message":"deleted 3 results","deleted_count":3}`)
			})
		})
	})
}

func TestStandingEntry(t *testing.T) {
	Convey("Given a standing entry without ranked events", t, func() {
		e := types.StandingEntry{Rank: 4, TeamID: "t1", TeamName: "Barbell Club", EventRanks: []int{}}

		b, err := json.Marshal(e)

		Convey("Then event ranks encode as an empty list", func() {
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"event_ranks":[]`)
			So(string(b), ShouldNotContainSubstring, `"box"`)
		})
	})
}
