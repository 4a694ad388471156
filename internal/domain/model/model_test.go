package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRawScore(t *testing.T) {
	convey.Convey("Given raw scores entered on the floor", t, func() {
		convey.Convey("When the score is text", func() {
			r := model.TextScore("10:45")

			convey.Convey("Then it keeps the text shape", func() {
				convey.So(r.IsEmpty(), convey.ShouldBeFalse)
				convey.So(r.IsNumber(), convey.ShouldBeFalse)
				convey.So(r.Text(), convey.ShouldEqual, "10:45")
			})
		})

		convey.Convey("When the score is numeric", func() {
			r := model.NumberScore(150)

			convey.Convey("Then it keeps the numeric shape", func() {
				convey.So(r.IsNumber(), convey.ShouldBeTrue)
				convey.So(r.Number(), convey.ShouldEqual, 150.0)
				convey.So(r.Text(), convey.ShouldEqual, "150")
			})
		})

		convey.Convey("When nothing was entered", func() {
			convey.So(model.RawScore{}.IsEmpty(), convey.ShouldBeTrue)
			convey.So(model.TextScore("").IsEmpty(), convey.ShouldBeTrue)
			convey.So(model.NumberScore(0).IsEmpty(), convey.ShouldBeFalse)
		})

		convey.Convey("When decoding JSON results", func() {
			var text, number, null model.Result
			convey.So(json.Unmarshal([]byte(`{"id":"r1","raw_score":"CAP"}`), &text), convey.ShouldBeNil)
			convey.So(json.Unmarshal([]byte(`{"id":"r2","raw_score":275}`), &number), convey.ShouldBeNil)
			convey.So(json.Unmarshal([]byte(`{"id":"r3","raw_score":null}`), &null), convey.ShouldBeNil)

			convey.Convey("Then strings and numbers are both accepted", func() {
				convey.So(text.RawScore.Text(), convey.ShouldEqual, "CAP")
				convey.So(number.RawScore.IsNumber(), convey.ShouldBeTrue)
				convey.So(number.RawScore.Number(), convey.ShouldEqual, 275.0)
				convey.So(null.RawScore.IsEmpty(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When decoding an object as a raw score", func() {
			var r model.Result
			err := json.Unmarshal([]byte(`{"raw_score":{"x":1}}`), &r)

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When encoding", func() {
			b, err := json.Marshal(struct {
				A model.RawScore `json:"a"`
				B model.RawScore `json:"b"`
			}{model.TextScore("9:59"), model.NumberScore(12.5)})

			convey.So(err, convey.ShouldBeNil)
			convey.So(string(b), convey.ShouldEqual, `{"a":"9:59","b":12.5}`)
		})
	})
}

func TestMutationKind(t *testing.T) {
	convey.Convey("Given result mutations", t, func() {
		r := &model.Result{ID: "r1"}

		convey.So(model.Mutation{After: r}.Kind(), convey.ShouldEqual, model.MutationCreate)
		convey.So(model.Mutation{Before: r, After: r}.Kind(), convey.ShouldEqual, model.MutationUpdate)
		convey.So(model.Mutation{Before: r}.Kind(), convey.ShouldEqual, model.MutationDelete)
		convey.So(model.Mutation{}.Kind(), convey.ShouldEqual, model.MutationNoop)
	})
}

func TestParseScoringMode(t *testing.T) {
	convey.Convey("Given scoring mode names", t, func() {
		m, ok := model.ParseScoringMode(" reps ")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(m, convey.ShouldEqual, model.ScoringReps)

		_, ok = model.ParseScoringMode("distance")
		convey.So(ok, convey.ShouldBeFalse)
		convey.So(model.ScoringLoad.Valid(), convey.ShouldBeTrue)
		convey.So(model.ScoringMode("x").Valid(), convey.ShouldBeFalse)
	})
}
