package elo_test

import (
	"math"
	"testing"

	"github.com/okian/podium/internal/domain/elo"
	"github.com/okian/podium/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func participant(userID int64, score float64, penalty int) model.Participant {
	return model.Participant{UserID: userID, ContestID: 7, TotalScore: score, Penalty: penalty}
}

func TestRank(t *testing.T) {
	Convey("Given participants with mixed scores and penalties", t, func() {
		in := []model.Participant{
			participant(4, 1000, 50),
			participant(2, 1500, 90),
			participant(9, 1000, 50),
			participant(1, 1000, 20),
			participant(3, 0, 0),
		}

		Convey("When ranking", func() {
			ranked := elo.Rank(in)

			Convey("Then score desc, penalty asc and user id asc decide the order", func() {
				ids := make([]int64, len(ranked))
				for i, p := range ranked {
					ids[i] = p.UserID
				}
				So(ids, ShouldResemble, []int64{2, 1, 4, 9, 3})
			})

			Convey("Then the input order is untouched", func() {
				So(in[0].UserID, ShouldEqual, 4)
				So(in[4].UserID, ShouldEqual, 3)
			})
		})
	})
}

func TestDeltas(t *testing.T) {
	Convey("Given two participants of equal rating", t, func() {
		ranked := elo.Rank([]model.Participant{participant(11, 500, 30), participant(10, 1000, 10)})
		deltas := elo.Deltas(ranked, map[int64]int{10: 1500, 11: 1500})

		Convey("Then the winner gains what the loser loses", func() {
			So(deltas[10], ShouldAlmostEqual, 16.0, 1e-9)
			So(deltas[11], ShouldAlmostEqual, -16.0, 1e-9)
			So(deltas[10]+deltas[11], ShouldAlmostEqual, 0.0, 1e-9)
		})
	})

	Convey("Given an underdog who wins", t, func() {
		ranked := []model.Participant{participant(1, 100, 0), participant(2, 0, 0)}
		deltas := elo.Deltas(ranked, map[int64]int{1: 1200, 2: 1600})

		Convey("Then the gain exceeds half of K", func() {
			So(deltas[1], ShouldBeGreaterThan, elo.K/2)
			So(deltas[1], ShouldAlmostEqual, -deltas[2], 1e-9)
		})
	})

	Convey("Given a larger field", t, func() {
		ranked := elo.Rank([]model.Participant{
			participant(1, 300, 0), participant(2, 200, 0), participant(3, 100, 0), participant(4, 0, 0),
		})
		deltas := elo.Deltas(ranked, map[int64]int{1: 1500, 2: 1500, 3: 1500})

		Convey("Then every pair contributes and the sum is zero", func() {
			var sum float64
			for _, d := range deltas {
				sum += d
			}
			So(len(deltas), ShouldEqual, 4)
			So(sum, ShouldAlmostEqual, 0.0, 1e-9)
			So(deltas[1], ShouldAlmostEqual, 48.0, 1e-9)
			So(deltas[4], ShouldAlmostEqual, -48.0, 1e-9)
		})
	})

	Convey("Given a single participant", t, func() {
		deltas := elo.Deltas([]model.Participant{participant(5, 1, 1)}, nil)
		So(deltas[5], ShouldEqual, 0.0)
	})
}

func TestApply(t *testing.T) {
	Convey("Given old ratings and deltas", t, func() {
		So(elo.Apply(1500, 16), ShouldEqual, 1516)
		So(elo.Apply(1500, 15.9), ShouldEqual, 1515)
		So(elo.Apply(1500, -15.1), ShouldEqual, 1484)
		So(elo.Apply(10, -40), ShouldEqual, 0)
		So(elo.Apply(0, -0.5), ShouldEqual, 0)
	})
}

func TestChanges(t *testing.T) {
	Convey("Given a finished contest", t, func() {
		changes := elo.Changes(
			[]model.Participant{participant(2, 0, 0), participant(1, 500, 15)},
			map[int64]int{1: 1500},
		)

		Convey("Then changes come in rank order and missing ratings use the default", func() {
			So(len(changes), ShouldEqual, 2)
			So(changes[0].UserID, ShouldEqual, 1)
			So(changes[0].New, ShouldEqual, 1516)
			So(changes[1].Old, ShouldEqual, model.DefaultRating)
			So(changes[1].New, ShouldEqual, 1484)
			So(math.Signbit(changes[1].Delta), ShouldBeTrue)
		})
	})
}
