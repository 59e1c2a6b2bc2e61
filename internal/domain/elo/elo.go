// Package elo computes pairwise Elo adjustments from a final ranking.
package elo

import (
	"cmp"
	"math"
	"slices"

	"github.com/okian/podium/internal/domain/model"
)

// K is the per-pair adjustment factor.
const K = 32.0

// Rank orders participants by score descending, then penalty ascending, then
// user id ascending. The input is not modified.
func Rank(participants []model.Participant) []model.Participant {
	ranked := slices.Clone(participants)
	slices.SortStableFunc(ranked, func(a, b model.Participant) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Penalty, b.Penalty); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return ranked
}

// Expected is the expected score of a player rated ri against one rated rj.
func Expected(ri, rj int) float64 {
	return 1 / (1 + math.Pow(10, float64(rj-ri)/400))
}

// Deltas accumulates the pairwise adjustment of every ranked participant:
// each one beats everybody ranked below it. Users missing from ratings are
// treated as model.DefaultRating.
func Deltas(ranked []model.Participant, ratings map[int64]int) map[int64]float64 {
	rating := func(userID int64) int {
		if r, ok := ratings[userID]; ok {
			return r
		}
		return model.DefaultRating
	}

	out := make(map[int64]float64, len(ranked))
	for _, p := range ranked {
		out[p.UserID] = 0
	}
	for i := range ranked {
		ri := rating(ranked[i].UserID)
		for j := i + 1; j < len(ranked); j++ {
			rj := rating(ranked[j].UserID)
			ei := Expected(ri, rj)
			out[ranked[i].UserID] += K * (1 - ei)
			out[ranked[j].UserID] += K * (0 - (1 - ei))
		}
	}
	return out
}

// Apply returns floor(old+delta), never below zero.
func Apply(old int, delta float64) int {
	next := math.Floor(float64(old) + delta)
	if next < 0 {
		return 0
	}
	return int(next)
}

// Changes ranks participants and returns the rating change of each, in rank
// order.
func Changes(participants []model.Participant, ratings map[int64]int) []model.RatingChange {
	ranked := Rank(participants)
	deltas := Deltas(ranked, ratings)

	out := make([]model.RatingChange, 0, len(ranked))
	for _, p := range ranked {
		old, ok := ratings[p.UserID]
		if !ok {
			old = model.DefaultRating
		}
		d := deltas[p.UserID]
		out = append(out, model.RatingChange{UserID: p.UserID, Old: old, New: Apply(old, d), Delta: d})
	}
	return out
}
