package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/podium/internal/domain/standings"
	types "github.com/okian/podium/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStandingsJSON(t *testing.T) {
	Convey("Given a standings view", t, func() {
		view := types.Standings{
			ContestID: 1800,
			Name:      "Codeforces Round 857",
			Problems:  []types.ProblemHeader{{Index: "A", Points: 500}},
			Rows: []types.Row{{
				Rank: 1, UserID: 7, Handle: "tourist", Status: "+1",
				Cells: []standings.Cell{{Solved: true, Wrong: 1}}, TotalScore: 500, Penalty: 35,
			}},
		}

		Convey("When it is encoded", func() {
			raw, err := json.Marshal(view)
			So(err, ShouldBeNil)

			var generic map[string]any
			So(json.Unmarshal(raw, &generic), ShouldBeNil)

			Convey("Then field names follow the API contract", func() {
				So(generic["contest_id"], ShouldEqual, 1800)
				So(generic["rating_applied"], ShouldEqual, false)
				row := generic["rows"].([]any)[0].(map[string]any)
				So(row["problem_status"], ShouldEqual, "+1")
				So(row["total_score"], ShouldEqual, 500)
				cell := row["cells"].([]any)[0].(map[string]any)
				So(cell["solved"], ShouldEqual, true)
				So(cell["wrong"], ShouldEqual, 1)
			})

			Convey("Then empty optional problem fields are omitted", func() {
				header := generic["problems"].([]any)[0].(map[string]any)
				_, hasURL := header["url"]
				So(hasURL, ShouldBeFalse)
			})
		})
	})
}

func TestRatingResultJSON(t *testing.T) {
	Convey("Given a rejected rating application", t, func() {
		raw, err := json.Marshal(types.RatingResult{ContestID: 3, Reason: "already_applied", Message: "Rating already applied for contest 3"})
		So(err, ShouldBeNil)

		Convey("Then no changes are emitted", func() {
			So(string(raw), ShouldNotContainSubstring, "changes")
			So(string(raw), ShouldContainSubstring, `"applied":false`)
		})
	})
}
