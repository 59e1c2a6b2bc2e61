package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

// judgeServer serves one contest that started five minutes ago, with one
// accepted submission by tourist.
func judgeServer() *httptest.Server {
	start := time.Now().Add(-5 * time.Minute).Unix()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("contestId") != "1900" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"FAILED","comment":"contestId: Contest not found"}`))
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/contest.standings"):
			_, _ = fmt.Fprintf(w, `{"status":"OK","result":{"contest":{"id":1900,"name":"Test Round","durationSeconds":7200,"startTimeSeconds":%d},
"problems":[{"contestId":1900,"index":"A","name":"Alpha","points":500}],"rows":[]}}`, start)
		default:
			_, _ = fmt.Fprintf(w, `{"status":"OK","result":[{"id":1,"contestId":1900,"creationTimeSeconds":%d,"relativeTimeSeconds":120,
"problem":{"contestId":1900,"index":"A"},"author":{"members":[{"handle":"tourist"}]},"verdict":"OK"}]}`, start+120)
		}
	}))
}

func TestRun(t *testing.T) {
	convey.Convey("Given a fresh database and a judge", t, func() {
		srv := judgeServer()
		defer srv.Close()
		t.Setenv("PODIUM_DB_DSN", "file:"+filepath.Join(t.TempDir(), "podium.db"))
		t.Setenv("PODIUM_JUDGE_BASE_URL", srv.URL)
		t.Setenv("PODIUM_API_COOLDOWN_MS", "0")

		ctx := context.Background()
		exec := func(args ...string) (int, string) {
			var out, errOut bytes.Buffer
			code := run(ctx, args, &out, &errOut)
			return code, out.String()
		}

		convey.Convey("When a contest is imported, joined and updated", func() {
			code, out := exec("import", "1900")
			convey.So(code, convey.ShouldEqual, 0)
			convey.So(out, convey.ShouldContainSubstring, `imported "Test Round" with 1 problems`)

			code, _ = exec("register", "1900", "1", "-handle", "tourist")
			convey.So(code, convey.ShouldEqual, 0)
			code, _ = exec("register", "1900", "2", "-handle", "petr")
			convey.So(code, convey.ShouldEqual, 0)

			code, out = exec("update", "-once")

			convey.Convey("Then the cycle summary is printed", func() {
				convey.So(code, convey.ShouldEqual, 0)
				convey.So(out, convey.ShouldContainSubstring, "1 active, 1 processed, 1 participants updated")
			})

			convey.Convey("And one user is resynced", func() {
				code, out := exec("resync", "1900", "-user", "1")

				convey.Convey("Then the per-user result is printed", func() {
					convey.So(code, convey.ShouldEqual, 0)
					convey.So(out, convey.ShouldContainSubstring, "Resynced 1 participants")
				})
			})

			convey.Convey("And ratings are applied twice", func() {
				code, out := exec("apply-rating", "1900")
				convey.So(code, convey.ShouldEqual, 0)
				convey.So(out, convey.ShouldEqual, "Successfully applied ratings for 2 participants\n")

				code, out = exec("apply-rating", "1900")

				convey.Convey("Then the second attempt fails", func() {
					convey.So(code, convey.ShouldEqual, 1)
					convey.So(out, convey.ShouldEqual, "Failed: Rating already applied for contest 1900\n")
				})
			})
		})

		convey.Convey("When rating an unknown contest", func() {
			code, out := exec("apply-rating", "404")
			convey.So(code, convey.ShouldEqual, 1)
			convey.So(out, convey.ShouldEqual, "Failed: Contest 404 not found\n")
		})

		convey.Convey("When importing a contest the judge does not know", func() {
			code, out := exec("import", "404")
			convey.So(code, convey.ShouldEqual, 1)
			convey.So(out, convey.ShouldContainSubstring, "contest 404: failed")
		})

		convey.Convey("When the invocation is wrong", func() {
			code, _ := exec("apply-rating")
			convey.So(code, convey.ShouldEqual, 2)
			code, _ = exec("resync", "abc")
			convey.So(code, convey.ShouldEqual, 2)
			code, _ = exec("frobnicate")
			convey.So(code, convey.ShouldEqual, 2)
		})
	})
}

func TestParseArgs(t *testing.T) {
	convey.Convey("Given flags mixed with positional arguments", t, func() {
		fs := newFlagSet("resync")
		user := fs.Int64("user", 0, "")
		pos, err := parseArgs(fs, []string{"1900", "-user", "7", "extra"})

		convey.Convey("Then both are recovered", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(pos, convey.ShouldResemble, []string{"1900", "extra"})
			convey.So(*user, convey.ShouldEqual, 7)
		})
	})
}
