package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/ipa27/internal/adapters/source"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHTTPSource(t *testing.T) {
	Convey("Given a server publishing the snapshot", t, func() {
		var gotQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			switch r.URL.Path {
			case "/data/dashboard_data.json":
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"current": {"and": {}}}`))
			case "/slow":
				time.Sleep(200 * time.Millisecond)
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()
		ctx := context.Background()

		Convey("When fetching a relative url with cache busting", func() {
			clock := func() time.Time { return time.UnixMilli(1700000000123) }
			s, err := source.NewHTTP("/data/dashboard_data.json",
				source.WithBaseURL(srv.URL), source.WithCacheBust(true), source.WithClock(clock))
			So(err, ShouldBeNil)
			So(s.Name(), ShouldEqual, "http")
			So(s.Location(), ShouldEqual, srv.URL+"/data/dashboard_data.json")

			body, err := s.Fetch(ctx)

			Convey("Then the body is returned and the timestamp appended", func() {
				So(err, ShouldBeNil)
				So(string(body), ShouldContainSubstring, "current")
				So(gotQuery, ShouldEqual, "t=1700000000123")
			})
		})

		Convey("When cache busting is off", func() {
			s, err := source.NewHTTP(srv.URL + "/data/dashboard_data.json")
			So(err, ShouldBeNil)
			_, err = s.Fetch(ctx)

			So(err, ShouldBeNil)
			So(gotQuery, ShouldEqual, "")
		})

		Convey("When the document is missing", func() {
			s, _ := source.NewHTTP(srv.URL + "/missing.json")
			_, err := s.Fetch(ctx)

			Convey("Then the error is data unavailable", func() {
				So(errors.Is(err, source.ErrDataUnavailable), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "404")
			})
		})

		Convey("When the fetch exceeds the timeout", func() {
			s, _ := source.NewHTTP(srv.URL+"/slow", source.WithTimeout(20*time.Millisecond))
			_, err := s.Fetch(ctx)

			So(errors.Is(err, source.ErrDataUnavailable), ShouldBeTrue)
		})

		Convey("When the body exceeds the limit", func() {
			s, _ := source.NewHTTP(srv.URL+"/data/dashboard_data.json", source.WithMaxBytes(4))
			_, err := s.Fetch(ctx)

			So(errors.Is(err, source.ErrDataUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given unusable locations", t, func() {
		_, err := source.NewHTTP("")
		So(errors.Is(err, source.ErrInvalidLocation), ShouldBeTrue)

		_, err = source.NewHTTP("/data/dashboard_data.json")
		So(errors.Is(err, source.ErrInvalidLocation), ShouldBeTrue)
	})

	Convey("Given an unreachable server", t, func() {
		s, _ := source.NewHTTP("http://127.0.0.1:1/data.json", source.WithTimeout(time.Second))
		_, err := s.Fetch(context.Background())
		So(errors.Is(err, source.ErrDataUnavailable), ShouldBeTrue)
	})
}

func TestFileSource(t *testing.T) {
	Convey("Given an annotated snapshot file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "dashboard_data.json")
		doc := `{
			// exported by hand for the demo
			"current": {"and": {"global": 46.3,},},
		}`
		So(os.WriteFile(path, []byte(doc), 0o600), ShouldBeNil)

		s, err := source.NewFile(path)
		So(err, ShouldBeNil)
		So(s.Name(), ShouldEqual, "file")
		So(s.Location(), ShouldEqual, path)

		Convey("Then comments and trailing commas are stripped", func() {
			body, err := s.Fetch(context.Background())
			So(err, ShouldBeNil)
			So(string(body), ShouldNotContainSubstring, "//")
			So(string(body), ShouldNotContainSubstring, ",}")
		})

		Convey("Then a cancelled context is reported", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := s.Fetch(ctx)
			So(errors.Is(err, source.ErrDataUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given a missing file", t, func() {
		s, _ := source.NewFile("/non/existent/dashboard_data.json")
		_, err := s.Fetch(context.Background())
		So(errors.Is(err, source.ErrDataUnavailable), ShouldBeTrue)
	})

	Convey("Given New with both locations", t, func() {
		s, err := source.New("snapshot.json", "http://example.org/data.json")
		So(err, ShouldBeNil)
		So(s.Name(), ShouldEqual, "file")

		s, err = source.New("", "http://example.org/data.json")
		So(err, ShouldBeNil)
		So(s.Name(), ShouldEqual, "http")
	})
}
