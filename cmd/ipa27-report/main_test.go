package main

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

const fixture = "../../internal/domain/snapshot/testdata/dashboard_data.json"

func TestRun(t *testing.T) {
	convey.Convey("Given the report command", t, func() {
		convey.Convey("When reading a local document as json", func() {
			code := run([]string{"--source", fixture, "--format", "json"})

			convey.Convey("Then it exits cleanly", func() {
				convey.So(code, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When printing one table section", func() {
			convey.So(run([]string{"-s", fixture, "--section", "pillars"}), convey.ShouldEqual, 0)
		})

		convey.Convey("When the document is missing", func() {
			convey.So(run([]string{"-s", "missing.json"}), convey.ShouldEqual, 1)
		})

		convey.Convey("When the format is unknown", func() {
			convey.So(run([]string{"-s", fixture, "-f", "csv"}), convey.ShouldEqual, 1)
		})

		convey.Convey("When a flag is unknown", func() {
			convey.So(run([]string{"--nope"}), convey.ShouldEqual, 2)
		})

		convey.Convey("When help is requested", func() {
			convey.So(run([]string{"--help"}), convey.ShouldEqual, 0)
		})
	})
}
