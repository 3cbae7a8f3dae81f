package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/smartystreets/goconvey/convey"
)

func serve(mux *http.ServeMux, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRegister(t *testing.T) {
	convey.Convey("Given the docs routes on a mux", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		convey.Convey("When the document is fetched", func() {
			rec := serve(mux, "/openapi.yaml", nil)

			convey.Convey("Then it is served as YAML with an ETag", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
				convey.So(rec.Header().Get("ETag"), convey.ShouldEqual, etag)
				convey.So(rec.Body.Len(), convey.ShouldEqual, len(OpenAPI))
			})

			convey.Convey("And a revalidation with that ETag is not modified", func() {
				again := serve(mux, "/openapi.yaml", http.Header{"If-None-Match": {rec.Header().Get("ETag")}})
				convey.So(again.Code, convey.ShouldEqual, http.StatusNotModified)
				convey.So(again.Body.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the docs page is fetched", func() {
			rec := serve(mux, "/api-docs", nil)

			convey.Convey("Then ReDoc is pointed at the document", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, "redoc-container")
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, "/openapi.yaml")
			})
		})
	})

	convey.Convey("Given a nil mux", t, func() {
		convey.So(func() { Register(context.Background(), nil) }, convey.ShouldPanic)
	})
}

func TestOpenAPIDocument(t *testing.T) {
	convey.Convey("Given the embedded OpenAPI document", t, func() {
		doc, err := yaml.Parser().Unmarshal(OpenAPI)

		convey.Convey("Then it parses and documents every route", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(doc["openapi"], convey.ShouldEqual, "3.0.3")
			paths, ok := doc["paths"].(map[string]interface{})
			convey.So(ok, convey.ShouldBeTrue)
			for _, p := range []string{
				"/score", "/impact", "/recommendations", "/matchmaking", "/proposals",
				"/calibrations", "/calibrations/{id}", "/configs/{status}", "/leagues",
				"/revaluations", "/chart", "/chart/{asset_id}", "/healthz", "/stats",
			} {
				convey.So(paths, convey.ShouldContainKey, p)
			}
		})
	})
}
