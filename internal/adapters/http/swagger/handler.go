// Package swagger serves the OpenAPI document and a ReDoc page over it.
package swagger

import (
	"context"
	_ "embed"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// OpenAPI is the embedded API document.
//
//go:embed openapi.yaml
var OpenAPI []byte

// etag is fixed for the life of the binary.
var etag = `"` + strconv.FormatUint(xxhash.Sum64(OpenAPI), 16) + `"`

// Register mounts:
//
//	GET /api-docs      ReDoc page
//	GET /openapi.yaml  the document, with ETag revalidation
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("swagger: nil mux")
	}
	mux.HandleFunc("GET /api-docs", serveDocs)
	mux.HandleFunc("GET /openapi.yaml", serveDocument)
}

func serveDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsPage))
}

func serveDocument(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(OpenAPI)
}

const docsPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Trade Valuation API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
