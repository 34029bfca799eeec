// Package site serves the embedded map page that visualizes company
// response times on top of the JSON API.
package site

import (
	"context"
	"net/http"
)

// Register attaches the embedded map page routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	// Serve the embedded map page at root /
	files := http.FileServer(FS())
	mux.Handle("/", files)
}
