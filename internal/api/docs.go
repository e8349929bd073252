// Package api holds the HTTP contract of the engine: the OpenAPI document
// that requests are validated against and the JSON shapes of the API.
package api

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/swaggo/swag"
)

//go:embed openapi.yaml
var spec []byte

type doc struct{}

func (doc) ReadDoc() string { return string(spec) }

func init() {
	swag.Register(swag.Name, doc{})
}

// Spec parses and validates the embedded OpenAPI document.
func Spec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	t, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := t.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return t, nil
}

// RegisterDocsRoutes serves the OpenAPI document.
func RegisterDocsRoutes(r chi.Router) {
	r.Get("/docs/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		body, err := swag.ReadDoc()
		if err != nil {
			http.Error(w, "documentation unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(body))
	})
}
