package http

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
)

//go:embed openapi.yaml
var rawSpec []byte

// GetSwagger returns the parsed and validated API document.
var GetSwagger = sync.OnceValues(func() (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
})

// validateRequest checks r against the operation declared for path and method.
// The request body is restored after validation.
func validateRequest(r *http.Request, path string, pathParams map[string]string) error {
	doc, err := GetSwagger()
	if err != nil {
		return err
	}
	item := doc.Paths.Find(path)
	if item == nil {
		return fmt.Errorf("no operation for %s", path)
	}
	op := item.GetOperation(r.Method)
	if op == nil {
		return fmt.Errorf("no %s operation for %s", r.Method, path)
	}
	return openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route: &routers.Route{
			Spec:      doc,
			Path:      path,
			PathItem:  item,
			Method:    r.Method,
			Operation: op,
		},
	})
}
