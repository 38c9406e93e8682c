package http

import (
	_ "embed"
	"errors"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed openapi/relnotify.yaml
var openAPISpec []byte

// RequestValidator rejects API requests that do not match the OpenAPI
// document of relnotify
type RequestValidator struct {
	router routers.Router
}

// NewRequestValidator loads the embedded OpenAPI document
func NewRequestValidator() (*RequestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load OpenAPI document")
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, goerr.Wrap(err, "invalid OpenAPI document")
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create OpenAPI router")
	}
	return &RequestValidator{router: router}, nil
}

// Middleware validates parameters and body of requests with a documented
// route. Other requests are passed through.
func (v *RequestValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			if !errors.Is(err, routers.ErrPathNotFound) && !errors.Is(err, routers.ErrMethodNotAllowed) {
				ctxlog.From(r.Context()).Warn("Failed to find OpenAPI route", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				MultiError:         false,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			ctxlog.From(r.Context()).Warn("Request does not match API schema", "error", err)
			writeError(w, goerr.Wrap(err, "invalid request"), http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// limitBody caps the request body size of every request
func limitBody(size int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
