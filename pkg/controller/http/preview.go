package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/oapi-codegen/runtime"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

// PreviewHandler renders release emails without sending them
type PreviewHandler struct {
	previewUC interfaces.PreviewUseCase
}

// NewPreviewHandler creates a new PreviewHandler
func NewPreviewHandler(previewUC interfaces.PreviewUseCase) *PreviewHandler {
	return &PreviewHandler{previewUC: previewUC}
}

// previewParams are the path and query parameters of the preview route
type previewParams struct {
	Project string
	Version string
	User    string
	Deploy  *string
	Format  *string
}

func bindPreviewParams(r *http.Request) (*previewParams, error) {
	var params previewParams

	pathParams := []struct {
		name string
		dest *string
	}{
		{"project", &params.Project},
		{"version", &params.Version},
	}
	for _, p := range pathParams {
		err := runtime.BindStyledParameterWithOptions("simple", p.name, chi.URLParam(r, p.name), p.dest,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			return nil, goerr.Wrap(err, "invalid path parameter", goerr.V("name", p.name))
		}
	}

	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "user", query, &params.User); err != nil {
		return nil, goerr.Wrap(err, "invalid query parameter", goerr.V("name", "user"))
	}
	if params.User == "" {
		return nil, goerr.New("user is required")
	}
	if err := runtime.BindQueryParameter("form", true, false, "deploy", query, &params.Deploy); err != nil {
		return nil, goerr.Wrap(err, "invalid query parameter", goerr.V("name", "deploy"))
	}
	if err := runtime.BindQueryParameter("form", true, false, "format", query, &params.Format); err != nil {
		return nil, goerr.Wrap(err, "invalid query parameter", goerr.V("name", "format"))
	}

	return &params, nil
}

// Handle processes GET /api/v1/projects/{project}/releases/{version}/preview.
// Query: user (required), deploy, format=text|html (default html).
func (h *PreviewHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := bindPreviewParams(r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	activity := &model.Activity{
		ProjectID: types.ProjectID(params.Project),
		Type:      model.ActivityTypeRelease,
		Data: map[string]any{
			"version": params.Version,
		},
	}
	if params.Deploy != nil && *params.Deploy != "" {
		activity.Data["deploy_id"] = *params.Deploy
	}

	msg, err := h.previewUC.PreviewRelease(ctx, activity, types.UserID(params.User))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	if msg == nil {
		writeError(w, goerr.New("user would not be notified"), http.StatusNotFound)
		return
	}

	contentType, body := "text/html; charset=utf-8", msg.HTMLBody
	if params.Format != nil && *params.Format == "text" {
		contentType, body = "text/plain; charset=utf-8", msg.TextBody
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Relnotify-Subject", msg.Subject)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		ctxlog.From(ctx).Error("Failed to write preview", "error", err)
	}
}
