package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
)

const maxActivityBodySize = 1 << 20

// ActivityHandler accepts activities over the API
type ActivityHandler struct {
	activityUC interfaces.ActivityUseCase
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(activityUC interfaces.ActivityUseCase) *ActivityHandler {
	return &ActivityHandler{activityUC: activityUC}
}

type activityResponse struct {
	Status     string `json:"status"`
	Recipients int    `json:"recipients,omitempty"`
}

// Handle processes POST /api/v1/activities
func (h *ActivityHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxActivityBodySize))
	if err != nil {
		writeError(w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// numbers in data stay json.Number so that large numeric IDs keep precision
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var activity model.Activity
	if err := dec.Decode(&activity); err != nil {
		logger.Warn("Invalid activity payload", "error", err)
		writeError(w, goerr.Wrap(err, "invalid JSON payload"), http.StatusBadRequest)
		return
	}

	summary, err := h.activityUC.HandleActivity(ctx, &activity)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	resp := activityResponse{Status: "skipped"}
	if !summary.Skipped {
		resp.Status = "sent"
		resp.Recipients = len(summary.Recipients)
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
