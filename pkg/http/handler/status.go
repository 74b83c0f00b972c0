package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/opskitchen/snapkeeper/pkg/appcontext"
	"github.com/opskitchen/snapkeeper/pkg/domain"
)

type RunStatusSource interface {
	Last() (domain.RunStatus, bool)
}

type LastRunHandler struct {
	logger logrus.FieldLogger
	status RunStatusSource
}

func NewLastRunHandler(logger logrus.FieldLogger, status RunStatusSource) *LastRunHandler {
	return &LastRunHandler{
		logger: logger,
		status: status,
	}
}

type lastRunResponse struct {
	StartedAt  int64  `json:"started_at_mtime"`
	DurationMs int64  `json:"duration_ms"`
	Created    int    `json:"snapshots_created"`
	Deleted    int    `json:"snapshots_deleted"`
	Failures   int    `json:"item_failures"`
	Summary    string `json:"summary"`
	Error      string `json:"error,omitempty"`
}

func (h *LastRunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := appcontext.LoggerFromContext(h.logger, r.Context())

	status, ok := h.status.Last()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := lastRunResponse{
		StartedAt:  status.StartedAt.UnixNano() / 1e6,
		DurationMs: status.FinishedAt.Sub(status.StartedAt).Nanoseconds() / 1e6,
		Created:    status.Created,
		Deleted:    status.Deleted,
		Failures:   status.Failures,
		Summary:    status.Summary,
		Error:      status.Error,
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(resp); err != nil {
		logger.WithError(err).Error("Unable to encode response")
		w.WriteHeader(http.StatusInternalServerError)
	}
}
