package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/tradeval/internal/domain/model"
)

const defaultRunLimit = 20

// CalibrationHandler serves calibration runs and configuration reads.
type CalibrationHandler struct {
	deps Dependencies
}

// NewCalibrationHandler creates a new calibration handler.
func NewCalibrationHandler(deps Dependencies) *CalibrationHandler {
	return &CalibrationHandler{deps: deps}
}

type calibrationRequest struct {
	Outcomes []model.Outcome `json:"outcomes"`
}

// HandleRun handles POST /calibrations. The run executes synchronously; a
// recorded run that failed still reports its id so the caller can fetch it,
// and a conflict reports the id of the run holding the lock.
func (h *CalibrationHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.run_calibration"
	var req calibrationRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	run, err := h.deps.RunCalibration(r.Context(), req.Outcomes)
	if err != nil {
		body := errorResponse{RunID: run.ID}
		var conflict *model.ConflictError
		if errors.As(err, &conflict) {
			body.RunID = conflict.RunID
		}
		writeErrorBody(w, Wrap(op, err), body)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// HandleGet handles GET /calibrations/{id}.
func (h *CalibrationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_calibration"
	run, err := h.deps.GetCalibrationRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type runsResponse struct {
	Runs []model.CalibrationRun `json:"runs"`
}

// HandleList handles GET /calibrations?limit=.
func (h *CalibrationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_calibrations"
	limit, err := intQuery(r, op, "limit", defaultRunLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	if limit < 1 {
		writeError(w, WrapKind(op, ErrBadRequest, errors.New("limit must be positive")))
		return
	}
	runs, err := h.deps.ListCalibrationRuns(r.Context(), limit)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, runsResponse{Runs: runs})
}

// HandleConfig handles GET /configs/active and GET /configs/candidate.
func (h *CalibrationHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	const op = "api.config"
	var (
		cfg model.AppConfig
		err error
	)
	switch status := r.PathValue("status"); model.ConfigStatus(status) {
	case model.ConfigActive:
		cfg, err = h.deps.ActiveConfig(r.Context())
	case model.ConfigCandidate:
		cfg, err = h.deps.CandidateConfig(r.Context())
	default:
		err = &model.NotFoundError{Resource: "config", ID: status}
	}
	if err != nil {
		writeError(w, Wrap(op, fmt.Errorf("load config: %w", err)))
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
