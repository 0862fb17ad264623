package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"waterwatch-hq/healthimpact/pkg/api/types"
	"waterwatch-hq/healthimpact/pkg/assessment"
	"waterwatch-hq/healthimpact/pkg/telemetry/logging"
)

// Evaluation outcomes used as metric labels.
const (
	outcomeSuccess       = "success"
	outcomeNoElements    = "no_elements_evaluated"
	outcomeFieldError    = "field_error"
	outcomeInvalid       = "invalid_request"
	outcomeUnavailable   = "rules_not_loaded"
	outcomeInternalError = "error"
)

// Evaluate handles POST /evaluate.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		if isTooLarge(err) {
			writeTooLarge(w)
			return
		}
		writeError(w, http.StatusBadRequest,
			types.NewInvalidRequestError("failed to read request body", "", types.CodeInvalidJSON))
		return
	}

	req, err := types.DecodeEvaluateRequest(body)
	if err == nil {
		err = req.Validate(h.validate)
	}
	if err != nil {
		h.record(outcomeInvalid, "", start)
		var rerr *types.RequestError
		if errors.As(err, &rerr) {
			writeError(w, http.StatusBadRequest, types.NewInvalidRequestError(rerr.Message, rerr.Param, rerr.Code))
			return
		}
		writeError(w, http.StatusBadRequest, types.NewInvalidRequestError(err.Error(), "", types.CodeInvalidJSON))
		return
	}

	store := h.engine.Rules()
	if store == nil {
		h.record(outcomeUnavailable, "", start)
		writeError(w, http.StatusServiceUnavailable,
			types.NewServiceUnavailableError("no rule set loaded", types.CodeRulesNotLoaded))
		return
	}

	invalid := req.InvalidIssues(store)
	if len(invalid) > 0 && h.engine.Config().FieldPolicy == assessment.FieldPolicyStrict {
		h.record(outcomeFieldError, "", start)
		first := invalid[0]
		h.recordSkipped(invalid[:1])
		writeError(w, http.StatusUnprocessableEntity,
			types.NewUnprocessableError(first.Message, first.Field, types.CodeInvalidValue))
		return
	}

	result, err := h.engine.Evaluate(ctx, req.Sample())
	if err != nil {
		h.writeEvaluateError(ctx, w, err, invalid, start)
		return
	}

	if len(invalid) > 0 {
		result.SkippedFields = types.MergeIssues(result.SkippedFields, invalid)
	}

	h.record(outcomeSuccess, result.OverallRisk.String(), start)
	if h.recorder != nil {
		for sym, er := range result.Results {
			h.recorder.RecordElementResult(sym, er.RiskLevel.String())
		}
	}
	h.recordSkipped(result.SkippedFields)

	h.logger.InfoContext(ctx, "sample evaluated",
		"request_id", logging.GetRequestID(ctx),
		"overall_risk", result.OverallRisk.String(),
		"elements_tested", result.ElementsTested,
		"skipped_fields", len(result.SkippedFields),
		"rules_version", result.RulesVersion,
	)

	writeJSON(w, http.StatusOK, types.NewEvaluateResponse(result))
}

func (h *Handler) writeEvaluateError(ctx context.Context, w http.ResponseWriter, err error, invalid []assessment.FieldIssue, start time.Time) {
	var (
		noneErr  *assessment.NoElementsEvaluatedError
		fieldErr *assessment.FieldError
		tooMany  *assessment.TooManyFieldsError
	)

	switch {
	case errors.As(err, &noneErr):
		skipped := types.MergeIssues(noneErr.Skipped, invalid)
		h.record(outcomeNoElements, "", start)
		h.recordSkipped(skipped)
		resp := types.NewUnprocessableError(
			"no recognised element measurements could be evaluated", "", types.CodeNoElementsEvaluated)
		resp.Error.SkippedFields = types.NewSkippedFields(skipped)
		writeError(w, http.StatusUnprocessableEntity, resp)

	case errors.As(err, &fieldErr):
		h.record(outcomeFieldError, "", start)
		writeError(w, http.StatusUnprocessableEntity,
			types.NewUnprocessableError(fieldErr.Cause.Error(), fieldErr.Field, types.FieldErrorCode(err)))

	case errors.As(err, &tooMany):
		h.record(outcomeInvalid, "", start)
		writeError(w, http.StatusBadRequest,
			types.NewInvalidRequestError(err.Error(), "", types.CodeTooManyFields))

	case errors.Is(err, assessment.ErrNoRules):
		h.record(outcomeUnavailable, "", start)
		writeError(w, http.StatusServiceUnavailable,
			types.NewServiceUnavailableError("no rule set loaded", types.CodeRulesNotLoaded))

	case errors.Is(err, context.DeadlineExceeded):
		h.record(outcomeInternalError, "", start)
		writeError(w, http.StatusGatewayTimeout, types.NewGatewayTimeoutError("evaluation timed out"))

	default:
		h.record(outcomeInternalError, "", start)
		h.logger.ErrorContext(ctx, "evaluation failed",
			"request_id", logging.GetRequestID(ctx),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, types.NewServerError("internal error"))
	}
}

func (h *Handler) record(outcome, overall string, start time.Time) {
	if h.recorder != nil {
		h.recorder.RecordEvaluation(outcome, overall, time.Since(start))
	}
}

func (h *Handler) recordSkipped(issues []assessment.FieldIssue) {
	if h.recorder == nil {
		return
	}
	for _, is := range issues {
		h.recorder.RecordSkippedField(string(is.Reason))
	}
}
