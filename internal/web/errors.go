package web

// errors.go renders failures of the extract endpoint.
//
// Every failure is answered with status 200 and an error body; callers
// detect failure by the presence of the "error" key. The technical error is
// logged with the request id, and returned as detail only when it carries a
// known kind.

import (
	"net/http"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/core"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/errs"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/logging"
)

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Action string `json:"action,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"kind", string(errs.KindOf(err)),
		"code", msg.Code,
		"error", err.Error(),
	)

	resp := ErrorResponse{
		Error:  msg.Message,
		Code:   msg.Code,
		Action: msg.Action,
	}
	if core.IsUserFacing(err) {
		resp.Detail = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
