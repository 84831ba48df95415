package net

import (
	"net/http"

	perr "sword/internal/platform/errors"
)

// Wire is the JSON envelope middleware writes when it rejects a request
type Wire struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
}

// Error maps err to a status and envelope; nil is a plain 200
func Error(err error, reqID string) (int, Wire) {
	status := http.StatusOK
	w := Wire{RequestID: reqID}
	if err != nil {
		status = perr.HTTPStatus(err)
		wr := perr.WireFrom(err)
		w.Code, w.Error = wr.Code, wr.Message
	}
	w.StatusCode = status
	w.Status = http.StatusText(status)
	return status, w
}
