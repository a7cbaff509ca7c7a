package response

import (
	"encoding/json"
	"net/http"

	"github.com/fitforge/fitforge/pkg/apperr"
	"github.com/fitforge/fitforge/pkg/logger"
	"github.com/fitforge/fitforge/pkg/orm"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func Write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// Success sends a 200 JSON response with data.
func Success(w http.ResponseWriter, data any) {
	Write(w, http.StatusOK, Envelope{Status: http.StatusOK, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(w http.ResponseWriter, data any) {
	Write(w, http.StatusCreated, Envelope{Status: http.StatusCreated, Data: data})
}

// Error sends a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	Write(w, status, Envelope{Status: status, Message: message})
}

// Fail writes err as an error envelope. Store failures are logged with the
// request's logger and reported to the client without internals.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	status := e.HTTPStatus()

	if e.Kind == apperr.KindStoreFailure {
		logger.WithCtx(r.Context()).Error("request failed",
			"op", e.Code,
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		Write(w, status, Envelope{Status: status, Message: "Internal Server Error", Kind: string(e.Kind)})
		return
	}

	body := Envelope{Status: status, Message: e.Message, Kind: string(e.Kind), Code: e.Code}
	if len(e.Details) > 0 {
		body.Errors = e.Details
	}
	Write(w, status, body)
}

// Paginated sends a 200 response with items and pagination metadata.
func Paginated(w http.ResponseWriter, items any, page orm.Pagination) {
	Write(w, http.StatusOK, Envelope{Status: http.StatusOK, Data: map[string]any{
		"items":      items,
		"pagination": page,
	}})
}

func Unauthorized(w http.ResponseWriter) { Error(w, http.StatusUnauthorized, "Unauthorized") }
func Forbidden(w http.ResponseWriter)    { Error(w, http.StatusForbidden, "Forbidden") }
func NotFound(w http.ResponseWriter)     { Error(w, http.StatusNotFound, "Not found") }
