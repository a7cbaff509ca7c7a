// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fitforge/fitforge/config"
	"github.com/fitforge/fitforge/pkg/apperr"
	"github.com/fitforge/fitforge/pkg/validate"
)

func maxBodyBytes() int64 {
	n := config.Int("MAX_BODY_BYTES", 4<<20)
	if n <= 0 {
		return 4 << 20
	}
	return int64(n)
}

// JSON decodes r.Body into dest and validates it. Unknown fields are
// rejected so typos in filter or cart payloads surface instead of being
// silently ignored. The returned error is always an *apperr.Error.
func JSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes())

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperr.Validation("body_too_large", "request body too large (max %d bytes)", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return apperr.Validation("empty_body", "request body is empty")
		default:
			return apperr.Validation("invalid_json", "invalid JSON: %v", err)
		}
	}

	return Struct(dest)
}

// Struct runs validation on an already-populated value.
func Struct(v any) error {
	if errs := validate.Struct(v); validate.HasErrors(errs) {
		return apperr.Fields(errs)
	}
	return nil
}

// Multipart parses a multipart form capped at maxMemory bytes in memory.
func Multipart(r *http.Request, maxMemory int64) error {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return apperr.Validation("invalid_form", "invalid multipart form: %v", err)
	}
	return nil
}
