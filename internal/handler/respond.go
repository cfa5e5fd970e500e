package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// writeJSON encodes a response body with jx and writes it with the status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the {code, message} error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

// writeFieldErrors writes a 422 with the field-keyed validation messages.
func writeFieldErrors(w http.ResponseWriter, fieldErrors map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusUnprocessableEntity) })
			e.Field("message", func(e *jx.Encoder) { e.Str("validation failed") })
			e.Field("field_errors", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					for field, msg := range fieldErrors {
						e.Field(field, func(e *jx.Encoder) { e.Str(msg) })
					}
				})
			})
		})
	})
}
