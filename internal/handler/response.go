package handler

import (
	"io"
	"net/http"
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/auth"
)

const maxBodyBytes = 1 << 20

// statusOf maps an error to its HTTP status. It is the only place where
// domain errors meet HTTP.
func statusOf(err error) int {
	if errors.Is(err, auth.ErrMethodDisabled) {
		return http.StatusNotImplemented
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindReference, apperr.KindInvalidTransition:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeData writes {"success":true,"data":{<key>: ...}}.
func writeData(w http.ResponseWriter, status int, key string, body func(e *jx.Encoder)) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("data")
	e.ObjStart()
	e.FieldStart(key)
	body(&e)
	e.ObjEnd()
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError logs err and writes the failure envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	kind := string(apperr.KindOf(err))
	if errors.Is(err, auth.ErrMethodDisabled) {
		kind = "method_disabled"
	}

	lg := zctx.From(r.Context())
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		lg.Error("Request error", zap.Error(err), zap.String("kind", kind))
	} else {
		lg.Debug("Request rejected", zap.Error(err), zap.String("kind", kind))
	}

	msg := apperr.MessageOf(err)
	if kind == "method_disabled" {
		msg = err.Error()
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(false)
	e.FieldStart("error")
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(kind)
	e.FieldStart("message")
	e.Str(msg)
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		e.FieldStart("fields")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(fields[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

type bodyDecoder interface {
	Decode(d *jx.Decoder, fields fieldErrors) error
}

// readBody decodes a JSON object body into dst. Syntax errors and per-field
// type errors become validation errors.
func readBody(r *http.Request, op string, dst bodyDecoder) error {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return apperr.Validation(op, "request body too large or unreadable", nil)
	}

	fields := fieldErrors{}
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return apperr.Validation(op, "request body must be a JSON object", nil)
	}
	if err := dst.Decode(d, fields); err != nil {
		return apperr.Validation(op, "malformed JSON body", nil)
	}
	if len(fields) > 0 {
		return apperr.Validation(op, "invalid input", fields)
	}
	return nil
}
