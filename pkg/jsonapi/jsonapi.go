// Package jsonapi provides the JSON response envelope used by the HTTP
// API: {"data": ...} for successes, {"errors": [...]} for failures.
package jsonapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/terahq/tera/core/fault"
)

// ContentType is the media type for API responses.
const ContentType = "application/json"

// Document is a response envelope.
type Document struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
	Meta   Meta    `json:"meta,omitempty"`
}

// Error is one error object in an errors document.
type Error struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Meta is arbitrary response metadata.
type Meta map[string]any

// StatusCode returns the HTTP status as an int.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// NewError creates an error object.
func NewError(status int, code, detail string) Error {
	return Error{
		Status: strconv.Itoa(status),
		Code:   code,
		Detail: detail,
	}
}

// FromFault converts an engine error to its wire form. Plain errors map
// to a 500 internal error without leaking their message.
func FromFault(err error) Error {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return NewError(fe.Kind.HTTPStatus(), string(fe.Kind), fe.Message)
	}
	return NewError(http.StatusInternalServerError, "internal", "internal error")
}

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteDocument(w, status, Document{Data: data})
}

// WriteDocument writes a document with the given status.
func WriteDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

// WriteError writes an error envelope. The HTTP status comes from the
// first error.
func WriteError(w http.ResponseWriter, errs ...Error) {
	if len(errs) == 0 {
		errs = []Error{NewError(http.StatusInternalServerError, "internal", "internal error")}
	}
	status := errs[0].StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteDocument(w, status, Document{Errors: errs})
}

// WriteFault converts err and writes it.
func WriteFault(w http.ResponseWriter, err error) {
	WriteError(w, FromFault(err))
}

// WriteBadRequest is a convenience for 400 errors.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, NewError(http.StatusBadRequest, "bad_request", detail))
}

// WriteNotFound is a convenience for 404 errors.
func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, NewError(http.StatusNotFound, "not_found", detail))
}
