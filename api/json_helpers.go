package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"eventboard/data/models"
)

// Envelope status values. Client errors are "fail", server errors "error".
const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

// maxBodyBytes caps event and review payloads.
const maxBodyBytes = 1 << 20

var errTrailingJSON = errors.New("body must only contain a single JSON value")

// successJSON wraps event, category and task responses.
type successJSON struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

type errorJSON struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// plainJSON is sent as is. The review and mail endpoints answer with flat
// objects such as {"ok": true, "msg": ...}.
type plainJSON map[string]interface{}

// marshalAndSend writes one of the response shapes above. Anything else is
// rejected before the header is written.
func marshalAndSend(w http.ResponseWriter, res interface{}, statusCode int) error {
	switch res.(type) {
	case successJSON, errorJSON, plainJSON:
	default:
		return fmt.Errorf("unsupported type: %T", res)
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, err = w.Write(payload)
	return err
}

// SendSuccessJSON sends data in the success envelope, optionally nested
// under a single key such as "event" or "task".
func (app *application) SendSuccessJSON(w http.ResponseWriter, statusCode int, data interface{}, wrap ...string) error {
	res := successJSON{Status: statusSuccess, Data: data}
	if len(wrap) > 0 {
		res.Data = map[string]interface{}{wrap[0]: data}
	}
	return marshalAndSend(w, res, statusCode)
}

func (app *application) SendErrorJSON(w http.ResponseWriter, statusCode int, err error) error {
	status := statusFail
	if statusCode >= http.StatusInternalServerError {
		status = statusError
	}
	return marshalAndSend(w, errorJSON{Status: status, Message: err.Error()}, statusCode)
}

func (app *application) SendJSON(w http.ResponseWriter, statusCode int, data plainJSON) error {
	return marshalAndSend(w, data, statusCode)
}

// serverError logs err and answers with a generic 500.
func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	if sendErr := app.SendErrorJSON(w, http.StatusInternalServerError, errors.New("internal server error")); sendErr != nil {
		log.Printf("could not send error response: %v", sendErr)
	}
}

var validate = models.Validator()

// ReadJSON decodes a single JSON value from the request body into data,
// rejecting unknown fields. With validationReq set the result is also checked
// against its validate tags.
func (app *application) ReadJSON(w http.ResponseWriter, r *http.Request, data interface{}, validationReq bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(data); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errTrailingJSON
	}

	if !validationReq {
		return nil
	}
	return validate.Struct(data)
}
