/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rest exposes the messenger over an HTTP API.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/operatecrypto/didcomm-go/pkg/common/log"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/messenger"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/packer"
	"github.com/operatecrypto/didcomm-go/pkg/didcomm/service"
	"github.com/operatecrypto/didcomm-go/pkg/store/message"
	"github.com/operatecrypto/didcomm-go/pkg/store/thread"
)

const (
	sendPath     = "/messages/send"
	receivePath  = "/messages/receive"
	messagesPath = "/messages"
	messagePath  = "/messages/{id}"
	readPath     = "/messages/{id}/read"
	threadPath   = "/threads/{id}"
)

var logger = log.New("didcomm-go/rest")

type errorResponse struct {
	Message string `json:"message"`
}

type threadResponse struct {
	Thread   *thread.Record    `json:"thread"`
	Messages []*message.Record `json:"messages"`
}

// Operation exposes the messenger's operations as REST endpoints.
type Operation struct {
	messenger *messenger.Messenger
}

// New returns the REST operation over the given messenger.
func New(m *messenger.Messenger) *Operation {
	return &Operation{messenger: m}
}

// Router builds the HTTP router for all endpoints.
func (o *Operation) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc(sendPath, o.Send).Methods(http.MethodPost)
	router.HandleFunc(receivePath, o.Receive).Methods(http.MethodPost)
	router.HandleFunc(messagesPath, o.Query).Methods(http.MethodGet)
	router.HandleFunc(messagePath, o.Get).Methods(http.MethodGet)
	router.HandleFunc(messagePath, o.Delete).Methods(http.MethodDelete)
	router.HandleFunc(readPath, o.MarkRead).Methods(http.MethodPost)
	router.HandleFunc(threadPath, o.GetThread).Methods(http.MethodGet)

	return router
}

// Send packs and sends a message.
func (o *Operation) Send(w http.ResponseWriter, r *http.Request) {
	req := &messenger.SendRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}

	result, err := o.messenger.Send(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Receive processes an inbound packed envelope.
func (o *Operation) Receive(w http.ResponseWriter, r *http.Request) {
	body := json.NewDecoder(r.Body)

	env := &packer.Envelope{}
	if err := body.Decode(env); err != nil {
		writeError(w, http.StatusBadRequest, packer.ErrMalformedEnvelope)
		return
	}

	result, err := o.messenger.Receive(r.Context(), env)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Get returns a message record by id.
func (o *Operation) Get(w http.ResponseWriter, r *http.Request) {
	record, err := o.messenger.GetMessage(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// Query returns messages involving a DID, newest first.
func (o *Operation) Query(w http.ResponseWriter, r *http.Request) {
	didStr := r.URL.Query().Get("did")
	if didStr == "" {
		writeError(w, http.StatusBadRequest, errors.New("did query parameter is required"))
		return
	}

	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	take, _ := strconv.Atoi(r.URL.Query().Get("take"))

	records, err := o.messenger.QueryMessages(didStr, skip, take)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	if records == nil {
		records = []*message.Record{}
	}

	writeJSON(w, http.StatusOK, records)
}

// MarkRead marks a received message as read.
func (o *Operation) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := o.messenger.MarkRead(mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete soft deletes a message record.
func (o *Operation) Delete(w http.ResponseWriter, r *http.Request) {
	if err := o.messenger.DeleteMessage(mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetThread returns a thread and its messages, oldest first.
func (o *Operation) GetThread(w http.ResponseWriter, r *http.Request) {
	record, records, err := o.messenger.GetThread(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	if records == nil {
		records = []*message.Record{}
	}

	writeJSON(w, http.StatusOK, &threadResponse{Thread: record, Messages: records})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, message.ErrRecordNotFound), errors.Is(err, thread.ErrThreadNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMessageValidation),
		errors.Is(err, packer.ErrMalformedEnvelope),
		errors.Is(err, messenger.ErrUnknownRecipient):
		return http.StatusBadRequest
	case errors.Is(err, packer.ErrDecryption):
		return http.StatusUnprocessableEntity
	case errors.Is(err, message.ErrDuplicateMessage):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, &errorResponse{Message: err.Error()})
}
