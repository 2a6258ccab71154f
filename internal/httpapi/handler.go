package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meqhh/simpat-api/internal/apperror"
	"github.com/meqhh/simpat-api/internal/metrics"
	"github.com/meqhh/simpat-api/internal/service"
)

const (
	opCreate = "create"
	opList   = "list"
	opGet    = "get"
	opUpdate = "update"
	opDelete = "delete"
)

// Messages reported in the envelope when an operation fails on the datastore.
var failureMessages = map[string]string{
	opCreate: "Failed to create QC check",
	opList:   "Failed to fetch QC checks",
	opGet:    "Failed to fetch QC check",
	opUpdate: "Failed to update QC check",
	opDelete: "Failed to delete QC check",
}

type Handler struct {
	service service.Manager
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewHandler(svc service.Manager, logger zerolog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		service: svc,
		logger:  logger,
		metrics: m,
	}
}

// Routes returns the QC check resource routes, relative to their mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	return r
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Total   *int   `json:"total,omitempty"`
}

type createQCCheckRequest struct {
	PartCode       flexString `json:"part_code"`
	PartName       flexString `json:"part_name"`
	VendorName     flexString `json:"vendor_name"`
	VendorID       flexString `json:"vendor_id"`
	VendorType     flexString `json:"vendor_type"`
	ProductionDate flexString `json:"production_date"`
	ApprovedBy     flexString `json:"approved_by"`
	DataFrom       flexString `json:"data_from"`
}

type updateQCCheckRequest struct {
	PartCode       optionalString `json:"part_code"`
	PartName       optionalString `json:"part_name"`
	VendorName     optionalString `json:"vendor_name"`
	VendorID       optionalString `json:"vendor_id"`
	VendorType     optionalString `json:"vendor_type"`
	ProductionDate optionalString `json:"production_date"`
	Status         optionalString `json:"status"`
	Remark         optionalString `json:"remark"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createQCCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		h.metrics.ObserveOperation(opCreate, metrics.OutcomeValidationError)
		writeFailure(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	h.logger.Debug().Interface("payload", req).Msg("create qc check received")

	created, err := h.service.CreateQCCheck(r.Context(), service.CreateQCCheckInput{
		PartCode:       string(req.PartCode),
		PartName:       string(req.PartName),
		VendorName:     string(req.VendorName),
		VendorID:       string(req.VendorID),
		VendorType:     string(req.VendorType),
		ProductionDate: string(req.ProductionDate),
		ApprovedBy:     string(req.ApprovedBy),
		DataFrom:       string(req.DataFrom),
	})
	if err != nil {
		h.respondWithError(w, r, opCreate, err)
		return
	}

	h.observeSuccess(r, opCreate, created.ID)
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "QC Check created successfully",
		Data:    created,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	h.logger.Debug().Str("query", r.URL.RawQuery).Msg("list qc checks received")

	views, err := h.service.ListQCChecks(r.Context(), service.ListQCChecksFilter{
		Status:   query.Get("status"),
		DateFrom: query.Get("date_from"),
		DateTo:   query.Get("date_to"),
		PartCode: query.Get("part_code"),
		DataFrom: query.Get("data_from"),
	})
	if err != nil {
		h.respondWithError(w, r, opList, err)
		return
	}
	if views == nil {
		views = []service.QCCheckView{}
	}

	h.metrics.ObserveOperation(opList, metrics.OutcomeSuccess)
	h.logger.Debug().Int("count", len(views)).Msg("qc checks listed")

	total := len(views)
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    views,
		Total:   &total,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.qcCheckID(w, r, opGet)
	if !ok {
		return
	}

	view, err := h.service.GetQCCheck(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, opGet, err)
		return
	}

	h.metrics.ObserveOperation(opGet, metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    view,
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.qcCheckID(w, r, opUpdate)
	if !ok {
		return
	}

	var req updateQCCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		h.metrics.ObserveOperation(opUpdate, metrics.OutcomeValidationError)
		writeFailure(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	h.logger.Debug().Uint("qc_check_id", id).Interface("payload", req).Msg("update qc check received")

	updated, err := h.service.UpdateQCCheck(r.Context(), id, service.QCCheckPatch{
		PartCode:       req.PartCode.toPatch(),
		PartName:       req.PartName.toPatch(),
		VendorName:     req.VendorName.toPatch(),
		VendorID:       req.VendorID.toPatch(),
		VendorType:     req.VendorType.toPatch(),
		ProductionDate: req.ProductionDate.toPatch(),
		Status:         req.Status.toPatch(),
		Remark:         req.Remark.toPatch(),
	})
	if err != nil {
		h.respondWithError(w, r, opUpdate, err)
		return
	}

	h.observeSuccess(r, opUpdate, updated.ID)
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "QC Check updated successfully",
		Data:    updated,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.qcCheckID(w, r, opDelete)
	if !ok {
		return
	}

	deletedID, err := h.service.DeleteQCCheck(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, opDelete, err)
		return
	}

	h.observeSuccess(r, opDelete, deletedID)
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "QC Check deleted successfully",
		Data:    map[string]uint{"deletedId": deletedID},
	})
}

func (h *Handler) qcCheckID(w http.ResponseWriter, r *http.Request, operation string) (uint, bool) {
	id, err := parseUintID(chi.URLParam(r, "id"))
	if err != nil {
		h.metrics.ObserveOperation(operation, metrics.OutcomeValidationError)
		writeFailure(w, http.StatusBadRequest, "invalid QC check id", "")
		return 0, false
	}
	return id, true
}

func (h *Handler) observeSuccess(r *http.Request, operation string, id uint) {
	h.metrics.ObserveOperation(operation, metrics.OutcomeSuccess)
	h.logger.Info().
		Str("operation", operation).
		Uint("qc_check_id", id).
		Str("request_id", requestID(r)).
		Msg("qc check " + operation + " succeeded")
}

func (h *Handler) respondWithError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	switch apperror.GetCode(err) {
	case apperror.CodeValidation:
		h.metrics.ObserveOperation(operation, metrics.OutcomeValidationError)
		writeFailure(w, http.StatusBadRequest, messageOf(err), "")
	case apperror.CodeNotFound:
		h.metrics.ObserveOperation(operation, metrics.OutcomeNotFound)
		writeFailure(w, http.StatusNotFound, messageOf(err), "")
	default:
		h.metrics.ObserveOperation(operation, metrics.OutcomeError)
		h.logger.Error().
			Err(err).
			Str("operation", operation).
			Str("request_id", requestID(r)).
			Msg("qc check operation failed")
		writeFailure(w, http.StatusInternalServerError, failureMessages[operation], apperror.CauseOf(err))
	}
}

func messageOf(err error) string {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// decodeJSON tolerates an empty body and unknown fields but rejects malformed
// JSON and trailing data.
func decodeJSON(r *http.Request, target interface{}) error {
	if r.Body == nil {
		return nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.New("invalid JSON body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	if err := decoder.Decode(target); err != nil {
		return errors.New("invalid JSON body")
	}

	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != io.EOF {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeFailure(w http.ResponseWriter, status int, message, cause string) {
	writeJSON(w, status, envelope{
		Success: false,
		Message: message,
		Error:   cause,
	})
}

func parseUintID(raw string) (uint, error) {
	id64, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id64 == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id64), nil
}

// flexString accepts a JSON string, number or boolean and keeps its text form,
// the way the text columns would store it. null leaves the value empty.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty value")
	}

	switch data[0] {
	case 'n':
		if !bytes.Equal(data, []byte("null")) {
			return errors.New("invalid literal")
		}
		*f = ""
		return nil
	case '"':
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*f = flexString(value)
		return nil
	case 't', 'f':
		var value bool
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*f = flexString(strconv.FormatBool(value))
		return nil
	case '{', '[':
		return errors.New("expected a scalar value")
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*f = flexString(number.String())
	return nil
}

// optionalString records whether a field was present in the request body.
// JSON null is treated as absent.
type optionalString struct {
	Set   bool
	Value string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Set = false
		o.Value = ""
		return nil
	}

	var value flexString
	if err := value.UnmarshalJSON(data); err != nil {
		return err
	}
	o.Set = true
	o.Value = string(value)
	return nil
}

func (o optionalString) toPatch() service.Optional[string] {
	if !o.Set {
		return service.Optional[string]{}
	}
	return service.Some(o.Value)
}
