// Package handler содержит HTTP-обработчики API сервиса доставки.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kesha1225/CandyDeliveryAppApi/internal/metrics"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/model"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/repository"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateCouriers(ctx context.Context, items []model.CourierItem) ([]int64, error)
	CreateOrders(ctx context.Context, items []model.OrderItem) ([]int64, error)
	AssignOrders(ctx context.Context, courierID int64) (*model.Assignment, error)
	CompleteOrder(ctx context.Context, courierID, orderID int64, completeTime string) (int64, error)
	PatchCourier(ctx context.Context, courierID int64, item model.CourierPatchItem) (*model.Courier, error)
	GetCourier(ctx context.Context, courierID int64) (*model.CourierProfile, error)
}

// Handler реализует HTTP-обработчики API сервиса доставки.
type Handler struct {
	service Service
	logger  *zap.Logger
	http    *metrics.HTTP
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов. m может быть nil.
func NewHandler(s Service, logger *zap.Logger, m *metrics.HTTP) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		http:    m,
	}
}

type couriersRequest struct {
	Data []model.CourierItem `json:"data"`
}

type ordersRequest struct {
	Data []model.OrderItem `json:"data"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

// CreateCouriers импортирует пакет курьеров.
func (h *Handler) CreateCouriers(w http.ResponseWriter, r *http.Request) {
	var req couriersRequest
	if err := decodeStrict(r, &req); err != nil {
		h.writeValidation(w, validation.KindCouriers, nil, []model.ErrorDetail{decodeDetail(err)})
		return
	}

	ids, err := h.service.CreateCouriers(r.Context(), req.Data)
	if err != nil {
		itemIDs := make([]*int64, len(req.Data))
		for i := range req.Data {
			itemIDs[i] = req.Data[i].CourierID
		}
		h.writeImportError(w, err, validation.KindCouriers, "courier_id", itemIDs)
		return
	}

	writeJSON(w, http.StatusCreated, map[string][]idResponse{validation.KindCouriers: toIDs(ids)})
}

// CreateOrders импортирует пакет заказов.
func (h *Handler) CreateOrders(w http.ResponseWriter, r *http.Request) {
	var req ordersRequest
	if err := decodeStrict(r, &req); err != nil {
		h.writeValidation(w, validation.KindOrders, nil, []model.ErrorDetail{decodeDetail(err)})
		return
	}

	ids, err := h.service.CreateOrders(r.Context(), req.Data)
	if err != nil {
		itemIDs := make([]*int64, len(req.Data))
		for i := range req.Data {
			itemIDs[i] = req.Data[i].OrderID
		}
		h.writeImportError(w, err, validation.KindOrders, "order_id", itemIDs)
		return
	}

	writeJSON(w, http.StatusCreated, map[string][]idResponse{validation.KindOrders: toIDs(ids)})
}

type courierResponse struct {
	CourierID    int64    `json:"courier_id"`
	CourierType  string   `json:"courier_type"`
	Regions      []int64  `json:"regions"`
	WorkingHours []string `json:"working_hours"`
}

type courierProfileResponse struct {
	courierResponse
	Earnings int64    `json:"earnings"`
	Rating   *float64 `json:"rating,omitempty"`
}

// PatchCourier частично обновляет курьера.
func (h *Handler) PatchCourier(w http.ResponseWriter, r *http.Request) {
	courierID, ok := courierIDParam(r)
	if !ok {
		writeEmpty(w, http.StatusBadRequest)
		return
	}

	var item model.CourierPatchItem
	if err := decodeStrict(r, &item); err != nil {
		writeEmpty(w, http.StatusBadRequest)
		return
	}

	c, err := h.service.PatchCourier(r.Context(), courierID, item)
	if err != nil {
		h.writeError(w, err, "patch courier error", zap.Int64("courier_id", courierID))
		return
	}

	writeJSON(w, http.StatusOK, toCourierResponse(c))
}

// GetCourier возвращает курьера с заработком и рейтингом.
func (h *Handler) GetCourier(w http.ResponseWriter, r *http.Request) {
	courierID, ok := courierIDParam(r)
	if !ok {
		writeEmpty(w, http.StatusBadRequest)
		return
	}

	p, err := h.service.GetCourier(r.Context(), courierID)
	if err != nil {
		h.writeError(w, err, "get courier error", zap.Int64("courier_id", courierID))
		return
	}

	writeJSON(w, http.StatusOK, courierProfileResponse{
		courierResponse: toCourierResponse(&p.Courier),
		Earnings:        p.Earnings,
		Rating:          p.Rating,
	})
}

type assignRequest struct {
	CourierID *int64 `json:"courier_id"`
}

type assignResponse struct {
	Orders     []idResponse `json:"orders"`
	AssignTime string       `json:"assign_time,omitempty"`
}

// AssignOrders назначает курьеру заказы из пула.
func (h *Handler) AssignOrders(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeStrict(r, &req); err != nil || req.CourierID == nil {
		writeEmpty(w, http.StatusBadRequest)
		return
	}

	res, err := h.service.AssignOrders(r.Context(), *req.CourierID)
	if err != nil {
		h.writeError(w, err, "assign orders error", zap.Int64("courier_id", *req.CourierID))
		return
	}

	resp := assignResponse{Orders: toIDs(res.OrderIDs)}
	if res.AssignTime != nil {
		resp.AssignTime = res.AssignTime.UTC().Format(time.RFC3339Nano)
	}
	writeJSON(w, http.StatusOK, resp)
}

type completeRequest struct {
	CourierID    *int64  `json:"courier_id"`
	OrderID      *int64  `json:"order_id"`
	CompleteTime *string `json:"complete_time"`
}

type completeResponse struct {
	OrderID int64 `json:"order_id"`
}

// CompleteOrder отмечает заказ доставленным.
func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeStrict(r, &req); err != nil ||
		req.CourierID == nil || req.OrderID == nil || req.CompleteTime == nil {
		writeEmpty(w, http.StatusBadRequest)
		return
	}

	orderID, err := h.service.CompleteOrder(r.Context(), *req.CourierID, *req.OrderID, *req.CompleteTime)
	if err != nil {
		h.writeError(w, err, "complete order error",
			zap.Int64("courier_id", *req.CourierID),
			zap.Int64("order_id", *req.OrderID),
		)
		return
	}

	writeJSON(w, http.StatusOK, completeResponse{OrderID: orderID})
}

func (h *Handler) writeImportError(w http.ResponseWriter, err error, kind, idKey string, itemIDs []*int64) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		h.writeValidation(w, kind, verr.IDs, verr.Details)
		return
	}

	var dup *model.DuplicateIDError
	if errors.As(err, &dup) {
		h.writeValidation(w, kind, dup.IDs, duplicateDetails(dup.IDs, itemIDs, idKey))
		return
	}

	h.logger.Error("import error", zap.Error(err), zap.String("kind", kind))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) writeValidation(w http.ResponseWriter, kind string, ids []int64, details []model.ErrorDetail) {
	if details == nil {
		details = []model.ErrorDetail{}
	}

	body := map[string]any{
		kind:          toIDs(ids),
		"errors_data": details,
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"validation_error": body})
}

// writeError отвечает 400 {} на ошибки запроса и 500 на всё остальное.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, repository.ErrCourierNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, model.ErrConflictingHolder),
		errors.Is(err, model.ErrOrderNotAssigned),
		errors.Is(err, model.ErrOrderCompleted),
		errors.Is(err, model.ErrInvalidTimeFormat),
		errors.Is(err, model.ErrUnknownCourierType),
		errors.Is(err, model.ErrInvalidTransition):
		h.logger.Debug("bad request", append(fields, zap.Error(err))...)
		writeEmpty(w, http.StatusBadRequest)
		return
	}

	h.logger.Error(msg, append(fields, zap.Error(err))...)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func decodeDetail(err error) model.ErrorDetail {
	return model.ErrorDetail{
		Location: []any{"__root__"},
		Msg:      err.Error(),
		Type:     "value_error.jsondecode",
	}
}

// duplicateDetails указывает на элементы пакета, чьи id уже сохранены.
func duplicateDetails(dups []int64, itemIDs []*int64, idKey string) []model.ErrorDetail {
	set := make(map[int64]struct{}, len(dups))
	for _, id := range dups {
		set[id] = struct{}{}
	}

	res := make([]model.ErrorDetail, 0, len(dups))
	for i, id := range itemIDs {
		if id == nil {
			continue
		}
		if _, ok := set[*id]; ok {
			res = append(res, validation.DuplicateDetail(i, idKey))
		}
	}
	return res
}

func courierIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "courier_id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func toCourierResponse(c *model.Courier) courierResponse {
	return courierResponse{
		CourierID:    c.ID,
		CourierType:  string(c.Type),
		Regions:      nonNil(c.Regions),
		WorkingHours: nonNil(c.WorkingHours),
	}
}

func toIDs(ids []int64) []idResponse {
	res := make([]idResponse, 0, len(ids))
	for _, id := range ids {
		res = append(res, idResponse{ID: id})
	}
	return res
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeEmpty(w http.ResponseWriter, status int) {
	writeJSON(w, status, struct{}{})
}
