// Package service реализует бизнес-логику сервиса доставки: импорт, назначение и завершение заказов.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kesha1225/CandyDeliveryAppApi/internal/assignment"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/earnings"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/model"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/repository"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/timewindow"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/validation"
)

// Store описывает транзакционное хранилище, используемое сервисом.
type Store interface {
	InTx(ctx context.Context, fn func(tx repository.Tx) error) error
	Close() error
}

// Recorder принимает события для метрик.
type Recorder interface {
	Assigned(n int)
	Completed(cost int64)
	Evicted(n int)
	ImportRejected(kind string)
}

// Service содержит бизнес-логику сервиса доставки.
type Service struct {
	store     Store
	validator *validation.Validator
	metrics   Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewService создаёт сервис. rec и logger могут быть nil.
func NewService(store Store, logger *zap.Logger, rec Recorder) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}

	return &Service{
		store:     store,
		validator: validation.New(),
		metrics:   rec,
		logger:    logger,
		now:       time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// CreateCouriers импортирует пакет курьеров целиком или не импортирует ничего.
func (s *Service) CreateCouriers(ctx context.Context, items []model.CourierItem) ([]int64, error) {
	if err := s.validator.Couriers(items); err != nil {
		s.metrics.ImportRejected(validation.KindCouriers)
		return nil, err
	}

	ids := make([]int64, 0, len(items))
	couriers := make([]model.Courier, 0, len(items))
	for _, it := range items {
		intervals, err := timewindow.ParseAll(it.WorkingHours)
		if err != nil {
			return nil, err
		}

		ids = append(ids, *it.CourierID)
		couriers = append(couriers, model.Courier{
			ID:               *it.CourierID,
			Type:             model.CourierType(*it.CourierType),
			Regions:          it.Regions,
			WorkingHours:     it.WorkingHours,
			WorkingIntervals: intervals,
			History:          model.NewDeliveryHistory(),
		})
	}

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		existing, err := tx.ExistingCourierIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return &model.DuplicateIDError{Kind: validation.KindCouriers, IDs: existing}
		}
		return tx.InsertCouriers(ctx, couriers)
	})
	if err != nil {
		s.metrics.ImportRejected(validation.KindCouriers)
		return nil, err
	}

	s.logger.Info("couriers imported", zap.Int("count", len(ids)))
	return ids, nil
}

// CreateOrders импортирует пакет заказов целиком или не импортирует ничего.
func (s *Service) CreateOrders(ctx context.Context, items []model.OrderItem) ([]int64, error) {
	if err := s.validator.Orders(items); err != nil {
		s.metrics.ImportRejected(validation.KindOrders)
		return nil, err
	}

	ids := make([]int64, 0, len(items))
	orders := make([]model.Order, 0, len(items))
	for _, it := range items {
		intervals, err := timewindow.ParseAll(it.DeliveryHours)
		if err != nil {
			return nil, err
		}

		ids = append(ids, *it.OrderID)
		orders = append(orders, model.NewOrder(*it.OrderID, *it.Weight, *it.Region, it.DeliveryHours, intervals))
	}

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		existing, err := tx.ExistingOrderIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return &model.DuplicateIDError{Kind: validation.KindOrders, IDs: existing}
		}
		return tx.InsertOrders(ctx, orders)
	})
	if err != nil {
		s.metrics.ImportRejected(validation.KindOrders)
		return nil, err
	}

	s.logger.Info("orders imported", zap.Int("count", len(ids)))
	return ids, nil
}

// AssignOrders назначает курьеру заказы максимального суммарного веса.
// Если у курьера уже есть активные заказы, возвращает их без пересчёта.
func (s *Service) AssignOrders(ctx context.Context, courierID int64) (*model.Assignment, error) {
	var (
		res    model.Assignment
		weight float64
		fresh  bool
	)

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		res, weight, fresh = model.Assignment{OrderIDs: []int64{}}, 0, false

		courier, err := tx.GetCourier(ctx, courierID, true)
		if err != nil {
			return err
		}

		held, err := tx.HeldOrders(ctx, courierID)
		if err != nil {
			return err
		}
		if len(held) > 0 {
			res.OrderIDs = orderIDs(held)
			res.AssignTime = held[0].AssignedAt
			return nil
		}

		if len(courier.Regions) == 0 || len(courier.WorkingIntervals) == 0 {
			return nil
		}

		pool, err := tx.PoolOrders(ctx, courier.Regions, courier.Capacity())
		if err != nil {
			return err
		}

		selected := assignment.Select(assignment.FilterCandidates(courier, pool), courier.Capacity())
		if len(selected) == 0 {
			return nil
		}

		now := s.now().UTC().Truncate(time.Microsecond)
		for i := range selected {
			if err := selected[i].Assign(courier.ID, courier.Type, now); err != nil {
				return err
			}
		}

		if err := tx.SaveOrders(ctx, selected...); err != nil {
			return err
		}

		res.OrderIDs = orderIDs(selected)
		res.AssignTime = &now
		weight = assignment.TotalWeight(selected)
		fresh = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if fresh {
		s.metrics.Assigned(len(res.OrderIDs))
		s.logger.Info("orders assigned",
			zap.Int64("courier_id", courierID),
			zap.Int64s("orders", res.OrderIDs),
			zap.Float64("weight", weight),
			zap.Time("assign_time", *res.AssignTime),
		)
	}
	return &res, nil
}

// CompleteOrder завершает заказ курьером и обновляет его заработок и историю доставок.
func (s *Service) CompleteOrder(ctx context.Context, courierID, orderID int64, completeTime string) (int64, error) {
	completedAt, err := timewindow.ParseTimestamp(completeTime)
	if err != nil {
		return 0, err
	}

	var (
		cost     int64
		duration float64
	)

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		courier, err := tx.GetCourier(ctx, courierID, true)
		if err != nil {
			return err
		}

		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}

		if err := order.Complete(courierID, completedAt); err != nil {
			return err
		}

		held, err := tx.HeldOrders(ctx, courierID)
		if err != nil {
			return err
		}
		activeLeft := 0
		for _, o := range held {
			if o.ID != orderID {
				activeLeft++
			}
		}

		duration = earnings.RecordDelivery(courier, order, completedAt, activeLeft)
		cost = 0
		if order.Cost != nil {
			cost = *order.Cost
		}

		if err := tx.SaveOrders(ctx, *order); err != nil {
			return err
		}
		return tx.UpdateCourier(ctx, courier)
	})
	if err != nil {
		return 0, err
	}

	s.metrics.Completed(cost)
	s.logger.Info("order completed",
		zap.Int64("courier_id", courierID),
		zap.Int64("order_id", orderID),
		zap.Float64("duration_seconds", duration),
	)
	return orderID, nil
}

// PatchCourier применяет частичное обновление курьера. Назначенные заказы, которые
// больше не подходят курьеру по району, времени или весу, возвращаются в пул.
func (s *Service) PatchCourier(ctx context.Context, courierID int64, item model.CourierPatchItem) (*model.Courier, error) {
	if err := s.validator.CourierPatch(item); err != nil {
		return nil, err
	}

	patch := model.CourierPatch{Regions: item.Regions, WorkingHours: item.WorkingHours}
	if item.CourierType != nil {
		t := model.CourierType(*item.CourierType)
		patch.Type = &t
	}

	var (
		res     *model.Courier
		evicted []int64
	)

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		res, evicted = nil, nil

		courier, err := tx.GetCourier(ctx, courierID, true)
		if err != nil {
			return err
		}

		if patch.Empty() {
			res = courier
			return nil
		}

		if err := applyPatch(courier, patch); err != nil {
			return err
		}

		held, err := tx.HeldOrders(ctx, courierID)
		if err != nil {
			return err
		}

		kept, dropped := assignment.Reevaluate(courier, held)
		for i := range dropped {
			if err := dropped[i].Release(); err != nil {
				return err
			}
		}
		if len(held) > 0 && len(kept) == 0 {
			earnings.CloseBatch(&courier.History)
		}

		if err := tx.UpdateCourier(ctx, courier); err != nil {
			return err
		}
		if err := tx.SaveOrders(ctx, dropped...); err != nil {
			return err
		}

		res = courier
		evicted = orderIDs(dropped)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(evicted) > 0 {
		s.metrics.Evicted(len(evicted))
		s.logger.Info("orders returned to pool",
			zap.Int64("courier_id", courierID),
			zap.Int64s("evicted", evicted),
		)
	}
	return res, nil
}

// GetCourier возвращает курьера с рассчитанным рейтингом.
func (s *Service) GetCourier(ctx context.Context, courierID int64) (*model.CourierProfile, error) {
	var courier *model.Courier

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		courier, err = tx.GetCourier(ctx, courierID, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	profile := &model.CourierProfile{Courier: *courier}
	if rating, ok := earnings.Rating(courier.History); ok {
		profile.Rating = &rating
	}
	return profile, nil
}

func applyPatch(c *model.Courier, p model.CourierPatch) error {
	if p.Type != nil {
		if !p.Type.Valid() {
			return fmt.Errorf("%w: %q", model.ErrUnknownCourierType, *p.Type)
		}
		c.Type = *p.Type
	}
	if p.Regions != nil {
		c.Regions = p.Regions
	}
	if p.WorkingHours != nil {
		intervals, err := timewindow.ParseAll(p.WorkingHours)
		if err != nil {
			return fmt.Errorf("working hours: %w", err)
		}
		c.WorkingHours = p.WorkingHours
		c.WorkingIntervals = intervals
	}
	return nil
}

func orderIDs(orders []model.Order) []int64 {
	res := make([]int64, 0, len(orders))
	for _, o := range orders {
		res = append(res, o.ID)
	}
	return res
}

type nopRecorder struct{}

func (nopRecorder) Assigned(int)          {}
func (nopRecorder) Completed(int64)       {}
func (nopRecorder) Evicted(int)           {}
func (nopRecorder) ImportRejected(string) {}
