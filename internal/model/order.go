package model

import (
	"fmt"
	"time"
)

// OrderState описывает состояние заказа.
type OrderState string

const (
	OrderStateUnassigned OrderState = "unassigned"
	OrderStateAssigned   OrderState = "assigned"
	OrderStateCompleted  OrderState = "completed"
)

// Order описывает заказ и его текущее состояние.
type Order struct {
	ID                int64
	Weight            float64
	Region            int64
	DeliveryHours     []string
	DeliveryIntervals []Interval
	State             OrderState
	CourierID         *int64
	AssignedAt        *time.Time
	CompletedBy       *int64
	CompletedAt       *time.Time
	Cost              *int64
}

// NewOrder создаёт неназначенный заказ.
func NewOrder(id int64, weight float64, region int64, hours []string, intervals []Interval) Order {
	return Order{
		ID:                id,
		Weight:            weight,
		Region:            region,
		DeliveryHours:     hours,
		DeliveryIntervals: intervals,
		State:             OrderStateUnassigned,
	}
}

// HeldBy сообщает, назначен ли заказ указанному курьеру.
func (o *Order) HeldBy(courierID int64) bool {
	return o.State == OrderStateAssigned && o.CourierID != nil && *o.CourierID == courierID
}

// Assign переводит заказ в состояние assigned. Стоимость фиксируется только при первом назначении.
func (o *Order) Assign(courierID int64, t CourierType, at time.Time) error {
	if o.State != OrderStateUnassigned {
		return fmt.Errorf("assign order %d in state %s: %w", o.ID, o.State, ErrInvalidTransition)
	}

	if o.Cost == nil {
		cost := OrderCost(t)
		o.Cost = &cost
	}

	o.State = OrderStateAssigned
	o.CourierID = &courierID
	o.AssignedAt = &at
	return nil
}

// Complete завершает заказ курьером courierID.
func (o *Order) Complete(courierID int64, at time.Time) error {
	switch o.State {
	case OrderStateCompleted:
		return fmt.Errorf("order %d: %w", o.ID, ErrOrderCompleted)
	case OrderStateUnassigned:
		return fmt.Errorf("order %d: %w", o.ID, ErrOrderNotAssigned)
	}

	if !o.HeldBy(courierID) {
		return fmt.Errorf("order %d, courier %d: %w", o.ID, courierID, ErrConflictingHolder)
	}

	o.State = OrderStateCompleted
	o.CourierID = nil
	o.CompletedBy = &courierID
	o.CompletedAt = &at
	return nil
}

// Release возвращает назначенный заказ в пул.
func (o *Order) Release() error {
	if o.State != OrderStateAssigned {
		return fmt.Errorf("release order %d in state %s: %w", o.ID, o.State, ErrInvalidTransition)
	}

	o.State = OrderStateUnassigned
	o.CourierID = nil
	o.AssignedAt = nil
	return nil
}
