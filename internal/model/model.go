// Package model содержит доменные сущности сервиса доставки.
package model

import (
	"strconv"
	"time"
)

// BaseOrderCost задаёт базовую стоимость доставки одного заказа.
const BaseOrderCost = 500

// CourierType описывает тип курьера.
type CourierType string

const (
	CourierTypeFoot CourierType = "foot"
	CourierTypeBike CourierType = "bike"
	CourierTypeCar  CourierType = "car"
)

// Valid сообщает, известен ли тип курьера.
func (t CourierType) Valid() bool {
	switch t {
	case CourierTypeFoot, CourierTypeBike, CourierTypeCar:
		return true
	}
	return false
}

// Capacity возвращает грузоподъёмность курьера данного типа.
func (t CourierType) Capacity() float64 {
	switch t {
	case CourierTypeFoot:
		return 10
	case CourierTypeBike:
		return 15
	case CourierTypeCar:
		return 50
	}
	return 0
}

// Coefficient возвращает коэффициент оплаты для типа курьера.
func (t CourierType) Coefficient() int64 {
	switch t {
	case CourierTypeFoot:
		return 2
	case CourierTypeBike:
		return 5
	case CourierTypeCar:
		return 9
	}
	return 0
}

// OrderCost возвращает стоимость заказа, доставляемого курьером данного типа.
func OrderCost(t CourierType) int64 {
	return BaseOrderCost * t.Coefficient()
}

// Interval описывает временной промежуток в секундах от начала суток.
type Interval struct {
	FirstTime  int `json:"first_time"`
	SecondTime int `json:"second_time"`
}

// DeliveryHistory хранит длительности доставок по районам.
// NotCompletedRegions накапливает значения текущего развоза до его завершения.
type DeliveryHistory struct {
	Regions             map[string][]float64 `json:"regions"`
	NotCompletedRegions map[string][]float64 `json:"not_completed_regions"`
}

// NewDeliveryHistory возвращает пустую историю доставок.
func NewDeliveryHistory() DeliveryHistory {
	return DeliveryHistory{
		Regions:             map[string][]float64{},
		NotCompletedRegions: map[string][]float64{},
	}
}

// RegionKey возвращает ключ района в истории доставок.
func RegionKey(region int64) string {
	return strconv.FormatInt(region, 10)
}

// Courier описывает курьера и накопленные им показатели.
type Courier struct {
	ID               int64
	Type             CourierType
	Regions          []int64
	WorkingHours     []string
	WorkingIntervals []Interval
	Earnings         int64
	LastDeliveryTime *time.Time
	History          DeliveryHistory
}

// Capacity возвращает грузоподъёмность курьера.
func (c *Courier) Capacity() float64 {
	return c.Type.Capacity()
}

// ServesRegion сообщает, работает ли курьер в указанном районе.
func (c *Courier) ServesRegion(region int64) bool {
	for _, r := range c.Regions {
		if r == region {
			return true
		}
	}
	return false
}

// CourierPatch содержит изменяемые поля курьера. Nil означает «не менять».
type CourierPatch struct {
	Type         *CourierType
	Regions      []int64
	WorkingHours []string
}

// Empty сообщает, что патч не меняет ни одного поля.
func (p CourierPatch) Empty() bool {
	return p.Type == nil && p.Regions == nil && p.WorkingHours == nil
}

// CourierProfile содержит снимок курьера для чтения вместе с рейтингом.
type CourierProfile struct {
	Courier
	Rating *float64
}

// Assignment описывает результат назначения заказов курьеру.
type Assignment struct {
	OrderIDs   []int64
	AssignTime *time.Time
}
