package model

// CourierItem описывает элемент пакета импорта курьеров.
type CourierItem struct {
	CourierID    *int64   `json:"courier_id" validate:"required,gt=0"`
	CourierType  *string  `json:"courier_type" validate:"required,oneof=foot bike car"`
	Regions      []int64  `json:"regions" validate:"required,min=1,dive,gt=0"`
	WorkingHours []string `json:"working_hours" validate:"required,min=1,dive,interval"`
}

// OrderItem описывает элемент пакета импорта заказов.
type OrderItem struct {
	OrderID       *int64   `json:"order_id" validate:"required,gte=0"`
	Weight        *float64 `json:"weight" validate:"required,gt=0,cents"`
	Region        *int64   `json:"region" validate:"required,gte=0"`
	DeliveryHours []string `json:"delivery_hours" validate:"required,min=1,dive,interval"`
}

// CourierPatchItem описывает тело частичного обновления курьера.
type CourierPatchItem struct {
	CourierType  *string  `json:"courier_type" validate:"omitnil,oneof=foot bike car"`
	Regions      []int64  `json:"regions" validate:"omitnil,min=1,dive,gt=0"`
	WorkingHours []string `json:"working_hours" validate:"omitnil,min=1,dive,interval"`
}
