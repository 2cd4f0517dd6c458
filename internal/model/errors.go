package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTimeFormat возвращается при некорректном промежутке времени или метке времени.
	ErrInvalidTimeFormat = errors.New("invalid time format")
	// ErrConflictingHolder возвращается, если заказ назначен другому курьеру.
	ErrConflictingHolder = errors.New("order is held by another courier")
	// ErrOrderNotAssigned возвращается при завершении неназначенного заказа.
	ErrOrderNotAssigned = errors.New("order is not assigned")
	// ErrOrderCompleted возвращается при повторном завершении заказа.
	ErrOrderCompleted = errors.New("order already completed")
	// ErrUnknownCourierType возвращается для типа курьера вне foot/bike/car.
	ErrUnknownCourierType = errors.New("unknown courier type")
	// ErrInvalidTransition возвращается при недопустимом переходе состояния заказа.
	ErrInvalidTransition = errors.New("invalid order state transition")
)

// ErrorDetail описывает одну ошибку валидации элемента пакета.
type ErrorDetail struct {
	Location []any `json:"location"`
	Msg      string `json:"msg"`
	Type     string `json:"type"`
}

// ValidationError возвращается, если хотя бы один элемент пакета некорректен.
type ValidationError struct {
	Kind    string
	IDs     []int64
	Details []ErrorDetail
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Kind, e.IDs)
}

// DuplicateIDError возвращается, если идентификаторы из пакета уже сохранены.
type DuplicateIDError struct {
	Kind string
	IDs  []int64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s ids: %v", e.Kind, e.IDs)
}
