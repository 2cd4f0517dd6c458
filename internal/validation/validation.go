// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/kesha1225/CandyDeliveryAppApi/internal/model"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/timewindow"
)

const (
	KindCouriers = "couriers"
	KindOrders   = "orders"
)

// Validator проверяет пакеты импорта и частичные обновления.
type Validator struct {
	v *validator.Validate
}

// New создаёт валидатор с правилами interval и cents.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Ошибки регистрации возможны только при пустом имени тега.
	_ = v.RegisterValidation("interval", func(fl validator.FieldLevel) bool {
		_, err := timewindow.Parse(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		return decimal.NewFromFloat(fl.Field().Float()).Exponent() >= -2
	})

	return &Validator{v: v}
}

// Couriers проверяет пакет курьеров. Возвращает *model.ValidationError со всеми ошибками.
func (val *Validator) Couriers(items []model.CourierItem) error {
	ids := make([]*int64, len(items))
	for i := range items {
		ids[i] = items[i].CourierID
	}
	return collect(KindCouriers, "courier_id", ids, func(i int) error {
		return val.v.Struct(items[i])
	})
}

// Orders проверяет пакет заказов.
func (val *Validator) Orders(items []model.OrderItem) error {
	ids := make([]*int64, len(items))
	for i := range items {
		ids[i] = items[i].OrderID
	}
	return collect(KindOrders, "order_id", ids, func(i int) error {
		return val.v.Struct(items[i])
	})
}

// CourierPatch проверяет тело частичного обновления курьера.
func (val *Validator) CourierPatch(item model.CourierPatchItem) error {
	if err := val.v.Struct(item); err != nil {
		details := describe(err, nil)
		return &model.ValidationError{Kind: KindCouriers, Details: details}
	}
	return nil
}

func collect(kind, idKey string, ids []*int64, check func(i int) error) error {
	var (
		badIDs  []int64
		details []model.ErrorDetail
	)

	markBad := func(i int) {
		if ids[i] == nil {
			return
		}
		for _, id := range badIDs {
			if id == *ids[i] {
				return
			}
		}
		badIDs = append(badIDs, *ids[i])
	}

	if len(ids) == 0 {
		return &model.ValidationError{Kind: kind, Details: []model.ErrorDetail{{
			Location: []any{"data"},
			Msg:      "ensure this value has at least 1 items",
			Type:     "value_error.list.min_items",
		}}}
	}

	seen := make(map[int64]struct{}, len(ids))
	for i := range ids {
		if err := check(i); err != nil {
			details = append(details, describe(err, []any{"data", i})...)
			markBad(i)
		}

		if ids[i] == nil {
			continue
		}
		if _, ok := seen[*ids[i]]; ok {
			details = append(details, DuplicateDetail(i, idKey))
			markBad(i)
			continue
		}
		seen[*ids[i]] = struct{}{}
	}

	if len(details) == 0 {
		return nil
	}
	return &model.ValidationError{Kind: kind, IDs: badIDs, Details: details}
}

// DuplicateDetail описывает повтор идентификатора элемента с индексом i.
func DuplicateDetail(i int, idKey string) model.ErrorDetail {
	return model.ErrorDetail{
		Location: []any{"data", i, idKey},
		Msg:      "id duplicates",
		Type:     "IntegrityError",
	}
}

func describe(err error, prefix []any) []model.ErrorDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []model.ErrorDetail{{
			Location: append(append([]any{}, prefix...), "__root__"),
			Msg:      err.Error(),
			Type:     "value_error",
		}}
	}

	res := make([]model.ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		loc := append(append([]any{}, prefix...), fieldLocation(fe.Field())...)
		msg, typ := message(fe)
		res = append(res, model.ErrorDetail{Location: loc, Msg: msg, Type: typ})
	}
	return res
}

// fieldLocation превращает "regions[1]" в ["regions", 1].
func fieldLocation(field string) []any {
	name, rest, ok := strings.Cut(field, "[")
	if !ok {
		return []any{field}
	}
	idx, err := strconv.Atoi(strings.TrimSuffix(rest, "]"))
	if err != nil {
		return []any{field}
	}
	return []any{name, idx}
}

func message(fe validator.FieldError) (string, string) {
	switch fe.Tag() {
	case "required":
		return "field required", "value_error.missing"
	case "gt":
		return fmt.Sprintf("ensure this value is greater than %s", fe.Param()), "value_error.number.not_gt"
	case "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param()), "value_error.number.not_ge"
	case "min":
		return fmt.Sprintf("ensure this value has at least %s items", fe.Param()), "value_error.list.min_items"
	case "oneof":
		return "value is not a valid enumeration member; permitted: 'foot', 'bike', 'car'", "type_error.enum"
	case "interval":
		return fmt.Sprintf("invalid time interval - %v", fe.Value()), "value_error.interval"
	case "cents":
		return "ensure that there are no more than 2 decimal places", "value_error.decimal.max_places"
	}
	return fmt.Sprintf("failed on the %q rule", fe.Tag()), "value_error." + fe.Tag()
}
