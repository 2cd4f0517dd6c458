// Package earnings считает заработок и рейтинг курьера по завершённым доставкам.
package earnings

import (
	"strconv"
	"time"

	"github.com/kesha1225/CandyDeliveryAppApi/internal/model"
)

const ratingHorizon = 3600.0

// DeliveryDuration возвращает длительность доставки в секундах. Отсчёт идёт от предыдущей
// доставки курьера, а если её не было, от момента назначения заказа.
func DeliveryDuration(c *model.Courier, o *model.Order, completedAt time.Time) float64 {
	anchor := completedAt
	switch {
	case c.LastDeliveryTime != nil:
		anchor = *c.LastDeliveryTime
	case o.AssignedAt != nil:
		anchor = *o.AssignedAt
	}
	return completedAt.Sub(anchor).Seconds()
}

// RecordDelivery учитывает завершённый заказ: начисляет стоимость, сдвигает метку последней
// доставки и кладёт длительность во временную корзину района. Когда у курьера не остаётся
// активных заказов, временные корзины переносятся в постоянную историю.
func RecordDelivery(c *model.Courier, o *model.Order, completedAt time.Time, activeLeft int) float64 {
	duration := DeliveryDuration(c, o, completedAt)

	if o.Cost != nil {
		c.Earnings += *o.Cost
	}
	c.LastDeliveryTime = &completedAt

	ensureHistory(&c.History)
	key := model.RegionKey(o.Region)
	c.History.NotCompletedRegions[key] = append(c.History.NotCompletedRegions[key], duration)

	if activeLeft == 0 {
		CloseBatch(&c.History)
	}
	return duration
}

// CloseBatch переносит временные корзины в постоянную историю.
func CloseBatch(h *model.DeliveryHistory) {
	ensureHistory(h)
	for region, durations := range h.NotCompletedRegions {
		h.Regions[region] = append(h.Regions[region], durations...)
	}
	h.NotCompletedRegions = map[string][]float64{}
}

// Rating возвращает рейтинг курьера. Без постоянной истории рейтинга нет.
func Rating(h model.DeliveryHistory) (float64, bool) {
	var (
		t     float64
		found bool
	)

	for _, durations := range h.Regions {
		if len(durations) == 0 {
			continue
		}

		var sum float64
		for _, d := range durations {
			sum += d
		}
		mean := sum / float64(len(durations))

		if !found || mean < t {
			t = mean
			found = true
		}
	}

	if !found {
		return 0, false
	}

	t = min(t, ratingHorizon)
	return roundCents((ratingHorizon - t) / ratingHorizon * 5), true
}

// roundCents округляет точное двоичное значение x до сотых, половины к чётному.
func roundCents(x float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	return r
}

func ensureHistory(h *model.DeliveryHistory) {
	if h.Regions == nil {
		h.Regions = map[string][]float64{}
	}
	if h.NotCompletedRegions == nil {
		h.NotCompletedRegions = map[string][]float64{}
	}
}
