// Package assignment подбирает заказы для курьера: фильтрация кандидатов и рюкзак по весу.
package assignment

import (
	"github.com/shopspring/decimal"

	"github.com/kesha1225/CandyDeliveryAppApi/internal/model"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/timewindow"
)

// WeightUnits возвращает вес в сотых долях единицы.
func WeightUnits(w float64) int64 {
	return decimal.NewFromFloat(w).Shift(2).Round(0).IntPart()
}

// Eligible сообщает, может ли курьер взять заказ из пула.
func Eligible(c *model.Courier, o *model.Order) bool {
	if o.State != model.OrderStateUnassigned {
		return false
	}
	if !c.ServesRegion(o.Region) {
		return false
	}
	if WeightUnits(o.Weight) > WeightUnits(c.Capacity()) {
		return false
	}
	return timewindow.AnyOverlap(o.DeliveryIntervals, c.WorkingIntervals)
}

// FilterCandidates оставляет заказы, которые курьер может взять, сохраняя их порядок.
func FilterCandidates(c *model.Courier, orders []model.Order) []model.Order {
	res := make([]model.Order, 0, len(orders))
	for i := range orders {
		if Eligible(c, &orders[i]) {
			res = append(res, orders[i])
		}
	}
	return res
}

// Select решает задачу 0/1 рюкзака: возвращает подмножество кандидатов максимального
// суммарного веса, не превышающего capacity. При равенстве веса предпочитаются более ранние кандидаты.
func Select(candidates []model.Order, capacity float64) []model.Order {
	limit := WeightUnits(capacity)
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}

	weights := make([]int64, len(candidates))
	var total int64
	for i := range candidates {
		weights[i] = WeightUnits(candidates[i].Weight)
		total += weights[i]
	}
	if total < limit {
		limit = total
	}

	// best[c]: лучший вес для первых i кандидатов при вместимости c.
	// keep[i] бит c: кандидат i строго улучшает best[c].
	best := make([]int64, limit+1)
	keep := make([]bitset, len(candidates))
	for i, w := range weights {
		keep[i] = newBitset(limit + 1)
		if w <= 0 {
			continue
		}
		for c := limit; c >= w; c-- {
			if v := best[c-w] + w; v > best[c] {
				best[c] = v
				keep[i].set(c)
			}
		}
	}

	var picked []int
	c := limit
	for i := len(candidates) - 1; i >= 0; i-- {
		if keep[i].has(c) {
			picked = append(picked, i)
			c -= weights[i]
		}
	}

	res := make([]model.Order, 0, len(picked))
	for j := len(picked) - 1; j >= 0; j-- {
		res = append(res, candidates[picked[j]])
	}
	return res
}

// Reevaluate проверяет назначенные курьеру заказы после изменения его профиля.
// Заказы обрабатываются в исходном порядке; заказ остаётся, если район и время подходят
// и накопленный вес не превышает новую грузоподъёмность.
func Reevaluate(c *model.Courier, held []model.Order) (kept, evicted []model.Order) {
	limit := WeightUnits(c.Capacity())
	var load int64

	for _, o := range held {
		w := WeightUnits(o.Weight)
		if c.ServesRegion(o.Region) &&
			timewindow.AnyOverlap(o.DeliveryIntervals, c.WorkingIntervals) &&
			load+w <= limit {
			load += w
			kept = append(kept, o)
			continue
		}
		evicted = append(evicted, o)
	}
	return kept, evicted
}

type bitset []uint64

func newBitset(n int64) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int64) {
	b[i/64] |= 1 << uint(i%64)
}

func (b bitset) has(i int64) bool {
	return b[i/64]&(1<<uint(i%64)) != 0
}

// TotalWeight возвращает суммарный вес заказов.
func TotalWeight(orders []model.Order) float64 {
	var units int64
	for _, o := range orders {
		units += WeightUnits(o.Weight)
	}
	return float64(units) / 100
}
