package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kesha1225/CandyDeliveryAppApi/internal/model"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/timewindow"
)

func newCourier(t *testing.T, typ model.CourierType, regions []int64, hours ...string) *model.Courier {
	t.Helper()

	intervals, err := timewindow.ParseAll(hours)
	require.NoError(t, err)

	return &model.Courier{
		ID:               1,
		Type:             typ,
		Regions:          regions,
		WorkingHours:     hours,
		WorkingIntervals: intervals,
		History:          model.NewDeliveryHistory(),
	}
}

func newOrder(t *testing.T, id int64, weight float64, region int64, hours ...string) model.Order {
	t.Helper()

	intervals, err := timewindow.ParseAll(hours)
	require.NoError(t, err)

	return model.NewOrder(id, weight, region, hours, intervals)
}

func ids(orders []model.Order) []int64 {
	res := make([]int64, 0, len(orders))
	for _, o := range orders {
		res = append(res, o.ID)
	}
	return res
}

func TestWeightUnits(t *testing.T) {
	assert.Equal(t, int64(1), WeightUnits(0.01))
	assert.Equal(t, int64(29), WeightUnits(0.29))
	assert.Equal(t, int64(1023), WeightUnits(10.23))
	assert.Equal(t, int64(5000), WeightUnits(50))
}

func TestFilterCandidates(t *testing.T) {
	c := newCourier(t, model.CourierTypeFoot, []int64{1, 2}, "09:00-11:00")

	assigned := newOrder(t, 5, 1, 1, "10:00-11:00")
	other := int64(99)
	assigned.State = model.OrderStateAssigned
	assigned.CourierID = &other

	completed := newOrder(t, 6, 1, 1, "10:00-11:00")
	completed.State = model.OrderStateCompleted

	orders := []model.Order{
		newOrder(t, 1, 3, 1, "10:00-11:00"),
		newOrder(t, 2, 3, 3, "10:00-11:00"),
		newOrder(t, 3, 11, 2, "10:00-11:00"),
		newOrder(t, 4, 2, 2, "11:00-12:00"),
		assigned,
		completed,
		newOrder(t, 7, 10, 2, "06:00-07:00", "10:59-12:00"),
	}

	got := FilterCandidates(c, orders)
	assert.Equal(t, []int64{1, 7}, ids(got))
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		weights  []float64
		capacity float64
		want     []int64
	}{
		{name: "exact max weight beats count", weights: []float64{26, 26, 40}, capacity: 50, want: []int64{3}},
		{name: "everything fits", weights: []float64{1, 2, 3}, capacity: 10, want: []int64{1, 2, 3}},
		{name: "tie prefers earlier candidates", weights: []float64{5, 5, 5}, capacity: 10, want: []int64{1, 2}},
		{name: "greedy would fail", weights: []float64{6, 5, 5}, capacity: 10, want: []int64{2, 3}},
		{name: "fractional weights", weights: []float64{0.01, 9.99, 5.5, 4.5}, capacity: 10, want: []int64{1, 2}},
		{name: "nothing fits", weights: []float64{11, 12}, capacity: 10, want: []int64{}},
		{name: "no candidates", weights: nil, capacity: 10, want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := make([]model.Order, 0, len(tt.weights))
			for i, w := range tt.weights {
				candidates = append(candidates, newOrder(t, int64(i+1), w, 1, "10:00-11:00"))
			}

			got := Select(candidates, tt.capacity)
			assert.Equal(t, tt.want, ids(got))
			assert.LessOrEqual(t, TotalWeight(got), tt.capacity)
		})
	}
}

func TestSelect_ScenarioCarRegion22(t *testing.T) {
	c := newCourier(t, model.CourierTypeCar, []int64{22}, "11:35-14:05", "09:00-11:00")

	orders := []model.Order{
		newOrder(t, 1, 26, 22, "10:00-11:00"),
		newOrder(t, 2, 26, 22, "10:00-11:00"),
		newOrder(t, 3, 40, 22, "10:00-11:00"),
	}

	got := Select(FilterCandidates(c, orders), c.Capacity())
	assert.Equal(t, []int64{3}, ids(got))
}

func TestSelect_NeverPicksTimeIneligible(t *testing.T) {
	c := newCourier(t, model.CourierTypeCar, []int64{1}, "09:00-10:00")

	orders := []model.Order{
		newOrder(t, 1, 49, 1, "10:00-11:00"),
		newOrder(t, 2, 1, 1, "09:30-10:30"),
	}

	got := Select(FilterCandidates(c, orders), c.Capacity())
	assert.Equal(t, []int64{2}, ids(got))
}

func TestSelect_EmptyWorkingHours(t *testing.T) {
	c := newCourier(t, model.CourierTypeCar, []int64{1})

	orders := []model.Order{newOrder(t, 1, 1, 1, "00:00-23:59")}

	assert.Empty(t, Select(FilterCandidates(c, orders), c.Capacity()))
}

func TestReevaluate(t *testing.T) {
	c := newCourier(t, model.CourierTypeFoot, []int64{1, 2}, "09:00-12:00")

	held := []model.Order{
		newOrder(t, 1, 4, 1, "10:00-11:00"),
		newOrder(t, 2, 3, 3, "10:00-11:00"),
		newOrder(t, 3, 5, 2, "10:00-11:00"),
		newOrder(t, 4, 2, 2, "13:00-14:00"),
		newOrder(t, 5, 6, 1, "09:00-10:00"),
		newOrder(t, 6, 1, 1, "09:00-10:00"),
	}

	kept, evicted := Reevaluate(c, held)
	assert.Equal(t, []int64{1, 3, 6}, ids(kept))
	assert.Equal(t, []int64{2, 4, 5}, ids(evicted))
	assert.LessOrEqual(t, TotalWeight(kept), c.Capacity())
}

func TestSelect_LargePool(t *testing.T) {
	candidates := make([]model.Order, 0, 20000)
	for i := range 20000 {
		w := float64(i%97+1) / 100
		candidates = append(candidates, newOrder(t, int64(i+1), w, 1, "10:00-11:00"))
	}

	got := Select(candidates, model.CourierTypeCar.Capacity())
	assert.Equal(t, 50.0, TotalWeight(got))

	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].ID, got[i].ID)
	}
}

func TestBitset(t *testing.T) {
	b := newBitset(130)
	require.Len(t, b, 3)

	for _, i := range []int64{0, 63, 64, 129} {
		b.set(i)
	}
	for i := int64(0); i < 130; i++ {
		want := i == 0 || i == 63 || i == 64 || i == 129
		assert.Equal(t, want, b.has(i), "bit %d", i)
	}
}
