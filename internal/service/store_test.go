package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kesha1225/CandyDeliveryAppApi/internal/model"
	"github.com/kesha1225/CandyDeliveryAppApi/internal/repository"
)

// memStore реализует транзакционное хранилище в памяти. fn работает с копией состояния,
// которая применяется только при успешном завершении.
type memStore struct {
	mu       sync.Mutex
	couriers map[int64]model.Courier
	orders   map[int64]model.Order

	saveErr error
}

func newMemStore() *memStore {
	return &memStore{
		couriers: map[int64]model.Courier{},
		orders:   map[int64]model.Order{},
	}
}

func (s *memStore) Close() error { return nil }

func (s *memStore) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		couriers: make(map[int64]model.Courier, len(s.couriers)),
		orders:   make(map[int64]model.Order, len(s.orders)),
		saveErr:  s.saveErr,
	}
	for id, c := range s.couriers {
		tx.couriers[id] = cloneCourier(c)
	}
	for id, o := range s.orders {
		tx.orders[id] = o
	}

	if err := fn(tx); err != nil {
		return err
	}

	s.couriers = tx.couriers
	s.orders = tx.orders
	return nil
}

func (s *memStore) courier(id int64) model.Courier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCourier(s.couriers[id])
}

func (s *memStore) order(id int64) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

type memTx struct {
	couriers map[int64]model.Courier
	orders   map[int64]model.Order
	saveErr  error
}

func (t *memTx) ExistingCourierIDs(_ context.Context, ids []int64) ([]int64, error) {
	var res []int64
	for _, id := range ids {
		if _, ok := t.couriers[id]; ok {
			res = append(res, id)
		}
	}
	slices.Sort(res)
	return res, nil
}

func (t *memTx) InsertCouriers(_ context.Context, couriers []model.Courier) error {
	for _, c := range couriers {
		if _, ok := t.couriers[c.ID]; ok {
			return &model.DuplicateIDError{Kind: "couriers", IDs: []int64{c.ID}}
		}
		t.couriers[c.ID] = cloneCourier(c)
	}
	return nil
}

func (t *memTx) ExistingOrderIDs(_ context.Context, ids []int64) ([]int64, error) {
	var res []int64
	for _, id := range ids {
		if _, ok := t.orders[id]; ok {
			res = append(res, id)
		}
	}
	slices.Sort(res)
	return res, nil
}

func (t *memTx) InsertOrders(_ context.Context, orders []model.Order) error {
	for _, o := range orders {
		if _, ok := t.orders[o.ID]; ok {
			return &model.DuplicateIDError{Kind: "orders", IDs: []int64{o.ID}}
		}
		t.orders[o.ID] = o
	}
	return nil
}

func (t *memTx) GetCourier(_ context.Context, id int64, _ bool) (*model.Courier, error) {
	c, ok := t.couriers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", repository.ErrCourierNotFound, id)
	}
	cc := cloneCourier(c)
	return &cc, nil
}

func (t *memTx) UpdateCourier(_ context.Context, c *model.Courier) error {
	if _, ok := t.couriers[c.ID]; !ok {
		return fmt.Errorf("%w: %d", repository.ErrCourierNotFound, c.ID)
	}
	t.couriers[c.ID] = cloneCourier(*c)
	return nil
}

func (t *memTx) HeldOrders(_ context.Context, courierID int64) ([]model.Order, error) {
	return t.selectOrders(func(o model.Order) bool { return o.HeldBy(courierID) }), nil
}

func (t *memTx) PoolOrders(_ context.Context, regions []int64, maxWeight float64) ([]model.Order, error) {
	return t.selectOrders(func(o model.Order) bool {
		return o.State == model.OrderStateUnassigned && slices.Contains(regions, o.Region) && o.Weight <= maxWeight
	}), nil
}

func (t *memTx) GetOrder(_ context.Context, id int64) (*model.Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", repository.ErrOrderNotFound, id)
	}
	return &o, nil
}

func (t *memTx) SaveOrders(_ context.Context, orders ...model.Order) error {
	if t.saveErr != nil && len(orders) > 0 {
		return t.saveErr
	}
	for _, o := range orders {
		if _, ok := t.orders[o.ID]; !ok {
			return fmt.Errorf("%w: %d", repository.ErrOrderNotFound, o.ID)
		}
		t.orders[o.ID] = o
	}
	return nil
}

func (t *memTx) selectOrders(match func(o model.Order) bool) []model.Order {
	var res []model.Order
	for _, o := range t.orders {
		if match(o) {
			res = append(res, o)
		}
	}
	slices.SortFunc(res, func(a, b model.Order) int { return int(a.ID - b.ID) })
	return res
}

func cloneCourier(c model.Courier) model.Courier {
	c.Regions = slices.Clone(c.Regions)
	c.WorkingHours = slices.Clone(c.WorkingHours)
	c.WorkingIntervals = slices.Clone(c.WorkingIntervals)
	c.History = model.DeliveryHistory{
		Regions:             cloneBuckets(c.History.Regions),
		NotCompletedRegions: cloneBuckets(c.History.NotCompletedRegions),
	}
	return c
}

func cloneBuckets(m map[string][]float64) map[string][]float64 {
	res := make(map[string][]float64, len(m))
	for k, v := range m {
		res[k] = slices.Clone(v)
	}
	return res
}

var errSaveFailed = errors.New("save failed")
