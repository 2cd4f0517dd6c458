package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kesha1225/CandyDeliveryAppApi/internal/model"
)

// Tx описывает операции над курьерами и заказами внутри одной транзакции.
type Tx interface {
	ExistingCourierIDs(ctx context.Context, ids []int64) ([]int64, error)
	InsertCouriers(ctx context.Context, couriers []model.Courier) error
	ExistingOrderIDs(ctx context.Context, ids []int64) ([]int64, error)
	InsertOrders(ctx context.Context, orders []model.Order) error

	// GetCourier возвращает курьера; при forUpdate строка блокируется до конца транзакции.
	GetCourier(ctx context.Context, id int64, forUpdate bool) (*model.Courier, error)
	UpdateCourier(ctx context.Context, c *model.Courier) error

	// HeldOrders возвращает назначенные курьеру заказы по возрастанию id и блокирует их.
	HeldOrders(ctx context.Context, courierID int64) ([]model.Order, error)
	// PoolOrders возвращает свободные заказы из указанных районов не тяжелее maxWeight и блокирует их.
	PoolOrders(ctx context.Context, regions []int64, maxWeight float64) ([]model.Order, error)
	// GetOrder возвращает заказ и блокирует его.
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	SaveOrders(ctx context.Context, orders ...model.Order) error
}

const courierColumns = `id, courier_type, regions, working_hours, working_hours_timedeltas,
	earnings, last_delivery_time, delivery_data`

const orderColumns = `id, weight, region, delivery_hours, delivery_hours_timedeltas,
	state, courier_id, assign_time, completed_by, complete_time, cost`

var duplicateKeyRe = regexp.MustCompile(`\(id\)=\((\d+)\)`)

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) ExistingCourierIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return t.existingIDs(ctx, `SELECT id FROM couriers WHERE id = ANY($1) ORDER BY id`, ids)
}

func (t *pgTx) ExistingOrderIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return t.existingIDs(ctx, `SELECT id FROM orders WHERE id = ANY($1) ORDER BY id`, ids)
}

func (t *pgTx) existingIDs(ctx context.Context, query string, ids []int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("select existing ids: %w", err)
	}

	res, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect existing ids: %w", err)
	}
	return res, nil
}

func (t *pgTx) InsertCouriers(ctx context.Context, couriers []model.Courier) error {
	b := &pgx.Batch{}
	for _, c := range couriers {
		intervals, hist, err := courierJSON(&c)
		if err != nil {
			return err
		}
		b.Queue(
			`INSERT INTO couriers (`+courierColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, string(c.Type), nonNil(c.Regions), nonNil(c.WorkingHours), intervals,
			c.Earnings, c.LastDeliveryTime, hist,
		)
	}
	return t.sendInserts(ctx, b, "couriers", len(couriers))
}

func (t *pgTx) InsertOrders(ctx context.Context, orders []model.Order) error {
	b := &pgx.Batch{}
	for _, o := range orders {
		intervals, err := json.Marshal(nonNil(o.DeliveryIntervals))
		if err != nil {
			return fmt.Errorf("marshal delivery intervals: %w", err)
		}
		b.Queue(
			`INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			o.ID, o.Weight, o.Region, nonNil(o.DeliveryHours), intervals,
			string(o.State), o.CourierID, o.AssignedAt, o.CompletedBy, o.CompletedAt, o.Cost,
		)
	}
	return t.sendInserts(ctx, b, "orders", len(orders))
}

func (t *pgTx) sendInserts(ctx context.Context, b *pgx.Batch, kind string, n int) error {
	br := t.tx.SendBatch(ctx, b)

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()

			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				dup := &model.DuplicateIDError{Kind: kind}
				if m := duplicateKeyRe.FindStringSubmatch(pgErr.Detail); m != nil {
					if id, convErr := strconv.ParseInt(m[1], 10, 64); convErr == nil {
						dup.IDs = []int64{id}
					}
				}
				return dup
			}
			return fmt.Errorf("insert %s: %w", kind, err)
		}
	}

	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	return nil
}

func (t *pgTx) GetCourier(ctx context.Context, id int64, forUpdate bool) (*model.Courier, error) {
	query := `SELECT ` + courierColumns + ` FROM couriers WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	c, err := scanCourier(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrCourierNotFound, id)
		}
		return nil, fmt.Errorf("get courier: %w", err)
	}
	return c, nil
}

func (t *pgTx) UpdateCourier(ctx context.Context, c *model.Courier) error {
	intervals, hist, err := courierJSON(c)
	if err != nil {
		return err
	}

	tag, err := t.tx.Exec(ctx,
		`UPDATE couriers
		 SET courier_type = $2, regions = $3, working_hours = $4, working_hours_timedeltas = $5,
		     earnings = $6, last_delivery_time = $7, delivery_data = $8
		 WHERE id = $1`,
		c.ID, string(c.Type), nonNil(c.Regions), nonNil(c.WorkingHours), intervals,
		c.Earnings, c.LastDeliveryTime, hist,
	)
	if err != nil {
		return fmt.Errorf("update courier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrCourierNotFound, c.ID)
	}
	return nil
}

func (t *pgTx) HeldOrders(ctx context.Context, courierID int64) ([]model.Order, error) {
	return t.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE state = 'assigned' AND courier_id = $1
		 ORDER BY id
		 FOR UPDATE`,
		courierID,
	)
}

func (t *pgTx) PoolOrders(ctx context.Context, regions []int64, maxWeight float64) ([]model.Order, error) {
	return t.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE state = 'unassigned' AND region = ANY($1) AND weight <= $2
		 ORDER BY id
		 FOR UPDATE`,
		nonNil(regions), maxWeight,
	)
}

func (t *pgTx) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (t *pgTx) SaveOrders(ctx context.Context, orders ...model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, o := range orders {
		b.Queue(
			`UPDATE orders
			 SET state = $2, courier_id = $3, assign_time = $4, completed_by = $5, complete_time = $6, cost = $7
			 WHERE id = $1`,
			o.ID, string(o.State), o.CourierID, o.AssignedAt, o.CompletedBy, o.CompletedAt, o.Cost,
		)
	}

	br := t.tx.SendBatch(ctx, b)
	defer br.Close()

	for _, o := range orders {
		tag, err := br.Exec()
		if err != nil {
			return fmt.Errorf("update order %d: %w", o.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %d", ErrOrderNotFound, o.ID)
		}
	}
	return nil
}

func (t *pgTx) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

func scanCourier(row pgx.Row) (*model.Courier, error) {
	var (
		c   model.Courier
		typ string
	)
	err := row.Scan(&c.ID, &typ, &c.Regions, &c.WorkingHours, &c.WorkingIntervals,
		&c.Earnings, &c.LastDeliveryTime, &c.History)
	if err != nil {
		return nil, err
	}
	c.Type = model.CourierType(typ)
	return &c, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o     model.Order
		state string
	)
	err := row.Scan(&o.ID, &o.Weight, &o.Region, &o.DeliveryHours, &o.DeliveryIntervals,
		&state, &o.CourierID, &o.AssignedAt, &o.CompletedBy, &o.CompletedAt, &o.Cost)
	if err != nil {
		return nil, err
	}
	o.State = model.OrderState(state)
	return &o, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func courierJSON(c *model.Courier) ([]byte, []byte, error) {
	intervals, err := json.Marshal(nonNil(c.WorkingIntervals))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal working intervals: %w", err)
	}

	h := c.History
	if h.Regions == nil {
		h.Regions = map[string][]float64{}
	}
	if h.NotCompletedRegions == nil {
		h.NotCompletedRegions = map[string][]float64{}
	}
	hist, err := json.Marshal(h)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal delivery history: %w", err)
	}
	return intervals, hist, nil
}
