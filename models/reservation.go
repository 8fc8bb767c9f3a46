package models

import (
	"context"
	"errors"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/fulfillment_backend/config"
	"bitbucket.org/mmdatafocus/fulfillment_backend/utils"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The reservation engine moves stock between on-hand and reserved as orders
// walk the lifecycle. Every mutation runs in one transaction that locks the
// order row and all involved product rows (in ascending id order), and the
// guarded UPDATEs double-check availability at write time.

type AvailabilityShortage struct {
	ProductId   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Required    decimal.Decimal `json:"required"`
	Available   decimal.Decimal `json:"available"`
	Shortage    decimal.Decimal `json:"shortage"`
}

type AvailabilityReport struct {
	CanFulfill bool                   `json:"can_fulfill"`
	Shortages  []AvailabilityShortage `json:"shortages"`
}

// computeShortages evaluates each line item against on-hand minus reserved.
// A missing product counts as zero available.
func computeShortages(items []OrderItem, products map[int]*Product) []AvailabilityShortage {
	var shortages []AvailabilityShortage
	for _, item := range items {
		available := decimal.Zero
		name := item.ProductName
		if p, ok := products[item.ProductId]; ok {
			available = p.QuantityAvailable()
			name = p.Name
		}
		if available.LessThan(item.Quantity) {
			shortages = append(shortages, AvailabilityShortage{
				ProductId:   item.ProductId,
				ProductName: name,
				Required:    item.Quantity,
				Available:   available,
				Shortage:    item.Quantity.Sub(available),
			})
		}
	}
	return shortages
}

// clampDecrement caps a counter decrement at the counter's current value so
// drift introduced by external on-hand corrections can never push a quantity
// negative.
func clampDecrement(required, current decimal.Decimal) decimal.Decimal {
	if current.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if required.GreaterThan(current) {
		return current
	}
	return required
}

// CheckOrderAvailability is a read-only dry run of ReserveOrderStock. No
// locks are taken, so the answer can be stale by the time a reserve runs.
func CheckOrderAvailability(ctx context.Context, tenantId string, orderId int) (*AvailabilityReport, error) {
	db := config.GetDB()

	order, err := utils.FetchModel[Order](ctx, tenantId, orderId, "Items")
	if err != nil {
		return nil, utils.NotFound("order not found")
	}

	products, err := fetchOrderProducts(db.WithContext(ctx), tenantId, order.Items, false)
	if err != nil {
		return nil, err
	}

	shortages := computeShortages(order.Items, products)
	return &AvailabilityReport{
		CanFulfill: len(shortages) == 0,
		Shortages:  shortages,
	}, nil
}

// ReserveOrderStock confirms a Draft order, moving each line quantity into
// the products' reserved counters. All-or-nothing: any shortage aborts the
// whole transaction.
func ReserveOrderStock(ctx context.Context, tenantId string, orderId int) (*Order, error) {
	var result *Order
	err := withReservationTx(ctx, tenantId, "ReserveOrderStock", func(tx *gorm.DB) error {
		order, err := lockOrder(tx, tenantId, orderId)
		if err != nil {
			return err
		}
		if order.CurrentStatus != OrderStatusDraft {
			return utils.StateViolation("order not in DRAFT status")
		}

		products, err := fetchOrderProducts(tx, tenantId, order.Items, true)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			p, ok := products[item.ProductId]
			if !ok {
				return utils.NotFound("product not found: %s", item.ProductName)
			}
			available := p.QuantityAvailable()
			if available.LessThan(item.Quantity) {
				return &utils.CapacityError{
					ProductId:   p.ID,
					ProductName: p.Name,
					Available:   available,
					Required:    item.Quantity,
				}
			}
		}

		for _, item := range order.Items {
			res := tx.Exec(
				"UPDATE products SET quantity_reserved = quantity_reserved + ?, updated_at = NOW() WHERE id = ? AND tenant_id = ? AND quantity_on_hand - quantity_reserved >= ?",
				item.Quantity, item.ProductId, tenantId, item.Quantity)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// The pre-check passed but the guard failed; report with
				// the row's current numbers.
				p := products[item.ProductId]
				var fresh Product
				if err := tx.Where("tenant_id = ? AND id = ?", tenantId, item.ProductId).First(&fresh).Error; err == nil {
					p = &fresh
				}
				return &utils.CapacityError{
					ProductId:   p.ID,
					ProductName: p.Name,
					Available:   p.QuantityAvailable(),
					Required:    item.Quantity,
				}
			}
		}

		if err := transitionOrderStatus(tx, order, OrderStatusConfirmed); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReleaseOrderStock reverts a Confirmed order to Draft and gives the
// reserved quantities back. Decrements are clamped so a reservation record
// that outran the counter (external drift) cannot go negative.
func ReleaseOrderStock(ctx context.Context, tenantId string, orderId int) (*Order, error) {
	var result *Order
	err := withReservationTx(ctx, tenantId, "ReleaseOrderStock", func(tx *gorm.DB) error {
		order, err := lockOrder(tx, tenantId, orderId)
		if err != nil {
			return err
		}
		if order.CurrentStatus != OrderStatusConfirmed {
			return utils.StateViolation("order not in CONFIRMED status")
		}

		products, err := fetchOrderProducts(tx, tenantId, order.Items, true)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			p, ok := products[item.ProductId]
			if !ok {
				// Product vanished since confirmation; nothing to give back.
				continue
			}
			dec := clampDecrement(item.Quantity, p.QuantityReserved)
			if !dec.IsPositive() {
				continue
			}
			res := tx.Exec(
				"UPDATE products SET quantity_reserved = quantity_reserved - ?, updated_at = NOW() WHERE id = ? AND tenant_id = ?",
				dec, item.ProductId, tenantId)
			if res.Error != nil {
				return res.Error
			}
		}

		if err := transitionOrderStatus(tx, order, OrderStatusDraft); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConsumeOrderStock fulfills a Confirmed order: both on-hand and reserved
// drop by each line quantity, clamped independently against drift.
func ConsumeOrderStock(ctx context.Context, tenantId string, orderId int) (*Order, error) {
	var result *Order
	err := withReservationTx(ctx, tenantId, "ConsumeOrderStock", func(tx *gorm.DB) error {
		order, err := lockOrder(tx, tenantId, orderId)
		if err != nil {
			return err
		}
		if order.CurrentStatus != OrderStatusConfirmed {
			return utils.StateViolation("order not in CONFIRMED status")
		}

		products, err := fetchOrderProducts(tx, tenantId, order.Items, true)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			p, ok := products[item.ProductId]
			if !ok {
				return utils.NotFound("product not found: %s", item.ProductName)
			}
			onHandDec := clampDecrement(item.Quantity, p.QuantityOnHand)
			reservedDec := clampDecrement(item.Quantity, p.QuantityReserved)
			res := tx.Exec(
				"UPDATE products SET quantity_on_hand = quantity_on_hand - ?, quantity_reserved = quantity_reserved - ?, updated_at = NOW() WHERE id = ? AND tenant_id = ?",
				onHandDec, reservedDec, item.ProductId, tenantId)
			if res.Error != nil {
				return res.Error
			}
		}

		if err := transitionOrderStatus(tx, order, OrderStatusFulfilled); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withReservationTx serializes per tenant, then runs fn in a transaction,
// retrying bounded times on deadlock or lock wait timeout.
func withReservationTx(ctx context.Context, tenantId string, functionName string, fn func(tx *gorm.DB) error) error {
	db := config.GetDB()
	logger := config.GetLogger()

	lock, err := utils.TenantLock(ctx, tenantId, "reservationLock", "reservation.go", functionName)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	maxRetries := config.ReservationMaxRetries()
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		tx := db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return tx.Error
		}

		err := fn(tx)
		if err == nil {
			err = tx.Commit().Error
			if err == nil {
				return nil
			}
		} else {
			tx.Rollback()
		}

		if !isRetryableTxError(err) {
			return err
		}
		lastErr = err
		config.LogError(logger, "reservation.go", functionName,
			"transaction conflict, retrying", tenantId, err)
		time.Sleep(time.Duration(attempt) * 25 * time.Millisecond)
	}

	return utils.Conflict("reservation aborted after %d attempts: %v", maxRetries, lastErr)
}

// MySQL 1213 = deadlock, 1205 = lock wait timeout. Both roll the whole
// transaction back and are safe to retry.
func isRetryableTxError(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	return false
}

func lockOrder(tx *gorm.DB, tenantId string, orderId int) (*Order, error) {
	var order Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("tenant_id = ?", tenantId).
		First(&order, orderId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("order not found")
		}
		return nil, err
	}
	return &order, nil
}

// fetchOrderProducts loads the products behind the line items, keyed by id.
// With forUpdate the rows are locked in ascending id order, which keeps
// concurrent reservations from deadlocking on each other.
func fetchOrderProducts(tx *gorm.DB, tenantId string, items []OrderItem, forUpdate bool) (map[int]*Product, error) {
	ids := make([]int, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductId)
	}
	ids = utils.UniqueSlice(ids)
	sort.Ints(ids)
	if len(ids) == 0 {
		return map[int]*Product{}, nil
	}

	dbCtx := tx.Where("tenant_id = ? AND id IN ?", tenantId, ids).Order("id")
	if forUpdate {
		dbCtx = dbCtx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var products []*Product
	if err := dbCtx.Find(&products).Error; err != nil {
		return nil, err
	}

	byId := make(map[int]*Product, len(products))
	for _, p := range products {
		byId[p.ID] = p
	}
	return byId, nil
}

func transitionOrderStatus(tx *gorm.DB, order *Order, next OrderStatus) error {
	if !order.CurrentStatus.CanTransitionTo(next) {
		return utils.StateViolation("cannot transition order from %s to %s",
			order.CurrentStatus, next)
	}
	if err := tx.Model(order).Update("CurrentStatus", next).Error; err != nil {
		return err
	}
	order.CurrentStatus = next
	return nil
}
