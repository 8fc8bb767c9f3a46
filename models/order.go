package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/fulfillment_backend/config"
	"bitbucket.org/mmdatafocus/fulfillment_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a customer fulfillment order. Status transitions run through the
// reservation engine; plain updates here are gated by the current status.
type Order struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	TenantId             string          `gorm:"index;uniqueIndex:idx_orders_tenant_number;not null" json:"tenant_id"`
	CustomerId           int             `gorm:"index;not null" json:"customer_id"`
	OrderNumber          string          `gorm:"size:30;uniqueIndex:idx_orders_tenant_number;not null" json:"order_number"`
	CurrentStatus        OrderStatus     `gorm:"type:enum('Draft','Confirmed','Fulfilled');not null;default:'Draft'" json:"current_status"`
	ExpectedDeliveryDate time.Time       `gorm:"not null" json:"expected_delivery_date"`
	MarkupPercentage     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"markup_percentage"`
	Notes                string          `gorm:"type:text" json:"notes"`
	TotalProductionCost  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_production_cost"`
	TotalPrice           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_price"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`

	Customer *Customer   `gorm:"foreignKey:CustomerId" json:"customer,omitempty"`
	Items    []OrderItem `gorm:"foreignKey:OrderId;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem snapshots the product's name, sku and unit production cost at
// order time so later catalog edits don't rewrite history.
type OrderItem struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	OrderId             int             `gorm:"index;not null" json:"order_id"`
	ProductId           int             `gorm:"index;not null" json:"product_id"`
	ProductName         string          `gorm:"size:100;not null" json:"product_name"`
	ProductSku          string          `gorm:"size:100" json:"product_sku"`
	Quantity            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitProductionCost  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_production_cost"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	TotalProductionCost decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_production_cost"`
	TotalPrice          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_price"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type NewOrder struct {
	CustomerId           int              `json:"customer_id" binding:"required"`
	ExpectedDeliveryDate time.Time        `json:"expected_delivery_date" binding:"required"`
	MarkupPercentage     decimal.Decimal  `json:"markup_percentage"`
	Notes                string           `json:"notes"`
	TotalPrice           *decimal.Decimal `json:"total_price"`
	Items                []NewOrderItem   `json:"items" binding:"required,min=1,dive"`
}

type NewOrderItem struct {
	ProductId int             `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,dgt0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	// Nil falls back to the product's current cost; an edit round-trip sends
	// the stored snapshot back so the original cost survives.
	UnitProductionCost *decimal.Decimal `json:"unit_production_cost"`
}

const orderNumberMaxAttempts = 3

// buildOrderItems snapshots product details into line items and sums the
// order totals.
func buildOrderItems(ctx context.Context, tenantId string, inputs []NewOrderItem) ([]OrderItem, decimal.Decimal, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, decimal.Zero, utils.StateViolation("order must have at least one item")
	}

	items := make([]OrderItem, 0, len(inputs))
	totalCost := decimal.Zero
	totalPrice := decimal.Zero

	for _, input := range inputs {
		if !input.Quantity.IsPositive() {
			return nil, decimal.Zero, decimal.Zero, utils.StateViolation("item quantity must be greater than zero")
		}

		product, err := utils.FetchModel[Product](ctx, tenantId, input.ProductId)
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, utils.NotFound("Product not found: %d", input.ProductId)
		}

		unitCost := product.UnitProductionCost
		if input.UnitProductionCost != nil {
			unitCost = *input.UnitProductionCost
		}

		lineCost := input.Quantity.Mul(unitCost)
		linePrice := input.Quantity.Mul(input.UnitPrice)

		items = append(items, OrderItem{
			ProductId:           product.ID,
			ProductName:         product.Name,
			ProductSku:          product.Sku,
			Quantity:            input.Quantity,
			UnitProductionCost:  unitCost,
			UnitPrice:           input.UnitPrice,
			TotalProductionCost: lineCost,
			TotalPrice:          linePrice,
		})
		totalCost = totalCost.Add(lineCost)
		totalPrice = totalPrice.Add(linePrice)
	}

	return items, totalCost, totalPrice, nil
}

func CreateOrder(ctx context.Context, tenantId string, input NewOrder) (*Order, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if err := utils.ValidateResourceId[Customer](ctx, tenantId, input.CustomerId); err != nil {
		return nil, utils.NotFound("customer not found")
	}

	items, totalCost, totalPrice, err := buildOrderItems(ctx, tenantId, input.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var order Order

	// The unique index on (tenant_id, order_number) is the arbiter for
	// concurrent allocations; retry with a reseeded counter on collision.
	for attempt := 1; attempt <= orderNumberMaxAttempts; attempt++ {
		tx := db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return nil, tx.Error
		}

		orderNumber, err := nextOrderNumber(ctx, tx, tenantId, now)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		order = Order{
			TenantId:             tenantId,
			CustomerId:           input.CustomerId,
			OrderNumber:          orderNumber,
			CurrentStatus:        OrderStatusDraft,
			ExpectedDeliveryDate: input.ExpectedDeliveryDate,
			MarkupPercentage:     input.MarkupPercentage,
			Notes:                input.Notes,
			TotalProductionCost:  totalCost,
			TotalPrice:           totalPrice,
			Items:                append([]OrderItem(nil), items...),
		}

		if err := tx.Create(&order).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < orderNumberMaxAttempts {
				resetOrderNumberCounter(tenantId, now)
				config.LogError(logger, "order.go", "CreateOrder",
					"order number collision, retrying", tenantId, err)
				continue
			}
			return nil, err
		}

		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
		return &order, nil
	}

	return nil, utils.Conflict("could not allocate an order number; try again")
}

// UpdateOrder applies the status-gated mutation rules:
//
//	Draft:     everything editable, line items replaced wholesale
//	Confirmed: only notes and total price
//	Fulfilled: immutable
//
// The status gate runs on a locked row inside the write transaction, so a
// confirmation racing the update cannot leave the reservation out of step
// with the line items.
func UpdateOrder(ctx context.Context, tenantId string, id int, input NewOrder) (*Order, error) {
	db := config.GetDB()

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	order, err := lockOrder(tx, tenantId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	switch order.CurrentStatus {
	case OrderStatusFulfilled:
		tx.Rollback()
		return nil, utils.StateViolation("cannot modify fulfilled orders")

	case OrderStatusConfirmed:
		if config.StrictConfirmedOrderImmutability() {
			tx.Rollback()
			return nil, utils.StateViolation("confirmed orders are locked for editing")
		}
		order.Notes = input.Notes
		order.TotalPrice = utils.DereferencePtr(input.TotalPrice, order.TotalPrice)
		if err := tx.Model(order).
			Select("Notes", "TotalPrice").Updates(order).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
		return order, nil

	case OrderStatusDraft:
		if err := utils.ValidateResourceId[Customer](ctx, tenantId, input.CustomerId); err != nil {
			tx.Rollback()
			return nil, utils.NotFound("customer not found")
		}

		items, totalCost, totalPrice, err := buildOrderItems(ctx, tenantId, input.Items)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		for i := range items {
			items[i].OrderId = order.ID
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&OrderItem{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Create(&items).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		order.CustomerId = input.CustomerId
		order.ExpectedDeliveryDate = input.ExpectedDeliveryDate
		order.MarkupPercentage = input.MarkupPercentage
		order.Notes = input.Notes
		order.TotalProductionCost = totalCost
		order.TotalPrice = totalPrice
		if err := tx.Model(order).
			Select("CustomerId", "ExpectedDeliveryDate", "MarkupPercentage",
				"Notes", "TotalProductionCost", "TotalPrice").
			Updates(order).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
		order.Items = items
		return order, nil

	default:
		tx.Rollback()
		return nil, utils.StateViolation("order is in an unknown status")
	}
}

// DeleteOrder removes a Draft order and its items. The row is locked for the
// status check so a concurrent confirmation cannot commit a reservation for
// an order that is about to disappear.
func DeleteOrder(ctx context.Context, tenantId string, id int) error {
	db := config.GetDB()

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	order, err := lockOrder(tx, tenantId, id)
	if err != nil {
		tx.Rollback()
		return err
	}
	if order.CurrentStatus != OrderStatusDraft {
		tx.Rollback()
		return utils.StateViolation("only DRAFT orders can be deleted")
	}

	if err := tx.Where("order_id = ?", order.ID).Delete(&OrderItem{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("tenant_id = ?", tenantId).Delete(order).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func GetOrder(ctx context.Context, tenantId string, id int) (*Order, error) {
	order, err := utils.FetchModel[Order](ctx, tenantId, id, "Items", "Customer")
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NotFound("order not found")
		}
		return nil, err
	}
	return order, nil
}

func GetOrders(ctx context.Context, tenantId string, customerId int, status OrderStatus, notes string) ([]*Order, error) {
	db := config.GetDB()

	dbCtx := db.WithContext(ctx).Where("tenant_id = ?", tenantId).Preload("Items")
	if customerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", customerId)
	}
	if status != "" {
		if !status.Valid() {
			return nil, utils.StateViolation("invalid order status filter")
		}
		dbCtx = dbCtx.Where("current_status = ?", status)
	}
	if notes != "" {
		dbCtx = dbCtx.Where("notes LIKE ?", "%"+notes+"%")
	}

	var orders []*Order
	if err := dbCtx.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
