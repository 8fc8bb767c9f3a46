package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/fulfillment_backend/config"
	"bitbucket.org/mmdatafocus/fulfillment_backend/utils"
	"github.com/shopspring/decimal"
)

// Product is a finished good tracked by the inventory ledger. On-hand is
// written by production postings; reserved is written only by the
// reservation engine.
type Product struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	TenantId           string          `gorm:"index;uniqueIndex:idx_products_tenant_sku;not null" json:"tenant_id"`
	Name               string          `gorm:"size:100;not null" json:"name"`
	Sku                string          `gorm:"size:100;uniqueIndex:idx_products_tenant_sku;not null" json:"sku"`
	Uom                string          `gorm:"size:20;default:'pcs'" json:"uom"`
	UnitProductionCost decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_production_cost"`
	QuantityOnHand     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_on_hand"`
	QuantityReserved   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_reserved"`
	IsActive           *bool           `gorm:"default:true" json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type NewProduct struct {
	Name               string          `json:"name" binding:"required"`
	Sku                string          `json:"sku" binding:"required"`
	Uom                string          `json:"uom"`
	UnitProductionCost decimal.Decimal `json:"unit_production_cost"`
	QuantityOnHand     decimal.Decimal `json:"quantity_on_hand"`
	IsActive           *bool           `json:"is_active"`
}

// QuantityAvailable is on-hand minus reserved, floored at zero so external
// on-hand corrections can never surface a negative availability.
func (p *Product) QuantityAvailable() decimal.Decimal {
	available := p.QuantityOnHand.Sub(p.QuantityReserved)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

func CreateProduct(ctx context.Context, tenantId string, input NewProduct) (*Product, error) {
	db := config.GetDB()

	if input.QuantityOnHand.IsNegative() {
		return nil, utils.StateViolation("quantity on hand cannot be negative")
	}
	if err := utils.ValidateUnique[Product](ctx, tenantId, "sku", input.Sku, 0); err != nil {
		return nil, utils.StateViolation("%s", err.Error())
	}

	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}
	uom := input.Uom
	if uom == "" {
		uom = "pcs"
	}

	product := Product{
		TenantId:           tenantId,
		Name:               input.Name,
		Sku:                input.Sku,
		Uom:                uom,
		UnitProductionCost: input.UnitProductionCost,
		QuantityOnHand:     input.QuantityOnHand,
		QuantityReserved:   decimal.Zero,
		IsActive:           isActive,
	}
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}

	return &product, nil
}

func UpdateProduct(ctx context.Context, tenantId string, id int, input NewProduct) (*Product, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	product, err := utils.FetchModel[Product](ctx, tenantId, id)
	if err != nil {
		return nil, utils.NotFound("product not found")
	}
	if input.QuantityOnHand.IsNegative() {
		return nil, utils.StateViolation("quantity on hand cannot be negative")
	}
	if err := utils.ValidateUnique[Product](ctx, tenantId, "sku", input.Sku, id); err != nil {
		return nil, utils.StateViolation("%s", err.Error())
	}

	if input.QuantityOnHand.LessThan(product.QuantityReserved) {
		// Allowed, the reservation engine clamps releases against drift.
		logger.WithFields(map[string]interface{}{
			"tenant_id":  tenantId,
			"product_id": id,
			"on_hand":    input.QuantityOnHand.String(),
			"reserved":   product.QuantityReserved.String(),
		}).Warn("product on-hand set below reserved quantity")
	}

	product.Name = input.Name
	product.Sku = input.Sku
	if input.Uom != "" {
		product.Uom = input.Uom
	}
	product.UnitProductionCost = input.UnitProductionCost
	product.QuantityOnHand = input.QuantityOnHand
	if input.IsActive != nil {
		product.IsActive = input.IsActive
	}

	if err := db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Product](tenantId, id)

	return product, nil
}

// AdjustProductOnHand applies a production posting (positive delta) or a
// spoilage correction (negative delta) atomically. The guard keeps on-hand
// from going negative.
func AdjustProductOnHand(ctx context.Context, tenantId string, id int, delta decimal.Decimal) (*Product, error) {
	db := config.GetDB()

	if err := utils.ValidateResourceId[Product](ctx, tenantId, id); err != nil {
		return nil, utils.NotFound("product not found")
	}

	result := db.WithContext(ctx).Exec(
		"UPDATE products SET quantity_on_hand = quantity_on_hand + ?, updated_at = NOW() WHERE id = ? AND tenant_id = ? AND quantity_on_hand + ? >= 0",
		delta, id, tenantId, delta)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.StateViolation("adjustment would take on-hand below zero")
	}
	_ = utils.RemoveRedisItem[Product](tenantId, id)

	return utils.FetchModel[Product](ctx, tenantId, id)
}

func GetProduct(ctx context.Context, tenantId string, id int) (*Product, error) {
	product, err := utils.FetchModel[Product](ctx, tenantId, id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NotFound("product not found")
		}
		return nil, err
	}
	return product, nil
}

func GetProducts(ctx context.Context, tenantId string, name string, activeOnly bool) ([]*Product, error) {
	db := config.GetDB()

	dbCtx := db.WithContext(ctx).Where("tenant_id = ?", tenantId)
	if name != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+name+"%")
	}
	if activeOnly {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}

	var products []*Product
	if err := dbCtx.Order("name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
