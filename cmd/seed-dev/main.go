// seed-dev loads a small demo dataset for local development: a handful of
// products with stock, a customer, and one draft order, all under one tenant.
// It also prints a bearer token for that tenant so the API can be exercised
// immediately.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-dev
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/fulfillment_backend/config"
	"bitbucket.org/mmdatafocus/fulfillment_backend/models"
	"bitbucket.org/mmdatafocus/fulfillment_backend/utils"
	"github.com/shopspring/decimal"
)

func main() {
	tenantId := flag.String("tenant-id", "demo-tenant", "tenant id to seed under")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if err := models.MigrateTable(db); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	seedProducts := []models.NewProduct{
		{Name: "Croissant", Sku: "BKR-CRS-001", Uom: "pcs", UnitProductionCost: decimal.NewFromFloat(0.85), QuantityOnHand: decimal.NewFromInt(200)},
		{Name: "Sourdough Loaf", Sku: "BKR-SDL-002", Uom: "pcs", UnitProductionCost: decimal.NewFromFloat(2.10), QuantityOnHand: decimal.NewFromInt(80)},
		{Name: "Chocolate Cake", Sku: "BKR-CHC-003", Uom: "pcs", UnitProductionCost: decimal.NewFromFloat(6.50), QuantityOnHand: decimal.NewFromInt(25)},
	}

	var productIds []int
	for _, input := range seedProducts {
		product, err := models.CreateProduct(ctx, *tenantId, input)
		if err != nil {
			// Re-running the seeder hits the unique sku; look it up instead.
			existing, lookupErr := models.GetProducts(ctx, *tenantId, input.Name, false)
			if lookupErr != nil || len(existing) == 0 {
				fmt.Fprintf(os.Stderr, "failed to seed product %s: %v\n", input.Sku, err)
				os.Exit(1)
			}
			product = existing[0]
		}
		productIds = append(productIds, product.ID)
		fmt.Printf("product %d: %s (%s) on-hand=%s\n", product.ID, product.Name, product.Sku, product.QuantityOnHand)
	}

	customer, err := models.CreateCustomer(ctx, *tenantId, models.NewCustomer{
		Name:  "Corner Cafe",
		Email: "orders@cornercafe.example",
		Phone: "+95 9 555 0101",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed customer: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("customer %d: %s\n", customer.ID, customer.Name)

	order, err := models.CreateOrder(ctx, *tenantId, models.NewOrder{
		CustomerId:           customer.ID,
		ExpectedDeliveryDate: time.Now().AddDate(0, 0, 3),
		MarkupPercentage:     decimal.NewFromInt(30),
		Notes:                "seeded demo order",
		Items: []models.NewOrderItem{
			{ProductId: productIds[0], Quantity: decimal.NewFromInt(24), UnitPrice: decimal.NewFromFloat(1.50)},
			{ProductId: productIds[1], Quantity: decimal.NewFromInt(6), UnitPrice: decimal.NewFromFloat(4.00)},
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed order: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("order %d: %s status=%s total=%s\n", order.ID, order.OrderNumber, order.CurrentStatus, order.TotalPrice)

	token, err := utils.JwtGenerate(1, *tenantId, "admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nAuthorization: Bearer %s\n", token)
}
