// reservation-rebuild recomputes every product's reserved counter for one
// tenant from the line items of its Confirmed orders. Run it after manual
// data surgery or suspected counter drift.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... go run ./cmd/reservation-rebuild --tenant-id <id> [--dry-run]
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/fulfillment_backend/config"
	"bitbucket.org/mmdatafocus/fulfillment_backend/models"
	"github.com/shopspring/decimal"
)

func main() {
	tenantId := flag.String("tenant-id", "", "Required: tenant id")
	dryRun := flag.Bool("dry-run", false, "Report differences without writing")
	flag.Parse()

	if strings.TrimSpace(*tenantId) == "" {
		fmt.Fprintln(os.Stderr, "--tenant-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	// Reserved truth: sum of line quantities across Confirmed orders.
	var committed []struct {
		ProductId int
		Reserved  decimal.Decimal
	}
	err := db.Raw(`
		SELECT oi.product_id AS product_id, COALESCE(SUM(oi.quantity), 0) AS reserved
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.tenant_id = ? AND o.current_status = ?
		GROUP BY oi.product_id
	`, *tenantId, models.OrderStatusConfirmed).Scan(&committed).Error
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to compute reserved truth: %v\n", err)
		os.Exit(1)
	}

	truth := make(map[int]decimal.Decimal, len(committed))
	for _, row := range committed {
		truth[row.ProductId] = row.Reserved
	}

	var products []models.Product
	if err := db.Where("tenant_id = ?", *tenantId).Order("id").Find(&products).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to load products: %v\n", err)
		os.Exit(1)
	}

	tx := db.Begin()
	if tx.Error != nil {
		fmt.Fprintf(os.Stderr, "failed to begin transaction: %v\n", tx.Error)
		os.Exit(1)
	}

	var fixed int
	for _, p := range products {
		want := decimal.Zero
		if v, ok := truth[p.ID]; ok {
			want = v
		}
		if p.QuantityReserved.Equal(want) {
			continue
		}
		fixed++
		fmt.Printf("product %d (%s): reserved %s -> %s\n", p.ID, p.Sku, p.QuantityReserved, want)
		if *dryRun {
			continue
		}
		res := tx.Exec(
			"UPDATE products SET quantity_reserved = ?, updated_at = NOW() WHERE id = ? AND tenant_id = ?",
			want, p.ID, *tenantId)
		if res.Error != nil {
			tx.Rollback()
			fmt.Fprintf(os.Stderr, "failed to update product %d: %v\n", p.ID, res.Error)
			os.Exit(1)
		}
	}

	if *dryRun {
		tx.Rollback()
		fmt.Printf("dry run: %d product(s) would change\n", fixed)
		return
	}
	if err := tx.Commit().Error; err != nil {
		fmt.Fprintf(os.Stderr, "commit failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("done: %d product(s) updated\n", fixed)
}
