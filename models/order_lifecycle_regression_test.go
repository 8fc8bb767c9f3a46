package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/fulfillment_backend/config"
	"bitbucket.org/mmdatafocus/fulfillment_backend/models"
	"bitbucket.org/mmdatafocus/fulfillment_backend/utils"
	"github.com/shopspring/decimal"
)

// Regression: the full order lifecycle against real MySQL/Redis. Walks
// DRAFT -> CONFIRMED -> FULFILLED and back, checking counters, status gates
// and the exact error surface at each step.
func TestOrderLifecycle_ReserveReleaseConsume(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()
	tenantId := "tenant-lifecycle"

	setupIntegrationEnv(t)

	croissant, err := models.CreateProduct(ctx, tenantId, models.NewProduct{
		Name:               "Croissant",
		Sku:                "CRS-001",
		UnitProductionCost: decimal.NewFromFloat(0.85),
		QuantityOnHand:     decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("CreateProduct(croissant): %v", err)
	}
	sourdough, err := models.CreateProduct(ctx, tenantId, models.NewProduct{
		Name:               "Sourdough",
		Sku:                "SDL-002",
		UnitProductionCost: decimal.NewFromFloat(2.10),
		QuantityOnHand:     decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("CreateProduct(sourdough): %v", err)
	}

	customer, err := models.CreateCustomer(ctx, tenantId, models.NewCustomer{Name: "Corner Cafe"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	order, err := models.CreateOrder(ctx, tenantId, models.NewOrder{
		CustomerId:           customer.ID,
		ExpectedDeliveryDate: time.Now().AddDate(0, 0, 3),
		Items: []models.NewOrderItem{
			{ProductId: croissant.ID, Quantity: decimal.NewFromInt(60), UnitPrice: decimal.NewFromFloat(1.50)},
			{ProductId: sourdough.ID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromFloat(4.00)},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	wantNumber := fmt.Sprintf("ORD-%s-0001", time.Now().Format("200601"))
	if order.OrderNumber != wantNumber {
		t.Errorf("order number = %s, want %s", order.OrderNumber, wantNumber)
	}
	if order.CurrentStatus != models.OrderStatusDraft {
		t.Errorf("new order status = %s, want Draft", order.CurrentStatus)
	}
	// 60*0.85 + 10*2.10 = 72, 60*1.50 + 10*4.00 = 130
	if !order.TotalProductionCost.Equal(decimal.NewFromInt(72)) {
		t.Errorf("total cost = %s, want 72", order.TotalProductionCost)
	}
	if !order.TotalPrice.Equal(decimal.NewFromInt(130)) {
		t.Errorf("total price = %s, want 130", order.TotalPrice)
	}
	// A draft order holds no reservation.
	assertCounters(t, ctx, tenantId, croissant.ID, "100", "0")

	report, err := models.CheckOrderAvailability(ctx, tenantId, order.ID)
	if err != nil {
		t.Fatalf("CheckOrderAvailability: %v", err)
	}
	if !report.CanFulfill || len(report.Shortages) != 0 {
		t.Fatalf("expected fulfillable order, got %+v", report)
	}

	// Confirm: quantities move into reserved, all-or-nothing.
	order, err = models.ReserveOrderStock(ctx, tenantId, order.ID)
	if err != nil {
		t.Fatalf("ReserveOrderStock: %v", err)
	}
	if order.CurrentStatus != models.OrderStatusConfirmed {
		t.Errorf("status after reserve = %s, want Confirmed", order.CurrentStatus)
	}
	assertCounters(t, ctx, tenantId, croissant.ID, "100", "60")
	assertCounters(t, ctx, tenantId, sourdough.ID, "10", "10")

	if _, err := models.ReserveOrderStock(ctx, tenantId, order.ID); err == nil || err.Error() != "order not in DRAFT status" {
		t.Errorf("double reserve error = %v, want 'order not in DRAFT status'", err)
	}

	// Confirmed orders accept notes edits only.
	updated, err := models.UpdateOrder(ctx, tenantId, order.ID, models.NewOrder{
		CustomerId:           customer.ID,
		ExpectedDeliveryDate: time.Now().AddDate(0, 0, 9),
		Notes:                "call before delivery",
		Items: []models.NewOrderItem{
			{ProductId: croissant.ID, Quantity: decimal.NewFromInt(999), UnitPrice: decimal.NewFromInt(1)},
		},
	})
	if err != nil {
		t.Fatalf("UpdateOrder(confirmed): %v", err)
	}
	if updated.Notes != "call before delivery" {
		t.Errorf("notes not updated: %q", updated.Notes)
	}
	fetched, err := models.GetOrder(ctx, tenantId, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if len(fetched.Items) != 2 || !fetched.Items[0].Quantity.Equal(decimal.NewFromInt(60)) {
		t.Errorf("confirmed order items must stay frozen: %+v", fetched.Items)
	}

	// Revert: reservation handed back, order editable again.
	order, err = models.ReleaseOrderStock(ctx, tenantId, order.ID)
	if err != nil {
		t.Fatalf("ReleaseOrderStock: %v", err)
	}
	if order.CurrentStatus != models.OrderStatusDraft {
		t.Errorf("status after release = %s, want Draft", order.CurrentStatus)
	}
	assertCounters(t, ctx, tenantId, croissant.ID, "100", "0")
	assertCounters(t, ctx, tenantId, sourdough.ID, "10", "0")

	if _, err := models.ReleaseOrderStock(ctx, tenantId, order.ID); err == nil || err.Error() != "order not in CONFIRMED status" {
		t.Errorf("double release error = %v, want 'order not in CONFIRMED status'", err)
	}

	// Oversized order: reserve fails with shortage detail and touches nothing.
	bigOrder, err := models.CreateOrder(ctx, tenantId, models.NewOrder{
		CustomerId:           customer.ID,
		ExpectedDeliveryDate: time.Now().AddDate(0, 0, 1),
		Items: []models.NewOrderItem{
			{ProductId: croissant.ID, Quantity: decimal.NewFromInt(120), UnitPrice: decimal.NewFromInt(2)},
			{ProductId: sourdough.ID, Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(4)},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder(big): %v", err)
	}
	if bigOrder.OrderNumber != fmt.Sprintf("ORD-%s-0002", time.Now().Format("200601")) {
		t.Errorf("second order number = %s, want sequence 0002", bigOrder.OrderNumber)
	}

	_, err = models.ReserveOrderStock(ctx, tenantId, bigOrder.ID)
	var capErr *utils.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	wantMsg := "insufficient inventory for Croissant. Available: 100, Required: 120"
	if err.Error() != wantMsg {
		t.Errorf("capacity error = %q, want %q", err.Error(), wantMsg)
	}
	// All-or-nothing: the satisfiable sourdough line must not be reserved.
	assertCounters(t, ctx, tenantId, croissant.ID, "100", "0")
	assertCounters(t, ctx, tenantId, sourdough.ID, "10", "0")

	report, err = models.CheckOrderAvailability(ctx, tenantId, bigOrder.ID)
	if err != nil {
		t.Fatalf("CheckOrderAvailability(big): %v", err)
	}
	if report.CanFulfill || len(report.Shortages) != 1 {
		t.Fatalf("expected one shortage, got %+v", report)
	}
	if !report.Shortages[0].Shortage.Equal(decimal.NewFromInt(20)) {
		t.Errorf("shortage = %s, want 20", report.Shortages[0].Shortage)
	}

	// Fulfill: both counters drop together.
	if _, err := models.ReserveOrderStock(ctx, tenantId, order.ID); err != nil {
		t.Fatalf("re-reserve: %v", err)
	}
	order, err = models.ConsumeOrderStock(ctx, tenantId, order.ID)
	if err != nil {
		t.Fatalf("ConsumeOrderStock: %v", err)
	}
	if order.CurrentStatus != models.OrderStatusFulfilled {
		t.Errorf("status after consume = %s, want Fulfilled", order.CurrentStatus)
	}
	assertCounters(t, ctx, tenantId, croissant.ID, "40", "0")
	assertCounters(t, ctx, tenantId, sourdough.ID, "0", "0")

	// Fulfilled is terminal.
	_, err = models.UpdateOrder(ctx, tenantId, order.ID, models.NewOrder{
		CustomerId:           customer.ID,
		ExpectedDeliveryDate: time.Now(),
		Items:                []models.NewOrderItem{{ProductId: croissant.ID, Quantity: decimal.NewFromInt(1)}},
	})
	if err == nil || err.Error() != "cannot modify fulfilled orders" {
		t.Errorf("update fulfilled error = %v, want 'cannot modify fulfilled orders'", err)
	}
	if err := models.DeleteOrder(ctx, tenantId, order.ID); err == nil || err.Error() != "only DRAFT orders can be deleted" {
		t.Errorf("delete fulfilled error = %v, want 'only DRAFT orders can be deleted'", err)
	}
	if _, err := models.ConsumeOrderStock(ctx, tenantId, order.ID); err == nil || err.Error() != "order not in CONFIRMED status" {
		t.Errorf("double consume error = %v, want 'order not in CONFIRMED status'", err)
	}

	// Draft deletion removes the order and its items.
	if err := models.DeleteOrder(ctx, tenantId, bigOrder.ID); err != nil {
		t.Fatalf("DeleteOrder(draft): %v", err)
	}
	if _, err := models.GetOrder(ctx, tenantId, bigOrder.ID); err == nil || err.Error() != "order not found" {
		t.Errorf("get deleted order error = %v, want 'order not found'", err)
	}

	// Tenant isolation: another tenant sees nothing.
	if _, err := models.GetOrder(ctx, "tenant-other", order.ID); err == nil || err.Error() != "order not found" {
		t.Errorf("cross-tenant get error = %v, want 'order not found'", err)
	}
	if _, err := models.ReserveOrderStock(ctx, "tenant-other", order.ID); err == nil || err.Error() != "order not found" {
		t.Errorf("cross-tenant reserve error = %v, want 'order not found'", err)
	}
}

// Regression: two competing reservations for the same stock must never
// oversell. 60 + 60 against 100 on-hand: exactly one confirms.
func TestConcurrentReserve_NoOversell(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()
	tenantId := "tenant-concurrent"

	setupIntegrationEnv(t)

	product, err := models.CreateProduct(ctx, tenantId, models.NewProduct{
		Name:           "Baguette",
		Sku:            "BGT-001",
		QuantityOnHand: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	customer, err := models.CreateCustomer(ctx, tenantId, models.NewCustomer{Name: "Two Cafes"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	newOrder := func() int {
		t.Helper()
		o, err := models.CreateOrder(ctx, tenantId, models.NewOrder{
			CustomerId:           customer.ID,
			ExpectedDeliveryDate: time.Now().AddDate(0, 0, 1),
			Items: []models.NewOrderItem{
				{ProductId: product.ID, Quantity: decimal.NewFromInt(60), UnitPrice: decimal.NewFromInt(2)},
			},
		})
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		return o.ID
	}
	orderA, orderB := newOrder(), newOrder()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, id := range []int{orderA, orderB} {
		wg.Add(1)
		go func(slot, orderId int) {
			defer wg.Done()
			_, results[slot] = models.ReserveOrderStock(ctx, tenantId, orderId)
		}(i, id)
	}
	wg.Wait()

	var succeeded, capacityFailed int
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var capErr *utils.CapacityError
		if errors.As(err, &capErr) {
			capacityFailed++
		} else {
			t.Errorf("unexpected reserve error: %v", err)
		}
	}
	if succeeded != 1 || capacityFailed != 1 {
		t.Fatalf("want exactly one success and one capacity failure, got %d/%d (%v)", succeeded, capacityFailed, results)
	}
	assertCounters(t, ctx, tenantId, product.ID, "100", "60")
}

func assertCounters(t *testing.T, ctx context.Context, tenantId string, productId int, wantOnHand, wantReserved string) {
	t.Helper()
	p, err := models.GetProduct(ctx, tenantId, productId)
	if err != nil {
		t.Fatalf("GetProduct(%d): %v", productId, err)
	}
	onHand, _ := decimal.NewFromString(wantOnHand)
	reserved, _ := decimal.NewFromString(wantReserved)
	if !p.QuantityOnHand.Equal(onHand) {
		t.Errorf("product %d on-hand = %s, want %s", productId, p.QuantityOnHand, wantOnHand)
	}
	if !p.QuantityReserved.Equal(reserved) {
		t.Errorf("product %d reserved = %s, want %s", productId, p.QuantityReserved, wantReserved)
	}
}

// setupIntegrationEnv boots MySQL + Redis containers for one test and points
// the global config at them.
func setupIntegrationEnv(t *testing.T) {
	t.Helper()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "fulfillment_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.MigrateTable(config.GetDB()); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("fulfillment-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("fulfillment-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=fulfillment_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
