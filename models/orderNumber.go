package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/fulfillment_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Order numbers look like ORD-202608-0042: a fixed prefix, the year-month the
// order was created in, and a per-tenant sequence that restarts every month.
// The composite unique index (tenant_id, order_number) is the final arbiter;
// CreateOrder retries on duplicate key.

const orderNumberPrefix = "ORD"

func orderNumberMonthPrefix(now time.Time) string {
	return fmt.Sprintf("%s-%s-", orderNumberPrefix, now.Format("200601"))
}

func formatOrderNumber(now time.Time, sequence int64) string {
	return fmt.Sprintf("%s%04d", orderNumberMonthPrefix(now), sequence)
}

// parseOrderNumberSequence extracts the trailing sequence of an order number.
// Returns 0 for numbers that do not follow the scheme, so a tenant with
// legacy rows simply restarts the sequence.
func parseOrderNumberSequence(orderNumber string) int64 {
	idx := strings.LastIndex(orderNumber, "-")
	if idx < 0 || idx == len(orderNumber)-1 {
		return 0
	}
	seq, err := strconv.ParseInt(orderNumber[idx+1:], 10, 64)
	if err != nil || seq < 0 {
		return 0
	}
	return seq
}

func orderNumberCounterKey(tenantId string, now time.Time) string {
	return "orderNumberSeq:" + tenantId + ":" + now.Format("200601")
}

// nextOrderNumber allocates the next number for the tenant's current month
// inside the caller's transaction. A Redis counter serves as a fast path;
// when it is cold (or Redis is down and Incr returns 0) the month's maximum
// is read from the table under a row lock and the counter is reseeded.
func nextOrderNumber(ctx context.Context, tx *gorm.DB, tenantId string, now time.Time) (string, error) {
	key := orderNumberCounterKey(tenantId, now)

	seq, err := config.GetRedisCounter(ctx, key)
	if err != nil || seq <= 1 {
		dbSeq, dbErr := maxOrderNumberSequence(tx, tenantId, now)
		if dbErr != nil {
			return "", dbErr
		}
		if dbSeq >= seq {
			seq = dbSeq + 1
			_ = config.SetRedisObject(key, seq, 0)
		}
	}

	return formatOrderNumber(now, seq), nil
}

// resetOrderNumberCounter drops the cached sequence so the next allocation
// reseeds from the table. Called after a duplicate-key collision.
func resetOrderNumberCounter(tenantId string, now time.Time) {
	_ = config.RemoveRedisKey(orderNumberCounterKey(tenantId, now))
}

func maxOrderNumberSequence(tx *gorm.DB, tenantId string, now time.Time) (int64, error) {
	prefix := orderNumberMonthPrefix(now)

	var numbers []string
	err := tx.Model(&Order{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND order_number LIKE ?", tenantId, prefix+"%").
		Pluck("order_number", &numbers).Error
	if err != nil {
		return 0, err
	}
	return maxSequence(numbers), nil
}

// maxSequence finds the highest trailing sequence numerically. String
// ordering would mis-rank the numbers once a month's sequence widens past
// four digits ("ORD-...-9999" sorts above "ORD-...-10000").
func maxSequence(numbers []string) int64 {
	var max int64
	for _, n := range numbers {
		if seq := parseOrderNumberSequence(n); seq > max {
			max = seq
		}
	}
	return max
}
