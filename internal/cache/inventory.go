package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	UserKeyPrefix   = "user:%d"
	SOPKeyPrefix    = "sop:%s"
	SOPListKey      = "sop:active"
	BudgetKeyPrefix = "budget:%s:%s:%s:%s"
	WorkflowKey     = "workflow:definition"
)

const (
	UserTTL     = 5 * time.Minute
	SOPTTL      = 10 * time.Minute
	BudgetTTL   = 2 * time.Minute
	WorkflowTTL = time.Hour
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func SOPKey(code string) string {
	return fmt.Sprintf(SOPKeyPrefix, strings.ToUpper(code))
}

// BudgetKey identifies the budget record of one allocation scope.
func BudgetKey(college, department, category, fiscalYear string) string {
	return fmt.Sprintf(BudgetKeyPrefix, college, department, category, fiscalYear)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateSOP(ctx context.Context, code string) {
	Invalidate(ctx, SOPKey(code), SOPListKey)
}
