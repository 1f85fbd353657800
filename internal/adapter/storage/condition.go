package storage

import (
	"strings"

	"github.com/rl1809/order-query/internal/core/domain"
	"gorm.io/gorm"
)

var conditionColumns = map[domain.Field]string{
	domain.FieldOrderStatus: "o.status",
	domain.FieldMemberName:  "m.name",
}

// whereClause renders cond by string concatenation. The result starts with
// " WHERE" or is empty when cond matches everything.
func whereClause(cond domain.Condition) (string, []any) {
	var (
		sb    strings.Builder
		args  []any
		first = true
	)
	for _, p := range cond.Predicates() {
		if first {
			sb.WriteString(" WHERE ")
			first = false
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(conditionColumns[p.Field])
		sb.WriteString(" ")
		sb.WriteString(string(p.Op))
		sb.WriteString(" ?")
		args = append(args, p.Value)
	}
	return sb.String(), args
}

// applyCondition renders cond with gorm's builder, one Where per predicate.
func applyCondition(tx *gorm.DB, cond domain.Condition) *gorm.DB {
	for _, p := range cond.Predicates() {
		tx = tx.Where(conditionColumns[p.Field]+" "+string(p.Op)+" ?", p.Value)
	}
	return tx
}
