package domain

import (
	"slices"
	"strings"
)

// MaxResults caps every root query. Roots past the cap are dropped silently.
const MaxResults = 1000

// FilterSpec holds the optional search fields of an order query.
// A nil Status and a blank MemberNameContains mean "any".
type FilterSpec struct {
	Status             *OrderStatus
	MemberNameContains string
}

func (f FilterSpec) Compile() Condition {
	return CompileFilter(f.Status, f.MemberNameContains)
}

type Field int

const (
	FieldOrderStatus Field = iota + 1
	FieldMemberName
)

func (f Field) String() string {
	switch f {
	case FieldOrderStatus:
		return "order.status"
	case FieldMemberName:
		return "member.name"
	}
	return "unknown"
}

type Operator string

const (
	OpEqual Operator = "="
	OpLike  Operator = "LIKE"
)

type Predicate struct {
	Field Field
	Op    Operator
	Value string
}

// Condition is the AND of its predicates. The zero value matches every row.
type Condition struct {
	preds []Predicate
}

// CompileFilter turns the optional filter fields into a Condition, skipping
// absent ones. Predicates always come out in the same order: status, then
// member name.
func CompileFilter(status *OrderStatus, memberNameContains string) Condition {
	var preds []Predicate
	if status != nil && *status != "" {
		preds = append(preds, Predicate{Field: FieldOrderStatus, Op: OpEqual, Value: string(*status)})
	}
	if strings.TrimSpace(memberNameContains) != "" {
		preds = append(preds, Predicate{Field: FieldMemberName, Op: OpLike, Value: "%" + memberNameContains + "%"})
	}
	return Condition{preds: preds}
}

func (c Condition) Predicates() []Predicate {
	return slices.Clone(c.preds)
}

func (c Condition) IsEmpty() bool {
	return len(c.preds) == 0
}
