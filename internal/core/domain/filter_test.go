package domain

import (
	"reflect"
	"testing"
)

func statusPtr(s OrderStatus) *OrderStatus { return &s }

func TestCompileFilter(t *testing.T) {
	empty := OrderStatus("")

	tests := []struct {
		name   string
		status *OrderStatus
		member string
		want   []Predicate
	}{
		{name: "all absent", want: nil},
		{name: "blank name", member: "   ", want: nil},
		{name: "empty status", status: &empty, want: nil},
		{
			name:   "status only",
			status: statusPtr(OrderStatusOrder),
			want:   []Predicate{{Field: FieldOrderStatus, Op: OpEqual, Value: "ORDER"}},
		},
		{
			name:   "name only",
			member: "Ali",
			want:   []Predicate{{Field: FieldMemberName, Op: OpLike, Value: "%Ali%"}},
		},
		{
			name:   "both",
			status: statusPtr(OrderStatusCancel),
			member: "Ali",
			want: []Predicate{
				{Field: FieldOrderStatus, Op: OpEqual, Value: "CANCEL"},
				{Field: FieldMemberName, Op: OpLike, Value: "%Ali%"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := CompileFilter(tt.status, tt.member)
			got := cond.Predicates()
			if len(tt.want) == 0 {
				if !cond.IsEmpty() || len(got) != 0 {
					t.Fatalf("expected empty condition, got %v", got)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCompileFilter_Deterministic(t *testing.T) {
	f := FilterSpec{Status: statusPtr(OrderStatusOrder), MemberNameContains: "Bob"}
	a, b := f.Compile(), f.Compile()
	if !reflect.DeepEqual(a.Predicates(), b.Predicates()) {
		t.Errorf("compile is not deterministic: %v vs %v", a.Predicates(), b.Predicates())
	}
}

func TestCondition_PredicatesIsACopy(t *testing.T) {
	cond := CompileFilter(statusPtr(OrderStatusOrder), "")
	preds := cond.Predicates()
	preds[0].Value = "CANCEL"

	if cond.Predicates()[0].Value != "ORDER" {
		t.Error("condition was mutated through Predicates()")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if s, err := ParseOrderStatus("CANCEL"); err != nil || s != OrderStatusCancel {
		t.Errorf("expected CANCEL, got %q (%v)", s, err)
	}
	if _, err := ParseOrderStatus("cancel"); err == nil {
		t.Error("expected error for lowercase status")
	}
}
