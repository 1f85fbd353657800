package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusOrder  OrderStatus = "ORDER"
	OrderStatusCancel OrderStatus = "CANCEL"
)

// ParseOrderStatus accepts the stored enum names only.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusOrder, OrderStatusCancel:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type DeliveryStatus string

const (
	DeliveryStatusReady    DeliveryStatus = "READY"
	DeliveryStatusComplete DeliveryStatus = "COMP"
)

type Address struct {
	City    string `json:"city"`
	Street  string `json:"street"`
	Zipcode string `json:"zipcode"`
}

// Member does not list its orders; look them up by MemberID on the order side.
type Member struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

// Delivery only exists as part of an Order.
type Delivery struct {
	ID      int64          `json:"id"`
	Address Address        `json:"address"`
	Status  DeliveryStatus `json:"status"`
}

// Order is the stored root row. MemberID and DeliveryID are the owning
// foreign keys.
type Order struct {
	ID         int64
	MemberID   int64
	DeliveryID int64
	OrderDate  time.Time
	Status     OrderStatus
}

type OrderItem struct {
	ID         int64
	OrderID    int64
	ItemID     int64
	OrderPrice int
	Count      int
}
