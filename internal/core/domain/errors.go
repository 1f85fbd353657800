package domain

import "errors"

var (
	ErrInvalidPagination     = errors.New("pagination not supported for this strategy")
	ErrStoreUnavailable      = errors.New("order store unavailable")
	ErrMissingChildReference = errors.New("order item references a missing item")
	ErrInvalidStatus         = errors.New("invalid order status")
	ErrUnknownItemKind       = errors.New("unknown item kind")
)
