package shop

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure for the transport layers.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindInsufficientStock
	KindConflict
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case KindConflict:
		return "CONFLICT"
	case KindExternal:
		return "EXTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Error codes surfaced to clients.
const (
	CodeInvalidQuantity        = "invalid_quantity"
	CodeInvalidIdentity        = "invalid_identity"
	CodeEmptyCart              = "empty_cart"
	CodeMissingContact         = "missing_contact"
	CodeMissingShippingDetails = "missing_shipping_details"
	CodeMissingPaymentMethod   = "missing_payment_method"
	CodeInvalidOrderState      = "invalid_order_state"
	CodeAmountMismatch         = "amount_mismatch"
	CodeProductNotFound        = "product_not_found"
	CodeItemNotFound           = "item_not_found"
	CodeCartNotFound           = "cart_not_found"
	CodeOrderNotFound          = "order_not_found"
	CodeInsufficientStock      = "insufficient_stock"
	CodeDuplicateCart          = "duplicate_cart"
	CodeCartChanged            = "cart_changed"
	CodePaymentFailed          = "payment_failed"
)

type Error struct {
	Kind      Kind
	Code      string
	Message   string
	ProductID uint
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can compare against the sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrInvalidQuantity        = &Error{Kind: KindValidation, Code: CodeInvalidQuantity, Message: "quantity must be a positive integer"}
	ErrInvalidIdentity        = &Error{Kind: KindValidation, Code: CodeInvalidIdentity, Message: "identity must name a user or a session"}
	ErrEmptyCart              = &Error{Kind: KindValidation, Code: CodeEmptyCart, Message: "cart is empty"}
	ErrMissingContact         = &Error{Kind: KindValidation, Code: CodeMissingContact, Message: "email is required for guest checkout"}
	ErrMissingShippingDetails = &Error{Kind: KindValidation, Code: CodeMissingShippingDetails, Message: "shipping details are required"}
	ErrMissingPaymentMethod   = &Error{Kind: KindValidation, Code: CodeMissingPaymentMethod, Message: "payment method is required"}
	ErrProductNotFound        = &Error{Kind: KindNotFound, Code: CodeProductNotFound, Message: "product not found"}
	ErrItemNotFound           = &Error{Kind: KindNotFound, Code: CodeItemNotFound, Message: "item not found in cart"}
	ErrCartNotFound           = &Error{Kind: KindNotFound, Code: CodeCartNotFound, Message: "cart not found"}
	ErrOrderNotFound          = &Error{Kind: KindNotFound, Code: CodeOrderNotFound, Message: "order not found"}
	ErrInsufficientStock      = &Error{Kind: KindInsufficientStock, Code: CodeInsufficientStock, Message: "insufficient stock"}
	ErrCartChanged            = &Error{Kind: KindConflict, Code: CodeCartChanged, Message: "cart changed during checkout"}
)

// ErrRecordNotFound is returned by Store implementations when a row is absent.
var ErrRecordNotFound = errors.New("record not found")

func InsufficientStock(productID uint, available, requested int) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Code:      CodeInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for product %d: available %d, requested %d", productID, available, requested),
		ProductID: productID,
	}
}

func ProductNotFound(productID uint) *Error {
	return &Error{
		Kind:      KindNotFound,
		Code:      CodeProductNotFound,
		Message:   fmt.Sprintf("product %d not found", productID),
		ProductID: productID,
	}
}

func ItemNotFound(itemID uint) *Error {
	return &Error{Kind: KindNotFound, Code: CodeItemNotFound, Message: fmt.Sprintf("item %d not found in cart", itemID)}
}

func NewConflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Code: CodeDuplicateCart, Message: message, Err: err}
}

func NewExternal(code, message string, err error) *Error {
	return &Error{Kind: KindExternal, Code: code, Message: message, Err: err}
}

func NewValidation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// KindOf reports the Kind of err and whether err is a domain error at all.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
