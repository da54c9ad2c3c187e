package shop

import (
	"context"
	"time"

	"github.com/example/cartshop/pkg/models"
	"github.com/shopspring/decimal"
)

// Store is the storage port. Implementations return ErrRecordNotFound for
// absent rows and must enforce the unique owner indexes on carts and the
// unique (cart, product) pair on cart items.
type Store interface {
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	// DecrementStock subtracts qty only if stock >= qty, as one statement.
	// It reports false when no row matched the predicate.
	DecrementStock(ctx context.Context, productID uint, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID uint, qty int) error

	FindCart(ctx context.Context, owner Identity) (*models.Cart, error)
	GetCart(ctx context.Context, cartID uint) (*models.Cart, error)
	CreateCart(ctx context.Context, cart *models.Cart) error
	DeleteCart(ctx context.Context, cartID uint) error

	// ListCartItems returns the lines of a cart with Product populated.
	ListCartItems(ctx context.Context, cartID uint) ([]models.CartItem, error)
	GetCartItem(ctx context.Context, cartID, itemID uint) (*models.CartItem, error)
	CreateCartItem(ctx context.Context, item *models.CartItem) error
	// IncrementCartItem adds qty to the (cart, product) line if it exists.
	IncrementCartItem(ctx context.Context, cartID, productID uint, qty int) (bool, error)
	SetCartItemQuantity(ctx context.Context, cartID, itemID uint, qty int) (bool, error)
	DeleteCartItem(ctx context.Context, cartID, itemID uint) (bool, error)
	// DeleteCartItemIf deletes the line only while it still holds qty.
	DeleteCartItemIf(ctx context.Context, cartID, itemID uint, qty int) (bool, error)
	MoveCartItem(ctx context.Context, itemID, toCartID uint) error
	ClearCartItems(ctx context.Context, cartID uint) error

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID uint) (*models.Order, error)
	FindOrderByReference(ctx context.Context, reference string) (*models.Order, error)
	// ListOrders returns matching orders newest first.
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	SetPaymentReference(ctx context.Context, orderID uint, reference string) error
	// TransitionOrder moves an order from one status to another and reports
	// false if the order was not in the from status.
	TransitionOrder(ctx context.Context, orderID uint, from, to models.OrderStatus) (bool, error)

	// InTx runs fn against a transactional view of the store. A non-nil
	// error from fn rolls every write back.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// OrderFilter selects orders by owner. UserID wins when both are set; Email
// matches guest orders case-insensitively.
type OrderFilter struct {
	UserID string
	Email  string
}

// SessionProvider mints and tracks anonymous session tokens.
type SessionProvider interface {
	Mint(ctx context.Context) (string, error)
	Valid(ctx context.Context, token string) (bool, error)
	// Forget drops the token and any cart binding attached to it.
	Forget(ctx context.Context, token string) error
}

type PaymentInitiation struct {
	Reference        string
	AccessCode       string
	AuthorizationURL string
}

type PaymentVerification struct {
	Reference string
	Status    string
	Amount    decimal.Decimal
}

// PaymentStatusSuccess is the status reported for a settled payment.
const PaymentStatusSuccess = "success"

type PaymentGateway interface {
	Initiate(ctx context.Context, email string, amount decimal.Decimal, reference string) (*PaymentInitiation, error)
	Verify(ctx context.Context, reference string) (*PaymentVerification, error)
}

// Notifier receives committed orders. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, order *models.Order) error
}

// Audit entity kinds.
const (
	EntityOrder = "order"
	EntityCart  = "cart"
)

type AuditEntry struct {
	Action   string
	Entity   string
	EntityID string
	Data     map[string]interface{}
	At       time.Time
}

type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, *models.Order) error { return nil }

type nopAudit struct{}

func (nopAudit) Record(context.Context, AuditEntry) error { return nil }
