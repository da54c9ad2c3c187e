package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/cartshop/pkg/models"
	"github.com/example/cartshop/pkg/shop"
)

// ErrDuplicateKey is returned by MemoryStore when a unique index would be violated.
var ErrDuplicateKey = errors.New("duplicate key")

// MemoryStore is an in-process shop.Store. Every call is serialized by one
// mutex; InTx works on a copy that replaces the live data only on success.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	products  map[uint]models.Product
	carts     map[uint]models.Cart
	items     map[uint]models.CartItem
	orders    map[uint]models.Order
	nextCart  uint
	nextItem  uint
	nextOrder uint
	nextLine  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{
		products: make(map[uint]models.Product),
		carts:    make(map[uint]models.Cart),
		items:    make(map[uint]models.CartItem),
		orders:   make(map[uint]models.Order),
	}}
}

func (d *memData) clone() *memData {
	c := &memData{
		products:  make(map[uint]models.Product, len(d.products)),
		carts:     make(map[uint]models.Cart, len(d.carts)),
		items:     make(map[uint]models.CartItem, len(d.items)),
		orders:    make(map[uint]models.Order, len(d.orders)),
		nextCart:  d.nextCart,
		nextItem:  d.nextItem,
		nextOrder: d.nextOrder,
		nextLine:  d.nextLine,
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.carts {
		c.carts[k] = v
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.orders {
		v.Items = append([]models.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	return c
}

// PutProduct inserts or replaces a catalog row.
func (m *MemoryStore) PutProduct(p models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.data.products[p.ID] = p
}

func (m *MemoryStore) DeleteProduct(id uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data.products, id)
}

func (m *MemoryStore) CartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data.carts)
}

func (m *MemoryStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data.orders)
}

func (m *MemoryStore) do(fn func(v *memView) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memView{data: m.data})
}

func (m *MemoryStore) GetProduct(ctx context.Context, id uint) (p *models.Product, err error) {
	err = m.do(func(v *memView) error { p, err = v.GetProduct(ctx, id); return err })
	return p, err
}

func (m *MemoryStore) DecrementStock(ctx context.Context, productID uint, qty int) (ok bool, err error) {
	err = m.do(func(v *memView) error { ok, err = v.DecrementStock(ctx, productID, qty); return err })
	return ok, err
}

func (m *MemoryStore) IncrementStock(ctx context.Context, productID uint, qty int) error {
	return m.do(func(v *memView) error { return v.IncrementStock(ctx, productID, qty) })
}

func (m *MemoryStore) FindCart(ctx context.Context, owner shop.Identity) (c *models.Cart, err error) {
	err = m.do(func(v *memView) error { c, err = v.FindCart(ctx, owner); return err })
	return c, err
}

func (m *MemoryStore) GetCart(ctx context.Context, cartID uint) (c *models.Cart, err error) {
	err = m.do(func(v *memView) error { c, err = v.GetCart(ctx, cartID); return err })
	return c, err
}

func (m *MemoryStore) CreateCart(ctx context.Context, cart *models.Cart) error {
	return m.do(func(v *memView) error { return v.CreateCart(ctx, cart) })
}

func (m *MemoryStore) DeleteCart(ctx context.Context, cartID uint) error {
	return m.do(func(v *memView) error { return v.DeleteCart(ctx, cartID) })
}

func (m *MemoryStore) ListCartItems(ctx context.Context, cartID uint) (items []models.CartItem, err error) {
	err = m.do(func(v *memView) error { items, err = v.ListCartItems(ctx, cartID); return err })
	return items, err
}

func (m *MemoryStore) GetCartItem(ctx context.Context, cartID, itemID uint) (item *models.CartItem, err error) {
	err = m.do(func(v *memView) error { item, err = v.GetCartItem(ctx, cartID, itemID); return err })
	return item, err
}

func (m *MemoryStore) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	return m.do(func(v *memView) error { return v.CreateCartItem(ctx, item) })
}

func (m *MemoryStore) IncrementCartItem(ctx context.Context, cartID, productID uint, qty int) (ok bool, err error) {
	err = m.do(func(v *memView) error { ok, err = v.IncrementCartItem(ctx, cartID, productID, qty); return err })
	return ok, err
}

func (m *MemoryStore) SetCartItemQuantity(ctx context.Context, cartID, itemID uint, qty int) (ok bool, err error) {
	err = m.do(func(v *memView) error { ok, err = v.SetCartItemQuantity(ctx, cartID, itemID, qty); return err })
	return ok, err
}

func (m *MemoryStore) DeleteCartItem(ctx context.Context, cartID, itemID uint) (ok bool, err error) {
	err = m.do(func(v *memView) error { ok, err = v.DeleteCartItem(ctx, cartID, itemID); return err })
	return ok, err
}

func (m *MemoryStore) DeleteCartItemIf(ctx context.Context, cartID, itemID uint, qty int) (ok bool, err error) {
	err = m.do(func(v *memView) error { ok, err = v.DeleteCartItemIf(ctx, cartID, itemID, qty); return err })
	return ok, err
}

func (m *MemoryStore) MoveCartItem(ctx context.Context, itemID, toCartID uint) error {
	return m.do(func(v *memView) error { return v.MoveCartItem(ctx, itemID, toCartID) })
}

func (m *MemoryStore) ClearCartItems(ctx context.Context, cartID uint) error {
	return m.do(func(v *memView) error { return v.ClearCartItems(ctx, cartID) })
}

func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return m.do(func(v *memView) error { return v.CreateOrder(ctx, order) })
}

func (m *MemoryStore) GetOrder(ctx context.Context, orderID uint) (o *models.Order, err error) {
	err = m.do(func(v *memView) error { o, err = v.GetOrder(ctx, orderID); return err })
	return o, err
}

func (m *MemoryStore) FindOrderByReference(ctx context.Context, reference string) (o *models.Order, err error) {
	err = m.do(func(v *memView) error { o, err = v.FindOrderByReference(ctx, reference); return err })
	return o, err
}

func (m *MemoryStore) ListOrders(ctx context.Context, filter shop.OrderFilter) (orders []models.Order, err error) {
	err = m.do(func(v *memView) error { orders, err = v.ListOrders(ctx, filter); return err })
	return orders, err
}

func (m *MemoryStore) SetPaymentReference(ctx context.Context, orderID uint, reference string) error {
	return m.do(func(v *memView) error { return v.SetPaymentReference(ctx, orderID, reference) })
}

func (m *MemoryStore) TransitionOrder(ctx context.Context, orderID uint, from, to models.OrderStatus) (ok bool, err error) {
	err = m.do(func(v *memView) error { ok, err = v.TransitionOrder(ctx, orderID, from, to); return err })
	return ok, err
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(tx shop.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	working := m.data.clone()
	if err := fn(&memView{data: working}); err != nil {
		return err
	}
	m.data = working
	return nil
}

// memView operates on one memData without locking. It is the transactional
// handle passed to InTx callbacks.
type memView struct {
	data *memData
}

func (v *memView) InTx(ctx context.Context, fn func(tx shop.Store) error) error {
	return fn(v)
}

func (v *memView) GetProduct(_ context.Context, id uint) (*models.Product, error) {
	p, ok := v.data.products[id]
	if !ok {
		return nil, shop.ErrRecordNotFound
	}
	return &p, nil
}

func (v *memView) DecrementStock(_ context.Context, productID uint, qty int) (bool, error) {
	p, ok := v.data.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now()
	v.data.products[productID] = p
	return true, nil
}

func (v *memView) IncrementStock(_ context.Context, productID uint, qty int) error {
	p, ok := v.data.products[productID]
	if !ok {
		return nil
	}
	p.Stock += qty
	p.UpdatedAt = time.Now()
	v.data.products[productID] = p
	return nil
}

func ownedBy(c models.Cart, owner shop.Identity) bool {
	switch owner.Kind {
	case shop.IdentityUser:
		return c.UserID != nil && *c.UserID == owner.Value
	case shop.IdentitySession:
		return c.SessionID != nil && *c.SessionID == owner.Value
	}
	return false
}

func (v *memView) FindCart(_ context.Context, owner shop.Identity) (*models.Cart, error) {
	for _, c := range v.data.carts {
		if ownedBy(c, owner) {
			return &c, nil
		}
	}
	return nil, shop.ErrRecordNotFound
}

func (v *memView) GetCart(_ context.Context, cartID uint) (*models.Cart, error) {
	c, ok := v.data.carts[cartID]
	if !ok {
		return nil, shop.ErrRecordNotFound
	}
	return &c, nil
}

func (v *memView) CreateCart(_ context.Context, cart *models.Cart) error {
	for _, c := range v.data.carts {
		if cart.UserID != nil && c.UserID != nil && *c.UserID == *cart.UserID {
			return ErrDuplicateKey
		}
		if cart.SessionID != nil && c.SessionID != nil && *c.SessionID == *cart.SessionID {
			return ErrDuplicateKey
		}
	}
	v.data.nextCart++
	now := time.Now()
	cart.ID = v.data.nextCart
	cart.CreatedAt = now
	cart.UpdatedAt = now
	stored := *cart
	stored.Items = nil
	v.data.carts[cart.ID] = stored
	return nil
}

func (v *memView) DeleteCart(_ context.Context, cartID uint) error {
	delete(v.data.carts, cartID)
	for id, item := range v.data.items {
		if item.CartID == cartID {
			delete(v.data.items, id)
		}
	}
	return nil
}

func (v *memView) ListCartItems(_ context.Context, cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	for _, item := range v.data.items {
		if item.CartID != cartID {
			continue
		}
		item.Product = v.data.products[item.ProductID]
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (v *memView) GetCartItem(_ context.Context, cartID, itemID uint) (*models.CartItem, error) {
	item, ok := v.data.items[itemID]
	if !ok || item.CartID != cartID {
		return nil, shop.ErrRecordNotFound
	}
	item.Product = v.data.products[item.ProductID]
	return &item, nil
}

func (v *memView) findLine(cartID, productID uint) (models.CartItem, bool) {
	for _, item := range v.data.items {
		if item.CartID == cartID && item.ProductID == productID {
			return item, true
		}
	}
	return models.CartItem{}, false
}

func (v *memView) CreateCartItem(_ context.Context, item *models.CartItem) error {
	if _, ok := v.data.carts[item.CartID]; !ok {
		return shop.ErrRecordNotFound
	}
	if _, dup := v.findLine(item.CartID, item.ProductID); dup {
		return ErrDuplicateKey
	}
	v.data.nextItem++
	now := time.Now()
	item.ID = v.data.nextItem
	item.CreatedAt = now
	item.UpdatedAt = now
	stored := *item
	stored.Product = models.Product{}
	v.data.items[item.ID] = stored
	return nil
}

func (v *memView) IncrementCartItem(_ context.Context, cartID, productID uint, qty int) (bool, error) {
	item, ok := v.findLine(cartID, productID)
	if !ok {
		return false, nil
	}
	item.Quantity += qty
	item.UpdatedAt = time.Now()
	v.data.items[item.ID] = item
	return true, nil
}

func (v *memView) SetCartItemQuantity(_ context.Context, cartID, itemID uint, qty int) (bool, error) {
	item, ok := v.data.items[itemID]
	if !ok || item.CartID != cartID {
		return false, nil
	}
	item.Quantity = qty
	item.UpdatedAt = time.Now()
	v.data.items[itemID] = item
	return true, nil
}

func (v *memView) DeleteCartItem(_ context.Context, cartID, itemID uint) (bool, error) {
	item, ok := v.data.items[itemID]
	if !ok || item.CartID != cartID {
		return false, nil
	}
	delete(v.data.items, itemID)
	return true, nil
}

func (v *memView) DeleteCartItemIf(_ context.Context, cartID, itemID uint, qty int) (bool, error) {
	item, ok := v.data.items[itemID]
	if !ok || item.CartID != cartID || item.Quantity != qty {
		return false, nil
	}
	delete(v.data.items, itemID)
	return true, nil
}

func (v *memView) MoveCartItem(_ context.Context, itemID, toCartID uint) error {
	item, ok := v.data.items[itemID]
	if !ok {
		return shop.ErrRecordNotFound
	}
	if _, dup := v.findLine(toCartID, item.ProductID); dup {
		return ErrDuplicateKey
	}
	item.CartID = toCartID
	item.UpdatedAt = time.Now()
	v.data.items[itemID] = item
	return nil
}

func (v *memView) ClearCartItems(_ context.Context, cartID uint) error {
	for id, item := range v.data.items {
		if item.CartID == cartID {
			delete(v.data.items, id)
		}
	}
	return nil
}

func (v *memView) CreateOrder(_ context.Context, order *models.Order) error {
	v.data.nextOrder++
	now := time.Now()
	order.ID = v.data.nextOrder
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		v.data.nextLine++
		order.Items[i].ID = v.data.nextLine
		order.Items[i].OrderID = order.ID
	}
	stored := *order
	stored.Items = append([]models.OrderItem(nil), order.Items...)
	v.data.orders[order.ID] = stored
	return nil
}

func (v *memView) GetOrder(_ context.Context, orderID uint) (*models.Order, error) {
	o, ok := v.data.orders[orderID]
	if !ok {
		return nil, shop.ErrRecordNotFound
	}
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return &o, nil
}

func (v *memView) FindOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	for id, o := range v.data.orders {
		if o.PaymentReference != nil && *o.PaymentReference == reference {
			return v.GetOrder(ctx, id)
		}
	}
	return nil, shop.ErrRecordNotFound
}

func (v *memView) ListOrders(_ context.Context, filter shop.OrderFilter) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	for _, o := range v.data.orders {
		switch {
		case filter.UserID != "":
			if o.UserID == nil || *o.UserID != filter.UserID {
				continue
			}
		case filter.Email != "":
			if o.UserID != nil || !strings.EqualFold(o.Email, filter.Email) {
				continue
			}
		default:
			continue
		}
		o.Items = append([]models.OrderItem(nil), o.Items...)
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (v *memView) SetPaymentReference(_ context.Context, orderID uint, reference string) error {
	o, ok := v.data.orders[orderID]
	if !ok {
		return shop.ErrRecordNotFound
	}
	o.PaymentReference = &reference
	o.UpdatedAt = time.Now()
	v.data.orders[orderID] = o
	return nil
}

func (v *memView) TransitionOrder(_ context.Context, orderID uint, from, to models.OrderStatus) (bool, error) {
	o, ok := v.data.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	v.data.orders[orderID] = o
	return true, nil
}
