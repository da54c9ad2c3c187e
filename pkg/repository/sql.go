package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/cartshop/pkg/config"
	"github.com/example/cartshop/pkg/models"
	"github.com/example/cartshop/pkg/shop"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDatabase connects to the configured SQL backend.
func OpenDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "mysql", "":
		dialector = mysql.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

// SQLStore implements shop.Store on gorm.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates or updates the catalog, cart and order tables.
func (s *SQLStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
}

// SaveProduct inserts or updates a catalog row.
func (s *SQLStore) SaveProduct(ctx context.Context, p *models.Product) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shop.ErrRecordNotFound
	}
	return err
}

func (s *SQLStore) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

func (s *SQLStore) DecrementStock(ctx context.Context, productID uint, qty int) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *SQLStore) IncrementStock(ctx context.Context, productID uint, qty int) error {
	return s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now(),
		}).Error
}

func (s *SQLStore) FindCart(ctx context.Context, owner shop.Identity) (*models.Cart, error) {
	q := s.db.WithContext(ctx)
	switch owner.Kind {
	case shop.IdentityUser:
		q = q.Where("user_id = ?", owner.Value)
	case shop.IdentitySession:
		q = q.Where("session_id = ?", owner.Value)
	default:
		return nil, shop.ErrRecordNotFound
	}

	var cart models.Cart
	if err := q.First(&cart).Error; err != nil {
		return nil, notFound(err)
	}
	return &cart, nil
}

func (s *SQLStore) GetCart(ctx context.Context, cartID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := s.db.WithContext(ctx).First(&cart, cartID).Error; err != nil {
		return nil, notFound(err)
	}
	return &cart, nil
}

func (s *SQLStore) CreateCart(ctx context.Context, cart *models.Cart) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(cart).Error
}

func (s *SQLStore) DeleteCart(ctx context.Context, cartID uint) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.Cart{}, cartID).Error
}

func (s *SQLStore) ListCartItems(ctx context.Context, cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ?", cartID).
		Order("id").
		Find(&items).Error
	return items, err
}

func (s *SQLStore) GetCartItem(ctx context.Context, cartID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.WithContext(ctx).
		Preload("Product").
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *SQLStore) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (s *SQLStore) IncrementCartItem(ctx context.Context, cartID, productID uint, qty int) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *SQLStore) SetCartItemQuantity(ctx context.Context, cartID, itemID uint, qty int) (bool, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Updates(map[string]interface{}{"quantity": qty, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// MySQL reports zero affected rows when nothing changed.
	var count int64
	if err := db.Model(&models.CartItem{}).Where("id = ? AND cart_id = ?", itemID, cartID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLStore) DeleteCartItem(ctx context.Context, cartID, itemID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *SQLStore) DeleteCartItemIf(ctx context.Context, cartID, itemID uint, qty int) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND cart_id = ? AND quantity = ?", itemID, cartID, qty).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *SQLStore) MoveCartItem(ctx context.Context, itemID, toCartID uint) error {
	res := s.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{"cart_id": toCartID, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shop.ErrRecordNotFound
	}
	return nil
}

func (s *SQLStore) ClearCartItems(ctx context.Context, cartID uint) error {
	return s.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

func (s *SQLStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *SQLStore) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, orderID).Error; err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (s *SQLStore) FindOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("payment_reference = ?", reference).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (s *SQLStore) ListOrders(ctx context.Context, filter shop.OrderFilter) ([]models.Order, error) {
	q := s.db.WithContext(ctx).Preload("Items")
	switch {
	case filter.UserID != "":
		q = q.Where("user_id = ?", filter.UserID)
	case filter.Email != "":
		q = q.Where("user_id IS NULL AND LOWER(email) = LOWER(?)", filter.Email)
	default:
		return []models.Order{}, nil
	}

	var orders []models.Order
	if err := q.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *SQLStore) SetPaymentReference(ctx context.Context, orderID uint, reference string) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_reference", reference)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shop.ErrRecordNotFound
	}
	return nil
}

func (s *SQLStore) TransitionOrder(ctx context.Context, orderID uint, from, to models.OrderStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *SQLStore) InTx(ctx context.Context, fn func(tx shop.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SQLStore{db: tx})
	})
}
