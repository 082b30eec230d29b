package payment

import (
	"gorm.io/gorm"

	"github.com/godaddy/spree-ccavenue-api/ccavenue"
	"github.com/godaddy/spree-ccavenue-api/models"
)

// TransactionStore persists payment attempts. The GORM implementation below
// is the production one; tests use an in-memory fake.
type TransactionStore interface {
	Create(t *models.Transaction) error
	Save(t *models.Transaction) error
	Find(id uint) (*models.Transaction, error)
	// ForOrder returns every transaction recorded for an order.
	ForOrder(orderID uint) ([]*models.Transaction, error)
	NumberTaken(number string) (bool, error)
}

// OrderStore reads and writes the storefront's order snapshots.
type OrderStore interface {
	Find(id uint) (*models.Order, error)
	FindByNumber(number string) (*models.Order, error)
	Save(o *models.Order) error
}

// OrderWorkflow is the boundary to the storefront's order engine. The payment
// subsystem asks it about stock and hands control back to it exactly once,
// when a transaction authorizes.
type OrderWorkflow interface {
	InsufficientStock(o *models.Order) bool
	// AttachPaymentAndAdvance records the transaction as the order's payment
	// source and advances the order workflow. Failure must propagate: an
	// authorized transaction with no order-side effect is not acceptable
	// silently.
	AttachPaymentAndAdvance(o *models.Order, t *models.Transaction) error
}

type gormTransactionStore struct {
	db *gorm.DB
}

// NewTransactionStore builds the GORM-backed TransactionStore.
func NewTransactionStore(db *gorm.DB) TransactionStore {
	return &gormTransactionStore{db: db}
}

func (s *gormTransactionStore) Create(t *models.Transaction) error {
	return s.db.Create(t).Error
}

func (s *gormTransactionStore) Save(t *models.Transaction) error {
	return s.db.Save(t).Error
}

func (s *gormTransactionStore) Find(id uint) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *gormTransactionStore) ForOrder(orderID uint) ([]*models.Transaction, error) {
	var ts []*models.Transaction
	if err := s.db.Where("order_id = ?", orderID).Find(&ts).Error; err != nil {
		return nil, err
	}
	return ts, nil
}

func (s *gormTransactionStore) NumberTaken(number string) (bool, error) {
	var n int64
	if err := s.db.Model(&models.Transaction{}).Where("number = ?", number).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

type gormOrderStore struct {
	db *gorm.DB
}

// NewOrderStore builds the GORM-backed OrderStore.
func NewOrderStore(db *gorm.DB) OrderStore {
	return &gormOrderStore{db: db}
}

func (s *gormOrderStore) Find(id uint) (*models.Order, error) {
	var o models.Order
	if err := s.db.First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *gormOrderStore) FindByNumber(number string) (*models.Order, error) {
	var o models.Order
	if err := s.db.Where("number = ?", number).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *gormOrderStore) Save(o *models.Order) error {
	return s.db.Save(o).Error
}

// LocalOrderWorkflow is the in-process OrderWorkflow over the local Order
// model. A storefront running its checkout engine elsewhere supplies its own
// implementation.
type LocalOrderWorkflow struct {
	Orders OrderStore
}

func (w *LocalOrderWorkflow) InsufficientStock(o *models.Order) bool {
	return o.InsufficientStock
}

func (w *LocalOrderWorkflow) AttachPaymentAndAdvance(o *models.Order, t *models.Transaction) error {
	o.State = models.OrderComplete
	return w.Orders.Save(o)
}

// NewServiceFromDB assembles a Service over GORM stores using the persisted
// gateway settings. Returns ErrGatewayNotConfigured until a full credential
// set has been saved.
func NewServiceFromDB(db *gorm.DB) (*Service, error) {
	gs, err := models.GetGatewaySettings(db)
	if err != nil || !gs.Configured() {
		return nil, ErrGatewayNotConfigured
	}
	client, err := ccavenue.NewClient(gs.ClientConfig())
	if err != nil {
		return nil, err
	}
	orders := NewOrderStore(db)
	return NewService(client, orders, NewTransactionStore(db), &LocalOrderWorkflow{Orders: orders}), nil
}
