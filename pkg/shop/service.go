package shop

import "go.uber.org/zap"

type Options struct {
	Notifier    Notifier
	Audit       AuditSink
	Payments    PaymentGateway
	CashMethods []string
	Logger      *zap.Logger
}

// Service wires the ledger, cart store, merge engine, checkout and payments
// over one Store.
type Service struct {
	Ledger   *Ledger
	Carts    *CartStore
	Merger   *MergeEngine
	Checkout *Checkout
	Payments *Payments
	Pricer   Pricer
}

func NewService(store Store, sessions SessionProvider, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cashMethods := opts.CashMethods
	if len(cashMethods) == 0 {
		cashMethods = []string{"cod"}
	}

	ledger := NewLedger(store, logger.Named("ledger"))
	carts := NewCartStore(store, sessions, logger.Named("cart"))
	return &Service{
		Ledger:   ledger,
		Carts:    carts,
		Merger:   NewMergeEngine(store, carts, sessions, opts.Audit, logger.Named("merge")),
		Checkout: NewCheckout(store, ledger, opts.Notifier, opts.Audit, cashMethods, logger.Named("checkout")),
		Payments: NewPayments(store, opts.Payments, opts.Audit, logger.Named("payments")),
	}
}
