package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soportelantia/libercopy-sub001/internal/calllog"
	"github.com/soportelantia/libercopy-sub001/internal/domain"
	"github.com/soportelantia/libercopy-sub001/internal/gateway"
	"github.com/soportelantia/libercopy-sub001/internal/service"
	"github.com/soportelantia/libercopy-sub001/internal/signature"
)

const (
	testRedsysSecret    = "sq7HjrUOBfKmC576ILgskD5srU870gJ7"
	testWebhookID       = "8PT597110X687430LKGECATA"
	testPayPalSecret    = "EGnHDxD_qRPdaLdZz8iCr8N7_MzF-YHPTkjs6NKYQvQSBngp4PTTVWkPZRbL"
	testFrontendBaseURL = "https://shop.example.com"
)

type memOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
}

func newMemOrderStore(orders ...*domain.Order) *memOrderStore {
	s := &memOrderStore{orders: make(map[uuid.UUID]*domain.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *memOrderStore) GetOrderByID(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *memOrderStore) MarkPaid(_ context.Context, orderID uuid.UUID, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return false, nil
	}
	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusPaymentFailed {
		return false, nil
	}
	order.Status = domain.OrderStatusCompleted
	order.PaymentReference = transactionID
	if order.PaidAt == nil {
		now := time.Now()
		order.PaidAt = &now
	}
	return true, nil
}

func (s *memOrderStore) MarkFailed(_ context.Context, orderID uuid.UUID, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return false, nil
	}
	if order.Status != domain.OrderStatusPending || order.PaidAt != nil {
		return false, nil
	}
	order.Status = domain.OrderStatusPaymentFailed
	order.PaymentReference = transactionID
	return true, nil
}

func (s *memOrderStore) SetPaymentMethod(_ context.Context, orderID uuid.UUID, method domain.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.PaymentMethod = method
	return nil
}

func (s *memOrderStore) get(orderID uuid.UUID) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderID]
}

type memReferenceStore struct {
	mu       sync.Mutex
	mappings map[string]uuid.UUID
}

func newMemReferenceStore() *memReferenceStore {
	return &memReferenceStore{mappings: make(map[string]uuid.UUID)}
}

func (s *memReferenceStore) CreateMapping(_ context.Context, provider domain.Provider, providerOrderNumber string, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[string(provider)+"/"+providerOrderNumber] = orderID
	return nil
}

func (s *memReferenceStore) Resolve(_ context.Context, provider domain.Provider, providerOrderNumber string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orderID, ok := s.mappings[string(provider)+"/"+providerOrderNumber]
	if !ok {
		return uuid.Nil, domain.ErrReferenceNotFound
	}
	return orderID, nil
}

type memHistoryStore struct {
	mu      sync.Mutex
	entries []domain.StatusHistoryEntry
}

func (s *memHistoryStore) Append(_ context.Context, orderID uuid.UUID, status domain.OrderStatus, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, domain.StatusHistoryEntry{
		ID:        int64(len(s.entries) + 1),
		OrderID:   orderID,
		Status:    status,
		Comment:   comment,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *memHistoryStore) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]domain.StatusHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []domain.StatusHistoryEntry
	for _, e := range s.entries {
		if e.OrderID == orderID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *memHistoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type memDiscountStore struct {
	mu   sync.Mutex
	uses map[string]int
}

func (s *memDiscountStore) IncrementUsage(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uses == nil {
		s.uses = make(map[string]int)
	}
	s.uses[code]++
	return nil
}

type memUserDirectory struct{}

func (memUserDirectory) EmailForUser(_ context.Context, _ uuid.UUID) (string, error) {
	return "buyer@example.com", nil
}

type memNotifier struct {
	mu   sync.Mutex
	sent int
}

func (n *memNotifier) Notify(_ context.Context, _, _ string, _ uuid.UUID, _ map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	return nil
}

func (n *memNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent
}

type testFixture struct {
	app        *fiber.App
	orders     *memOrderStore
	references *memReferenceStore
	history    *memHistoryStore
	discounts  *memDiscountStore
	notifier   *memNotifier
	paypal     *gateway.MockPayPalClient
	callLog    *calllog.Buffer
}

func newTestFixture(orders ...*domain.Order) *testFixture {
	logger := zap.NewNop().Sugar()

	f := &testFixture{
		orders:     newMemOrderStore(orders...),
		references: newMemReferenceStore(),
		history:    &memHistoryStore{},
		discounts:  &memDiscountStore{},
		notifier:   &memNotifier{},
		paypal:     gateway.NewMockPayPalClient(),
		callLog:    calllog.NewBuffer(64),
	}

	redsysVerifier := signature.NewRedsysVerifier(testRedsysSecret)

	handler := New(Deps{
		Reconciler: service.NewReconciler(
			f.orders, f.history, f.discounts, memUserDirectory{}, f.notifier, logger),
		Resolver: service.NewResolver(f.references),
		Initiator: service.NewInitiator(f.orders, f.references, redsysVerifier, service.InitiatorConfig{
			GatewayFormURL: "https://sis-t.redsys.es:25443/sis/realizarPago",
			MerchantCode:   "999008881",
			Terminal:       "001",
			PublicBaseURL:  "https://pay.example.com",
			FrontendURL:    testFrontendBaseURL,
		}, logger),
		Orders:         f.orders,
		History:        f.history,
		PayPalVerifier: signature.NewPayPalWebhookVerifier(testWebhookID, testPayPalSecret),
		RedsysVerifier: redsysVerifier,
		PayPal:         f.paypal,
		CallLog:        f.callLog,
		Logger:         logger,
		FrontendURL:    testFrontendBaseURL,
	})

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Get("/health", handler.HealthCheck)
	api.Post("/callbacks/paypal/webhook", handler.PayPalWebhook)
	api.Get("/callbacks/paypal/return", handler.PayPalReturn)
	api.Post("/callbacks/gateway", handler.GatewayCallback)
	api.Post("/payments/initiate", handler.InitiatePayment)
	api.Post("/payments/confirm", handler.ConfirmPayment)
	api.Get("/orders/:id", handler.GetOrder)
	api.Get("/orders/:id/history", handler.GetOrderHistory)
	api.Get("/admin/callback-log", handler.CallbackLog)

	f.app = app
	return f
}

func testOrder() *domain.Order {
	now := time.Now()
	return &domain.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		TotalCents:    2576,
		Currency:      "EUR",
		Status:        domain.OrderStatusPending,
		PaymentMethod: domain.PaymentMethodCard,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
