package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/amrabdelsalam/madrasti/internal/models"
	"github.com/amrabdelsalam/madrasti/internal/paytabs"
)

// mockLedger keeps purchases and payments in maps and enforces the
// (userID, courseID) uniqueness the real database provides.
type mockLedger struct {
	purchases map[uuid.UUID]*models.Purchase
	payments  map[uuid.UUID]*models.Payment

	createPurchaseErr error
	createPaymentErr  error

	setPaymentStatusCalls  int
	setPurchaseStatusCalls int
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		purchases: make(map[uuid.UUID]*models.Purchase),
		payments:  make(map[uuid.UUID]*models.Payment),
	}
}

func (m *mockLedger) FindPurchase(_ context.Context, userID, courseID uuid.UUID) (*models.Purchase, error) {
	for _, p := range m.purchases {
		if p.UserID == userID && p.CourseID == courseID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPurchaseNotFound
}

func (m *mockLedger) FindPurchaseForUser(_ context.Context, purchaseID, userID uuid.UUID) (*models.Purchase, error) {
	p, ok := m.purchases[purchaseID]
	if !ok || p.UserID != userID {
		return nil, ErrPurchaseNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockLedger) CreatePurchase(_ context.Context, purchase *models.Purchase) error {
	if m.createPurchaseErr != nil {
		return m.createPurchaseErr
	}
	for _, p := range m.purchases {
		if p.UserID == purchase.UserID && p.CourseID == purchase.CourseID {
			return ErrPurchaseInProgress
		}
	}
	cp := *purchase
	m.purchases[purchase.ID] = &cp
	return nil
}

func (m *mockLedger) DeletePurchase(_ context.Context, purchaseID uuid.UUID) error {
	delete(m.purchases, purchaseID)
	return nil
}

func (m *mockLedger) FindPaymentByReference(_ context.Context, tranRef string) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.TransactionReference == tranRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (m *mockLedger) FindPaymentByPurchase(_ context.Context, purchaseID uuid.UUID) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.PurchaseID == purchaseID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPaymentRecordMissing
}

func (m *mockLedger) CreatePayment(_ context.Context, payment *models.Payment) error {
	if m.createPaymentErr != nil {
		return m.createPaymentErr
	}
	cp := *payment
	m.payments[payment.ID] = &cp
	return nil
}

func (m *mockLedger) DeletePayment(_ context.Context, paymentID uuid.UUID) error {
	delete(m.payments, paymentID)
	return nil
}

func (m *mockLedger) SetPaymentStatus(_ context.Context, paymentID uuid.UUID, status models.PaymentStatus) error {
	m.setPaymentStatusCalls++
	p, ok := m.payments[paymentID]
	if !ok {
		return errors.New("payment not in ledger")
	}
	p.Status = status
	return nil
}

func (m *mockLedger) SetPurchaseStatus(_ context.Context, purchaseID uuid.UUID, status models.PurchaseStatus) error {
	m.setPurchaseStatusCalls++
	p, ok := m.purchases[purchaseID]
	if !ok {
		return errors.New("purchase not in ledger")
	}
	p.Status = status
	return nil
}

type mockGateway struct {
	createFunc  func(in paytabs.CreatePaymentLinkInput) (*paytabs.PaymentLink, error)
	verifyFunc  func(tranRef string) (*paytabs.TransactionStatus, error)
	createCalls int
	verifyCalls int
	lastCreate  paytabs.CreatePaymentLinkInput
}

func (m *mockGateway) CreatePaymentLink(_ context.Context, in paytabs.CreatePaymentLinkInput) (*paytabs.PaymentLink, error) {
	m.createCalls++
	m.lastCreate = in
	if m.createFunc != nil {
		return m.createFunc(in)
	}
	return &paytabs.PaymentLink{TranRef: "TST2100000001", RedirectURL: "https://secure-egypt.paytabs.com/payment/page/x"}, nil
}

func (m *mockGateway) VerifyPayment(_ context.Context, tranRef string) (*paytabs.TransactionStatus, error) {
	m.verifyCalls++
	if m.verifyFunc != nil {
		return m.verifyFunc(tranRef)
	}
	return &paytabs.TransactionStatus{
		TranRef:       tranRef,
		PaymentResult: paytabs.PaymentResult{ResponseStatus: "A", ResponseCode: "000"},
	}, nil
}

func verifyReturning(status string) func(string) (*paytabs.TransactionStatus, error) {
	return func(tranRef string) (*paytabs.TransactionStatus, error) {
		return &paytabs.TransactionStatus{
			TranRef:       tranRef,
			PaymentResult: paytabs.PaymentResult{ResponseStatus: status},
		}, nil
	}
}

func newTestService() (*Service, *mockLedger, *mockGateway) {
	ledger := newMockLedger()
	gateway := &mockGateway{}
	return NewService(ledger, gateway), ledger, gateway
}

func testInput(userID, courseID uuid.UUID) InitiateInput {
	return InitiateInput{
		UserID:        userID,
		CourseID:      courseID,
		CourseTitle:   "Arabic Calligraphy",
		Amount:        499.0,
		Currency:      "EGP",
		CustomerEmail: "student@example.com",
		CustomerName:  "Student",
		CallbackURL:   "https://app.example.com/v1/webhooks/paytabs",
		ReturnURL:     "https://app.example.com/courses/c/payment-status?purchaseId={purchaseId}",
	}
}

func seedPendingPurchase(ledger *mockLedger, userID, courseID uuid.UUID, tranRef string) (*models.Purchase, *models.Payment) {
	purchase := &models.Purchase{ID: uuid.New(), UserID: userID, CourseID: courseID, Status: models.PurchasePending}
	ledger.purchases[purchase.ID] = purchase
	payment := &models.Payment{
		ID:                   uuid.New(),
		TransactionReference: tranRef,
		Amount:               499.0,
		Currency:             "EGP",
		Status:               models.PaymentPending,
		PurchaseID:           purchase.ID,
	}
	ledger.payments[payment.ID] = payment
	return purchase, payment
}

func TestInitiatePurchase(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	courseID := uuid.New()

	t.Run("creates pending purchase and payment", func(t *testing.T) {
		svc, ledger, gateway := newTestService()

		result, err := svc.InitiatePurchase(ctx, testInput(userID, courseID))
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if result.PaymentURL == "" {
			t.Fatal("expected a payment url")
		}
		if gateway.createCalls != 1 {
			t.Fatalf("expected 1 gateway call, got %d", gateway.createCalls)
		}

		purchase, ok := ledger.purchases[result.PurchaseID]
		if !ok {
			t.Fatal("expected purchase row in ledger")
		}
		if purchase.Status != models.PurchasePending {
			t.Fatalf("expected PENDING purchase, got %s", purchase.Status)
		}

		payment, err := ledger.FindPaymentByPurchase(ctx, result.PurchaseID)
		if err != nil {
			t.Fatalf("expected payment row, got: %v", err)
		}
		if payment.Status != models.PaymentPending || payment.TransactionReference == "" {
			t.Fatalf("unexpected payment: %+v", payment)
		}

		if !strings.Contains(gateway.lastCreate.ReturnURL, result.PurchaseID.String()) {
			t.Fatalf("return url should carry the purchase id, got %s", gateway.lastCreate.ReturnURL)
		}
	})

	t.Run("rejects an active purchase", func(t *testing.T) {
		svc, ledger, gateway := newTestService()
		ledger.purchases[uuid.New()] = &models.Purchase{ID: uuid.New(), UserID: userID, CourseID: courseID, Status: models.PurchaseActive}

		_, err := svc.InitiatePurchase(ctx, testInput(userID, courseID))
		if !errors.Is(err, ErrAlreadyPurchased) {
			t.Fatalf("expected ErrAlreadyPurchased, got: %v", err)
		}
		if gateway.createCalls != 0 {
			t.Fatal("gateway must not be called for an owned course")
		}
	})

	t.Run("rejects a pending purchase", func(t *testing.T) {
		svc, ledger, _ := newTestService()
		seedPendingPurchase(ledger, userID, courseID, "T0")

		_, err := svc.InitiatePurchase(ctx, testInput(userID, courseID))
		if !errors.Is(err, ErrPurchaseInProgress) {
			t.Fatalf("expected ErrPurchaseInProgress, got: %v", err)
		}
	})

	t.Run("clears a failed purchase before retrying", func(t *testing.T) {
		svc, ledger, _ := newTestService()
		oldPurchase, oldPayment := seedPendingPurchase(ledger, userID, courseID, "T-OLD")
		oldPurchase.Status = models.PurchaseFailed
		oldPayment.Status = models.PaymentFailed

		result, err := svc.InitiatePurchase(ctx, testInput(userID, courseID))
		if err != nil {
			t.Fatalf("expected retry to succeed, got: %v", err)
		}
		if _, ok := ledger.purchases[oldPurchase.ID]; ok {
			t.Fatal("old failed purchase should have been deleted")
		}
		if _, ok := ledger.payments[oldPayment.ID]; ok {
			t.Fatal("old failed payment should have been deleted")
		}
		if ledger.purchases[result.PurchaseID].Status != models.PurchasePending {
			t.Fatal("new purchase should be PENDING")
		}
	})

	t.Run("gateway failure leaves no rows behind", func(t *testing.T) {
		svc, ledger, gateway := newTestService()
		gateway.createFunc = func(paytabs.CreatePaymentLinkInput) (*paytabs.PaymentLink, error) {
			return nil, &paytabs.GatewayError{Op: "create payment link", Message: "Invalid request"}
		}

		_, err := svc.InitiatePurchase(ctx, testInput(userID, courseID))
		if !errors.Is(err, ErrPaymentInitiation) {
			t.Fatalf("expected ErrPaymentInitiation, got: %v", err)
		}
		if len(ledger.purchases) != 0 || len(ledger.payments) != 0 {
			t.Fatalf("expected empty ledger, got %d purchases %d payments", len(ledger.purchases), len(ledger.payments))
		}
	})

	t.Run("concurrent creation surfaces as purchase in progress", func(t *testing.T) {
		svc, ledger, _ := newTestService()
		ledger.createPurchaseErr = ErrPurchaseInProgress

		_, err := svc.InitiatePurchase(ctx, testInput(userID, courseID))
		if !errors.Is(err, ErrPurchaseInProgress) {
			t.Fatalf("expected ErrPurchaseInProgress, got: %v", err)
		}
	})

	t.Run("payment write failure rolls the purchase back", func(t *testing.T) {
		svc, ledger, _ := newTestService()
		ledger.createPaymentErr = errors.New("disk full")

		_, err := svc.InitiatePurchase(ctx, testInput(userID, courseID))
		if err == nil {
			t.Fatal("expected an error")
		}
		if len(ledger.purchases) != 0 {
			t.Fatal("purchase should have been compensated away")
		}
	})
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	courseID := uuid.New()

	t.Run("approval completes payment and activates purchase", func(t *testing.T) {
		svc, ledger, _ := newTestService()
		purchase, payment := seedPendingPurchase(ledger, userID, courseID, "T1")

		err := svc.HandleCallback(ctx, CallbackPayload{TranRef: "T1", RespStatus: "A", RespCode: "000"})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if ledger.payments[payment.ID].Status != models.PaymentCompleted {
			t.Fatalf("expected COMPLETED payment, got %s", ledger.payments[payment.ID].Status)
		}
		if ledger.purchases[purchase.ID].Status != models.PurchaseActive {
			t.Fatalf("expected ACTIVE purchase, got %s", ledger.purchases[purchase.ID].Status)
		}
	})

	t.Run("redelivery of the same callback is a no-op success", func(t *testing.T) {
		svc, ledger, _ := newTestService()
		purchase, payment := seedPendingPurchase(ledger, userID, courseID, "T1")

		payload := CallbackPayload{TranRef: "T1", RespStatus: "A", RespCode: "000"}
		if err := svc.HandleCallback(ctx, payload); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		writesAfterFirst := ledger.setPaymentStatusCalls

		if err := svc.HandleCallback(ctx, payload); err != nil {
			t.Fatalf("redelivery must succeed, got: %v", err)
		}
		if ledger.setPaymentStatusCalls != writesAfterFirst {
			t.Fatal("redelivery must not write again")
		}
		if ledger.payments[payment.ID].Status != models.PaymentCompleted || ledger.purchases[purchase.ID].Status != models.PurchaseActive {
			t.Fatal("redelivery changed final state")
		}
	})

	t.Run("decline fails both rows and permits a retry", func(t *testing.T) {
		svc, ledger, gateway := newTestService()
		purchase, payment := seedPendingPurchase(ledger, userID, courseID, "T1")
		gateway.verifyFunc = verifyReturning("E")

		if err := svc.HandleCallback(ctx, CallbackPayload{TranRef: "T1", RespStatus: "E"}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if ledger.payments[payment.ID].Status != models.PaymentFailed {
			t.Fatal("expected FAILED payment")
		}
		if ledger.purchases[purchase.ID].Status != models.PurchaseFailed {
			t.Fatal("expected FAILED purchase")
		}

		gateway.verifyFunc = nil
		result, err := svc.InitiatePurchase(ctx, testInput(userID, courseID))
		if err != nil {
			t.Fatalf("retry after failure should succeed, got: %v", err)
		}
		if _, ok := ledger.purchases[purchase.ID]; ok {
			t.Fatal("failed purchase should have been replaced")
		}
		if ledger.purchases[result.PurchaseID].Status != models.PurchasePending {
			t.Fatal("replacement purchase should be PENDING")
		}
	})

	t.Run("missing transaction reference is malformed", func(t *testing.T) {
		svc, _, _ := newTestService()
		if err := svc.HandleCallback(ctx, CallbackPayload{RespStatus: "A"}); !errors.Is(err, ErrMalformedCallback) {
			t.Fatalf("expected ErrMalformedCallback, got: %v", err)
		}
	})

	t.Run("unknown reference surfaces payment not found", func(t *testing.T) {
		svc, _, _ := newTestService()
		err := svc.HandleCallback(ctx, CallbackPayload{TranRef: "GHOST", RespStatus: "A", RespCode: "000"})
		if !errors.Is(err, ErrPaymentNotFound) {
			t.Fatalf("expected ErrPaymentNotFound, got: %v", err)
		}
	})

	t.Run("hold leaves everything pending", func(t *testing.T) {
		svc, ledger, gateway := newTestService()
		purchase, payment := seedPendingPurchase(ledger, userID, courseID, "T1")
		gateway.verifyFunc = verifyReturning("H")

		if err := svc.HandleCallback(ctx, CallbackPayload{TranRef: "T1", RespStatus: "H"}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if ledger.payments[payment.ID].Status != models.PaymentPending || ledger.purchases[purchase.ID].Status != models.PurchasePending {
			t.Fatal("hold must not transition state")
		}
		if ledger.setPaymentStatusCalls != 0 {
			t.Fatal("hold must not write")
		}
	})

	t.Run("verification outage falls back to callback codes", func(t *testing.T) {
		svc, ledger, gateway := newTestService()
		purchase, payment := seedPendingPurchase(ledger, userID, courseID, "T1")
		gateway.verifyFunc = func(string) (*paytabs.TransactionStatus, error) {
			return nil, &paytabs.GatewayError{Op: "verify payment", Message: "timeout"}
		}

		if err := svc.HandleCallback(ctx, CallbackPayload{TranRef: "T1", RespStatus: "A", RespCode: "000"}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if ledger.payments[payment.ID].Status != models.PaymentCompleted || ledger.purchases[purchase.ID].Status != models.PurchaseActive {
			t.Fatal("callback codes should classify when verification is down")
		}
	})

	t.Run("verified status overrides callback claims", func(t *testing.T) {
		svc, ledger, gateway := newTestService()
		_, payment := seedPendingPurchase(ledger, userID, courseID, "T1")
		gateway.verifyFunc = verifyReturning("E")

		if err := svc.HandleCallback(ctx, CallbackPayload{TranRef: "T1", RespStatus: "A", RespCode: "000"}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if ledger.payments[payment.ID].Status != models.PaymentFailed {
			t.Fatal("gateway's verified status must win over the callback")
		}
	})
}

func TestGetStatus(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	courseID := uuid.New()

	t.Run("active purchase short-circuits without a gateway call", func(t *testing.T) {
		svc, ledger, gateway := newTestService()
		purchase, payment := seedPendingPurchase(ledger, userID, courseID, "T1")
		purchase.Status = models.PurchaseActive
		payment.Status = models.PaymentCompleted

		result, err := svc.GetStatus(ctx, purchase.ID, userID)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if result.Status != models.PaymentCompleted {
			t.Fatalf("expected COMPLETED, got %s", result.Status)
		}
		if result.Purchase.Status != models.PurchaseActive {
			t.Fatalf("expected ACTIVE purchase, got %s", result.Purchase.Status)
		}
		if gateway.verifyCalls != 0 {
			t.Fatal("terminal purchase must not trigger verification")
		}
	})

	t.Run("pending purchase reconciles to completed", func(t *testing.T) {
		svc, ledger, _ := newTestService()
		purchase, _ := seedPendingPurchase(ledger, userID, courseID, "T1")

		result, err := svc.GetStatus(ctx, purchase.ID, userID)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if result.Status != models.PaymentCompleted || result.Purchase.Status != models.PurchaseActive {
			t.Fatalf("unexpected result: %+v", result)
		}
		if ledger.purchases[purchase.ID].Status != models.PurchaseActive {
			t.Fatal("ledger purchase should be ACTIVE after reconciliation")
		}
	})

	t.Run("declined verification fails the purchase", func(t *testing.T) {
		svc, ledger, gateway := newTestService()
		purchase, _ := seedPendingPurchase(ledger, userID, courseID, "T1")
		gateway.verifyFunc = verifyReturning("D")

		result, err := svc.GetStatus(ctx, purchase.ID, userID)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if result.Status != models.PaymentFailed || result.Purchase.Status != models.PurchaseFailed {
			t.Fatalf("unexpected result: %+v", result)
		}
		if ledger.purchases[purchase.ID].Status != models.PurchaseFailed {
			t.Fatal("ledger purchase should be FAILED")
		}
	})

	t.Run("gateway outage returns last persisted status", func(t *testing.T) {
		svc, ledger, gateway := newTestService()
		purchase, payment := seedPendingPurchase(ledger, userID, courseID, "T1")
		gateway.verifyFunc = func(string) (*paytabs.TransactionStatus, error) {
			return nil, &paytabs.GatewayError{Op: "verify payment", Message: "connection refused"}
		}

		result, err := svc.GetStatus(ctx, purchase.ID, userID)
		if err != nil {
			t.Fatalf("outage must not error the poll, got: %v", err)
		}
		if result.Status != models.PaymentPending {
			t.Fatalf("expected last known PENDING, got %s", result.Status)
		}
		if ledger.payments[payment.ID].Status != models.PaymentPending {
			t.Fatal("outage must not change state")
		}
	})

	t.Run("unknown purchase id", func(t *testing.T) {
		svc, _, _ := newTestService()
		if _, err := svc.GetStatus(ctx, uuid.New(), userID); !errors.Is(err, ErrPurchaseNotFound) {
			t.Fatalf("expected ErrPurchaseNotFound, got: %v", err)
		}
	})

	t.Run("purchase owned by another user is not found", func(t *testing.T) {
		svc, ledger, _ := newTestService()
		purchase, _ := seedPendingPurchase(ledger, userID, courseID, "T1")

		if _, err := svc.GetStatus(ctx, purchase.ID, uuid.New()); !errors.Is(err, ErrPurchaseNotFound) {
			t.Fatalf("expected ErrPurchaseNotFound, got: %v", err)
		}
	})

	t.Run("pending purchase without payment row is an integrity fault", func(t *testing.T) {
		svc, ledger, _ := newTestService()
		purchase := &models.Purchase{ID: uuid.New(), UserID: userID, CourseID: courseID, Status: models.PurchasePending}
		ledger.purchases[purchase.ID] = purchase

		if _, err := svc.GetStatus(ctx, purchase.ID, userID); !errors.Is(err, ErrPaymentRecordMissing) {
			t.Fatalf("expected ErrPaymentRecordMissing, got: %v", err)
		}
	})
}

func TestClassify(t *testing.T) {
	cases := []struct {
		respStatus string
		want       models.PaymentStatus
	}{
		{"A", models.PaymentCompleted},
		{"D", models.PaymentFailed},
		{"E", models.PaymentFailed},
		{"X", models.PaymentFailed},
		{"C", models.PaymentFailed},
		{"V", models.PaymentFailed},
		{"H", models.PaymentPending},
		{"", models.PaymentPending},
		{"Z", models.PaymentPending},
	}
	for _, tc := range cases {
		if got := classify(tc.respStatus); got != tc.want {
			t.Errorf("classify(%q) = %s, want %s", tc.respStatus, got, tc.want)
		}
	}
}
