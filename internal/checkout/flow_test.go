package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/enum"
	"github.com/menucraft/api/internal/service"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

type mockProvider struct {
	codes   map[string]string // verification id -> code
	sendErr error
	sent    []string
}

func newMockProvider() *mockProvider {
	return &mockProvider{codes: map[string]string{}}
}

func (m *mockProvider) SendChallenge(ctx context.Context, phone string) (string, error) {
	if m.sendErr != nil {
		return "", m.sendErr
	}
	id := uuid.NewString()
	code := []string{"111111", "222222", "333333"}[len(m.sent)%3]
	m.codes[id] = code
	m.sent = append(m.sent, phone)
	return id, nil
}

func (m *mockProvider) VerifyChallenge(ctx context.Context, id, code string) (bool, error) {
	return m.codes[id] == code, nil
}

type mockLookup struct {
	customer *database.Customer
	err      error
}

func (m *mockLookup) LookupCustomer(ctx context.Context, tenantID, phone string) (*database.Customer, error) {
	return m.customer, m.err
}

type mockSubmitter struct {
	calls []service.OrderInput
	err   error
}

func (m *mockSubmitter) CreateOrder(ctx context.Context, tenantID string, in service.OrderInput) (database.Order, error) {
	m.calls = append(m.calls, in)
	if m.err != nil {
		return database.Order{}, m.err
	}
	return database.Order{
		ID:            uuid.New(),
		TenantID:      tenantID,
		OrderNumber:   "ORD-123456789",
		CustomerName:  in.Customer.Name,
		CustomerPhone: in.Customer.Phone,
		Status:        enum.OrderStatusPending,
	}, nil
}

// --- Test helpers ---

type flowFixture struct {
	flow      *Flow
	provider  *mockProvider
	lookup    *mockLookup
	submitter *mockSubmitter
}

func newFlowFixture() *flowFixture {
	f := &flowFixture{
		provider:  newMockProvider(),
		lookup:    &mockLookup{},
		submitter: &mockSubmitter{},
	}
	f.flow = NewFlow(NewSessionStore(0), f.provider, f.lookup, f.submitter)
	return f
}

func sampleEntries() []CartEntry {
	return []CartEntry{
		{ItemID: "tikka", Name: "Chicken Tikka", Price: decimal.RequireFromString("12.50"), Quantity: 2},
		{ItemID: "lassi", Name: "Mango Lassi", Price: decimal.RequireFromString("4.25"), Quantity: 1},
	}
}

// verified walks a fresh session to ORDER_DETAILS.
func (f *flowFixture) verified(t *testing.T) View {
	t.Helper()
	ctx := context.Background()
	v, err := f.flow.Start("pameer", sampleEntries())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.flow.SendCode(ctx, "pameer", v.ID, "+61 400 000 000"); err != nil {
		t.Fatalf("send code: %v", err)
	}
	v, err = f.flow.Verify(ctx, "pameer", v.ID, "111111")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	return v
}

// =====================
// Transition tests
// =====================

func TestStart_EmptyCart(t *testing.T) {
	f := newFlowFixture()
	if _, err := f.flow.Start("pameer", nil); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStart_InitialState(t *testing.T) {
	f := newFlowFixture()
	v, err := f.flow.Start("pameer", sampleEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.State != enum.CheckoutPhoneEntry {
		t.Errorf("state: got %s, want %s", v.State, enum.CheckoutPhoneEntry)
	}
	if v.Summary.Total.StringFixed(2) != "29.25" || v.Summary.ItemCount != 3 {
		t.Errorf("summary: %+v", v.Summary)
	}
}

func TestSendCode_ValidatesPhoneBeforeDispatch(t *testing.T) {
	tests := []string{"", "   ", "12345", "call me maybe", "+61-abc-000-000"}
	for _, phone := range tests {
		f := newFlowFixture()
		v, _ := f.flow.Start("pameer", sampleEntries())

		_, err := f.flow.SendCode(context.Background(), "pameer", v.ID, phone)
		if !errors.Is(err, service.ErrValidation) {
			t.Errorf("phone %q: expected ErrValidation, got %v", phone, err)
		}
		if len(f.provider.sent) != 0 {
			t.Errorf("phone %q: provider must not be called", phone)
		}
	}
}

func TestSendCode_AcceptsFormattedPhones(t *testing.T) {
	for _, phone := range []string{"+61 400 000 000", "(02) 9999-1234", "0400000000"} {
		f := newFlowFixture()
		v, _ := f.flow.Start("pameer", sampleEntries())

		got, err := f.flow.SendCode(context.Background(), "pameer", v.ID, phone)
		if err != nil {
			t.Errorf("phone %q: unexpected error: %v", phone, err)
			continue
		}
		if got.State != enum.CheckoutOTPEntry {
			t.Errorf("phone %q: state %s", phone, got.State)
		}
	}
}

func TestSendCode_ProviderFailureKeepsState(t *testing.T) {
	f := newFlowFixture()
	f.provider.sendErr = errors.New("sms gateway down")
	v, _ := f.flow.Start("pameer", sampleEntries())

	_, err := f.flow.SendCode(context.Background(), "pameer", v.ID, "0400000000")
	if !errors.Is(err, ErrAuthChallenge) {
		t.Fatalf("expected ErrAuthChallenge, got %v", err)
	}
	got, _ := f.flow.Get("pameer", v.ID)
	if got.State != enum.CheckoutPhoneEntry {
		t.Errorf("state should stay PHONE_ENTRY, got %s", got.State)
	}
}

func TestSendCode_FailedResendToNewNumberKeepsPendingCode(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, _ := f.flow.Start("pameer", sampleEntries())
	if _, err := f.flow.SendCode(ctx, "pameer", v.ID, "+61 400 000 000"); err != nil {
		t.Fatalf("first send: %v", err)
	}

	f.provider.sendErr = errors.New("sms gateway down")
	_, err := f.flow.SendCode(ctx, "pameer", v.ID, "+61 499 999 999")
	if !errors.Is(err, ErrAuthChallenge) {
		t.Fatalf("expected ErrAuthChallenge, got %v", err)
	}

	got, _ := f.flow.Get("pameer", v.ID)
	if got.State != enum.CheckoutOTPEntry {
		t.Errorf("state should stay OTP_ENTRY, got %s", got.State)
	}
	if got.Phone != "+61 400 000 000" {
		t.Errorf("phone should stay on the first number, got %q", got.Phone)
	}

	got, err = f.flow.Verify(ctx, "pameer", v.ID, "111111")
	if err != nil {
		t.Fatalf("code sent before the failed resend should verify: %v", err)
	}
	if got.VerifiedPhone != "+61 400 000 000" {
		t.Errorf("verified phone: got %q", got.VerifiedPhone)
	}
}

func TestVerify_LocksAfterTooManyWrongCodes(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, _ := f.flow.Start("pameer", sampleEntries())
	f.flow.SendCode(ctx, "pameer", v.ID, "0400000000")

	for i := 0; i < MaxVerifyAttempts; i++ {
		if _, err := f.flow.Verify(ctx, "pameer", v.ID, "999999"); !errors.Is(err, ErrAuthChallenge) {
			t.Fatalf("attempt %d: expected ErrAuthChallenge, got %v", i+1, err)
		}
	}

	// the right code no longer helps
	_, err := f.flow.Verify(ctx, "pameer", v.ID, "111111")
	if !errors.Is(err, ErrAuthChallenge) {
		t.Fatalf("expected lockout, got %v", err)
	}
	got, _ := f.flow.Get("pameer", v.ID)
	if got.State != enum.CheckoutOTPEntry {
		t.Errorf("state should stay OTP_ENTRY, got %s", got.State)
	}

	// a new code unlocks verification
	if _, err := f.flow.SendCode(ctx, "pameer", v.ID, "0400000000"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	got, err = f.flow.Verify(ctx, "pameer", v.ID, "222222")
	if err != nil || got.State != enum.CheckoutOrderDetails {
		t.Fatalf("verify after resend: %v, %s", err, got.State)
	}
}

func TestVerify_WrongCodeStaysInOTPEntry(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, _ := f.flow.Start("pameer", sampleEntries())
	f.flow.SendCode(ctx, "pameer", v.ID, "0400000000")

	_, err := f.flow.Verify(ctx, "pameer", v.ID, "999999")
	if !errors.Is(err, ErrAuthChallenge) {
		t.Fatalf("expected ErrAuthChallenge, got %v", err)
	}
	got, _ := f.flow.Get("pameer", v.ID)
	if got.State != enum.CheckoutOTPEntry || got.LastError == "" {
		t.Errorf("got state %s, last error %q", got.State, got.LastError)
	}

	// the right code still works after a miss
	got, err = f.flow.Verify(ctx, "pameer", v.ID, "111111")
	if err != nil || got.State != enum.CheckoutOrderDetails {
		t.Fatalf("verify after miss: %v, %s", err, got.State)
	}
	if got.LastError != "" {
		t.Errorf("last error should be cleared, got %q", got.LastError)
	}
}

func TestVerify_ResentCodeKeepsEarlierValid(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, _ := f.flow.Start("pameer", sampleEntries())
	f.flow.SendCode(ctx, "pameer", v.ID, "0400000000")
	if _, err := f.flow.SendCode(ctx, "pameer", v.ID, "0400000000"); err != nil {
		t.Fatalf("resend: %v", err)
	}

	got, err := f.flow.Verify(ctx, "pameer", v.ID, "111111")
	if err != nil || got.State != enum.CheckoutOrderDetails {
		t.Fatalf("first code should still verify: %v", err)
	}
}

func TestVerify_BlankCode(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, _ := f.flow.Start("pameer", sampleEntries())
	f.flow.SendCode(ctx, "pameer", v.ID, "0400000000")

	if _, err := f.flow.Verify(ctx, "pameer", v.ID, "  "); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestVerify_Prefill(t *testing.T) {
	f := newFlowFixture()
	f.lookup.customer = &database.Customer{Name: "Asha", Phone: "+61 400 000 000"}

	v := f.verified(t)
	if v.Prefill == nil || v.Prefill.Name != "Asha" {
		t.Errorf("prefill: got %+v", v.Prefill)
	}
	if v.VerifiedPhone != "+61 400 000 000" {
		t.Errorf("verified phone: got %q", v.VerifiedPhone)
	}
}

func TestVerify_LookupFailureDegrades(t *testing.T) {
	f := newFlowFixture()
	f.lookup.err = errors.New("db down")

	v := f.verified(t)
	if v.State != enum.CheckoutOrderDetails || v.Prefill != nil {
		t.Errorf("got state %s prefill %+v", v.State, v.Prefill)
	}
}

func TestInvalidTransitions(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, _ := f.flow.Start("pameer", sampleEntries())

	if _, err := f.flow.Verify(ctx, "pameer", v.ID, "111111"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("verify from PHONE_ENTRY: got %v", err)
	}
	if _, err := f.flow.Back("pameer", v.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("back from PHONE_ENTRY: got %v", err)
	}
	if _, err := f.flow.Submit(ctx, "pameer", v.ID, CustomerDetails{Name: "Asha"}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("submit from PHONE_ENTRY: got %v", err)
	}

	v = f.verified(t)
	if _, err := f.flow.SendCode(ctx, "pameer", v.ID, "0400000000"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("send code from ORDER_DETAILS: got %v", err)
	}
}

func TestBack_DiscardsVerification(t *testing.T) {
	f := newFlowFixture()
	f.lookup.customer = &database.Customer{Name: "Asha"}
	v := f.verified(t)

	got, err := f.flow.Back("pameer", v.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.State != enum.CheckoutPhoneEntry || got.VerifiedPhone != "" || got.Prefill != nil {
		t.Errorf("got %+v", got)
	}
	if got.Summary.ItemCount != 3 {
		t.Error("cart should survive going back")
	}
}

// =====================
// Submit tests
// =====================

func TestSubmit_ForcesVerifiedPhone(t *testing.T) {
	f := newFlowFixture()
	v := f.verified(t)

	got, err := f.flow.Submit(context.Background(), "pameer", v.ID, CustomerDetails{
		Name:                " Asha ",
		Email:               "asha@example.com",
		SpecialInstructions: "ring the bell",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Order == nil || got.Order.OrderNumber != "ORD-123456789" {
		t.Fatalf("order: %+v", got.Order)
	}

	in := f.submitter.calls[0]
	if in.Customer.Phone != "+61 400 000 000" || in.Customer.Name != "Asha" {
		t.Errorf("customer: %+v", in.Customer)
	}
	if in.IdempotencyKey != v.ID {
		t.Errorf("idempotency key: got %q, want session id", in.IdempotencyKey)
	}
	if len(in.Items) != 2 || in.Total.StringFixed(2) != "29.25" {
		t.Errorf("items %d total %s", len(in.Items), in.Total)
	}
	if in.SpecialInstructions != "ring the bell" {
		t.Errorf("instructions: %q", in.SpecialInstructions)
	}
}

func TestSubmit_NameRequired(t *testing.T) {
	f := newFlowFixture()
	v := f.verified(t)

	if _, err := f.flow.Submit(context.Background(), "pameer", v.ID, CustomerDetails{Name: " "}); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(f.submitter.calls) != 0 {
		t.Error("submitter must not be called")
	}
}

func TestSubmit_FailureKeepsOrderDetails(t *testing.T) {
	f := newFlowFixture()
	f.submitter.err = &service.BackendError{Op: "create order", Err: errors.New("timeout")}
	v := f.verified(t)

	_, err := f.flow.Submit(context.Background(), "pameer", v.ID, CustomerDetails{Name: "Asha"})
	var be *service.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	got, _ := f.flow.Get("pameer", v.ID)
	if got.State != enum.CheckoutOrderDetails || got.Order != nil {
		t.Errorf("got %+v", got)
	}
	if got.LastError != "failed to create order, please try again" {
		t.Errorf("last error: %q", got.LastError)
	}

	f.submitter.err = nil
	got, err = f.flow.Submit(context.Background(), "pameer", v.ID, CustomerDetails{Name: "Asha"})
	if err != nil || got.Order == nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestSubmit_RepeatReturnsSameOrder(t *testing.T) {
	f := newFlowFixture()
	v := f.verified(t)
	ctx := context.Background()

	first, err := f.flow.Submit(ctx, "pameer", v.ID, CustomerDetails{Name: "Asha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.flow.Submit(ctx, "pameer", v.ID, CustomerDetails{Name: "Asha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Order.ID != second.Order.ID || len(f.submitter.calls) != 1 {
		t.Errorf("expected one order, got %d submissions", len(f.submitter.calls))
	}
	if _, err := f.flow.Back("pameer", v.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("back after ordering: got %v", err)
	}
}

// =====================
// Session tests
// =====================

func TestSession_TenantScopedAndExpiring(t *testing.T) {
	f := newFlowFixture()
	v, _ := f.flow.Start("pameer", sampleEntries())

	if _, err := f.flow.Get("saffron", v.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("other tenant: got %v", err)
	}
	if _, err := f.flow.Get("pameer", "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown id: got %v", err)
	}

	now := time.Now()
	f.flow.sessions.now = func() time.Time { return now.Add(DefaultSessionTTL + time.Minute) }
	if _, err := f.flow.Get("pameer", v.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired: got %v", err)
	}
}

func TestSessionStore_Sweep(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	store.create("pameer", &Cart{}, enum.CheckoutPhoneEntry)

	store.now = func() time.Time { return now.Add(2 * time.Minute) }
	store.create("pameer", &Cart{}, enum.CheckoutPhoneEntry)

	if n := store.Sweep(); n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	if store.Len() != 1 {
		t.Errorf("remaining %d, want 1", store.Len())
	}
}
