package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/enum"
	"github.com/menucraft/api/internal/service"
	"github.com/shopspring/decimal"
)

var phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)

// MaxVerifyAttempts is how many wrong codes a session may enter before it
// must request a new one.
const MaxVerifyAttempts = 5

// Provider sends and checks phone verification codes.
type Provider interface {
	SendChallenge(ctx context.Context, phone string) (verificationID string, err error)
	// VerifyChallenge reports whether code matches. Unknown or expired ids
	// are a mismatch, not an error.
	VerifyChallenge(ctx context.Context, verificationID, code string) (bool, error)
}

// CustomerLookup finds a returning customer. Satisfied by *service.OrderService.
type CustomerLookup interface {
	LookupCustomer(ctx context.Context, tenantID, phone string) (*database.Customer, error)
}

// Submitter places the order. Satisfied by *service.OrderService.
type Submitter interface {
	CreateOrder(ctx context.Context, tenantID string, in service.OrderInput) (database.Order, error)
}

// CustomerDetails is what the customer fills in on the last step. The phone
// always comes from verification.
type CustomerDetails struct {
	Name                string
	Email               string
	Address             string
	SpecialInstructions string
}

// Summary is the read-only cart overview.
type Summary struct {
	Lines     []CartEntry
	ItemCount int
	Total     decimal.Decimal
}

// View is a copy of a session safe to hand out.
type View struct {
	ID            string
	State         string
	Phone         string
	VerifiedPhone string
	Prefill       *database.Customer
	LastError     string
	Summary       Summary
	Order         *database.Order
}

// Flow drives the PHONE_ENTRY -> OTP_ENTRY -> ORDER_DETAILS checkout.
type Flow struct {
	sessions  *SessionStore
	provider  Provider
	customers CustomerLookup
	orders    Submitter
}

func NewFlow(sessions *SessionStore, provider Provider, customers CustomerLookup, orders Submitter) *Flow {
	return &Flow{sessions: sessions, provider: provider, customers: customers, orders: orders}
}

// Start opens a session for a non-empty cart.
func (f *Flow) Start(tenantID string, entries []CartEntry) (View, error) {
	if len(entries) == 0 {
		return View{}, &service.ValidationError{Field: "items", Message: "cart is empty"}
	}
	cart, err := NewCart(entries)
	if err != nil {
		return View{}, err
	}
	sess := f.sessions.create(tenantID, cart, enum.CheckoutPhoneEntry)
	return viewOf(sess), nil
}

// SendCode dispatches a verification code. Calling it again from
// OTP_ENTRY resends; earlier codes stay valid.
func (f *Flow) SendCode(ctx context.Context, tenantID, sessionID, phone string) (View, error) {
	sess, err := f.lock(tenantID, sessionID)
	if err != nil {
		return View{}, err
	}
	defer sess.mu.Unlock()

	if sess.State != enum.CheckoutPhoneEntry && sess.State != enum.CheckoutOTPEntry {
		return View{}, invalidState(sess.State, "send code")
	}

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return View{}, &service.ValidationError{Field: "phone", Message: "phone is required"}
	}
	if !phonePattern.MatchString(phone) {
		return View{}, &service.ValidationError{Field: "phone", Message: "enter a valid phone number"}
	}

	// A different number starts verification over, once its code is out.
	ids := sess.VerificationIDs
	if phone != sess.Phone {
		ids = nil
	}

	id, err := f.provider.SendChallenge(ctx, phone)
	if err != nil {
		log.Printf("ERROR: send verification code: %v", err)
		sess.LastError = "could not send verification code, please try again"
		return View{}, fmt.Errorf("%w: could not send verification code", ErrAuthChallenge)
	}

	sess.Phone = phone
	sess.VerificationIDs = append(ids, id)
	sess.FailedAttempts = 0
	sess.State = enum.CheckoutOTPEntry
	sess.LastError = ""
	return viewOf(sess), nil
}

// Verify checks the code. A wrong code keeps the session in OTP_ENTRY.
func (f *Flow) Verify(ctx context.Context, tenantID, sessionID, code string) (View, error) {
	sess, err := f.lock(tenantID, sessionID)
	if err != nil {
		return View{}, err
	}
	defer sess.mu.Unlock()

	if sess.State != enum.CheckoutOTPEntry {
		return View{}, invalidState(sess.State, "verify")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return View{}, &service.ValidationError{Field: "code", Message: "code is required"}
	}
	if sess.FailedAttempts >= MaxVerifyAttempts {
		sess.LastError = "too many attempts, request a new code"
		return View{}, fmt.Errorf("%w: too many attempts", ErrAuthChallenge)
	}

	matched := false
	for i := len(sess.VerificationIDs) - 1; i >= 0 && !matched; i-- {
		ok, err := f.provider.VerifyChallenge(ctx, sess.VerificationIDs[i], code)
		if err != nil {
			log.Printf("ERROR: verify code: %v", err)
			sess.LastError = "could not verify code, please try again"
			return View{}, fmt.Errorf("%w: could not verify code", ErrAuthChallenge)
		}
		matched = ok
	}
	if !matched {
		sess.FailedAttempts++
		sess.LastError = "invalid verification code"
		return View{}, fmt.Errorf("%w: invalid verification code", ErrAuthChallenge)
	}

	sess.VerifiedPhone = sess.Phone
	sess.Prefill = nil
	if f.customers != nil {
		c, err := f.customers.LookupCustomer(ctx, tenantID, sess.VerifiedPhone)
		if err != nil {
			log.Printf("ERROR: look up customer: %v", err)
		} else {
			sess.Prefill = c
		}
	}
	sess.State = enum.CheckoutOrderDetails
	sess.LastError = ""
	return viewOf(sess), nil
}

// Back returns to phone entry and forgets verification.
func (f *Flow) Back(tenantID, sessionID string) (View, error) {
	sess, err := f.lock(tenantID, sessionID)
	if err != nil {
		return View{}, err
	}
	defer sess.mu.Unlock()

	if sess.State != enum.CheckoutOTPEntry && sess.State != enum.CheckoutOrderDetails {
		return View{}, invalidState(sess.State, "go back")
	}
	if sess.Order != nil {
		return View{}, invalidState(sess.State, "go back after ordering")
	}

	sess.State = enum.CheckoutPhoneEntry
	sess.VerificationIDs = nil
	sess.FailedAttempts = 0
	sess.VerifiedPhone = ""
	sess.Prefill = nil
	sess.LastError = ""
	return viewOf(sess), nil
}

// Submit places the order for the verified phone. The session id is the
// idempotency key, so a repeated submit returns the same order.
func (f *Flow) Submit(ctx context.Context, tenantID, sessionID string, d CustomerDetails) (View, error) {
	sess, err := f.lock(tenantID, sessionID)
	if err != nil {
		return View{}, err
	}
	defer sess.mu.Unlock()

	if sess.State != enum.CheckoutOrderDetails {
		return View{}, invalidState(sess.State, "submit")
	}
	if sess.Order != nil {
		return viewOf(sess), nil
	}

	name := strings.TrimSpace(d.Name)
	if name == "" {
		return View{}, &service.ValidationError{Field: "customer.name", Message: "name is required"}
	}

	total := sess.Cart.Total()
	order, err := f.orders.CreateOrder(ctx, tenantID, service.OrderInput{
		Customer: &service.CustomerInfo{
			Name:    name,
			Phone:   sess.VerifiedPhone,
			Email:   d.Email,
			Address: d.Address,
		},
		Items:               sess.Cart.OrderItems(),
		Total:               &total,
		SpecialInstructions: d.SpecialInstructions,
		IdempotencyKey:      sess.ID,
	})
	if err != nil {
		var be *service.BackendError
		if errors.As(err, &be) {
			sess.LastError = be.Error()
		} else {
			sess.LastError = err.Error()
		}
		return View{}, err
	}

	sess.Order = &order
	sess.LastError = ""
	return viewOf(sess), nil
}

// Get returns the session as it is now.
func (f *Flow) Get(tenantID, sessionID string) (View, error) {
	sess, err := f.lock(tenantID, sessionID)
	if err != nil {
		return View{}, err
	}
	defer sess.mu.Unlock()
	return viewOf(sess), nil
}

// Summary returns the cart lines, unit count and total.
func (f *Flow) Summary(tenantID, sessionID string) (Summary, error) {
	v, err := f.Get(tenantID, sessionID)
	if err != nil {
		return Summary{}, err
	}
	return v.Summary, nil
}

// --- Helpers ---

func (f *Flow) lock(tenantID, sessionID string) (*Session, error) {
	sess, err := f.sessions.get(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	return sess, nil
}

func invalidState(state, op string) error {
	return fmt.Errorf("%w: cannot %s in %s", ErrInvalidState, op, state)
}

func viewOf(s *Session) View {
	v := View{
		ID:            s.ID,
		State:         s.State,
		Phone:         s.Phone,
		VerifiedPhone: s.VerifiedPhone,
		LastError:     s.LastError,
		Summary: Summary{
			Lines:     s.Cart.Lines(),
			ItemCount: s.Cart.Count(),
			Total:     s.Cart.Total(),
		},
	}
	if s.Prefill != nil {
		c := *s.Prefill
		v.Prefill = &c
	}
	if s.Order != nil {
		o := *s.Order
		v.Order = &o
	}
	return v
}
