package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderStatuses lists every accepted order status. Any status may follow any other.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func IsOrderStatus(s string) bool {
	for _, st := range OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

const (
	UserRoleOwner = "OWNER"
	UserRoleStaff = "STAFF"
)

// ── Group B: In-memory state machines (no DB constraint) ──

const (
	CheckoutPhoneEntry   = "PHONE_ENTRY"
	CheckoutOTPEntry     = "OTP_ENTRY"
	CheckoutOrderDetails = "ORDER_DETAILS"
)

// ── Group C: Live feed event types ──

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventCatalogUpdated     = "catalog.updated"
	EventNotification       = "notification"
	EventFocus              = "focus"
)
