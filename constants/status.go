package constants

// Booking statuses. A booking may move Pending -> Confirmed, never back.
const (
	BookingPending   = "Pending"
	BookingConfirmed = "Confirmed"
)

// Ticket statuses
const (
	TicketNew        = "New"
	TicketInProgress = "In Progress"
	TicketOnHold     = "On Hold"
	TicketResolved   = "Resolved"
	TicketClosed     = "Closed"
)

// Ticket priorities
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"
)

// Stock item statuses
const (
	StockAvailable = "Available"
)

// AnonymousUserID is the id carried by requests without credentials.
const AnonymousUserID uint = 0

// Priorities in ascending order.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
