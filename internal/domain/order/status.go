package order

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every order status in lifecycle order
var Statuses = []Status{StatusPending, StatusPaid, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type PaymentMethod string

const (
	MethodPayOnline   PaymentMethod = "pay-online"
	MethodPayOnPickup PaymentMethod = "pay-on-pickup"
)

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	return m == MethodPayOnline || m == MethodPayOnPickup
}

// ParseStatus returns the status named s
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusPreparing, StatusCancelled},
	StatusPaid:      {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted, StatusCancelled},
	StatusCompleted: {}, // terminal state
	StatusCancelled: {}, // terminal state
}

// CanTransition checks whether from may move to target
func CanTransition(from, target Status) bool {
	for _, s := range validTransitions[from] {
		if s == target {
			return true
		}
	}
	return false
}

// DescribeStatus is the customer-facing text for an order's state
func DescribeStatus(status Status, payment PaymentStatus) string {
	switch status {
	case StatusCancelled:
		return "cancelled"
	case StatusCompleted:
		return "completed"
	case StatusReady:
		return "ready for pickup"
	case StatusPreparing:
		return "being prepared"
	case StatusPaid:
		return "paid, awaiting pickup"
	}
	switch payment {
	case PaymentPaid:
		return "paid, awaiting pickup"
	case PaymentPending:
		return "awaiting payment confirmation"
	}
	return "awaiting pickup"
}
