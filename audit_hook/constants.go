package audithook

// Action constants for audit events.
const (
	// Subscription actions
	ActionSubscriptionCreated   = "subscription.created"
	ActionSubscriptionPaused    = "subscription.paused"
	ActionSubscriptionResumed   = "subscription.resumed"
	ActionSubscriptionCancelled = "subscription.cancelled"

	// Funds actions
	ActionFundsDeposited      = "funds.deposited"
	ActionSubscriptionCharged = "funds.charged"
	ActionMerchantWithdrawal  = "funds.withdrawn"
)

// Resource constants for audit events.
const (
	ResourceSubscription = "subscription"
	ResourceMerchant     = "merchant"
)

// Category constants for audit events.
const (
	CategorySubscription = "subscription"
	CategoryPayment      = "payment"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
