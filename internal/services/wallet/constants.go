package wallet

// Default configuration values
const (
	DefaultHistoryLimit    = 50
	DefaultMaxHistoryLimit = 200
	DefaultStatsDays       = 30
)

// Operation names used for metrics
const (
	opApplyDelta = "apply_delta"
	opSettle     = "settle_pending"
)
