package core

// TxStatus is the terminal status of a transaction event.
type TxStatus string

const (
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

// Error codes from the payment rail taxonomy.
const (
	ErrIssuerDecline     = "ERR_ISSUER_DECLINE"
	ErrTimeout           = "ERR_TIMEOUT"
	ErrInsufficientFunds = "ERR_INSUFFICIENT_FUNDS"
	ErrNetworkError      = "ERR_NETWORK_ERROR"
	ErrRateLimited       = "ERR_RATE_LIMITED"
	ErrBankUnavailable   = "ERR_BANK_UNAVAILABLE"
	ErrRetryExhausted    = "ERR_RETRY_EXHAUSTED"
	ErrMethodUnsupported = "ERR_METHOD_UNSUPPORTED"
)

// Fixed entity catalogs. The event source only emits values from these.
var (
	Issuers   = []string{"Chase", "Citi", "BoA", "Wells", "Amex", "Capital1", "Discover", "HSBC"}
	Methods   = []string{"credit_card", "debit_card", "digital_wallet", "bank_transfer", "buy_now_pay_later"}
	Merchants = []string{"ShopFast", "TravelPlus", "FoodDelivery", "GameStore", "HealthHub", "FashionX", "AutoParts", "ElectroMart"}
	Regions   = []string{"US-East", "US-West", "EU", "APAC"}
)

// TransactionEvent is a single observed payment transaction. Events are
// immutable: they are appended once to the memory store and eventually
// evicted oldest-first, never mutated.
type TransactionEvent struct {
	ID         string   `json:"id"`
	Timestamp  int64    `json:"timestamp"` // milliseconds since epoch
	Issuer     string   `json:"issuer"`
	Method     string   `json:"method"`
	Merchant   string   `json:"merchant"`
	Amount     float64  `json:"amount"`
	Status     TxStatus `json:"status"`
	ErrorCode  string   `json:"errorCode,omitempty"`
	LatencyMS  int64    `json:"latency"`
	RetryCount int      `json:"retryCount"`
	Region     string   `json:"region"`
}

// Failed reports whether the event ended in failure.
func (e TransactionEvent) Failed() bool {
	return e.Status == TxFailed
}

// EntityProfile is a cumulative, process-lifetime accumulator for a single
// issuer or payment method. Profiles are never reset or windowed; windowed
// views are always recomputed from the raw buffer.
type EntityProfile struct {
	Total          int            `json:"total"`
	Successes      int            `json:"successes"`
	Failures       int            `json:"failures"`
	TotalLatencyMS int64          `json:"totalLatency"`
	Errors         map[string]int `json:"errors"`
}

// NewEntityProfile returns an empty profile.
func NewEntityProfile() *EntityProfile {
	return &EntityProfile{Errors: make(map[string]int)}
}

// Observe folds one event into the profile.
func (p *EntityProfile) Observe(e TransactionEvent) {
	p.Total++
	p.TotalLatencyMS += e.LatencyMS
	if e.Failed() {
		p.Failures++
		if e.ErrorCode != "" {
			p.Errors[e.ErrorCode]++
		}
	} else {
		p.Successes++
	}
}

// Suppression is a time-bounded directive to exclude an issuer or method
// from normal routing. Suppressions self-expire; lookups purge expired
// entries on the way out.
type Suppression struct {
	Reason       string `json:"reason"`
	SuppressedAt int64  `json:"suppressedAt"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// Expired reports whether the suppression has lapsed at the given time.
func (s Suppression) Expired(nowMS int64) bool {
	return nowMS >= s.ExpiresAt
}

// SuppressionSet is a snapshot of the live suppression registry.
type SuppressionSet struct {
	Issuers map[string]Suppression `json:"issuers"`
	Methods map[string]Suppression `json:"methods"`
}
