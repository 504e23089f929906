package funding

import (
	"ledgerpay/internal/models"

	"github.com/shopspring/decimal"
)

type Config struct {
	Currency string
}

// Result is returned by FundCard and WithdrawToWallet.
type Result struct {
	Card          *models.Card            `json:"card"`
	Transaction   *models.CardTransaction `json:"transaction"`
	Entry         *models.LedgerEntry     `json:"entry"`
	WalletBalance decimal.Decimal         `json:"wallet_balance"`
}

// WebhookResult tells the transport what happened to an event. Approved
// is only meaningful for authorization requests.
type WebhookResult struct {
	EventType   string                  `json:"event_type"`
	Handled     bool                    `json:"handled"`
	Approved    *bool                   `json:"approved,omitempty"`
	Transaction *models.CardTransaction `json:"transaction,omitempty"`
}
