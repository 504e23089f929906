package models

import "fmt"

// MetadataSchemaVersion is bumped whenever the keys below change meaning.
const MetadataSchemaVersion = 1

// Metadata keys by entry type (schema v1):
//
//	transfer_out   note, counterparty_id, fee_rate
//	transfer_in    note, counterparty_id
//	platform_fee   fee_rate, transfer_amount, counterparty_id
//	cashback       order_id, order_amount, cashback_rate
//	purchase       order_id
//	burn, mint     reason
//	card_funding   card_id, processor_card_id, previous_limit, new_limit
//	card_withdrawal card_id, processor_card_id, previous_limit, new_limit
//	topup          payment_intent_id, currency
//	reward, bonus, penalty, referral  reason, source
const (
	MetaSchema          = "schema"
	MetaNote            = "note"
	MetaCounterpartyID  = "counterparty_id"
	MetaFeeRate         = "fee_rate"
	MetaTransferAmount  = "transfer_amount"
	MetaOrderID         = "order_id"
	MetaOrderAmount     = "order_amount"
	MetaCashbackRate    = "cashback_rate"
	MetaReason          = "reason"
	MetaSource          = "source"
	MetaCardID          = "card_id"
	MetaProcessorCardID = "processor_card_id"
	MetaPreviousLimit   = "previous_limit"
	MetaNewLimit        = "new_limit"
	MetaPaymentIntentID = "payment_intent_id"
	MetaCurrency        = "currency"
)

// NewMetadata stamps fields with the schema tag for entryType. Nil fields
// yield a map holding only the tag.
func NewMetadata(entryType EntryType, fields map[string]interface{}) JSON {
	out := JSON{MetaSchema: fmt.Sprintf("%s.v%d", entryType, MetadataSchemaVersion)}
	for k, v := range fields {
		if k == MetaSchema {
			continue
		}
		out[k] = v
	}
	return out
}
