package validation

func Transfer(toUserID uint, note string) *Validator {
	v := New()
	v.RequiredID("to_user_id", toUserID)
	v.MaxLength("note", note, MaxNoteLength)
	return v
}

// WalletOperation validates an admin credit or debit. Order-based
// operations need the order id, the others only a bounded reason.
func WalletOperation(byOrder bool, reason, orderID string) *Validator {
	v := New()
	if byOrder {
		v.Required("order_id", orderID)
		v.MaxLength("order_id", orderID, MaxOrderIDLength)
	}
	v.MaxLength("reason", reason, MaxReasonLength)
	return v
}

func TopUp(currency string) *Validator {
	v := New()
	v.Currency("currency", currency)
	return v
}

func CardLink(processorCardID string) *Validator {
	v := New()
	v.Required("processor_card_id", processorCardID)
	if v.Valid() {
		v.ProcessorID("processor_card_id", processorCardID, "ic")
	}
	return v
}

func ReferenceCode(code string) *Validator {
	v := New()
	v.Reference("code", code)
	return v
}
