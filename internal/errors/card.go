package errors

var (
	ErrCardNotFound = &DomainError{
		Code:    "CARD_NOT_FOUND",
		Message: "card not found",
	}
	ErrCardNotActive = &DomainError{
		Code:    "CARD_NOT_ACTIVE",
		Message: "card is not active",
	}
	ErrCardForbidden = &DomainError{
		Code:    "CARD_FORBIDDEN",
		Message: "card belongs to another user",
	}
	ErrWithdrawExceedsLimit = &DomainError{
		Code:    "WITHDRAW_EXCEEDS_LIMIT",
		Message: "withdrawal exceeds the card spending limit",
	}
	ErrTopUpNotFound = &DomainError{
		Code:    "TOPUP_NOT_FOUND",
		Message: "top-up not found",
	}
)
