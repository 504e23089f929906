package errors

var (
	ErrRecipientNotFound = &DomainError{
		Code:    "RECIPIENT_NOT_FOUND",
		Message: "recipient not found",
	}
	ErrRecipientWalletInactive = &DomainError{
		Code:    "RECIPIENT_WALLET_INACTIVE",
		Message: "recipient wallet is deactivated",
	}
	ErrSelfTransfer = &DomainError{
		Code:    "SELF_TRANSFER",
		Message: "cannot transfer to yourself",
	}
	ErrLimitExceeded = &DomainError{
		Code:    "LIMIT_EXCEEDED",
		Message: "transfer limit exceeded",
	}
	ErrInvalidTier = &DomainError{
		Code:    "INVALID_TIER",
		Message: "unknown transfer tier",
	}
	ErrReferenceNotFound = &DomainError{
		Code:    "REFERENCE_NOT_FOUND",
		Message: "reference code not found",
	}
	ErrReferenceForbidden = &DomainError{
		Code:    "REFERENCE_FORBIDDEN",
		Message: "you did not take part in this transfer",
	}
)
