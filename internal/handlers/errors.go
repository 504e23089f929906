package handlers

import (
	"errors"
	"strconv"

	apperrors "ledgerpay/internal/errors"
	"ledgerpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var statusByCode = map[string]int{
	apperrors.ErrInvalidAmount.Code:           fiber.StatusBadRequest,
	apperrors.ErrInvalidEntryType.Code:        fiber.StatusBadRequest,
	apperrors.ErrSelfTransfer.Code:            fiber.StatusBadRequest,
	apperrors.ErrInvalidTier.Code:             fiber.StatusBadRequest,
	apperrors.ErrInsufficientBalance.Code:     fiber.StatusUnprocessableEntity,
	apperrors.ErrLimitExceeded.Code:           fiber.StatusUnprocessableEntity,
	apperrors.ErrWithdrawExceedsLimit.Code:    fiber.StatusUnprocessableEntity,
	apperrors.ErrCardNotActive.Code:           fiber.StatusConflict,
	apperrors.ErrRecipientWalletInactive.Code: fiber.StatusConflict,
	apperrors.ErrWalletNotFound.Code:          fiber.StatusNotFound,
	apperrors.ErrRecipientNotFound.Code:       fiber.StatusNotFound,
	apperrors.ErrReferenceNotFound.Code:       fiber.StatusNotFound,
	apperrors.ErrCardNotFound.Code:            fiber.StatusNotFound,
	apperrors.ErrTopUpNotFound.Code:           fiber.StatusNotFound,
	apperrors.ErrReferenceForbidden.Code:      fiber.StatusForbidden,
	apperrors.ErrCardForbidden.Code:           fiber.StatusForbidden,
}

// fail writes err as a JSON error. Domain errors keep their message and
// code; anything else is logged and hidden behind a generic 500.
func fail(c *fiber.Ctx, log logrus.FieldLogger, err error) error {
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		status, ok := statusByCode[de.Code]
		if !ok {
			status = fiber.StatusBadRequest
		}
		return response.CodedError(c, status, de.Code, de.Message)
	}
	log.WithError(err).WithField("path", c.Path()).Error("request failed")
	return response.ServerError(c, "internal server error")
}

func unauthorized(c *fiber.Ctx) error {
	return response.Unauthorized(c, "invalid claims")
}

func uintParam(c *fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
