package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/fiado/backend/internal/domain/shared"
)

// Application error codes
var (
	ErrStoreReadFailed    = shared.NewDomainError("STORE_READ_FAILED", "Failed to read credit data from the store")
	ErrRequestInProgress  = shared.NewDomainError("REQUEST_IN_PROGRESS", "A request with this idempotency key is still being processed")
	ErrInstallmentSettled = shared.NewDomainError("INSTALLMENT_ALREADY_PAID", "Installment is already paid")
	ErrClientNotFound     = shared.NewDomainError("CLIENT_NOT_FOUND", "Client not found")
	ErrSaleNotFound       = shared.NewDomainError("SALE_NOT_FOUND", "Sale not found")
	ErrInstallmentMissing = shared.NewDomainError("INSTALLMENT_NOT_FOUND", "Installment not found")
)

func validationError(message string) error {
	return shared.NewDomainError(shared.ErrInvalidInput.Code, message)
}

// storeReadFailed tags a read error so callers can tell nothing was written.
// Missing rows and caller-side failures (rejected credentials, cancelled
// request) pass through untagged.
func storeReadFailed(op string, err error) error {
	if isNotFound(err) || errors.Is(err, shared.ErrUnauthorized) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return fmt.Errorf("failed to %s: %w: %w", op, ErrStoreReadFailed, err)
}

// notFoundAs maps a repository not-found error to a specific code
func notFoundAs(err error, target *shared.DomainError) error {
	if errors.Is(err, shared.ErrNotFound) {
		return target
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrSaleNotFound) ||
		errors.Is(err, ErrInstallmentMissing)
}
