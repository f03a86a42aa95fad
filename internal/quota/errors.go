package quota

import (
	"errors"
	"fmt"
)

// Common errors returned by the quota ledger.
var (
	// ErrQuotaExceeded is returned when a reservation asks for more credits
	// than the user has remaining. The batch never starts and nothing is
	// charged.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrDailyLimitExceeded is returned when a reservation would push the
	// user past their tier's daily image cap.
	ErrDailyLimitExceeded = fmt.Errorf("%w: daily image limit reached", ErrQuotaExceeded)

	// ErrOnDemandNotAllowed is returned when a tier without on-demand access
	// requests an ad-hoc regeneration.
	ErrOnDemandNotAllowed = fmt.Errorf("%w: tier does not allow on-demand generation", ErrQuotaExceeded)

	// ErrReservationNotFound is returned when committing or releasing a
	// reservation the ledger does not know about.
	ErrReservationNotFound = errors.New("reservation not found")
)
