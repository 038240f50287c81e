package stock

import "errors"

// ErrLedgerUnavailable wraps failures of the upstream stock ledger query.
var ErrLedgerUnavailable = errors.New("stock ledger unavailable")
