package session

import "errors"

// ErrVaultLocked is returned when an operation requires an unlocked vault
// and there is no active session. Callers must not retry automatically;
// it signals a stale session or a caller bug.
var ErrVaultLocked = errors.New("vault locked")
