package exchange

import "errors"

var (
	// ErrConversationExists is returned when Initiate is called for a
	// conversation that already has a record. Re-running the handshake
	// would mint a second, different shared secret.
	ErrConversationExists = errors.New("conversation already established")

	// ErrNoPendingExchange is returned when Respond finds no pending
	// exchange addressed to the active account.
	ErrNoPendingExchange = errors.New("no pending exchange for this account")
)
