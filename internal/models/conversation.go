package models

import "time"

// PendingExchange is the one-shot handshake payload attached to a
// conversation record: the KEM ciphertext addressed to the recipient.
// It is consumed exactly once, by the recipient, on successful decapsulation.
type PendingExchange struct {
	RecipientAccountID string
	KEMCiphertext      []byte
}

// ConversationRecord is the shared mutable document both conversation
// parties can read and write. The record itself carries no key material in
// the clear; Pending transports only a KEM ciphertext.
type ConversationRecord struct {
	ID        string
	Initiator string
	Recipient string
	Pending   *PendingExchange
	CreatedAt time.Time
}
