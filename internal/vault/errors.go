package vault

import "errors"

// ErrWrongPasswordOrCorrupt is returned when the encrypted vault cannot be
// opened. Deliberately uniform: a wrong master key and corrupt data are
// indistinguishable, and the caller surfaces it as "invalid password".
var ErrWrongPasswordOrCorrupt = errors.New("wrong password or corrupt vault")
