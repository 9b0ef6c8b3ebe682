package reconciler

import (
	"errors"
	"fmt"
)

// ErrSessionAddressMismatch is reported when a builder returns a session bound
// to an address other than the one it was asked to build for.
var ErrSessionAddressMismatch = errors.New("session address does not match the selected account")

const buildFailurePrefix = "Failed to create wallet"

func buildFailureMessage(err error) string {
	if err == nil {
		return buildFailurePrefix
	}
	return fmt.Sprintf("%s: %v", buildFailurePrefix, err)
}
