// -----------------------------------------------------------------------
// Panic recovery for per-stock and scheduled work
// -----------------------------------------------------------------------

package common

import "fmt"

// RecoverToError converts a panic in fn into an error, used around
// per-stock work so one bad record cannot abort a whole batch.
func RecoverToError(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", name, r)
		}
	}()
	return fn()
}
