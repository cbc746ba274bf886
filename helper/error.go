package helper

import "fmt"

// NewError wraps an error with the operation that failed. The wrapped error
// stays reachable for errors.Is/errors.As checks.
func NewError(context string, err error) error {
	return fmt.Errorf("error in %s: %w", context, err)
}
