package geocoding

import "fmt"

// BatchTooLargeError rejects an oversized batch before any external call is
// dispatched.
type BatchTooLargeError struct {
	Size int
	Max  int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("too many addresses (%d), maximum batch size is %d", e.Size, e.Max)
}
