package analysis

import (
	"errors"
	"fmt"
)

// ErrEmptyDataset indicates the source file produced zero rows.
var ErrEmptyDataset = errors.New("no data found in the source file")

// DatasetTooLargeError is the cost-control gate on row count. It fires before
// any geo computation happens.
type DatasetTooLargeError struct {
	Count int
	Max   int
}

func (e *DatasetTooLargeError) Error() string {
	return fmt.Sprintf("the source file contains too many locations (%d), maximum allowed is %d", e.Count, e.Max)
}
