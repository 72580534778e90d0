package openbo

import "fmt"

type ID interface {
	fmt.Stringer
}

// IDService mints wager ids correlating an allocation with its
// settlement report.
type IDService interface {
	NewID() ID

	NewIDFromString(id string) (ID, error)
}
