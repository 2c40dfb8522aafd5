package ingest

import "strings"

// RejectionError is the structured validation outcome for client-caused
// rejections: an ordered problem list, no record created, no bytes stored.
type RejectionError struct {
	Problems []string
}

func (e *RejectionError) Error() string {
	return "image rejected: " + strings.Join(e.Problems, "; ")
}
