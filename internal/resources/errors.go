package resources

import (
	"errors"
	"fmt"
)

var (
	// ErrStagingIO reports a scratch directory failure; no attachment was touched.
	ErrStagingIO = errors.New("resources: staging io failure")
	// ErrAttachmentWrite reports that the attachment store rejected a create or update.
	ErrAttachmentWrite = errors.New("resources: attachment write failed")
	// ErrBrokenLink reports an SVG attachment whose title does not name its JSON sibling.
	ErrBrokenLink = errors.New("resources: broken link")
	// ErrNotFound reports a missing attachment.
	ErrNotFound = errors.New("resources: attachment not found")
)

// PairWriteError is returned by CreatePair when the JSON attachment was
// written but the SVG attachment was not. Cleaned reports whether the JSON
// attachment could be deleted again; when false it is orphaned.
type PairWriteError struct {
	JSONID  string
	Cleaned bool
	Err     error
}

func (e *PairWriteError) Error() string {
	state := "orphaned"
	if e.Cleaned {
		state = "removed"
	}
	return fmt.Sprintf("resources: svg write failed, json attachment %s %s: %v", e.JSONID, state, e.Err)
}

func (e *PairWriteError) Unwrap() error {
	return e.Err
}
