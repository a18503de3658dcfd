/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import (
	"errors"
	"fmt"
)

// ErrUnsupportedRange reports that the server rejected suffix-range
// semantics (HTTP 501). Open swallows it once to fall back to HEAD;
// anywhere else it is fatal.
var ErrUnsupportedRange = errors.New("suffix range not supported")

// ErrInvalidWhence reports an unrecognized whence value passed to Seek.
var ErrInvalidWhence = errors.New("httpfile: invalid whence")

// TruncatedReadError reports a range fetch whose body did not match
// the requested length. It means the resource shrank mid-session or
// the server does not honor Range faithfully.
type TruncatedReadError struct {
	Want int64
	Got  int64
}

func (e *TruncatedReadError) Error() string {
	return fmt.Sprintf("httpfile: truncated read: want %d bytes, got %d", e.Want, e.Got)
}

// ResourceChangedError reports an ETag that changed between two
// fetches while consistency checking was enabled. Cached offsets are
// no longer trustworthy; the caller should reopen the resource.
type ResourceChangedError struct {
	Old string
	New string
}

func (e *ResourceChangedError) Error() string {
	return fmt.Sprintf("httpfile: resource changed: previous etag was %q, new one is %q", e.Old, e.New)
}

// StatusError reports a non-2xx HTTP outcome other than 501.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpfile: %s returned %s", e.URL, e.Status)
}
