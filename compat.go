package httpfile

import "io"

// API contract compile-time checks.
var (
	_ io.Reader     = (*File)(nil)
	_ io.Seeker     = (*File)(nil)
	_ io.ReadSeeker = (*File)(nil)
	_ io.ReaderAt   = (*File)(nil)
	_ io.Closer     = (*File)(nil)
	_ Fetcher       = (*ClientFetcher)(nil)
	_ Fetcher       = (*SessionFetcher)(nil)
	_ Fetcher       = (FetcherFunc)(nil)
)
