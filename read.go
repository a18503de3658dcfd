package httpfile

import (
	"fmt"
	"io"
	"net/http"
)

// ReadN returns exactly n bytes starting at the cursor and advances
// the cursor by n. n < 0 means everything remaining; n == 0 returns
// nil without moving the cursor or touching the network.
//
// A read that starts inside the cached tail is served from memory with
// zero fetches. Anything else costs exactly one bounded range fetch,
// whose body must come back at the requested length: a short body is a
// TruncatedReadError, the signal that the resource shrank or the
// server ignored the Range header.
//
// The caller is trusted not to read past end of file; no clamping is
// done here. Cache-served reads that run past the cached region come
// back short without error (the cache is the tail, so in practice
// this only happens past EOF).
func (f *File) ReadN(n int64) ([]byte, error) {
	if n < 0 {
		n = f.length - f.pos
	}
	if n == 0 {
		return nil, nil
	}

	if p := f.pos - f.cacheStart; p >= 0 {
		f.stats.CacheHits++
		f.pos += n
		lo := min(p, int64(len(f.cache)))
		hi := min(p+n, int64(len(f.cache)))
		// Copy so the caller cannot scribble on the cached tail.
		b := make([]byte, hi-lo)
		copy(b, f.cache[lo:hi])
		return b, nil
	}

	f.stats.Requests++
	resp, err := f.fetch.Fetch(f.url, fmt.Sprintf("bytes=%d-%d", f.pos, f.pos+n-1), http.MethodGet)
	if err != nil {
		return nil, err
	}
	f.stats.LazyBytes += n
	f.pos += n

	if int64(len(resp.Body)) != n {
		return nil, &TruncatedReadError{Want: n, Got: int64(len(resp.Body))}
	}

	if resp.URL != "" && resp.URL != f.url {
		debug("redirected on subsequent read", f.url, "->", resp.URL)
		f.url = resp.URL
	}
	if resp.ETag != "" {
		// Learning an ETag only on a later request is odd but legal.
		if f.etag == "" {
			f.etag = resp.ETag
		} else if f.checkETag && f.etag != resp.ETag {
			return nil, &ResourceChangedError{Old: f.etag, New: resp.ETag}
		}
	}
	return resp.Body, nil
}

// Read implements io.Reader. Unlike ReadN it clamps to end of file and
// reports io.EOF there, so sequential consumers behave as with a local
// file.
func (f *File) Read(p []byte) (int, error) {
	if f.pos >= f.length {
		return 0, io.EOF
	}
	n := int64(len(p))
	if rem := f.length - f.pos; n > rem {
		n = rem
	}
	b, err := f.ReadN(n)
	copy(p, b)
	return len(b), err
}

// Seek implements io.Seeker. The cursor is not bounds-checked: an
// out-of-range position only surfaces when a later read issues an
// unsatisfiable range request.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.pos = offset
	case io.SeekCurrent:
		f.pos += offset
	case io.SeekEnd:
		f.pos = f.length + offset
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidWhence, whence)
	}
	return f.pos, nil
}

// Tell returns the current cursor position.
func (f *File) Tell() int64 { return f.pos }

// Seekable reports whether the file supports Seek. Always true; the
// method exists for callers that probe file-like objects.
func (f *File) Seekable() bool { return true }

// ReadAt reads len(p) bytes from offset off. It repositions the single
// cursor and is therefore NOT safe for concurrent use, but it is what
// archive/zip needs, and zip readers call it sequentially.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.length {
		return 0, io.EOF
	}
	n := int64(len(p))
	if rem := f.length - off; n > rem {
		n = rem
	}
	f.pos = off
	b, err := f.ReadN(n)
	copy(p, b)
	if err != nil {
		return len(b), err
	}
	if int64(len(b)) < int64(len(p)) {
		return len(b), io.EOF
	}
	return len(b), nil
}
