package httpfile

import "net/http"

// Option configures a File at Open time.
type Option interface {
	set(*File)
}

type optionFunc func(*File)

func (fn optionFunc) set(f *File) { fn(f) }

// WithPrecache sets the size of the optimistic tail probe. 0 disables
// precaching entirely: Open then costs one HEAD and every read is a
// network fetch.
func WithPrecache(n int64) Option {
	return optionFunc(func(f *File) {
		f.precache = n
	})
}

// WithETagCheck controls whether an ETag change between two fetches
// fails the read with a ResourceChangedError. Enabled by default.
func WithETagCheck(check bool) Option {
	return optionFunc(func(f *File) {
		f.checkETag = check
	})
}

// WithFetcher replaces the transport used for every request.
func WithFetcher(fetch Fetcher) Option {
	return optionFunc(func(f *File) {
		f.fetch = fetch
	})
}

// WithClient uses client for every request through a pooled
// SessionFetcher. Shorthand for WithFetcher(NewSessionFetcher(client)).
func WithClient(client *http.Client) Option {
	return optionFunc(func(f *File) {
		f.fetch = NewSessionFetcher(client)
	})
}
