// SPDX-License-Identifier: BSD-2-Clause

//go:build linux

package httpfile

import (
	"errors"
	"fmt"
	"io"
	"log"
	"unsafe"

	uffd "github.com/ricardobranco777/go-userfaultfd"
	"golang.org/x/sys/unix"
)

// MappedFile maps a remote HTTP resource into memory and faults pages
// in on demand. Touching a byte of Bytes() for the first time costs
// one range fetch for its page; after that it is plain memory.
//
// All faults are resolved on one goroutine, so the File's single
// linear cursor is never contended.
type MappedFile struct {
	file     *File
	fd       *uffd.Uffd
	addr     []byte
	pageSize int
	done     chan struct{}
}

var _ io.Closer = (*MappedFile)(nil)

// MapFile maps f using userfaultfd.
func MapFile(f *File) (*MappedFile, error) {
	pageSize := unix.Getpagesize()

	n := int(f.Size())
	if n <= 0 {
		return nil, fmt.Errorf("httpfile: cannot map %d bytes", n)
	}

	length := (n + pageSize - 1) &^ (pageSize - 1)

	// Anonymous region; every first touch of a page faults.
	addr, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("httpfile: mmap: %w", err)
	}

	u, err := uffd.New(uffd.UFFD_USER_MODE_ONLY, 0)
	if err != nil {
		unix.Munmap(addr)
		return nil, fmt.Errorf("httpfile: userfaultfd: %w", err)
	}

	m := &MappedFile{
		file:     f,
		fd:       u,
		addr:     addr,
		pageSize: pageSize,
		done:     make(chan struct{}),
	}

	_, err = u.Register(
		uintptr(unsafe.Pointer(&addr[0])),
		length,
		uffd.UFFDIO_REGISTER_MODE_MISSING,
	)
	if err != nil {
		u.Close()
		unix.Munmap(addr)
		return nil, fmt.Errorf("httpfile: userfaultfd register: %w", err)
	}

	go m.faultLoop()

	return m, nil
}

// faultLoop runs in a goroutine and resolves all page faults.
func (m *MappedFile) faultLoop() {
	base := uintptr(unsafe.Pointer(&m.addr[0]))

	for {
		msg, err := m.fd.ReadMsg()
		if err != nil {
			select {
			case <-m.done:
				return
			default:
				log.Printf("httpfile: uffd read event error: %v", err)
				continue
			}
		}

		switch msg.Event {
		case uffd.UFFD_EVENT_PAGEFAULT:
			fault := (*uffd.UffdMsgPagefault)(unsafe.Pointer(&msg.Data))
			addr := uintptr(fault.Address)
			offset := int64(addr-base) &^ int64(m.pageSize-1)

			buf := make([]byte, m.pageSize)
			_, err := m.file.ReadAt(buf, offset)
			if err != nil && !errors.Is(err, io.EOF) {
				log.Fatalf("httpfile: range fetch for page at %d failed: %v", offset, err)
			}

			pageAddr := addr &^ uintptr(m.pageSize-1)
			_, err = m.fd.Copy(pageAddr, uintptr(unsafe.Pointer(&buf[0])), m.pageSize, 0)
			if err != nil {
				log.Fatalf("httpfile: uffd copy failed: %v", err)
			}

		default:
			log.Printf("httpfile: uffd: unexpected event type %T", msg)
		}
	}
}

// Close unregisters the fault handler and unmaps memory.
func (m *MappedFile) Close() error {
	close(m.done)
	m.fd.Close()
	return unix.Munmap(m.addr)
}

// Bytes returns the mapped region. Accessing it triggers HTTP traffic
// lazily, page by page.
func (m *MappedFile) Bytes() []byte {
	return m.addr
}
