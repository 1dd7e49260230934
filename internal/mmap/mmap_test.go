// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap // import "github.com/go-lpc/nts/internal/mmap"

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("nil-data", func(t *testing.T) {
		var h Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing nil-data handle: %+v", err)
		}
	})
}

func TestMap(t *testing.T) {
	tmp := t.TempDir()
	f, err := os.Create(filepath.Join(tmp, "dev.mem"))
	if err != nil {
		t.Fatalf("could not create fake dev-mem: %+v", err)
	}
	defer f.Close()

	span := os.Getpagesize()
	_, err = f.WriteAt([]byte{0xca, 0xfe}, int64(span-2))
	if err != nil {
		t.Fatalf("could not write to dev-mem: %+v", err)
	}

	h, err := Map(f, 0, span)
	if err != nil {
		t.Fatalf("could not mmap: %+v", err)
	}
	defer h.Close()

	if got, want := h.Len(), span; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	buf := make([]byte, 2)
	_, err = h.ReadAt(buf, int64(span-2))
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if buf[0] != 0xca || buf[1] != 0xfe {
		t.Fatalf("invalid mmap'd content: %x", buf)
	}

	_, err = h.WriteAt([]byte{1, 2, 3}, 4)
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}

	got := make([]byte, 3)
	_, err = f.ReadAt(got, 4)
	if err != nil {
		t.Fatalf("could not read back file: %+v", err)
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("write not visible through file: %x", got)
	}

	_, err = h.ReadAt(buf, int64(span-1))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("invalid short-read error: %+v", err)
	}

	err = h.Close()
	if err != nil {
		t.Fatalf("could not close handle: %+v", err)
	}
}

func TestMapInvalid(t *testing.T) {
	_, err := Map(nil, 0, 4)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("invalid nil-file error: %+v", err)
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "dev.mem"))
	if err != nil {
		t.Fatalf("could not create file: %+v", err)
	}
	defer f.Close()

	_, err = Map(f, 0, 0)
	if got, want := err.Error(), "mmap: invalid span 0"; got != want {
		t.Fatalf("invalid error: got=%q, want=%q", got, want)
	}

	_, err = Map(f, 3, 4)
	if got, want := err.Error(), "mmap: offset 0x3 is not page aligned"; got != want {
		t.Fatalf("invalid error: got=%q, want=%q", got, want)
	}
}

func TestHandleFrom(t *testing.T) {
	h := HandleFrom([]byte{0, 1, 2, 3})

	if got, want := h.Len(), 4; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	_, err := h.WriteAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid WriteAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	_, err = h.ReadAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid ReadAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}
}
