// Package pioinfocmd implements the file-inspection CLI's logic: magic-byte
// format detection and, for formats this module's backends recognize,
// an attempt to bring up each candidate backend against the file.
package pioinfocmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/parallelio/pario/backend"
)

// magicEntry pairs one on-disk magic with the format name it identifies
// and the backend kinds a file carrying it could plausibly be opened
// with.
type magicEntry struct {
	magic  []byte
	format string
	kinds  []backend.Kind
}

// magicTable covers the four signatures spec.md's file-inspection
// contract names. The log-structured backend has no on-disk byte
// layout of its own (backend.LogStructured is an in-memory write log,
// not a real serialization — see backend's package doc), so there is
// no fifth magic to match against; a file written by it is
// indistinguishable from "unknown" by inspection alone.
var magicTable = []magicEntry{
	{[]byte("CDF\x01"), "classic-v1", []backend.Kind{backend.KindClassic, backend.KindParallelClassic}},
	{[]byte("CDF\x02"), "64-bit-offset-v2", []backend.Kind{backend.KindClassic, backend.KindParallelClassic}},
	{[]byte("CDF\x05"), "64-bit-data-v5", []backend.Kind{backend.KindClassic, backend.KindParallelClassic}},
	{[]byte("\x89HDF"), "v4/HDF5", []backend.Kind{backend.KindV4Serial, backend.KindV4Parallel}},
}

const unknownFormat = "unknown"

// detectFormat reads the first 4 bytes of path and matches them against
// magicTable, returning the detected format name and the backend kinds
// worth trying against it. An unrecognized or too-short header reports
// unknownFormat with no candidate kinds.
func detectFormat(path string) (string, []backend.Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("pioinfo: %w", err)
	}
	defer f.Close()

	var header [4]byte
	n, err := io.ReadFull(f, header[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, fmt.Errorf("pioinfo: reading %s: %w", path, err)
	}

	for _, e := range magicTable {
		if n >= len(e.magic) && bytes.Equal(header[:len(e.magic)], e.magic) {
			return e.format, e.kinds, nil
		}
	}
	return unknownFormat, nil, nil
}
