// Package segment persists index artifacts as self-validating files. Each
// file carries a fixed header (magic, format version, artifact kind, payload
// length, CRC32 of the payload) followed by a JSON payload. Files are written
// to a temporary path, synced and renamed so a reader never observes a
// partially written artifact.
package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"
)

// MagicBytes identifies a valid segment file.
const (
	MagicBytes    uint32 = 0x48535347
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
)

// Kind distinguishes the artifacts stored in a data directory.
type Kind uint32

const (
	KindLexical Kind = 1
	KindChunks  Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindLexical:
		return "lexical"
	case KindChunks:
		return "chunks"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Header is the fixed-size prefix of every segment file.
type Header struct {
	Magic      uint32
	Version    uint32
	Kind       Kind
	Checksum   uint32
	PayloadLen uint64
	CreatedAt  int64
}

func (h Header) marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.Kind))
	binary.LittleEndian.PutUint32(buf[12:16], h.Checksum)
	binary.LittleEndian.PutUint64(buf[16:24], h.PayloadLen)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.CreatedAt))
	return buf
}

func unmarshalHeader(buf []byte) Header {
	return Header{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint32(buf[4:8]),
		Kind:       Kind(binary.LittleEndian.Uint32(buf[8:12])),
		Checksum:   binary.LittleEndian.Uint32(buf[12:16]),
		PayloadLen: binary.LittleEndian.Uint64(buf[16:24]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(buf[24:32])),
	}
}

// Write atomically replaces path with a segment of the given kind holding
// payload encoded as JSON. It writes to a .tmp file first and renames on
// success; on failure the previous file at path is left untouched.
func Write(path string, kind Kind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", kind, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating segment directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp segment file: %w", err)
	}
	committed := false
	defer func() {
		f.Close()
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	header := Header{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		Kind:       kind,
		Checksum:   crc32.ChecksumIEEE(data),
		PayloadLen: uint64(len(data)),
		CreatedAt:  time.Now().Unix(),
	}
	if _, err := f.Write(header.marshal()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s payload: %w", kind, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming segment file: %w", err)
	}
	committed = true
	return nil
}
