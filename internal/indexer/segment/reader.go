package segment

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

// Read loads the segment at path into dst after validating its header and
// checksum. Every failure, including a missing file, is reported as
// ErrCacheCorruption so callers can treat the cache as unusable.
func Read(path string, kind Kind, dst any) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("%w: opening segment file: %w", apperrors.ErrCacheCorruption, err)
	}
	defer f.Close()

	headerBytes := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, headerBytes); err != nil {
		return Header{}, fmt.Errorf("%w: reading header: %w", apperrors.ErrCacheCorruption, err)
	}
	header := unmarshalHeader(headerBytes)
	if header.Magic != MagicBytes {
		return header, apperrors.Errorf(apperrors.ErrCacheCorruption, "bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return header, apperrors.Errorf(apperrors.ErrCacheCorruption, "unsupported format version %d", header.Version)
	}
	if header.Kind != kind {
		return header, apperrors.Errorf(apperrors.ErrCacheCorruption, "segment holds %s, want %s", header.Kind, kind)
	}

	info, err := f.Stat()
	if err != nil {
		return header, fmt.Errorf("%w: stat segment file: %w", apperrors.ErrCacheCorruption, err)
	}
	if uint64(info.Size()-int64(HeaderSize)) != header.PayloadLen {
		return header, apperrors.Errorf(apperrors.ErrCacheCorruption,
			"payload length %d does not match file size %d", header.PayloadLen, info.Size())
	}

	data := make([]byte, header.PayloadLen)
	if _, err := io.ReadFull(f, data); err != nil {
		return header, fmt.Errorf("%w: reading payload: %w", apperrors.ErrCacheCorruption, err)
	}
	if sum := crc32.ChecksumIEEE(data); sum != header.Checksum {
		return header, apperrors.Errorf(apperrors.ErrCacheCorruption,
			"checksum mismatch: stored %08x, computed %08x", header.Checksum, sum)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return header, fmt.Errorf("%w: parsing %s payload: %w", apperrors.ErrCacheCorruption, kind, err)
	}
	return header, nil
}

// Exists reports whether a segment file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
