package store

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// MaxPreviewSize is the largest file Preview will decode (100KB).
const MaxPreviewSize = 102400

// Preview is the decoded text of a small stored file.
type Preview struct {
	Content  string `json:"content"`
	Size     int64  `json:"size"`
	Encoding string `json:"-"`
}

// previewEncodings are tried in order after UTF-8.
var previewEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"gbk", simplifiedchinese.GBK},
	{"iso-8859-1", charmap.ISO8859_1},
}

// Preview reads a stored file of at most MaxPreviewSize bytes and decodes it
// as UTF-8, then GBK, then ISO-8859-1. Content that is not valid UTF-8 and
// holds NUL bytes is treated as binary.
func (s *Store) Preview(name string) (Preview, error) {
	f, info, err := s.Open(name)
	if err != nil {
		return Preview{}, err
	}
	defer f.Close()

	if info.Size() > MaxPreviewSize {
		return Preview{}, fmt.Errorf("%s is %d bytes: %w", name, info.Size(), ErrTooLarge)
	}

	// The file may have grown since Stat.
	data, err := io.ReadAll(io.LimitReader(f, MaxPreviewSize+1))
	if err != nil {
		return Preview{}, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > MaxPreviewSize {
		return Preview{}, fmt.Errorf("%s: %w", name, ErrTooLarge)
	}

	text, enc, err := decodeText(data)
	if err != nil {
		return Preview{}, fmt.Errorf("%s: %w", name, err)
	}
	return Preview{Content: text, Size: int64(len(data)), Encoding: enc}, nil
}

func decodeText(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return "", "", ErrUnsupportedEncoding
	}
	for _, e := range previewEncodings {
		out, err := e.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		// x/text decoders substitute U+FFFD for invalid input instead of failing.
		if bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return string(out), e.name, nil
	}
	return "", "", ErrUnsupportedEncoding
}
