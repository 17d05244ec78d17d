package extract

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/scribe/internal/check"
)

var (
	// ErrInvalidBase64 is returned for file content that does not decode.
	ErrInvalidBase64 = errors.New("extract: file content is not valid base64")
	// ErrTooLarge is returned for content over check.MaxFileSize.
	ErrTooLarge = errors.New("extract: content exceeds the maximum file size")
)

// Text returns the plain text of content. Text content is returned as is;
// file content is decoded and converted according to fileName's extension.
func Text(content string, contentType check.ContentType, fileName string) (string, error) {
	if contentType != check.ContentFile {
		if len(content) > check.MaxFileSize {
			return "", ErrTooLarge
		}
		return content, nil
	}

	data, err := Decode(content)
	if err != nil {
		return "", err
	}
	if len(data) > check.MaxFileSize {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	switch check.FormatFor(fileName) {
	case check.FormatHTML:
		return HTML(string(data))
	case check.FormatDocx:
		return Docx(data)
	case check.FormatPDF:
		return PDF(data)
	default:
		return plain(data), nil
	}
}

// Decode decodes base64 file content. A data URL prefix such as
// "data:text/plain;base64," is skipped.
func Decode(content string) ([]byte, error) {
	if _, rest, ok := strings.Cut(content, "base64,"); ok {
		content = rest
	}
	content = strings.TrimSpace(content)
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(content, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
	}
	return data, nil
}

// plain reads data as UTF-8, dropping a byte order mark and replacing
// invalid sequences.
func plain(data []byte) string {
	s := strings.TrimPrefix(string(data), "\ufeff")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return s
}
