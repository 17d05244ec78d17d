package check

import (
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
)

// Content formats understood by the checking service.
const (
	FormatText     = "TEXT"
	FormatJSON     = "JSON"
	FormatXML      = "XML"
	FormatHTML     = "HTML"
	FormatMarkdown = "MARKDOWN"
	FormatDocx     = "WORD_DOCX"
	FormatPDF      = "PDF"
)

// FormatFor returns the content format for a file name based on its extension.
func FormatFor(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".json":
		return FormatJSON
	case ".xml":
		return FormatXML
	case ".html", ".htm":
		return FormatHTML
	case ".md":
		return FormatMarkdown
	case ".docx":
		return FormatDocx
	case ".pdf":
		return FormatPDF
	default:
		return FormatText
	}
}

// InferFormat returns the document reference and content format for a
// request. Text that parses as a JSON object is declared as JSON.
func InferFormat(r Request) (reference, format string) {
	if r.ContentType == ContentFile {
		ref := r.FileName
		if ref == "" {
			ref = "document.txt"
		}
		return ref, FormatFor(ref)
	}
	trimmed := strings.TrimSpace(r.Content)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return "document.json", FormatJSON
	}
	return "document.txt", FormatText
}

// IsSupported reports whether the file extension is accepted for upload.
func IsSupported(fileName string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if ext == "htm" {
		ext = "html"
	}
	return slices.Contains(SupportedFormats, ext)
}
