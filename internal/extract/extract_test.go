package extract

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/scribe/internal/check"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestText_PassesTextThrough(t *testing.T) {
	in := "  <b>not html</b>\n"
	got, err := Text(in, check.ContentText, "page.html")
	require.NoError(t, err)
	if got != in {
		t.Errorf("Text = %q, want %q", got, in)
	}
}

func TestText_DataURL(t *testing.T) {
	got, err := Text("data:text/plain;base64,"+b64("Teh cat sat."), check.ContentFile, "notes.txt")
	require.NoError(t, err)
	if got != "Teh cat sat." {
		t.Errorf("Text = %q", got)
	}
}

func TestText_BareBase64(t *testing.T) {
	got, err := Text(b64("# Title\n\nBody"), check.ContentFile, "README.md")
	require.NoError(t, err)
	if got != "# Title\n\nBody" {
		t.Errorf("Text = %q", got)
	}
}

func TestText_InvalidBase64(t *testing.T) {
	_, err := Text("data:text/plain;base64,!!not base64!!", check.ContentFile, "a.txt")
	if !errors.Is(err, ErrInvalidBase64) {
		t.Errorf("err = %v, want ErrInvalidBase64", err)
	}
}

func TestText_TooLarge(t *testing.T) {
	big := strings.Repeat("a", check.MaxFileSize+1)
	if _, err := Text(big, check.ContentText, ""); !errors.Is(err, ErrTooLarge) {
		t.Errorf("text err = %v, want ErrTooLarge", err)
	}
	if _, err := Text(b64(big), check.ContentFile, "a.txt"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("file err = %v, want ErrTooLarge", err)
	}
}

func TestText_StripsBOM(t *testing.T) {
	got, err := Text(b64("\ufeffhello"), check.ContentFile, "a.txt")
	require.NoError(t, err)
	if got != "hello" {
		t.Errorf("Text = %q, want hello", got)
	}
}

func TestHTML(t *testing.T) {
	doc := `<html><head><script>alert("x")</script><style>p{color:red}</style></head>
<body><h1>Release notes</h1><p onclick="steal()">Teh <strong>new</strong> build.</p>
<ul><li>First</li><li>Second</li></ul></body></html>`

	got, err := Text(b64(doc), check.ContentFile, "notes.html")
	require.NoError(t, err)

	for _, want := range []string{"# Release notes", "Teh **new** build.", "- First", "- Second"} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q:\n%s", want, got)
		}
	}
	for _, bad := range []string{"alert", "steal", "color:red", "<p"} {
		if strings.Contains(got, bad) {
			t.Errorf("markdown contains %q:\n%s", bad, got)
		}
	}
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = fw.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDocx(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Overview</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Teh cat </w:t></w:r><w:r><w:t>sat.</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>para</w:t></w:r></w:p>
</w:body></w:document>`

	got, err := Text(base64.StdEncoding.EncodeToString(buildDocx(t, xml)), check.ContentFile, "report.docx")
	require.NoError(t, err)
	want := "Overview\n\nTeh cat sat.\n\nSecond\tpara"
	if got != want {
		t.Errorf("Docx = %q, want %q", got, want)
	}
}

func TestDocx_MissingDocument(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	w.Create("word/styles.xml")
	w.Close()
	if _, err := Docx(buf.Bytes()); err == nil {
		t.Error("expected error without word/document.xml")
	}
	if _, err := Docx([]byte("not a zip")); err == nil {
		t.Error("expected error for non-zip data")
	}
}

func TestDocx_NestingLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for range 300 {
		b.WriteString("<w:p>")
	}
	b.WriteString("<w:r><w:t>deep</w:t></w:r>")
	for range 300 {
		b.WriteString("</w:p>")
	}
	b.WriteString("</w:body></w:document>")

	_, err := Docx(buildDocx(t, b.String()))
	if err == nil || !strings.Contains(err.Error(), "nesting depth") {
		t.Errorf("err = %v, want nesting depth error", err)
	}
}

func TestStreamText(t *testing.T) {
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(Hello \\(world\\)) Tj\n0 -14 Td\n[(Sec) -120 (ond)] TJ\nT*\n(Line\\041) '\nET"
	got := streamText([]byte(stream))
	want := "Hello (world) Second Line!"
	if got != want {
		t.Errorf("streamText = %q, want %q", got, want)
	}
}

func TestUnescapePDF(t *testing.T) {
	tests := map[string]string{
		`plain`:       "plain",
		`a\nb`:        "a\nb",
		`\(x\)`:       "(x)",
		`back\\slash`: `back\slash`,
		`\101\102`:    "AB",
		`trailing\`:   `trailing\`,
	}
	for in, want := range tests {
		if got := unescapePDF([]byte(in)); got != want {
			t.Errorf("unescapePDF(%q) = %q, want %q", in, got, want)
		}
	}
}

// buildTextPDF assembles a one-page PDF whose content stream shows text.
func buildTextPDF(text string) []byte {
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + text + ") Tj\nET"

	var b strings.Builder
	offsets := make([]int, 6)
	b.WriteString("%PDF-1.4\n")
	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")
	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Length " + strconv.Itoa(len(stream)) + " >>\nstream\n" + stream + "\nendstream\nendobj\n")
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		off := strconv.Itoa(offsets[i])
		b.WriteString(strings.Repeat("0", 10-len(off)) + off + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n" + strconv.Itoa(xref) + "\n%%EOF\n")
	return []byte(b.String())
}

func TestPDF(t *testing.T) {
	got, err := Text(base64.StdEncoding.EncodeToString(buildTextPDF("Teh cat sat.")), check.ContentFile, "paper.pdf")
	if err != nil {
		// pdfcpu rejects some hand-built files; the stream parser is covered
		// by TestStreamText.
		t.Skipf("pdfcpu could not read the test PDF: %v", err)
	}
	if !strings.Contains(got, "Teh cat sat.") {
		t.Errorf("PDF text = %q", got)
	}
}

func TestPDF_Invalid(t *testing.T) {
	if _, err := PDF([]byte("%PDF-1.4 garbage")); err == nil {
		t.Error("expected error for a broken PDF")
	}
}
