// Package extract converts uploaded resumes into sanitized plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// Format is a supported document kind.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

// Text is sanitized extracted content.
type Text string

func (t Text) String() string { return string(t) }

var (
	// ErrUnsupportedFormat is returned for extensions other than pdf, docx and txt.
	ErrUnsupportedFormat = errors.New("unsupported file type")
	// ErrExtractionFailure is matched by every *ExtractionError.
	ErrExtractionFailure = errors.New("extraction failed")
)

// ExtractionError reports a parse failure for a supported format.
type ExtractionError struct {
	Format Format
	Page   int
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("extract %s page %d: %v", e.Format, e.Page, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtractionFailure }

// FormatOf maps a file name to a Format by extension.
func FormatOf(fileName string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(fileName))), ".")
	switch Format(ext) {
	case FormatPDF, FormatDOCX, FormatTXT:
		return Format(ext), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Extract returns the sanitized text of data, choosing the parser from fileName's extension.
func Extract(ctx context.Context, fileName string, data []byte) (Text, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	format, err := FormatOf(fileName)
	if err != nil {
		return "", err
	}

	var raw string
	switch format {
	case FormatPDF:
		raw, err = extractPDF(ctx, data)
	case FormatDOCX:
		raw, err = extractDOCX(data)
	case FormatTXT:
		raw = string(data)
	}
	if err != nil {
		return "", err
	}
	return Text(Sanitize(raw)), nil
}

// Sanitize removes NUL and other control characters, keeping newlines, carriage returns and tabs.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

// extractPDF walks pages 1..N in order. Runs within a page are joined by single spaces
// and every page is followed by one space.
func extractPDF(ctx context.Context, data []byte) (out string, err error) {
	defer func() {
		// ledongthuc/pdf panics on some malformed inputs.
		if rec := recover(); rec != nil {
			out, err = "", &ExtractionError{Format: FormatPDF, Err: fmt.Errorf("malformed pdf: %v", rec)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Format: FormatPDF, Err: err}
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", &ExtractionError{Format: FormatPDF, Page: i, Err: err}
		}
		var runs []string
		for _, row := range rows {
			for _, word := range row.Content {
				if s := strings.TrimSpace(word.S); s != "" {
					runs = append(runs, s)
				}
			}
		}
		b.WriteString(strings.Join(runs, " "))
		b.WriteString(" ")
	}
	return b.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ExtractionError{Format: FormatDOCX, Err: errors.New("empty document")}
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Err: err}
	}
	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", &ExtractionError{Format: FormatDOCX, Err: errors.New("word/document.xml not found")}
	}
	rc, err := docFile.Open()
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Err: err}
	}
	defer rc.Close()

	text, err := docxRawText(rc)
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Err: err}
	}
	return text, nil
}

// docxRawText keeps only w:t character data; paragraphs end with a newline, w:tab and w:br map to tab and newline.
func docxRawText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var b strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
