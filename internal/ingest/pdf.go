package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

var eofMarker = []byte("%%EOF")

// sanitizePDF drops bytes appended after the last %%EOF marker, which some
// downloaders leave behind and which the parser rejects.
func sanitizePDF(content []byte) []byte {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content
	}
	last := bytes.LastIndex(content, eofMarker)
	if last == -1 {
		return content
	}
	end := last + len(eofMarker)
	for end < len(content) && (content[end] == '\n' || content[end] == '\r') {
		end++
	}
	if extra := len(content) - end; extra > 0 {
		slog.Debug("trimming trailing bytes after %%EOF", "bytes", extra)
		return content[:end]
	}
	return content
}

// ExtractPDFText returns the text of every page, one line per text row.
func ExtractPDFText(name string, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", &ParseError{File: name, Err: fmt.Errorf("read file: %w", err)}
	}
	if len(content) == 0 {
		return "", &ParseError{File: name, Err: errors.New("empty PDF content")}
	}
	content = sanitizePDF(content)

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", &ParseError{File: name, Err: fmt.Errorf("open PDF: %w", err)}
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return "", &ParseError{File: name, Err: errors.New("PDF has no pages")}
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			slog.Debug("row extraction failed, falling back to plain text", "file", name, "page", i, "error", err)
			text, plainErr := page.GetPlainText(nil)
			if plainErr != nil {
				slog.Warn("skipping unreadable PDF page", "file", name, "page", i, "error", plainErr)
				continue
			}
			sb.WriteString(text)
			sb.WriteString("\n")
			continue
		}

		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				line.WriteString(word.S)
			}
			if s := strings.TrimSpace(line.String()); s != "" {
				sb.WriteString(s)
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &ParseError{File: name, Err: errors.New("no extractable text (scanned PDF?)")}
	}
	slog.Debug("extracted PDF text", "file", name, "pages", numPages, "chars", len(text))
	return text, nil
}
