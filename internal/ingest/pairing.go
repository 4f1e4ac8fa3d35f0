package ingest

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
)

// UndatedLabel is the session date label used when no file name carries a date token.
const UndatedLabel = "undated"

// dateToken matches "<n>월<n>일" with optional surrounding whitespace or underscores.
var dateToken = regexp.MustCompile(`[\s_]*(\d{1,2})\s*월\s*(\d{1,2})\s*일[\s_]*`)

// Kind classifies an uploaded file by extension.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindSpreadsheet
)

// File is one uploaded file.
type File struct {
	Name    string
	Content []byte
}

// Kind returns the file's kind based on its extension.
func (f File) Kind() Kind {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".pdf":
		return KindPDF
	case ".csv", ".xlsx":
		return KindSpreadsheet
	default:
		return KindUnknown
	}
}

// Pair is a matched spreadsheet and exam PDF for one class.
type Pair struct {
	Class       string
	Date        string
	PDF         *File
	Spreadsheet *File
}

// PairResult is the outcome of resolving an upload batch.
type PairResult struct {
	Pairs map[string]*Pair
	// Unpaired holds recognized files whose class key never got a partner.
	Unpaired []File
	// Ignored holds files with an empty class key or an unsupported extension.
	Ignored []File
	// Collisions lists "class/slot" entries where a later file replaced an earlier one.
	Collisions []string
}

// ReferenceCandidates returns the unpaired PDFs, which callers may treat as reference text.
func (r *PairResult) ReferenceCandidates() []File {
	var out []File
	for _, f := range r.Unpaired {
		if f.Kind() == KindPDF {
			out = append(out, f)
		}
	}
	return out
}

// ClassKey strips the extension and the date token from a file name and
// returns the remaining class name together with the normalized date label
// ("" when the name has no date token).
func ClassKey(name string) (class, date string) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if m := dateToken.FindStringSubmatch(base); m != nil {
		date = m[1] + "월" + m[2] + "일"
	}
	class = strings.TrimSpace(dateToken.ReplaceAllString(base, " "))
	class = strings.Trim(class, "_ ")
	return class, date
}

// Resolve groups uploaded files into class pairs. When two files map to the
// same class and slot, the later one wins.
func Resolve(files []File) *PairResult {
	res := &PairResult{Pairs: make(map[string]*Pair)}
	slots := make(map[string]*Pair)
	var order []string

	for _, f := range files {
		kind := f.Kind()
		class, date := ClassKey(f.Name)
		if class == "" || kind == KindUnknown {
			res.Ignored = append(res.Ignored, f)
			continue
		}

		p, ok := slots[class]
		if !ok {
			p = &Pair{Class: class}
			slots[class] = p
			order = append(order, class)
		}

		file := f
		switch kind {
		case KindPDF:
			if p.PDF != nil {
				slog.Warn("duplicate pdf for class, keeping the later file",
					"class", class, "replaced", p.PDF.Name, "file", f.Name)
				res.Collisions = append(res.Collisions, class+"/pdf")
			}
			p.PDF = &file
			if p.Date == "" {
				p.Date = date
			}
		case KindSpreadsheet:
			if p.Spreadsheet != nil {
				slog.Warn("duplicate spreadsheet for class, keeping the later file",
					"class", class, "replaced", p.Spreadsheet.Name, "file", f.Name)
				res.Collisions = append(res.Collisions, class+"/spreadsheet")
			}
			p.Spreadsheet = &file
			// The spreadsheet's date token takes precedence over the PDF's.
			if date != "" {
				p.Date = date
			}
		}
	}

	for _, class := range order {
		p := slots[class]
		if p.PDF != nil && p.Spreadsheet != nil {
			if p.Date == "" {
				p.Date = UndatedLabel
			}
			res.Pairs[class] = p
			continue
		}
		if p.PDF != nil {
			res.Unpaired = append(res.Unpaired, *p.PDF)
		}
		if p.Spreadsheet != nil {
			res.Unpaired = append(res.Unpaired, *p.Spreadsheet)
		}
	}
	return res
}
