package ingest

import "testing"

func names(files []File) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestClassKey(t *testing.T) {
	tests := []struct {
		name      string
		wantClass string
		wantDate  string
	}{
		{"AlgebraA 10월30일.pdf", "AlgebraA", "10월30일"},
		{"AlgebraA_10월30일.csv", "AlgebraA", "10월30일"},
		{"중2 심화반_3월 4일.xlsx", "중2 심화반", "3월4일"},
		{"ReferenceBook.pdf", "ReferenceBook", ""},
		{"10월30일.csv", "", "10월30일"},
		{"dir/Geometry 1월2일 .pdf", "Geometry", "1월2일"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, date := ClassKey(tt.name)
			if class != tt.wantClass {
				t.Errorf("ClassKey(%q) class = %q, want %q", tt.name, class, tt.wantClass)
			}
			if date != tt.wantDate {
				t.Errorf("ClassKey(%q) date = %q, want %q", tt.name, date, tt.wantDate)
			}
		})
	}
}

func TestResolvePairsAndReferenceText(t *testing.T) {
	res := Resolve([]File{
		{Name: "AlgebraA 10월30일.pdf"},
		{Name: "AlgebraA_10월30일.csv"},
		{Name: "ReferenceBook.pdf"},
	})

	if len(res.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(res.Pairs))
	}
	p := res.Pairs["AlgebraA"]
	if p == nil {
		t.Fatal("expected pair keyed AlgebraA")
	}
	if p.PDF.Name != "AlgebraA 10월30일.pdf" || p.Spreadsheet.Name != "AlgebraA_10월30일.csv" {
		t.Errorf("unexpected pair members: %+v", p)
	}
	if p.Date != "10월30일" {
		t.Errorf("pair date = %q, want '10월30일'", p.Date)
	}

	refs := res.ReferenceCandidates()
	if len(refs) != 1 || refs[0].Name != "ReferenceBook.pdf" {
		t.Errorf("ReferenceCandidates() = %v, want [ReferenceBook.pdf]", names(refs))
	}
}

func TestResolveIgnoresEmptyKeyAndUnknownExtensions(t *testing.T) {
	res := Resolve([]File{
		{Name: "10월30일.csv"},
		{Name: "notes.txt"},
		{Name: "Bio 1월1일.xlsx"},
	})
	if len(res.Pairs) != 0 {
		t.Errorf("expected no pairs, got %d", len(res.Pairs))
	}
	if got := names(res.Ignored); len(got) != 2 {
		t.Errorf("Ignored = %v, want 2 files", got)
	}
	if got := names(res.Unpaired); len(got) != 1 || got[0] != "Bio 1월1일.xlsx" {
		t.Errorf("Unpaired = %v, want [Bio 1월1일.xlsx]", got)
	}
	if len(res.ReferenceCandidates()) != 0 {
		t.Error("an unpaired spreadsheet is not a reference candidate")
	}
}

func TestResolveLastFileWinsPerSlot(t *testing.T) {
	res := Resolve([]File{
		{Name: "Chem 5월1일.csv", Content: []byte("first")},
		{Name: "Chem 5월1일.pdf"},
		{Name: "Chem_5월1일.xlsx", Content: []byte("second")},
	})
	p := res.Pairs["Chem"]
	if p == nil {
		t.Fatal("expected pair for Chem")
	}
	if p.Spreadsheet.Name != "Chem_5월1일.xlsx" {
		t.Errorf("spreadsheet slot = %q, want the later file", p.Spreadsheet.Name)
	}
	if len(res.Collisions) != 1 || res.Collisions[0] != "Chem/spreadsheet" {
		t.Errorf("Collisions = %v, want [Chem/spreadsheet]", res.Collisions)
	}
}

func TestResolveDateLabel(t *testing.T) {
	res := Resolve([]File{
		{Name: "Phys 3월2일.pdf"},
		{Name: "Phys 3월3일.csv"},
		{Name: "Art.pdf"},
		{Name: "Art.csv"},
	})
	if got := res.Pairs["Phys"].Date; got != "3월3일" {
		t.Errorf("Phys date = %q, want spreadsheet's '3월3일'", got)
	}
	if got := res.Pairs["Art"].Date; got != UndatedLabel {
		t.Errorf("Art date = %q, want %q", got, UndatedLabel)
	}
}
