package parser

import (
	"strings"
	"testing"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"talk.srt", false},
		{"TALK.VTT", false},
		{"notes.markdown", false},
		{"dir/report.PDF", false},
		{"sheet.xlsx", true},
		{"noext", true},
	}
	for _, tt := range tests {
		_, err := ForFile(tt.filename, Options{})
		if (err != nil) != tt.wantErr {
			t.Errorf("ForFile(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
		}
		if IsSupportedExtension(tt.filename) == tt.wantErr {
			t.Errorf("IsSupportedExtension(%q) disagrees with ForFile", tt.filename)
		}
	}

	p, err := ForFile("scan.pdf", Options{PDFFallback: true})
	if err != nil {
		t.Fatal(err)
	}
	if pdf, ok := p.(*PDFParser); !ok || !pdf.FallbackPdftotext {
		t.Errorf("expected PDF parser with fallback, got %#v", p)
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	joined := strings.Join(exts, " ")
	for _, want := range []string{".srt", ".vtt", ".txt", ".docx"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %s in %v", want, exts)
		}
	}
	for i := 1; i < len(exts); i++ {
		if exts[i-1] > exts[i] {
			t.Fatalf("expected sorted extensions, got %v", exts)
		}
	}
}

func TestParse_Subtitles(t *testing.T) {
	srt := "1\n00:00:01,000 --> 00:00:03,500\nHello.\n\n2\n00:00:04,000 --> 00:00:06,000\n<i>World.</i>\n"
	tree, err := Parse(strings.NewReader(srt), "uploads/episode-1.srt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "episode-1" {
		t.Errorf("expected title %q, got %q", "episode-1", tree.Title)
	}
	if got := tree.PlainText(); got != "Hello. World." {
		t.Errorf("expected normalized captions, got %q", got)
	}

	empty, err := Parse(strings.NewReader("WEBVTT\n\n"), "blank.vtt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty.Children) != 0 {
		t.Errorf("expected no children for an empty caption file, got %d", len(empty.Children))
	}
}

func TestParse_Unsupported(t *testing.T) {
	if _, err := Parse(strings.NewReader("x"), "data.bin", Options{}); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestHTMLParser(t *testing.T) {
	input := `<html><head><title>Release Notes</title><style>p{}</style></head>
<body>
<nav><p>skip me</p></nav>
<p>Preface   text.</p>
<h1>Version 2</h1>
<p>Faster <b>everything</b>.</p>
<h2>Fixes</h2>
<ul><li>one</li><li>two</li></ul>
<script>var x = 1;</script>
</body></html>`
	tree, err := (&HTMLParser{}).Parse(strings.NewReader(input), "notes.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "Release Notes" {
		t.Errorf("expected <title> as title, got %q", tree.Title)
	}
	want := "Preface text.\n\nVersion 2\n\nFaster everything.\n\nFixes\n\none\n\ntwo"
	if got := tree.PlainText(); got != want {
		t.Errorf("unexpected plain text:\n%q\nwant:\n%q", got, want)
	}
}

func TestCSVParser(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("name,score\n")
	for i := 0; i < 25; i++ {
		sb.WriteString("player,10\n")
	}
	sb.WriteString("ghost,\n")

	tree, err := (&CSVParser{}).Parse(strings.NewReader(sb.String()), "scores.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "scores" {
		t.Errorf("expected title %q, got %q", "scores", tree.Title)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(tree.Children))
	}
	if tree.Children[0].Title != "Rows 2-21" || tree.Children[1].Title != "Rows 22-27" {
		t.Errorf("unexpected section titles %q, %q", tree.Children[0].Title, tree.Children[1].Title)
	}
	if !strings.HasPrefix(tree.Children[0].Text, "name: player; score: 10\n") {
		t.Errorf("unexpected row rendering %q", tree.Children[0].Text)
	}
	if !strings.HasSuffix(tree.Children[1].Text, "name: ghost") {
		t.Errorf("expected empty cells dropped, got %q", tree.Children[1].Text)
	}
}

func TestCSVParser_HeaderOnly(t *testing.T) {
	tree, err := (&CSVParser{}).Parse(strings.NewReader("a,b\n"), "h.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 0 {
		t.Errorf("expected no sections, got %d", len(tree.Children))
	}
}
