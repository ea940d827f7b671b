package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustNew(t *testing.T, locale string) *Builder {
	t.Helper()
	b, err := New(locale)
	if err != nil {
		t.Fatalf("New(%q): %v", locale, err)
	}
	return b
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in   string
		want Style
	}{
		{"general", StyleGeneral},
		{"GENERAL", StyleGeneral},
		{"bullet_points", StyleBulletPoints},
		{"bullets", StyleBulletPoints},
		{"bullet-points", StyleBulletPoints},
		{"default", StyleDefault},
		{"", StyleDefault},
		{"haiku", StyleDefault},
	}
	for _, tt := range tests {
		if got := ParseStyle(tt.in); got != tt.want {
			t.Errorf("ParseStyle(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStyleString_RoundTrip(t *testing.T) {
	for _, s := range Styles {
		if got := ParseStyle(s.String()); got != s {
			t.Errorf("ParseStyle(%q) = %v, want %v", s.String(), got, s)
		}
	}
	if Style(42).String() != "default" {
		t.Errorf("expected unknown style to print as default, got %q", Style(42).String())
	}
}

func TestBuild_MapModeWrapsText(t *testing.T) {
	b := mustNew(t, "en")
	got := b.Build("the text", StyleBulletPoints, ModeMap)
	want := "Summarize the following text as a short list of key bullet points:\n\nthe text\n\nBullet points:"
	if got != want {
		t.Errorf("unexpected prompt:\n%s", got)
	}
}

func TestBuild_ReduceModeAddsPreamble(t *testing.T) {
	b := mustNew(t, "zh")
	got := b.Build("S0 S1", StyleGeneral, ModeReduce)
	if !strings.HasPrefix(got, "请总结以下文本") {
		t.Errorf("expected general instruction first, got %q", got)
	}
	if !strings.Contains(got, "以下是多个文本片段的总结，请将它们整合成一个连贯的最终总结：\n\nS0 S1") {
		t.Errorf("expected reduce preamble before joined summaries, got %q", got)
	}
	if !strings.HasSuffix(got, "总结：") {
		t.Errorf("expected answer label last, got %q", got)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := mustNew(t, "en")
	for _, s := range Styles {
		for _, m := range []Mode{ModeMap, ModeReduce} {
			if b.Build("x", s, m) != b.Build("x", s, m) {
				t.Errorf("non-deterministic prompt for %v/%v", s, m)
			}
		}
	}
}

func TestBuild_StylesDiffer(t *testing.T) {
	b := mustNew(t, "en")
	general := b.Build("x", StyleGeneral, ModeMap)
	bullets := b.Build("x", StyleBulletPoints, ModeMap)
	def := b.Build("x", StyleDefault, ModeMap)
	if general == bullets || general == def || bullets == def {
		t.Error("expected each style to have its own phrasing")
	}
	if b.Build("x", Style(99), ModeMap) != def {
		t.Error("expected out-of-range style to use default phrasing")
	}
}

func TestNew_UnknownLocale(t *testing.T) {
	if _, err := New("xx"); err == nil {
		t.Error("expected error for unknown locale")
	}
	b := mustNew(t, "")
	if b.Locale() != DefaultLocale {
		t.Errorf("expected default locale, got %q", b.Locale())
	}
}

func TestLoad_OverridesBaseLocale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `
locale: en
reduce_preamble: "Combine these:"
styles:
  bullets:
    label: "Key points:"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := b.Build("parts", StyleBulletPoints, ModeReduce)
	want := "Summarize the following text as a short list of key bullet points:\n\nCombine these:\n\nparts\n\nKey points:"
	if got != want {
		t.Errorf("unexpected prompt:\n%q\nwant:\n%q", got, want)
	}
	// Untouched styles inherit the base catalog.
	if !strings.HasPrefix(b.Build("x", StyleGeneral, ModeMap), "Summarize the following text. Extract") {
		t.Error("expected general style inherited from en")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("styles: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed yaml")
	}

	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("styles:\n  haiku:\n    label: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(unknown); err == nil {
		t.Error("expected error for unknown style name")
	}
}
