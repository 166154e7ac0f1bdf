package partition

import "testing"

const structured = `AI research has made rapid progress this year.

## 1. Applications & Models
- AppOne does summarization.
- AppTwo does retrieval.

## 2. Research & Technical Papers
- A survey of grounded generation.

## 3. Ecosystem & News
- Community adoption is growing.`

func TestSplitStructured(t *testing.T) {
	got := Split(structured)

	if got.Overview != "AI research has made rapid progress this year." {
		t.Errorf("overview = %q", got.Overview)
	}
	if got.Applications != "Applications & Models\n- AppOne does summarization.\n- AppTwo does retrieval." {
		t.Errorf("applications = %q", got.Applications)
	}
	if got.Research != "Research & Technical Papers\n- A survey of grounded generation." {
		t.Errorf("research = %q", got.Research)
	}
	if got.Ecosystem != "Ecosystem & News\n- Community adoption is growing." {
		t.Errorf("ecosystem = %q", got.Ecosystem)
	}
	if !got.Parsed() {
		t.Error("structured text should report Parsed")
	}
}

func TestSplitMarkerVariants(t *testing.T) {
	// The model sometimes omits the dot after the section number.
	text := "Intro\n## 1 Apps\nA\n## 2 Research\nR"
	got := Split(text)

	if got.Applications == "" || got.Research == "" {
		t.Errorf("marker variants should still split: %+v", got)
	}
	if !got.Parsed() {
		t.Error("expected Parsed for numbered headers without dots")
	}
}

func TestSplitUnstructured(t *testing.T) {
	text := "Just a plain paragraph with ## Random Header but no numbered sections."
	got := Split(text)

	if got.Overview != text {
		t.Errorf("unstructured text should land in overview, got %q", got.Overview)
	}
	if got.Applications != "" || got.Research != "" || got.Ecosystem != "" {
		t.Errorf("unstructured text should leave other sections empty: %+v", got)
	}
	if got.Parsed() {
		t.Error("unstructured text must not report Parsed")
	}
}

func TestSplitEmpty(t *testing.T) {
	got := Split("")
	if got != (Sections{}) {
		t.Errorf("empty input should produce empty sections, got %+v", got)
	}
	if got.Parsed() {
		t.Error("empty input must not report Parsed")
	}
}

func TestSplitNeverPanics(t *testing.T) {
	inputs := []string{
		"## 1. Only apps",
		"##2. compact research",
		"\n## 3. leading newline",
		"## 1. a\n## 2. b\n## 3. c\n## 4. d extra segment dropped",
	}
	for _, in := range inputs {
		_ = Split(in) // totality: any input yields a Sections value
	}
}

func TestParsedPartialStructure(t *testing.T) {
	// One of the two leading sections is enough for tabbed rendering.
	onlyApps := Split("Intro\n## 1. Apps\ncontent")
	if !onlyApps.Parsed() {
		t.Error("applications alone should count as parsed")
	}

	// Research lands in position 2 only when an applications marker precedes
	// it; a single leading marker fills the applications slot.
	overviewOnly := Split("Intro without any markers")
	if overviewOnly.Parsed() {
		t.Error("overview alone must not count as parsed")
	}
}

func TestGet(t *testing.T) {
	s := Sections{Overview: "o", Applications: "a", Research: "r", Ecosystem: "e"}

	tests := []struct {
		sec  Section
		want string
	}{
		{SectionOverview, "o"},
		{SectionApplications, "a"},
		{SectionResearch, "r"},
		{SectionEcosystem, "e"},
		{Section("bogus"), ""},
	}
	for _, tt := range tests {
		if got := s.Get(tt.sec); got != tt.want {
			t.Errorf("Get(%q) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}
