package pages

import (
	"testing"

	"github.com/rotisserie/eris"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]Status{
		"draft":       StatusDraft,
		" PUBLISHED ": StatusPublished,
		"Archived":    StatusArchived,
	}
	for input, want := range cases {
		got, err := ParseStatus(input)
		if err != nil {
			t.Fatalf("ParseStatus(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseStatus(%q) = %s, want %s", input, got, want)
		}
	}

	if _, err := ParseStatus("deleted"); !eris.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status, got %v", err)
	}
}

func TestCanonicalLanguageCode(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		" en ":           "en",
		"de-de":          "de-DE",
		"en-us":          "en-US",
		"":               "",
		"not a language": "not a language",
	}
	for input, want := range cases {
		if got := CanonicalLanguageCode(input); got != want {
			t.Fatalf("CanonicalLanguageCode(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestVersionTranslationFirstMatchWins(t *testing.T) {
	t.Parallel()

	version := Version{Translations: []Translation{
		{Language: Language{Code: "en"}, Title: "first"},
		{Language: Language{Code: "en"}, Title: "second"},
	}}

	translation, ok := version.Translation(" EN ")
	if !ok || translation.Title != "first" {
		t.Fatalf("expected first english translation, got %+v, %v", translation, ok)
	}
	if _, ok := version.Translation("fr"); ok {
		t.Fatalf("expected no french translation")
	}
}

func TestPagePermissionID(t *testing.T) {
	t.Parallel()

	if got := (Page{ID: 17}).PermissionID(); got != "cms:page:17" {
		t.Fatalf("unexpected permission id %q", got)
	}
}
