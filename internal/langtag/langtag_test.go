package langtag

import "testing"

func TestNormalizeEmptyAndAutoBecomeAutoSentinel(t *testing.T) {
	for _, in := range []string{"", "  ", "auto", "AUTO"} {
		got, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if got != Auto {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, Auto)
		}
	}
}

func TestNormalizeCanonicalizesBCP47Tags(t *testing.T) {
	cases := map[string]string{
		"en":      "en",
		"EN":      "en",
		"en-us":   "en-US",
		"pt-BR":   "pt-BR",
		"zh-hans": "zh-Hans",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeAcceptsWordAliases(t *testing.T) {
	cases := map[string]string{
		"chinese":    "zh",
		"Spanish":    "es",
		"portuguese": "pt",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	if _, err := Normalize("not-a-real-language-tag-!!"); err == nil {
		t.Fatal("expected error for unparseable tag")
	}
	if Valid("not-a-real-language-tag-!!") {
		t.Fatal("expected Valid to reject garbage")
	}
	if !Valid("fr") {
		t.Fatal("expected Valid to accept fr")
	}
}

func TestDisplayNameFallsBackToTagWhenUnresolvable(t *testing.T) {
	if got := DisplayName(""); got != "Auto-detect" {
		t.Fatalf("DisplayName(\"\") = %q", got)
	}
	if got := DisplayName(Auto); got != "Auto-detect" {
		t.Fatalf("DisplayName(auto) = %q", got)
	}
	if got := DisplayName("fr"); got != "French" {
		t.Fatalf("DisplayName(fr) = %q, want French", got)
	}
}
