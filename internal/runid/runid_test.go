package runid

import "testing"

func TestSlugifyCollapsesAndLowercases(t *testing.T) {
	cases := map[string]string{
		"My Chat Export!!":  "my-chat-export",
		"  leading-trim  ":  "leading-trim",
		"already-slug":      "already-slug",
		"multi___under__":   "multi-under",
		"Family Group (v2)": "family-group-v2",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugifyFallsBackToRunForEmptyOrNonAlnum(t *testing.T) {
	for _, in := range []string{"", "   ", "!!!", "---"} {
		if got := Slugify(in); got != "run" {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, "run")
		}
	}
}

func TestNewProducesDistinctIDs(t *testing.T) {
	a, b := New(), New()
	if a == "" || b == "" {
		t.Fatal("expected non-empty IDs")
	}
	if a == b {
		t.Fatal("expected distinct IDs across calls")
	}
}
