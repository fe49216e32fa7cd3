package scoring

import "testing"

func TestExtPrefersEarlierPriorityEntries(t *testing.T) {
	priority := []string{".opus", ".m4a", ".ogg"}
	if got := Ext(".opus", priority); got != 3 {
		t.Fatalf("expected top priority score 3, got %v", got)
	}
	if got := Ext(".ogg", priority); got != 1 {
		t.Fatalf("expected lowest listed score 1, got %v", got)
	}
	if got := Ext(".wav", priority); got != 0 {
		t.Fatalf("expected unknown extension score 0, got %v", got)
	}
}

func intPtr(v int) *int { return &v }

func TestSeqScoresProximityAndMissingValues(t *testing.T) {
	if got := Seq(nil, nil); got != 0 {
		t.Fatalf("expected 0 for both nil, got %v", got)
	}
	if got := Seq(nil, intPtr(5)); got != 0.1 {
		t.Fatalf("expected 0.1 when only candidate known, got %v", got)
	}
	if got := Seq(intPtr(5), nil); got != 0 {
		t.Fatalf("expected 0 when candidate missing, got %v", got)
	}
	if got := Seq(intPtr(5), intPtr(5)); got != 1.0 {
		t.Fatalf("expected exact match to score 1.0, got %v", got)
	}
	if got := Seq(intPtr(5), intPtr(7)); got != 1.0/3.0 {
		t.Fatalf("expected 1/(1+2) for distance 2, got %v", got)
	}
}

func TestMtimeDecaysWithDelta(t *testing.T) {
	if got := Mtime(0); got != 1.0 {
		t.Fatalf("expected exact match to score 1.0, got %v", got)
	}
	if Mtime(-9) != Mtime(9) {
		t.Fatal("expected symmetric scoring for negative delta")
	}
	if Mtime(1) <= Mtime(10) {
		t.Fatal("expected closer delta to score higher")
	}
}
