package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chatpipe/internal/message"
)

func defaultConfig() Config {
	return Config{
		Weights:           Weights{Hint: 3, Ext: 2, Seq: 1, Mtime: 1},
		Tau:               0.75,
		TieMargin:         0.1,
		ClockDriftHours:   4,
		HintWindow:        2,
		AllowedExtensions: nil,
		ExtPriority:       []string{".opus", ".m4a", ".ogg"},
	}
}

func writeMediaFile(t *testing.T, root, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.WriteFile(path, []byte("media-bytes-"+name), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return path
}

func fakeHasher(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

func TestResolveFastpathExactFilename(t *testing.T) {
	root := t.TempDir()
	ts := time.Date(2024, 1, 2, 10, 0, 0, 0, time.Local)
	writeMediaFile(t, root, "PTT-20240102-WA0001.opus", ts)

	msg := message.New(0, "2024-01-02T10:00:00", "alice", message.KindVoice)
	msg.MediaHint = "PTT-20240102-WA0001.opus"

	r := New(root, defaultConfig(), fakeHasher)
	if err := r.Resolve(context.Background(), []*message.Message{msg}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if msg.Status != message.StatusOK || msg.StatusReason != "" {
		t.Fatalf("expected clean ok, got %s/%s", msg.Status, msg.StatusReason)
	}
	if filepath.Base(msg.MediaFilename) != "PTT-20240102-WA0001.opus" {
		t.Fatalf("unexpected media_filename: %q", msg.MediaFilename)
	}
	if msg.Derived.MediaSHA256 == "" {
		t.Fatal("expected media_sha256 to be populated")
	}
}

func TestResolveUnresolvedWhenNoCandidatesInDriftWindow(t *testing.T) {
	root := t.TempDir()
	farMtime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local)
	writeMediaFile(t, root, "PTT-20200101-WA0001.opus", farMtime)

	msg := message.New(0, "2024-01-02T10:00:00", "alice", message.KindVoice)

	r := New(root, defaultConfig(), fakeHasher)
	if err := r.Resolve(context.Background(), []*message.Message{msg}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if msg.Status != message.StatusOK || msg.StatusReason != message.ReasonUnresolvedMedia {
		t.Fatalf("expected ok/unresolved_media, got %s/%s", msg.Status, msg.StatusReason)
	}
	if len(r.Exceptions()) != 1 {
		t.Fatalf("expected one logged exception, got %d", len(r.Exceptions()))
	}
}

func TestResolveRanksCandidateBySeqAndHint(t *testing.T) {
	root := t.TempDir()
	ts := time.Date(2024, 1, 2, 10, 0, 0, 0, time.Local)
	writeMediaFile(t, root, "PTT-20240102-WA0001.opus", ts)
	writeMediaFile(t, root, "PTT-20240102-WA0009.opus", ts)

	msg := message.New(0, "2024-01-02T10:00:00", "alice", message.KindVoice)
	msg.ContentText = "check out wa0009 it's funny"

	r := New(root, defaultConfig(), fakeHasher)
	if err := r.Resolve(context.Background(), []*message.Message{msg}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if msg.Status != message.StatusOK || msg.StatusReason != "" {
		t.Fatalf("expected decisive ok, got %s/%s", msg.Status, msg.StatusReason)
	}
	if filepath.Base(msg.MediaFilename) != "PTT-20240102-WA0009.opus" {
		t.Fatalf("expected WA0009 to win via seq+hint match, got %q", msg.MediaFilename)
	}
}

func TestResolveAmbiguousWhenScoresAreClose(t *testing.T) {
	root := t.TempDir()
	ts := time.Date(2024, 1, 2, 10, 0, 0, 0, time.Local)
	writeMediaFile(t, root, "PTT-20240102-WA0001.opus", ts)
	writeMediaFile(t, root, "PTT-20240102-WA0002.opus", ts)

	msg := message.New(0, "2024-01-02T10:00:00", "alice", message.KindVoice)

	r := New(root, defaultConfig(), fakeHasher)
	if err := r.Resolve(context.Background(), []*message.Message{msg}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if msg.Status != message.StatusOK || msg.StatusReason != message.ReasonAmbiguousMedia {
		t.Fatalf("expected ok/ambiguous_media, got %s/%s", msg.Status, msg.StatusReason)
	}
	if msg.Derived.Disambiguation == nil || len(msg.Derived.Disambiguation.Candidates) != 2 {
		t.Fatal("expected disambiguation candidates recorded")
	}
}

func TestWriteExceptionsCSVSkippedWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, defaultConfig(), nil)
	path := filepath.Join(dir, "exceptions.csv")
	if err := r.WriteExceptionsCSV(path); err != nil {
		t.Fatalf("WriteExceptionsCSV: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected no file written when there are no exceptions")
	}
}

func TestWriteExceptionsCSVWritesRows(t *testing.T) {
	root := t.TempDir()
	msg := message.New(0, "2024-01-02T10:00:00", "alice", message.KindVoice)
	r := New(root, defaultConfig(), nil)
	if err := r.Resolve(context.Background(), []*message.Message{msg}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	path := filepath.Join(root, "exceptions.csv")
	if err := r.WriteExceptionsCSV(path); err != nil {
		t.Fatalf("WriteExceptionsCSV: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exceptions.csv: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty exceptions.csv")
	}
}
