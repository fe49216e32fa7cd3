// Package mediaindex scans a media root directory and groups files by
// (chat day, media type) so the resolver only ever ranks a small bounded
// candidate set for any one message, never the whole archive.
package mediaindex

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FileInfo is the subset of filesystem and filename metadata the resolver
// needs to score one candidate file. It carries no content hash; hashing is
// deferred to the resolver for the candidates it actually reports
// (spec §4.1 — hashes are computed lazily, never during the scan).
type FileInfo struct {
	Path       string
	Size       int64
	Mtime      time.Time
	NameTokens []string
	SeqNum     *int
}

// Key identifies one (day, media type) bucket.
type Key struct {
	DateKey   string
	MediaType string
}

// Index maps a (day, media type) bucket to its files, sorted
// deterministically by path.
type Index map[Key][]FileInfo

var mediaTypeExtensions = map[string][]string{
	"voice":    {".opus", ".ogg", ".m4a", ".amr", ".aac"},
	"image":    {".jpg", ".jpeg", ".png", ".gif", ".heic"},
	"video":    {".mp4", ".mov", ".avi", ".mkv"},
	"document": {".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx"},
}

var extToMediaType = func() map[string]string {
	m := make(map[string]string)
	for mediaType, exts := range mediaTypeExtensions {
		for _, ext := range exts {
			m[ext] = mediaType
		}
	}
	return m
}()

// ClassifyExtension maps a lowercase file extension (with leading dot) to
// its media-type bucket, "other" when unrecognized.
func ClassifyExtension(ext string) string {
	if mediaType, ok := extToMediaType[strings.ToLower(ext)]; ok {
		return mediaType
	}
	return "other"
}

// Scan walks root and buckets every file that has an extension by
// (chat day of its mtime, media type). Extensionless files are skipped;
// files of a type with no dedicated bucket are classified "other" rather
// than dropped, so a resolver configured with custom allowed_extensions
// can still find them.
func Scan(root string) (Index, error) {
	index := make(Index)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == "" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		mediaType := ClassifyExtension(ext)
		dateKey := info.ModTime().Local().Format("2006-01-02")
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		parsed := ParseFilename(stem)

		fi := FileInfo{
			Path:       path,
			Size:       info.Size(),
			Mtime:      info.ModTime(),
			NameTokens: TokenizeName(stem),
			SeqNum:     parsed.SeqNum,
		}
		key := Key{DateKey: dateKey, MediaType: mediaType}
		index[key] = append(index[key], fi)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for key, files := range index {
		slices.SortFunc(files, func(a, b FileInfo) int { return strings.Compare(a.Path, b.Path) })
		index[key] = files
	}
	return index, nil
}

// Candidates returns every FileInfo across all chat-day buckets matching
// mediaType, used by the resolver's clock-drift window search (which spans
// day boundaries near midnight).
func (idx Index) Candidates(mediaType string) []FileInfo {
	var out []FileInfo
	for key, files := range idx {
		if key.MediaType != mediaType {
			continue
		}
		out = append(out, files...)
	}
	slices.SortFunc(out, func(a, b FileInfo) int { return strings.Compare(a.Path, b.Path) })
	return out
}

// All returns every indexed file regardless of bucket, used by the
// resolver's exact-filename fast path.
func (idx Index) All() []FileInfo {
	var out []FileInfo
	for _, files := range idx {
		out = append(out, files...)
	}
	slices.SortFunc(out, func(a, b FileInfo) int { return strings.Compare(a.Path, b.Path) })
	return out
}
