package resolver

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"chatpipe/internal/mediaindex"
	"chatpipe/internal/message"
	"chatpipe/internal/scoring"
)

// tsLayout is the ISO-8601-without-timezone layout every Message.TS uses
// (spec §3 "ts" — a naive local timestamp, never zone-qualified).
const tsLayout = "2006-01-02T15:04:05"

// Hasher computes a content digest for a resolved media file. Callers wire
// this to a lazily-populated cache (internal/hashcache) so the same file
// is never rehashed across runs.
type Hasher func(ctx context.Context, path string) (string, error)

// Resolver maps message media placeholders to on-disk files.
type Resolver struct {
	root       string
	cfg        Config
	hash       Hasher
	exceptions []exceptionRow
}

// New constructs a Resolver rooted at the media directory. hash may be nil,
// in which case derived.media_sha256 is left empty.
func New(root string, cfg Config, hash Hasher) *Resolver {
	return &Resolver{root: root, cfg: cfg, hash: hash}
}

// Exceptions returns the accumulated unresolved/ambiguous rows logged
// during the most recent Resolve call, in the order they were produced.
func (r *Resolver) Exceptions() []exceptionRow {
	return r.exceptions
}

// Resolve scans the media root once and attempts to map every
// voice/image/video/document message to a file, mutating media_filename,
// status, status_reason, and derived in place. Messages of any other kind
// are left untouched: they carry no media to resolve.
func (r *Resolver) Resolve(ctx context.Context, msgs []*message.Message) error {
	index, err := mediaindex.Scan(r.root)
	if err != nil {
		return err
	}
	allFiles := index.All()
	r.exceptions = nil

	for i, msg := range msgs {
		mediaType := kindToType(msg.Kind)
		if mediaType == "" {
			continue
		}

		if fastpath := r.fastpathFilename(allFiles, msg.MediaHint); fastpath != "" {
			msg.MediaFilename = fastpath
			msg.MarkOK()
			r.hashInto(ctx, msg, fastpath)
			continue
		}

		ts, err := time.Parse(tsLayout, msg.TS)
		if err != nil {
			msg.MarkResolverOK(message.ReasonUnresolvedMedia)
			r.logException(msg, "unresolved_media", nil)
			continue
		}

		driftSeconds := r.cfg.ClockDriftHours * 3600
		candidates := filterByDrift(index.Candidates(mediaType), ts, driftSeconds, r.cfg.AllowedExtensions)
		if len(candidates) == 0 {
			msg.MarkResolverOK(message.ReasonUnresolvedMedia)
			r.logException(msg, "unresolved_media", nil)
			continue
		}

		hints := extractHints(msgs, i, r.cfg.HintWindow)
		targetSeq := extractSeqTarget(msg, hints)
		ranked := r.rankCandidates(ts, candidates, hints, targetSeq)
		if len(ranked) == 0 {
			msg.MarkResolverOK(message.ReasonUnresolvedMedia)
			r.logException(msg, "unresolved_media", nil)
			continue
		}

		top := ranked[0]
		if len(ranked) > 1 && (top.Total-ranked[1].Total) < r.cfg.Tau {
			second := ranked[1]
			msg.MarkResolverOK(message.ReasonAmbiguousMedia)
			msg.Derived.Disambiguation = &message.Disambiguation{
				TopScore:  top.Total,
				TieMargin: top.Total - second.Total,
				Candidates: []message.DisambiguationCandidate{
					r.toDisambiguationCandidate(ctx, top),
					r.toDisambiguationCandidate(ctx, second),
				},
			}
			r.logException(msg, "ambiguous_media", ranked[:2])
			continue
		}

		msg.MediaFilename = top.Info.Path
		msg.MarkOK()
		r.hashInto(ctx, msg, top.Info.Path)
	}

	return nil
}

func (r *Resolver) hashInto(ctx context.Context, msg *message.Message, path string) {
	if r.hash == nil {
		return
	}
	if digest, err := r.hash(ctx, path); err == nil {
		msg.Derived.MediaSHA256 = digest
	}
}

func (r *Resolver) toDisambiguationCandidate(ctx context.Context, c rankedCandidate) message.DisambiguationCandidate {
	dc := message.DisambiguationCandidate{
		Path:   c.Info.Path,
		Score:  c.Total,
		SeqNum: c.Info.SeqNum,
	}
	if r.hash != nil {
		if digest, err := r.hash(ctx, c.Info.Path); err == nil {
			dc.SHA256 = digest
		}
	}
	return dc
}

// fastpathFilename resolves an exact filename hint directly, without
// scoring, when the chat export's placeholder already names the file
// (spec §4.1 "Fast path").
func (r *Resolver) fastpathFilename(files []mediaindex.FileInfo, hint string) string {
	if hint == "" {
		return ""
	}
	for _, fi := range files {
		if filepath.Base(fi.Path) == hint {
			return fi.Path
		}
	}
	return ""
}

type rankedCandidate struct {
	Info  mediaindex.FileInfo
	Total float64
}

func (r *Resolver) rankCandidates(ts time.Time, candidates []mediaindex.FileInfo, hints map[string]struct{}, targetSeq *int) []rankedCandidate {
	w := r.cfg.Weights
	ranked := make([]rankedCandidate, 0, len(candidates))

	for _, fi := range candidates {
		hintScore := 0.0
		if len(hints) > 0 && hintsIntersect(hints, fi.NameTokens) {
			hintScore = 1.0
		}
		ext := strings.ToLower(filepath.Ext(fi.Path))
		extScore := scoring.Ext(ext, r.cfg.ExtPriority)
		seqScore := scoring.Seq(targetSeq, fi.SeqNum)
		if targetSeq != nil && fi.SeqNum != nil && *targetSeq == *fi.SeqNum {
			seqScore += r.cfg.TieMargin
		}
		mtimeScore := scoring.Mtime(float64(fi.Mtime.Unix() - ts.Unix()))

		total := w.Hint*hintScore + w.Ext*extScore + w.Seq*seqScore + w.Mtime*mtimeScore
		ranked = append(ranked, rankedCandidate{Info: fi, Total: total})
	}

	slices.SortFunc(ranked, func(a, b rankedCandidate) int {
		if a.Total != b.Total {
			if a.Total > b.Total {
				return -1
			}
			return 1
		}
		if a.Info.Size != b.Info.Size {
			if a.Info.Size < b.Info.Size {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Info.Path, b.Info.Path)
	})
	return ranked
}

func filterByDrift(candidates []mediaindex.FileInfo, ts time.Time, driftSeconds float64, allowedExtensions []string) []mediaindex.FileInfo {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	out := make([]mediaindex.FileInfo, 0, len(candidates))
	for _, fi := range candidates {
		delta := fi.Mtime.Unix() - ts.Unix()
		if delta < 0 {
			delta = -delta
		}
		sameDay := fi.Mtime.Local().Format("2006-01-02") == ts.Format("2006-01-02")
		if float64(delta) > driftSeconds && !sameDay {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToLower(filepath.Ext(fi.Path))]; !ok {
				continue
			}
		}
		out = append(out, fi)
	}
	return out
}

func kindToType(k message.Kind) string {
	switch k {
	case message.KindVoice:
		return "voice"
	case message.KindImage:
		return "image"
	case message.KindVideo:
		return "video"
	case message.KindDocument:
		return "document"
	default:
		return ""
	}
}
