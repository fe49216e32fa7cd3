package resolver

import (
	"encoding/csv"
	"encoding/json"
	"fmt"

	"chatpipe/internal/fileutil"
	"chatpipe/internal/message"
)

// exceptionRow is one line of the resolver's exceptions.csv, logged for
// every unresolved or ambiguous media mapping so an operator can review
// and patch the archive without rerunning the whole pipeline.
type exceptionRow struct {
	Idx               int
	TS                string
	Sender            string
	Kind              message.Kind
	MediaHint         string
	Reason            string
	Top1Path          string
	Top1Score         string
	Top2Path          string
	Top2Score         string
	DisambiguationJSON string
}

func (r *Resolver) logException(msg *message.Message, reason string, candidates []rankedCandidate) {
	row := exceptionRow{
		Idx:       msg.Idx,
		TS:        msg.TS,
		Sender:    msg.Sender,
		Kind:      msg.Kind,
		MediaHint: msg.MediaHint,
		Reason:    reason,
	}
	if len(candidates) > 0 {
		row.Top1Path = candidates[0].Info.Path
		row.Top1Score = formatScore(candidates[0].Total)
	}
	if len(candidates) > 1 {
		row.Top2Path = candidates[1].Info.Path
		row.Top2Score = formatScore(candidates[1].Total)
	}
	if msg.Derived.Disambiguation != nil {
		if raw, err := json.Marshal(msg.Derived.Disambiguation); err == nil {
			row.DisambiguationJSON = string(raw)
		}
	}
	r.exceptions = append(r.exceptions, row)
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

var exceptionsHeader = []string{
	"idx", "ts", "sender", "kind", "media_hint", "reason",
	"top1_path", "top1_score", "top2_path", "top2_score", "disambiguation_json",
}

// WriteExceptionsCSV writes the resolver's accumulated exception rows to
// path atomically (temp file + rename). No file is written when there are
// no exceptions, matching the source behavior of skipping an empty report.
func (r *Resolver) WriteExceptionsCSV(path string) error {
	if len(r.exceptions) == 0 {
		return nil
	}

	aw, err := fileutil.CreateAtomic(path, "exceptions-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp exceptions file: %w", err)
	}

	writer := csv.NewWriter(aw.File())
	if err := writer.Write(exceptionsHeader); err != nil {
		aw.Abort()
		return fmt.Errorf("write exceptions header: %w", err)
	}
	for _, row := range r.exceptions {
		record := []string{
			fmt.Sprintf("%d", row.Idx), row.TS, row.Sender, string(row.Kind),
			row.MediaHint, row.Reason,
			row.Top1Path, row.Top1Score, row.Top2Path, row.Top2Score,
			row.DisambiguationJSON,
		}
		if err := writer.Write(record); err != nil {
			aw.Abort()
			return fmt.Errorf("write exceptions row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		aw.Abort()
		return fmt.Errorf("flush exceptions csv: %w", err)
	}
	if err := aw.Commit(); err != nil {
		return fmt.Errorf("commit exceptions file: %w", err)
	}
	return nil
}
