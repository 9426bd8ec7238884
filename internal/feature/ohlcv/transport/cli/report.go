// Package cli renders ingestion run summaries for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
)

// maxErrorWidth は表の error 列の最大文字数です。
const maxErrorWidth = 80

// RequestMeta はレポートに残す実行条件です。
type RequestMeta struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	DaysBack     *int   `json:"days_back,omitempty"`
	ChunkDays    int    `json:"chunk_days"`
	SkipExisting bool   `json:"skip_existing"`
	Ticker       string `json:"ticker,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// Stats は銘柄数と書き込み行数の集計です。
type Stats struct {
	TickersTotal     int   `json:"tickers_total"`
	TickersSucceeded int   `json:"tickers_succeeded"`
	TickersFailed    int   `json:"tickers_failed"`
	TickersSkipped   int   `json:"tickers_skipped"`
	RowsWrittenTotal int64 `json:"rows_written_total"`
}

// Report is the JSON document written after a CLI run.
type Report struct {
	Job       string                 `json:"job"`
	RunID     string                 `json:"run_id"`
	Target    string                 `json:"target"`
	Status    string                 `json:"status"`
	Requested RequestMeta            `json:"requested"`
	Stats     Stats                  `json:"stats"`
	Items     []usecase.TickerResult `json:"items"`
}

// NewReport builds a Report from a run summary.
func NewReport(s *usecase.RunSummary, meta RequestMeta) Report {
	stats := Stats{
		TickersTotal:     s.Total,
		TickersSucceeded: s.Succeeded,
		TickersFailed:    s.Failed,
		TickersSkipped:   s.Skipped,
	}
	for _, it := range s.Items {
		stats.RowsWrittenTotal += it.Rows
	}
	items := s.Items
	if items == nil {
		items = []usecase.TickerResult{}
	}
	return Report{
		Job:       s.JobName,
		RunID:     s.RunID.String(),
		Target:    s.Target,
		Status:    string(s.Status),
		Requested: meta,
		Stats:     stats,
		Items:     items,
	}
}

// PrintSummary writes one row per ticker followed by the totals line.
func PrintSummary(w io.Writer, s *usecase.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tEXCHANGE\tSTATUS\tSKIPPED\tPROVIDER\tROWS\tMIN\tMAX\tCHUNKS\tERROR")
	for _, it := range s.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%d\t%s\t%s\t%d/%d\t%s\n",
			it.Ticker,
			it.Exchange,
			it.Status,
			it.Skipped,
			dash(it.Provider),
			it.Rows,
			dash(it.MinDate),
			dash(it.MaxDate),
			it.ChunksSucceeded, it.ChunksAttempted,
			truncate(it.Error, maxErrorWidth),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nRun: %s  Status: %s  Total: %d  Succeeded: %d  Failed: %d  Skipped: %d\n",
		s.RunID, s.Status, s.Total, s.Succeeded, s.Failed, s.Skipped)
	return err
}

// WriteReport writes r as indented JSON to dir and returns the file path.
// The file name is <job>_<target>_<YYYYMMDD_HHMMSS>.json.
func WriteReport(dir string, r Report, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s.json", r.Job, r.Target, now.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
