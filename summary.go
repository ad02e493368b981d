package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"leetcode-video-pipeline/ledger"
	"leetcode-video-pipeline/types"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderTable(w io.Writer, headers []string, rows [][]string, rightAligned map[int]bool) {
	if !isTerminal(w) {
		// Plain tab-separated lines keep piped output greppable
		fmt.Fprintln(w, strings.Join(headers, "\t"))
		for _, row := range rows {
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if rightAligned[i] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	fmt.Fprintln(w, tw.Render())
}

func summaryRows(results []types.PipelineResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		detail := r.VideoPath
		switch {
		case r.Skipped:
			status = "skipped"
			detail = "already produced"
		case !r.Success:
			status = "failed"
			detail = r.Error
		case r.UploadError != "":
			detail = "upload failed: " + r.UploadError
		case r.VideoURL != "":
			detail = r.VideoURL
		}
		rows = append(rows, []string{
			r.Topic,
			status,
			fmt.Sprintf("%d/%d", r.Clips, r.Scenes),
			formatIDs(r.FailedScenes),
			detail,
		})
	}
	return rows
}

func printSummary(w io.Writer, results []types.PipelineResult, elapsed time.Duration) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No topics processed.")
		return
	}
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	renderTable(w, []string{"Topic", "Status", "Clips", "Failed scenes", "Output"}, summaryRows(results), map[int]bool{2: true})
	fmt.Fprintf(w, "%d/%d topic(s) succeeded in %s\n", succeeded, len(results), elapsed.Round(time.Second))
}

func printHistory(w io.Writer, entries []ledger.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := "ok"
		detail := e.VideoPath
		if !e.Success {
			status = "failed"
			detail = e.Error
		} else if e.VideoURL != "" {
			detail = e.VideoURL
		}
		rows = append(rows, []string{
			e.RecordedAt.Local().Format("2006-01-02 15:04"),
			e.RunID,
			e.Topic,
			status,
			strconv.Itoa(e.Scenes),
			formatIDs(e.FailedScenes),
			detail,
		})
	}
	renderTable(w, []string{"When", "Run", "Topic", "Status", "Scenes", "Failed", "Output"}, rows, map[int]bool{4: true})
}

func formatIDs(ids []int) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
