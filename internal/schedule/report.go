package schedule

import (
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	// FieldMarker separates the hand-written part of the schedule post from
	// the part the bot owns.
	FieldMarker = "=== STARTING BOT FIELD ==="
	fieldFooter = "Beep, boop, bap - Booing Conalfisher 24/7"
	noCandidate = "No Sub Available"
)

// Render produces the bot-owned section of the public schedule post.
func Render(plan Plan) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Subreddit", "Date", "Info"})

	for _, row := range plan.Rows {
		target, info := row.Target, string(row.Status)
		switch row.Status {
		case StatusGap:
			target, info = noCandidate, ""
		case StatusSkipped:
			target, info = "-", "Posted Today"
		}
		tw.AppendRow(table.Row{target, row.Day.String(), info})
	}

	var b strings.Builder
	b.WriteString(FieldMarker)
	b.WriteString("\n\n")
	b.WriteString(tw.RenderMarkdown())
	b.WriteString("\n\n")
	b.WriteString(fieldFooter)
	return b.String()
}

// Splice keeps everything before the marker in body and appends field.
func Splice(body, field string) string {
	prefix, _, _ := strings.Cut(body, FieldMarker)
	return prefix + field
}

// RenderTable formats the plan for terminal output.
func RenderTable(plan Plan) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Day", "Date", "Subreddit", "Record", "Status"})

	for _, row := range plan.Rows {
		tw.AppendRow(table.Row{"+" + strconv.Itoa(row.Offset), row.Day.String(), row.Target, row.RecordID, string(row.Status)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	if len(plan.Stale) > 0 {
		tw.AppendFooter(table.Row{"", "", "missed", strings.Join(plan.Stale, ", "), ""})
	}
	return tw.Render()
}
