package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

func formatJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode json: %v\n", err)
		os.Exit(1)
	}
}

func formatTable(headers []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	headerRow := table.Row{}
	for _, h := range headers {
		headerRow = append(headerRow, h)
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		t.AppendRow(r)
	}

	t.Render()
}

// formatFields prints label/value pairs as a two-column table.
func formatFields(fields [][2]string) {
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{f[0], f[1]})
	}
	formatTable([]string{"FIELD", "VALUE"}, rows)
}

func formatQuiet(id string) {
	fmt.Println(id)
}

// output prints v as JSON, or only quietVal in quiet mode. Table mode uses
// render when one is given.
func output(v any, quietVal string, render func()) {
	switch flagFmt {
	case "quiet":
		formatQuiet(quietVal)
	case "table":
		if render != nil {
			render()
			return
		}
		formatJSON(v)
	default:
		formatJSON(v)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
