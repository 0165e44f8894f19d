package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/byteowlz/kaextract/internal/cache"
)

// RenderEntries lists cache entries newest first with their age at now.
func RenderEntries(w io.Writer, entries []cache.Entry, now time.Time, expiry time.Duration) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "cache is empty")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Key", "Title", "Status", "Age", "Expires in"})
	for _, e := range entries {
		status := "ok"
		title := orPlaceholder(e.Result.Title, NoTitle)
		switch {
		case e.Result.IsError:
			status = "error: " + e.Result.ErrorKind
			title = e.Result.ErrorMessage
		case e.Result.IsDemo:
			status = "demo"
		}

		age := now.Sub(e.Timestamp).Truncate(time.Second)
		left := (expiry - age).Truncate(time.Second)
		if left < 0 {
			left = 0
		}
		t.AppendRow(table.Row{e.Key, truncate(title, 50), status, age.String(), left.String()})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(entries)})
	t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
