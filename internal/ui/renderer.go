// Package ui renders orchestrator events for the terminal.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/byteowlz/kaextract/internal/model"
	"github.com/byteowlz/kaextract/internal/orchestrator"
)

// Placeholders for fields missing from an extracted listing.
const (
	NoTitle       = "no title found"
	NoDescription = "no description found"
	NoPrice       = "no price found"
	NoLocation    = "no location found"
	NoImages      = "no images found"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// Renderer writes results to Out and progress to Status. It implements
// orchestrator.Listener.
type Renderer struct {
	Out    io.Writer
	Status io.Writer
	Format Format
	// Quiet suppresses progress lines.
	Quiet bool

	mu sync.Mutex
}

func NewRenderer(out, status io.Writer, format Format) *Renderer {
	if format == "" {
		format = FormatTable
	}
	return &Renderer{Out: out, Status: status, Format: format}
}

func (r *Renderer) OnEvent(ev orchestrator.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.State {
	case orchestrator.Dispatching:
		r.progress("extracting %s ...", ev.Key)
	case orchestrator.CacheHit:
		r.progress("using cached result for %s", ev.Key)
	case orchestrator.Retrying:
		r.progress("attempt failed (%s), retry %d in %d ms", ev.ErrorMessage, ev.Attempt, ev.Delay.Milliseconds())
	case orchestrator.Succeeded:
		if ev.Result != nil && ev.Result.IsError {
			r.renderError(ev.Key, ev.Result.ErrorMessage, ev.Elapsed)
			return
		}
		if ev.Result != nil {
			r.renderResult(*ev.Result, ev.Elapsed)
		}
	case orchestrator.Failed:
		msg := ev.ErrorMessage
		if msg == "" && ev.Result != nil {
			msg = ev.Result.ErrorMessage
		}
		r.renderError(ev.Key, msg, ev.Elapsed)
	}
}

func (r *Renderer) progress(format string, args ...any) {
	if r.Quiet || r.Status == nil {
		return
	}
	fmt.Fprintf(r.Status, format+"\n", args...)
}

func (r *Renderer) renderError(key, msg string, elapsed time.Duration) {
	if r.Format == FormatJSON {
		writeJSON(r.Out, model.ErrorResponse{Error: key, Message: msg})
		return
	}

	w := r.Status
	if w == nil {
		w = r.Out
	}
	fmt.Fprintf(w, "Error: %s\n", msg)
	if key != "" {
		fmt.Fprintf(w, "  input: %s\n", key)
	}
	if !r.Quiet {
		fmt.Fprintf(w, "  after %d ms\n", elapsed.Milliseconds())
	}
}

func (r *Renderer) renderResult(res model.Result, elapsed time.Duration) {
	if r.Format == FormatJSON {
		writeJSON(r.Out, res)
		return
	}

	if res.IsDemo {
		fmt.Fprintln(r.Out, orchestrator.DemoNotice)
	}
	RenderResult(r.Out, res)
	if !r.Quiet {
		fmt.Fprintf(r.Out, "extracted in %d ms\n", elapsed.Milliseconds())
	}
}

// RenderResult prints one listing as a table, with placeholders for
// missing fields.
func RenderResult(w io.Writer, res model.Result) {
	t := newTable(w)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 80},
	})

	t.AppendRow(table.Row{"Title", orPlaceholder(res.Title, NoTitle)})
	t.AppendRow(table.Row{"Price", orPlaceholder(res.Price, NoPrice)})
	t.AppendRow(table.Row{"Location", orPlaceholder(res.Location, NoLocation)})
	t.AppendRow(table.Row{"Description", orPlaceholder(res.Description, NoDescription)})

	images := NoImages
	if len(res.Images) > 0 {
		images = strings.Join(res.Images, "\n")
	}
	t.AppendRow(table.Row{fmt.Sprintf("Images (%d)", len(res.Images)), images})

	if res.SourceURL != "" {
		t.AppendFooter(table.Row{"Source", res.SourceURL})
	}
	t.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	// footers hold URLs, keep their case
	t.Style().Format.Footer = text.FormatDefault
	t.SetOutputMirror(w)
	return t
}

func orPlaceholder(v, placeholder string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
