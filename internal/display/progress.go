package display

import (
	"fmt"
	"io"

	"github.com/standardbeagle/fgrep/internal/types"
	"github.com/standardbeagle/fgrep/pkg/pathutil"
)

// ProgressPrinter is a progress sink that writes one status per file. On a
// terminal it rewrites a single line; elsewhere it appends lines.
type ProgressPrinter struct {
	w       io.Writer
	inPlace bool
	root    string
	dirty   bool
}

// NewProgressPrinter writes to w. inPlace selects carriage-return updates;
// root, when set, shortens the reported paths.
func NewProgressPrinter(w io.Writer, inPlace bool, root string) *ProgressPrinter {
	return &ProgressPrinter{w: w, inPlace: inPlace, root: root}
}

// Notify implements search.ProgressSink.
func (p *ProgressPrinter) Notify(ev types.ProgressEvent) error {
	path := pathutil.ToRelative(ev.Processing, p.root)
	if p.inPlace {
		p.dirty = true
		_, err := fmt.Fprintf(p.w, "\r\x1b[K[%d/%d] %s", ev.Current, ev.Total, path)
		return err
	}
	_, err := fmt.Fprintf(p.w, "[%d/%d] %s\n", ev.Current, ev.Total, path)
	return err
}

// Done clears the in-place status line.
func (p *ProgressPrinter) Done() {
	if p.inPlace && p.dirty {
		fmt.Fprint(p.w, "\r\x1b[K")
		p.dirty = false
	}
}
