package app

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// streamRenderer is the sink handed to a completion session. A spinner runs
// until the first fragment arrives; from then on only the new suffix of the
// cumulative text is printed, so the message grows in place.
type streamRenderer struct {
	s       *spinner.Spinner
	w       io.Writer
	printed int
	started bool
}

func newStreamRenderer(w io.Writer) *streamRenderer {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " Generating commit message..."
	return &streamRenderer{s: s, w: w}
}

func (r *streamRenderer) Start() {
	r.s.Start()
}

func (r *streamRenderer) OnText(text string) {
	if !r.started {
		r.s.Stop()
		r.started = true
		fmt.Fprintln(r.w)
	}
	if len(text) > r.printed {
		fmt.Fprint(r.w, text[r.printed:])
		r.printed = len(text)
	}
}

func (r *streamRenderer) Finish() {
	r.s.Stop()
	if r.started {
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w)
	}
}
