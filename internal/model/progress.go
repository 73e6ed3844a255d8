package model

import (
	"io"

	"github.com/gosuri/uiprogress"
)

// Progress renders a single training progress bar. A nil *Progress is a no-op.
type Progress struct {
	p   *uiprogress.Progress
	bar *uiprogress.Bar
}

// NewProgress starts a bar of total steps on w. It returns nil when w is nil.
func NewProgress(w io.Writer, label string, total int) *Progress {
	if w == nil || total <= 0 {
		return nil
	}
	p := uiprogress.New()
	p.Out = w
	p.Start()
	bar := p.AddBar(total).AppendCompleted().PrependElapsed()
	bar.PrependFunc(func(*uiprogress.Bar) string {
		return label
	})
	return &Progress{p: p, bar: bar}
}

func (p *Progress) Incr() {
	if p != nil {
		p.bar.Incr()
	}
}

// Stop finishes rendering. Stopping early leaves the bar partially filled.
func (p *Progress) Stop() {
	if p != nil {
		p.p.Stop()
	}
}
