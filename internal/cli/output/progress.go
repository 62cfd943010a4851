package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

// Progress draws a single-line progress bar. It is a no-op when disabled,
// so callers can pass its Update method unconditionally.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	bar     progress.Model
	enabled bool
	drawn   bool
}

// NewProgress creates a bar on w. It is enabled only when enabled is true
// and w is a terminal.
func NewProgress(w io.Writer, enabled bool) *Progress {
	return &Progress{
		w:       w,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		enabled: enabled && IsTerminal(w),
	}
}

// Update redraws the bar. It matches the engine's progress callback.
func (p *Progress) Update(current, total int, message string) {
	if p == nil || !p.enabled || total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	const maxMessage = 40
	if len(message) > maxMessage {
		message = "…" + message[len(message)-maxMessage+1:]
	}
	pct := float64(current) / float64(total)
	_, _ = fmt.Fprintf(p.w, "\r\033[K%s %d/%d %s", p.bar.ViewAs(pct), current, total, message)
	p.drawn = true
}

// Done clears the bar.
func (p *Progress) Done() {
	if p == nil || !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		_, _ = fmt.Fprint(p.w, "\r\033[K")
		p.drawn = false
	}
}
