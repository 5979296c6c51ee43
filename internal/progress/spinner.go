package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// StopTimeout bounds how long Stop waits for the animation to exit.
const StopTimeout = 500 * time.Millisecond

// Spinner animates an indeterminate step on its own goroutine. It never
// touches anything but its writer.
type Spinner struct {
	desc    string
	out     io.Writer
	frames  spinner.Spinner
	animate bool

	start time.Time
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func NewSpinner(out io.Writer, desc string) *Spinner {
	return &Spinner{
		desc:    desc,
		out:     out,
		frames:  spinner.Dot,
		animate: IsTerminal(out),
	}
}

// Start begins the animation.
func (s *Spinner) Start() *Spinner {
	s.start = time.Now()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	if !s.animate {
		close(s.done)
		return s
	}
	go s.loop()
	return s
}

func (s *Spinner) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.frames.FPS)
	defer ticker.Stop()
	for i := 0; ; i++ {
		frame := s.frames.Frames[i%len(s.frames.Frames)]
		fmt.Fprintf(s.out, "\r%s %s", WarningStyle.Render(strings.TrimSpace(frame)), InfoStyle.Render(s.desc))
		select {
		case <-s.stop:
			fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", len(s.desc)+4))
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the animation, waiting at most StopTimeout, and prints a
// completion line with the elapsed time when err is nil. The line is only
// printed once the animation has exited, so the two never interleave.
func (s *Spinner) Stop(err error) {
	s.once.Do(func() {
		close(s.stop)
		select {
		case <-s.done:
		case <-time.After(StopTimeout):
			return
		}
		if err == nil {
			elapsed := time.Since(s.start).Seconds()
			fmt.Fprintln(s.out, SuccessStyle.Render(fmt.Sprintf("✓ %s (completed in %.2fs)", s.desc, elapsed)))
		}
	})
}
