package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

const itemWidth = 30

// itemStyle cuts the current item to itemWidth terminal cells.
var itemStyle = lipgloss.NewStyle().MaxWidth(itemWidth)

// Bar is a determinate progress bar advanced once per item.
type Bar struct {
	desc    string
	total   int
	current int
	out     io.Writer
	model   progress.Model
	start   time.Time
	animate bool
}

func NewBar(out io.Writer, total int, desc string) *Bar {
	return &Bar{
		desc:    desc,
		total:   total,
		out:     out,
		model:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage()),
		start:   time.Now(),
		animate: IsTerminal(out),
	}
}

// Percent is the completed fraction in [0, 1].
func (b *Bar) Percent() float64 {
	if b.total <= 0 {
		return 1
	}
	return float64(b.current) / float64(b.total)
}

// Update sets the number of completed items and redraws the bar.
func (b *Bar) Update(current int, item string) {
	b.current = min(current, b.total)
	if b.animate {
		fmt.Fprint(b.out, "\r"+b.line(item))
		if b.current >= b.total {
			fmt.Fprintln(b.out)
		}
	}
}

// Finish completes the bar. Non-terminal writers get the final line only.
func (b *Bar) Finish() {
	if b.current >= b.total && b.animate {
		return
	}
	b.current = b.total
	if b.animate {
		fmt.Fprint(b.out, "\r")
	}
	fmt.Fprintln(b.out, b.line(""))
}

func (b *Bar) line(item string) string {
	eta := ""
	if b.current > 0 && b.current < b.total {
		elapsed := time.Since(b.start).Seconds()
		eta = fmt.Sprintf(" ETA: %.1fs", elapsed/float64(b.current)*float64(b.total-b.current))
	}
	item = itemStyle.Render(item)
	if item != "" {
		item = " | " + item
	}
	return fmt.Sprintf("%s: [%s] %s (%d/%d)%s%s",
		InfoStyle.Render(b.desc),
		b.model.ViewAs(b.Percent()),
		WarningStyle.Render(fmt.Sprintf("%.1f%%", b.Percent()*100)),
		b.current, b.total,
		AccentStyle.Render(eta),
		item,
	)
}
