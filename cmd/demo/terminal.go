package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/matsimonsen7/tid-er-penge/internal/chart"
	"github.com/matsimonsen7/tid-er-penge/internal/journey"
	"github.com/matsimonsen7/tid-er-penge/internal/model"
	"github.com/matsimonsen7/tid-er-penge/internal/reveal"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ECFDF5"))
)

var badgeStyle = lipgloss.NewStyle().
	Bold(true).
	Padding(0, 1).
	Foreground(lipgloss.Color("#064E3B")).
	Background(lipgloss.Color("#6EE7B7"))

var lossStyle = badgeStyle.Foreground(lipgloss.Color("230")).Background(lipgloss.Color("196"))

var ctaStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#059669")).
	Padding(0, 2)

var stepTitles = map[journey.Step]string{
	journey.SelectSecurity: "Vælg en aktie",
	journey.SetAmount:      "Hvor meget vil du investere?",
	journey.SetPeriod:      "Hvor langt tilbage?",
	journey.Loading:        "Regner på det...",
	journey.ShowResults:    "Så meget ville du have i dag",
}

// terminal is both the step renderer and the results view. Every method
// runs on the loop goroutine.
type terminal struct {
	out     io.Writer
	machine *journey.Machine
	link    func() string

	once   sync.Once
	done   chan struct{}
	failed chan struct{}

	lastValue string
	particles int
}

func newTerminal(out io.Writer, machine *journey.Machine, link func() string) *terminal {
	return &terminal{
		out:     out,
		machine: machine,
		link:    link,
		done:    make(chan struct{}),
		failed:  make(chan struct{}, 1),
	}
}

func (t *terminal) Mount(step journey.Step, dir journey.Direction) {
	fmt.Fprintf(t.out, "\n%s %s\n", progressBar(t.machine.Progress()), titleStyle.Render(stepTitles[step]))
	if step == journey.SelectSecurity && dir == journey.Backward {
		select {
		case t.failed <- struct{}{}:
		default:
		}
	}
}

func (t *terminal) Unmount(step journey.Step, _ journey.Direction) {
	fmt.Fprintln(t.out, dimStyle.Render("  ← "+step.String()))
}

func (t *terminal) SetValue(text string) {
	if text == t.lastValue {
		return
	}
	t.lastValue = text
	fmt.Fprintf(t.out, "\r  %s", valueStyle.Render(fmt.Sprintf("%-16s", text)))
}

func (t *terminal) ShowBadge(badge string) {
	style := badgeStyle
	if strings.HasPrefix(badge, "-") {
		style = lossStyle
	}
	fmt.Fprintf(t.out, "\n  %s\n", style.Render(badge))
}

func (t *terminal) ShowDividend(text string) {
	fmt.Fprintf(t.out, "  %s\n", dimStyle.Render("Med geninvesteret udbytte: ca. "+text))
}

func (t *terminal) ShowChart(result, benchmark *model.BacktestResult) {
	fmt.Fprintf(t.out, "  %s %s\n", sparkline(result), dimStyle.Render(result.Symbol))
	if benchmark != nil {
		fmt.Fprintf(t.out, "  %s %s\n", sparkline(benchmark), dimStyle.Render(benchmark.Symbol+" "+benchmark.Badge()))
	}
}

func (t *terminal) ShowCTA() {
	if t.particles > 0 {
		fmt.Fprintf(t.out, "  %s\n", dimStyle.Render(fmt.Sprintf("(%d stykker konfetti)", t.particles)))
	}
	fmt.Fprintln(t.out, ctaStyle.Render("Del dit resultat: "+t.link()))
	t.once.Do(func() { close(t.done) })
}

func (t *terminal) Confetti() reveal.Canvas { return t }

func (t *terminal) Size() (float64, float64) { return 80, 24 }
func (t *terminal) Clear()                   {}

func (t *terminal) Draw(reveal.Particle) {
	if t.particles == 0 {
		fmt.Fprint(t.out, " 🎉")
	}
	t.particles++
}

func progressBar(pct float64) string {
	const width = 10
	filled := int(pct / 100 * width)
	return dimStyle.Render("[" + strings.Repeat("■", filled) + strings.Repeat("□", width-filled) + "]")
}

var sparks = []rune("▁▂▃▄▅▆▇█")

func sparkline(res *model.BacktestResult) string {
	points := chart.Sample(res.History, 40)
	if len(points) == 0 {
		return ""
	}
	lo, hi := points[0].Value, points[0].Value
	for _, p := range points {
		lo = min(lo, p.Value)
		hi = max(hi, p.Value)
	}
	var b strings.Builder
	for _, p := range points {
		i := 0
		if hi > lo {
			i = int((p.Value - lo) / (hi - lo) * float64(len(sparks)-1))
		}
		b.WriteRune(sparks[i])
	}
	return b.String()
}

// addressBar prints the URL the browser would show.
type addressBar struct {
	mu  sync.Mutex
	out io.Writer
	url string
}

func (a *addressBar) Replace(u string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.url = u
	fmt.Fprintln(a.out, dimStyle.Render("\n  ⟶ "+u))
}

func (a *addressBar) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.url
}
