package reveal

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/matsimonsen7/tid-er-penge/internal/runloop"
)

// Ballistics, per frame.
const (
	Gravity  = 0.3
	Friction = 0.99
	FadeStep = 0.02
	// particles start fading below this fraction of the canvas height
	FadeLine = 0.8
)

var Colors = []string{"#10B981", "#34D399", "#059669", "#6EE7B7", "#ECFDF5", "#FFD700", "#FFA500"}

type Particle struct {
	X, Y     float64
	VX, VY   float64
	Rotation float64
	Spin     float64
	Size     float64
	Opacity  float64
	Color    string
}

// Canvas is the drawing surface confetti is rendered onto.
type Canvas interface {
	Size() (width, height float64)
	Clear()
	Draw(p Particle)
}

// ParticleCount picks the burst size from the percentage return.
func ParticleCount(returnPercent float64) int {
	switch {
	case returnPercent > 100:
		return 80
	case returnPercent > 50:
		return 40
	default:
		return 0
	}
}

type ConfettiOptions struct {
	Count         int
	ReducedMotion bool
	// Rand seeds the burst; nil uses a random source.
	Rand *rand.Rand
}

// Confetti fires one burst on canvas and animates it until every particle
// has faded out.
func Confetti(loop runloop.Loop, canvas Canvas, opts ConfettiOptions) (cancel func()) {
	g := newGroup(loop)
	confetti(g, canvas, opts)
	return func() { g.cancel() }
}

func confetti(g *group, canvas Canvas, opts ConfettiOptions) {
	if opts.ReducedMotion || opts.Count <= 0 || canvas == nil {
		return
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	w, h := canvas.Size()
	particles := Spawn(opts.Count, w, h, rng)

	var frame func(time.Time)
	frame = func(time.Time) {
		if !g.live() {
			return
		}
		canvas.Clear()
		active := 0
		for i := range particles {
			p := &particles[i]
			if p.Opacity <= 0 {
				continue
			}
			Step(p, h)
			if p.Opacity > 0 {
				active++
				canvas.Draw(*p)
			}
		}
		if active > 0 {
			g.frame(frame)
		}
	}
	g.frame(frame)
}

// Spawn creates count particles at the burst origin (w/2, 0.3h) with
// randomized velocity, rotation, colour and size.
func Spawn(count int, w, h float64, rng *rand.Rand) []Particle {
	out := make([]Particle, count)
	for i := range out {
		angle := rng.Float64() * 2 * math.Pi
		velocity := 8 + rng.Float64()*12
		out[i] = Particle{
			X:        w / 2,
			Y:        h * 0.3,
			VX:       math.Cos(angle) * velocity * (0.5 + rng.Float64()),
			VY:       math.Sin(angle)*velocity*0.7 - 5,
			Rotation: rng.Float64() * 2 * math.Pi,
			Spin:     (rng.Float64() - 0.5) * 0.3,
			Size:     4 + rng.Float64()*6,
			Opacity:  1,
			Color:    Colors[rng.IntN(len(Colors))],
		}
	}
	return out
}

// Step advances one particle by one frame on a canvas of height h.
func Step(p *Particle, h float64) {
	p.VY += Gravity
	p.VX *= Friction
	p.VY *= Friction
	p.X += p.VX
	p.Y += p.VY
	p.Rotation += p.Spin
	if p.Y > h*FadeLine {
		p.Opacity = math.Max(0, p.Opacity-FadeStep)
	}
}
