package scene

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Picker makes every random catalog choice for a run. A *rand.Rand is not safe
// for concurrent use, so calls are serialized.
type Picker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker wraps rng. A nil rng gets a randomly seeded source.
func NewPicker(rng *rand.Rand) *Picker {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Picker{rng: rng}
}

// NewSeededPicker returns a Picker whose choices are reproducible for a seed.
func NewSeededPicker(seed uint64) *Picker {
	return NewPicker(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

func (p *Picker) intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

func pick[T any](p *Picker, items []T) T {
	return items[p.intn(len(items))]
}

// Flower picks a flower local to state.
func (p *Picker) Flower(state string) string {
	return pick(p, FlowersFor(strings.ToUpper(state)))
}

// CommonFlower picks from the generic flower list.
func (p *Picker) CommonFlower() string {
	return pick(p, CommonFlowers)
}

func (p *Picker) Bee() BeeCharacter {
	return pick(p, BeeCharacters)
}

// Bees returns n distinct characters in random order. n is capped at the catalog size.
func (p *Picker) Bees(n int) []BeeCharacter {
	if n > len(BeeCharacters) {
		n = len(BeeCharacters)
	}
	if n <= 0 {
		return nil
	}
	out := make([]BeeCharacter, len(BeeCharacters))
	copy(out, BeeCharacters)

	p.mu.Lock()
	p.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	p.mu.Unlock()

	return out[:n]
}

func (p *Picker) Fact() string {
	return pick(p, BeeFacts)
}

func (p *Picker) Personality() string {
	return pick(p, Personalities)
}

// FindBee looks a character up by name, ignoring case.
func FindBee(name string) (BeeCharacter, bool) {
	for _, b := range BeeCharacters {
		if strings.EqualFold(b.Name, strings.TrimSpace(name)) {
			return b, true
		}
	}
	return BeeCharacter{}, false
}

// MotionPrompt is the default animation prompt when the caller supplies none.
func (p *Picker) MotionPrompt() string {
	return "Animate " + p.Personality() + " bee gently buzzing around " + p.CommonFlower() +
		", with soft natural motion, fluttering wings and a slow cinematic camera push-in."
}
