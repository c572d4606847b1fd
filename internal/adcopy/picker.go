package adcopy

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Picker chooses an index in [0, n). Every canned-alternative choice in
// this package goes through one, so a seeded Picker makes output
// reproducible.
type Picker interface {
	Pick(n int) int
}

type seededPicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPicker(seed uint64) Picker {
	return &seededPicker{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func RandomPicker() Picker {
	return NewPicker(uint64(time.Now().UnixNano()))
}

func (p *seededPicker) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.IntN(n)
}

func pickOne(p Picker, list []string, fallback string) string {
	if len(list) == 0 {
		return fallback
	}
	idx := p.Pick(len(list))
	if idx < 0 || idx >= len(list) || list[idx] == "" {
		return fallback
	}
	return list[idx]
}
