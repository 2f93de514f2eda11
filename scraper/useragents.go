package scraper

import (
	"math/rand"
	"sync"
)

// AgentPool hands out user-agent strings at random. The randomness source
// is seedable so tests can pin the sequence.
type AgentPool struct {
	mu     sync.Mutex
	agents []string
	rnd    *rand.Rand
}

// NewAgentPool builds a pool over the configured agents.
func NewAgentPool(agents []string, seed int64) *AgentPool {
	return &AgentPool{
		agents: agents,
		rnd:    rand.New(rand.NewSource(seed)),
	}
}

// Pick returns a random agent from the pool.
func (p *AgentPool) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.agents) == 0 {
		return ""
	}
	return p.agents[p.rnd.Intn(len(p.agents))]
}
