package ai

import (
	"context"
	"fmt"
	"sync"
)

// CannedGenerator replays queued responses in order, then keeps serving
// the default response. It backs offline development runs and the tests
// of every enrichment path.
type CannedGenerator struct {
	mu       sync.Mutex
	queue    []string
	defaults string
	calls    int
}

// CannedGeneratorFactory implements GeneratorFactory for canned output.
type CannedGeneratorFactory struct{}

// NewCannedGeneratorFactory creates a new canned generator factory.
func NewCannedGeneratorFactory() *CannedGeneratorFactory {
	return &CannedGeneratorFactory{}
}

// CreateGenerator creates a canned generator with no queued responses.
func (f *CannedGeneratorFactory) CreateGenerator() (Generator, error) {
	return &CannedGenerator{}, nil
}

// NewCannedGenerator creates a generator that replays the given
// responses, then serves defaultResponse forever.
func NewCannedGenerator(defaultResponse string, responses ...string) *CannedGenerator {
	return &CannedGenerator{queue: responses, defaults: defaultResponse}
}

// Load is a no-op; canned responses need no initialization.
func (g *CannedGenerator) Load(ctx context.Context) error {
	return nil
}

// GenerateText pops the next queued response.
func (g *CannedGenerator) GenerateText(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++

	if len(g.queue) > 0 {
		next := g.queue[0]
		g.queue = g.queue[1:]
		return next, nil
	}
	if g.defaults != "" {
		return g.defaults, nil
	}
	return "", fmt.Errorf("no canned response available")
}

// Calls reports how many requests the generator has served.
func (g *CannedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
