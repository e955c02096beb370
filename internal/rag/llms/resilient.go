package llms

import (
	"context"

	"docqa/internal/rag/interfaces"
	"docqa/pkg/circuitbreaker"
)

// Resilient wraps a generator with a circuit breaker so a failing
// provider is not hammered with doomed requests.
type Resilient struct {
	inner   interfaces.LLM
	breaker *circuitbreaker.CircuitBreaker
}

// NewResilient wraps the generator with the given breaker.
func NewResilient(inner interfaces.LLM, breaker *circuitbreaker.CircuitBreaker) *Resilient {
	return &Resilient{inner: inner, breaker: breaker}
}

// Generate delegates to the wrapped generator through the breaker.
// While the circuit is open it fails fast with ErrCircuitOpen.
func (r *Resilient) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := r.breaker.Execute(func() error {
		var genErr error
		text, genErr = r.inner.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

var _ interfaces.LLM = (*Resilient)(nil)
