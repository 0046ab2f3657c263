package details

import (
	"context"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrBackendUnavailable reports that a known backend cannot run in this build
// or environment. Callers can tell "feature unavailable" apart from a bug.
var ErrBackendUnavailable = eris.New("details: backend unavailable")

// ErrUnknownBackend reports a backend key nobody recognises.
var ErrUnknownBackend = eris.New("details: unknown backend")

// Backend regenerates descriptive fields for a subset of products. The result
// holds one product per input, in input order, with the same IDs.
type Backend interface {
	Name() string
	Regenerate(ctx context.Context, products []Product, treatment bool) ([]Product, error)
}

// Factory resolves a backend key named in a treatment.
type Factory func(key string) (Backend, error)

// liveBackends are recognised keys whose implementations call out to a
// text-generation service and are not compiled into this binary.
var liveBackends = []string{"ollama", "openai", "anthropic"}

// NewFactory returns the default Factory. The mock backend is seeded with
// seed; live keys fail with ErrBackendUnavailable.
func NewFactory(seed int64) Factory {
	return func(key string) (Backend, error) {
		k := strings.ToLower(strings.TrimSpace(key))
		switch {
		case k == "mock":
			return NewMockBackend(seed), nil
		case slices.Contains(liveBackends, k):
			return nil, eris.Wrapf(ErrBackendUnavailable, "details: backend %q is not available in this build", key)
		default:
			return nil, eris.Wrapf(ErrUnknownBackend, "details: backend %q (valid: mock, %s)", key, strings.Join(liveBackends, ", "))
		}
	}
}

// CheckIDs verifies a backend honoured the one-for-one contract.
func CheckIDs(in, out []Product) error {
	if len(in) != len(out) {
		return eris.Errorf("details: backend returned %d products for %d inputs", len(out), len(in))
	}
	for i := range in {
		if in[i].ID != out[i].ID {
			return eris.Errorf("details: backend changed product at position %d from %q to %q", i, in[i].ID, out[i].ID)
		}
	}
	return nil
}
