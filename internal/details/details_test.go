package details

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProducts() []Product {
	return []Product{
		{ID: "A001", Category: "Electronics", Price: 99.99, Title: "Old Title 1"},
		{ID: "A002", Category: "Electronics", Price: 49.99, Title: "Old Title 2"},
		{ID: "A003", Category: "Clothing", Price: 29.99, Title: "Old Title 3"},
	}
}

func TestQualityScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Product
		want float64
	}{
		{name: "empty", p: Product{}, want: 0},
		{
			name: "complete",
			p: Product{
				Title:       string(make([]byte, 50)),
				Description: string(make([]byte, 100)),
				Features:    []string{"a", "b", "c", "d"},
				Brand:       "Acme",
			},
			want: 1.0,
		},
		{
			name: "half title, brand only",
			p:    Product{Title: string(make([]byte, 25)), Brand: "Acme"},
			want: 0.3,
		},
		{
			name: "two features",
			p:    Product{Features: []string{"a", "b"}},
			want: 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, QualityScore(tt.p), 1e-9)
		})
	}
}

func TestMockBackend_KeepsIDsAndOrder(t *testing.T) {
	t.Parallel()

	in := testProducts()
	out, err := NewMockBackend(42).Regenerate(context.Background(), in, false)
	require.NoError(t, err)
	require.NoError(t, CheckIDs(in, out))

	for _, p := range out {
		assert.NotEmpty(t, p.Title)
		assert.NotEmpty(t, p.Description)
		assert.NotEmpty(t, p.Brand)
		assert.Len(t, p.Features, 4)
		assert.Greater(t, p.QualityScore, 0.0)
	}
	assert.Equal(t, "Old Title 1", in[0].Title, "input must not be mutated")
}

func TestMockBackend_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := NewMockBackend(7).Regenerate(context.Background(), testProducts(), true)
	require.NoError(t, err)
	b, err := NewMockBackend(7).Regenerate(context.Background(), testProducts(), true)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMockBackend_TreatmentVocabulary(t *testing.T) {
	t.Parallel()

	out, err := NewMockBackend(1).Regenerate(context.Background(), testProducts(), true)
	require.NoError(t, err)
	for _, p := range out {
		assert.Contains(t, p.Description, "Premium")
		assert.Contains(t, p.Description, "exceptional quality")
	}
}

func TestMockBackend_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockBackend(1).Regenerate(ctx, testProducts(), false)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFactory(t *testing.T) {
	t.Parallel()

	f := NewFactory(42)

	b, err := f("mock")
	require.NoError(t, err)
	assert.Equal(t, "mock", b.Name())

	_, err = f("ollama")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackendUnavailable))

	_, err = f("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownBackend))
	assert.False(t, errors.Is(err, ErrBackendUnavailable))
}

func TestCheckIDs(t *testing.T) {
	t.Parallel()

	in := testProducts()
	require.NoError(t, CheckIDs(in, in))

	swapped := []Product{in[1], in[0], in[2]}
	err := CheckIDs(in, swapped)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position 0")

	err = CheckIDs(in, in[:2])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 products for 3 inputs")
}

// flakyBackend fails with the given error for the first failures calls.
type flakyBackend struct {
	failures int
	err      error
	calls    int
}

func (f *flakyBackend) Name() string { return "flaky" }

func (f *flakyBackend) Regenerate(_ context.Context, products []Product, _ bool) ([]Product, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return products, nil
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestRetryBackend_RecoversFromTransient(t *testing.T) {
	t.Parallel()

	fb := &flakyBackend{failures: 2, err: &TransientError{Err: errors.New("model loading")}}
	out, err := WithRetry(fb, fastRetry()).Regenerate(context.Background(), testProducts(), false)
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, 3, fb.calls)
}

func TestRetryBackend_GivesUp(t *testing.T) {
	t.Parallel()

	fb := &flakyBackend{failures: 10, err: &TransientError{Err: errors.New("throttled")}}
	_, err := WithRetry(fb, fastRetry()).Regenerate(context.Background(), testProducts(), false)
	require.Error(t, err)
	assert.Equal(t, 3, fb.calls)
	assert.Contains(t, err.Error(), "throttled")
}

func TestRetryBackend_PermanentNotRetried(t *testing.T) {
	t.Parallel()

	fb := &flakyBackend{failures: 10, err: errors.New("bad prompt")}
	_, err := WithRetry(fb, fastRetry()).Regenerate(context.Background(), testProducts(), false)
	require.Error(t, err)
	assert.Equal(t, 1, fb.calls)
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("x")))
	assert.True(t, IsTransient(&TransientError{Err: errors.New("x")}))
	assert.True(t, IsTransient(context.DeadlineExceeded))
}
