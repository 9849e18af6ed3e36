package ai

import (
	"context"
	"fmt"
	"math"
)

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	// Can't normalize zero vector
	if magnitude == 0 {
		result := make([]float32, len(v))
		return result
	}

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// ValidateVector checks that a vector has the expected dimension and only
// finite components. Pass dim <= 0 to skip the dimension check.
func ValidateVector(v []float32, dim int) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidVector)
	}
	if dim > 0 && len(v) != dim {
		return fmt.Errorf("%w: dimension %d, expected %d", ErrInvalidVector, len(v), dim)
	}
	for i, val := range v {
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite component at index %d", ErrInvalidVector, i)
		}
	}
	return nil
}

// VectorStats summarizes one vector for debug reporting.
type VectorStats struct {
	Dim    int     `json:"dim"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	HasNaN bool    `json:"has_nan"`
}

// Stats computes summary statistics over a vector. A zero-length vector
// yields a zero-valued summary.
func Stats(v []float32) VectorStats {
	stats := VectorStats{Dim: len(v)}
	if len(v) == 0 {
		return stats
	}

	stats.Min = math.Inf(1)
	stats.Max = math.Inf(-1)
	sum := 0.0
	for _, val := range v {
		f := float64(val)
		if math.IsNaN(f) {
			stats.HasNaN = true
			continue
		}
		if f < stats.Min {
			stats.Min = f
		}
		if f > stats.Max {
			stats.Max = f
		}
		sum += f
	}
	if math.IsInf(stats.Min, 1) {
		// Every component was NaN.
		stats.Min, stats.Max = 0, 0
		return stats
	}
	stats.Mean = sum / float64(len(v))
	return stats
}

// NormalizingEmbedder wraps an Embedder and L2-normalizes every vector it
// returns, so cosine similarity in the index behaves consistently across
// embedding models.
type NormalizingEmbedder struct {
	inner Embedder
}

var _ Embedder = (*NormalizingEmbedder)(nil)

// NewNormalizingEmbedder wraps the given embedder.
func NewNormalizingEmbedder(inner Embedder) *NormalizingEmbedder {
	return &NormalizingEmbedder{inner: inner}
}

// EmbedText embeds one text and normalizes the result.
func (e *NormalizingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	v, err := e.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	return NormalizeVector(v), nil
}

// EmbedTexts embeds a batch and normalizes each result.
func (e *NormalizingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vs, err := e.inner.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range vs {
		vs[i] = NormalizeVector(vs[i])
	}
	return vs, nil
}

type normalizedProvider struct {
	Provider
	embedder *NormalizingEmbedder
}

// WithNormalizedEmbeddings wraps a provider so every vector its embedder
// produces is L2-normalized. Generator and Close pass through unchanged.
// Document and query embeddings share the wrapped path, so stored points and
// search vectors stay comparable under cosine similarity.
func WithNormalizedEmbeddings(provider Provider) Provider {
	return &normalizedProvider{
		Provider: provider,
		embedder: NewNormalizingEmbedder(provider.Embedder()),
	}
}

func (p *normalizedProvider) Embedder() Embedder {
	return p.embedder
}
