// Package classifier decides whether a photo shows pollution by comparing
// its embedding with the embeddings of three fixed text prompts.
package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/trashunter/utils"
)

// ErrDimensionMismatch means the embedder returned vectors of different
// sizes, usually a misconfigured model server.
var ErrDimensionMismatch = errors.New("embedding dimensions differ")

type Options struct {
	// Timeout bounds one Classify call; zero means no limit.
	Timeout time.Duration
	// ImageSize is the longest side images are scaled down to before
	// embedding; zero sends them untouched.
	ImageSize int
	// Cache is optional.
	Cache VerdictCache
}

type Classifier struct {
	embedder Embedder
	opts     Options

	mu            sync.Mutex
	promptVectors [][]float64
}

func New(embedder Embedder, opts Options) *Classifier {
	return &Classifier{
		embedder: embedder,
		opts:     opts,
	}
}

// Classify reads the whole image and returns the verdict whose prompt is the
// most similar to it.
func (c *Classifier) Classify(ctx context.Context, filename string, image io.Reader) (Verdict, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	data, err := io.ReadAll(image)
	if err != nil {
		return "", fmt.Errorf("Classifier - Classify - io.ReadAll: %w", err)
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	if c.opts.Cache != nil {
		v, ok, err := c.opts.Cache.Get(ctx, digest)
		if err != nil {
			utils.ErrorLogger.WithError(err).Warn("verdict cache read failed")
		} else if ok {
			return v, nil
		}
	}

	prompts, err := c.promptEmbeddings(ctx)
	if err != nil {
		return "", fmt.Errorf("Classifier - Classify - c.promptEmbeddings: %w", err)
	}

	data, filename = downscale(data, filename, c.opts.ImageSize)
	imageVec, err := c.embedder.EmbedImage(ctx, filename, data)
	if err != nil {
		return "", fmt.Errorf("Classifier - Classify - c.embedder.EmbedImage: %w", err)
	}

	if len(imageVec) != len(prompts[0]) {
		return "", fmt.Errorf("Classifier - Classify: %w: image has %d dimensions, prompts have %d",
			ErrDimensionMismatch, len(imageVec), len(prompts[0]))
	}

	scores := make([]float64, len(prompts))
	for i, p := range prompts {
		scores[i] = cosineSimilarity(imageVec, p)
		if math.IsNaN(scores[i]) {
			return "", fmt.Errorf("Classifier - Classify: similarity to %q is NaN", labels[i].verdict)
		}
	}
	verdict := argMax(scores)

	utils.InfoLogger.WithFields(logrus.Fields{
		"pollution": scores[0],
		"clean":     scores[1],
		"unrelated": scores[2],
		"verdict":   verdict,
	}).Debug("image classified")

	if c.opts.Cache != nil {
		if err := c.opts.Cache.Set(ctx, digest, verdict); err != nil {
			utils.ErrorLogger.WithError(err).Warn("verdict cache write failed")
		}
	}

	return verdict, nil
}

// promptEmbeddings embeds the prompts on first use. A failed attempt is not
// remembered, so the next request tries again.
func (c *Classifier) promptEmbeddings(ctx context.Context) ([][]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.promptVectors != nil {
		return c.promptVectors, nil
	}

	vecs, err := c.embedder.EmbedTexts(ctx, prompts())
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(labels) {
		return nil, fmt.Errorf("expected %d prompt embeddings, got %d", len(labels), len(vecs))
	}
	for i, v := range vecs {
		if len(v) == 0 || len(v) != len(vecs[0]) {
			return nil, fmt.Errorf("%w: prompt %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), len(vecs[0]))
		}
	}

	c.promptVectors = vecs
	return vecs, nil
}

// argMax walks labels in order and only moves on a strictly greater score.
func argMax(scores []float64) Verdict {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return labels[best].verdict
}

// cosineSimilarity is 0 when either vector has zero length or the
// dimensions differ.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
