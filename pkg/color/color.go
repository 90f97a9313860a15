// Package color computes and caches the average color around each feature.
package color

import (
	"errors"
	"image"
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ken/siftcluster/pkg/core/feature"
)

// DefaultRadius gives a 7x7 sampling window.
const DefaultRadius = 3

var (
	// ErrImageMismatch is returned when a cache is asked about a different image
	ErrImageMismatch = errors.New("color cache belongs to a different image")

	// ErrFeatureMismatch is returned when the feature count changed since population
	ErrFeatureMismatch = errors.New("color cache was populated for a different feature set")
)

// Sampler summarizes the pixels around a position as three channels.
type Sampler interface {
	Sample(img image.Image, x, y float64) [3]float64
}

// AverageSampler averages RGB over a square window, channels in [0, 255].
type AverageSampler struct {
	Radius int
}

// NewAverageSampler returns a sampler with the given window radius.
// Negative radii are treated as zero (single pixel).
func NewAverageSampler(radius int) *AverageSampler {
	if radius < 0 {
		radius = 0
	}
	return &AverageSampler{Radius: radius}
}

// Sample averages the window clipped to the image bounds. Fully transparent
// pixels are skipped; an empty window or nil image yields zeros.
func (s *AverageSampler) Sample(img image.Image, x, y float64) [3]float64 {
	var out [3]float64
	if img == nil {
		return out
	}

	b := img.Bounds()
	cx := b.Min.X + int(math.Round(x))
	cy := b.Min.Y + int(math.Round(y))

	var sum colorful.Color
	n := 0
	for py := cy - s.Radius; py <= cy+s.Radius; py++ {
		for px := cx - s.Radius; px <= cx+s.Radius; px++ {
			if !(image.Point{X: px, Y: py}).In(b) {
				continue
			}
			c, ok := colorful.MakeColor(img.At(px, py))
			if !ok {
				continue
			}
			sum.R += c.R
			sum.G += c.G
			sum.B += c.B
			n++
		}
	}
	if n == 0 {
		return out
	}

	out[0] = 255 * sum.R / float64(n)
	out[1] = 255 * sum.G / float64(n)
	out[2] = 255 * sum.B / float64(n)
	return out
}

// Cache memoizes one color summary per feature for a single image.
// Use a new Cache for a new image.
type Cache struct {
	sampler Sampler

	mu     sync.Mutex
	img    image.Image
	colors [][3]float64
}

// NewCache creates an empty cache. A nil sampler uses DefaultRadius averaging.
func NewCache(sampler Sampler) *Cache {
	if sampler == nil {
		sampler = NewAverageSampler(DefaultRadius)
	}
	return &Cache{sampler: sampler}
}

// Get returns the per-feature color summaries, sampling only on the first call.
// The returned slice is shared and must not be modified.
func (c *Cache) Get(img image.Image, features []*feature.Feature) ([][3]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.colors != nil {
		if img != c.img {
			return nil, ErrImageMismatch
		}
		if len(features) != len(c.colors) {
			return nil, ErrFeatureMismatch
		}
		return c.colors, nil
	}

	colors := make([][3]float64, len(features))
	for i, f := range features {
		colors[i] = c.sampler.Sample(img, f.X, f.Y)
	}
	c.img = img
	c.colors = colors
	return colors, nil
}
