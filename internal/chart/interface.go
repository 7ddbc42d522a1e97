package chart

import "codeberg.org/mutker/sensorbot/internal/store"

// Renderer renders a sample series to an image artifact and returns
// its path. The artifact is transient; the caller deletes it after
// delivery.
type Renderer interface {
	Render(samples []store.Sample) (string, error)
}
