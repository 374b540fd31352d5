package sim

import (
	"sort"
	"sync"

	"github.com/nomis52/botcore/robot"
)

// Overlays records which face layers are active.
type Overlays struct {
	mu     sync.Mutex
	next   robot.LayerTag
	layers map[robot.LayerTag]string
}

// NewOverlays creates an empty overlay registry.
func NewOverlays() *Overlays {
	return &Overlays{layers: make(map[robot.LayerTag]string)}
}

func (o *Overlays) AddFaceLayer(name string) (robot.LayerTag, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next++
	o.layers[o.next] = name
	return o.next, nil
}

func (o *Overlays) RemoveFaceLayer(tag robot.LayerTag) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.layers, tag)
}

// Active returns the names of the active layers, sorted.
func (o *Overlays) Active() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.layers))
	for _, n := range o.layers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
