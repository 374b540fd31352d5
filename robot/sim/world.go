package sim

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tiendc/go-deepcopy"

	"github.com/nomis52/botcore/robot"
)

// Distances from an object's face to the generated pre-action poses.
const (
	dockingDistance   = 60.0
	placingDistance   = 80.0
	entryDistance     = 100.0
	placementDistance = 60.0

	// stackXYTolerance is how far apart two objects can be horizontally and
	// still count as stacked.
	stackXYTolerance = 20.0
	// rampEndOffset is the distance from a ramp's origin to either end.
	rampEndOffset = 100.0
)

type poseKey struct {
	id   robot.ObjectID
	kind robot.PreActionKind
}

// World is an in-memory object model.
type World struct {
	mu       sync.Mutex
	objects  map[robot.ObjectID]*robot.Object
	observed map[robot.ObjectID]map[robot.MarkerCode]time.Time
	hidden   map[robot.ObjectID]bool
	poses    map[poseKey][]robot.PreActionPose
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		objects:  make(map[robot.ObjectID]*robot.Object),
		observed: make(map[robot.ObjectID]map[robot.MarkerCode]time.Time),
		hidden:   make(map[robot.ObjectID]bool),
		poses:    make(map[poseKey][]robot.PreActionPose),
	}
}

// AddObject inserts or replaces an object. Its pose is marked known.
func (w *World) AddObject(o robot.Object) {
	w.mu.Lock()
	defer w.mu.Unlock()
	o.PoseKnown = true
	w.objects[o.ID] = &o
}

// SetPreActionPoses overrides the generated poses of the given kind.
func (w *World) SetPreActionPoses(id robot.ObjectID, kind robot.PreActionKind, poses []robot.PreActionPose) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.poses[poseKey{id, kind}] = poses
}

// Hide stops an object from being observed, so visual verification of it
// fails.
func (w *World) Hide(id robot.ObjectID, hidden bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hidden[id] = hidden
}

// Observe records that every marker of the object was seen at t.
func (w *World) Observe(id robot.ObjectID, t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observe(id, t)
}

func (w *World) observe(id robot.ObjectID, t time.Time) {
	o, ok := w.objects[id]
	if !ok || w.hidden[id] {
		return
	}
	seen := w.observed[id]
	if seen == nil {
		seen = make(map[robot.MarkerCode]time.Time)
		w.observed[id] = seen
	}
	seen[robot.NoMarker] = t
	for _, m := range o.Markers {
		seen[m.Code] = t
	}
}

// observeNear marks every visible object within radius of p as observed.
func (w *World) observeNear(p robot.Pose, radius float64, t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, o := range w.objects {
		if o.PoseKnown && o.Pose.DistanceTo(p) <= radius {
			w.observe(id, t)
		}
	}
}

func (w *World) Object(id robot.ObjectID) (robot.Object, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.objects[id]
	if !ok {
		return robot.Object{}, false
	}
	return *o, true
}

// PreActionPoses returns overridden poses if set, otherwise one pose per
// marker standing off the marker's face and looking back at the object.
func (w *World) PreActionPoses(id robot.ObjectID, kind robot.PreActionKind, placementOffsetX float64) []robot.PreActionPose {
	w.mu.Lock()
	defer w.mu.Unlock()

	if poses, ok := w.poses[poseKey{id, kind}]; ok {
		out := make([]robot.PreActionPose, len(poses))
		copy(out, poses)
		return out
	}

	o, ok := w.objects[id]
	if !ok || !o.PoseKnown {
		return nil
	}

	dist := dockingDistance
	switch kind {
	case robot.PreActionPlacing:
		dist = placingDistance
	case robot.PreActionEntry:
		dist = entryDistance
	case robot.PreActionPlacement:
		dist = placementDistance + placementOffsetX
	}

	var out []robot.PreActionPose
	for _, m := range o.Markers {
		faceDir := o.Pose.Heading + float64(m.Face)*math.Pi/2
		out = append(out, robot.PreActionPose{
			Kind: kind,
			Pose: robot.Pose{
				X:       o.Pose.X + dist*math.Cos(faceDir),
				Y:       o.Pose.Y + dist*math.Sin(faceDir),
				Heading: robot.NormalizeAngle(faceDir + math.Pi),
			},
			Marker: m,
		})
	}
	return out
}

func (w *World) ObjectOnTopOf(id robot.ObjectID, zTolerance float64) (robot.Object, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	base, ok := w.objects[id]
	if !ok || !base.PoseKnown {
		return robot.Object{}, false
	}
	top := base.Pose.Z + base.Height
	for _, oid := range w.sortedIDs() {
		o := w.objects[oid]
		if oid == id || !o.PoseKnown {
			continue
		}
		dx, dy := o.Pose.RectifiedOffset(base.Pose)
		if math.Hypot(dx, dy) <= stackXYTolerance && math.Abs(o.Pose.Z-top) <= zTolerance {
			return *o, true
		}
	}
	return robot.Object{}, false
}

func (w *World) FindObjectAt(objType robot.ObjectType, pose robot.Pose, distTolerance float64, exclude robot.ObjectID) (robot.Object, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range w.sortedIDs() {
		o := w.objects[id]
		if id == exclude || !o.PoseKnown || o.Type != objType {
			continue
		}
		if o.Pose.DistanceTo(pose) <= distTolerance {
			return *o, true
		}
	}
	return robot.Object{}, false
}

func (w *World) SetObjectPose(id robot.ObjectID, pose robot.Pose) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.objects[id]
	if !ok {
		return fmt.Errorf("object %d: not found", id)
	}
	o.Pose = pose
	o.PoseKnown = true
	return nil
}

func (w *World) DeleteObject(id robot.ObjectID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.objects, id)
	delete(w.observed, id)
}

func (w *World) ClearObject(id robot.ObjectID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if o, ok := w.objects[id]; ok {
		o.PoseKnown = false
	}
}

func (w *World) LastObserved(id robot.ObjectID, marker robot.MarkerCode) time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.observed[id][marker]
}

// RampDirection is ascending when from is nearer the ramp's lower end.
func (w *World) RampDirection(ramp robot.ObjectID, from robot.Pose) robot.RampDirection {
	w.mu.Lock()
	defer w.mu.Unlock()

	o, ok := w.objects[ramp]
	if !ok || o.Type != robot.ObjectRamp || !o.PoseKnown {
		return robot.RampUnknown
	}
	h := o.Pose.Heading
	bottom := robot.Pose{X: o.Pose.X - rampEndOffset*math.Cos(h), Y: o.Pose.Y - rampEndOffset*math.Sin(h)}
	top := robot.Pose{X: o.Pose.X + rampEndOffset*math.Cos(h), Y: o.Pose.Y + rampEndOffset*math.Sin(h)}

	toBottom, toTop := from.DistanceTo(bottom), from.DistanceTo(top)
	switch {
	case toBottom < toTop:
		return robot.RampAscending
	case toTop < toBottom:
		return robot.RampDescending
	default:
		return robot.RampUnknown
	}
}

// Snapshot returns a deep copy of every object, ordered by id.
func (w *World) Snapshot() ([]robot.Object, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	objects := make([]robot.Object, 0, len(w.objects))
	for _, id := range w.sortedIDs() {
		objects = append(objects, *w.objects[id])
	}
	var out []robot.Object
	if err := deepcopy.Copy(&out, objects); err != nil {
		return nil, fmt.Errorf("copying world: %w", err)
	}
	return out, nil
}

func (w *World) sortedIDs() []robot.ObjectID {
	ids := make([]robot.ObjectID, 0, len(w.objects))
	for id := range w.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
