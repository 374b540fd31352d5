package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/dock"
	"github.com/nomis52/botcore/robot"
)

func TestDefaultRoutines_Build(t *testing.T) {
	// Docks that pick their maneuver at init report an incomplete type
	// until then.
	tests := []struct {
		routine string
		req     Request
		want    action.Type
	}{
		{"pickup", Request{Object: 1}, action.TypePickAndPlaceIncomplete},
		{"place_on", Request{Object: 1}, action.TypePickAndPlaceIncomplete},
		{"place_rel", Request{Object: 1}, action.TypePickAndPlaceIncomplete},
		{"place_on_ground", Request{}, action.TypePlaceObjectOnGround},
		{"roll", Request{Object: 1}, action.TypePickAndPlaceIncomplete},
		{"pop_a_wheelie", Request{Object: 1}, action.TypePickAndPlaceIncomplete},
		{"face_plant", Request{Object: 1}, action.TypeFacePlant},
		{"align", Request{Object: 1, Distance: 30}, action.TypeAlignWithObject},
		{"cross_bridge", Request{Object: 1}, action.TypeCrossBridge},
		{"ramp", Request{Object: 1}, action.TypeAscendOrDescendRamp},
		{"mount_charger", Request{Object: 1}, action.TypeMountCharger},
		{"drive_to_object", Request{Object: 1, PreAction: "entry"}, action.TypeDriveToObject},
		{"face_object", Request{Object: 1}, action.TypeFaceObject},
		{"wait", Request{}, action.TypeWait},
	}

	rs := DefaultRoutines()
	require.Len(t, rs, len(tests))

	for _, tt := range tests {
		t.Run(tt.routine, func(t *testing.T) {
			r, err := rs.Get(tt.routine)
			require.NoError(t, err)
			assert.NotEmpty(t, r.Description)

			a, err := r.Build(tt.req, dock.DefaultParams())
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Type())
		})
	}
}

func TestRoutine_BuildErrors(t *testing.T) {
	rs := DefaultRoutines()

	t.Run("MissingObject", func(t *testing.T) {
		r, _ := rs.Get("pickup")
		_, err := r.Build(Request{Object: robot.NoObject}, dock.DefaultParams())
		assert.ErrorIs(t, err, ErrMissingObject)
	})

	t.Run("BadPreAction", func(t *testing.T) {
		r, _ := rs.Get("drive_to_object")
		_, err := r.Build(Request{Object: 1, PreAction: "teleport"}, dock.DefaultParams())
		assert.ErrorContains(t, err, "teleport")
	})

	t.Run("NegativeWait", func(t *testing.T) {
		r, _ := rs.Get("wait")
		_, err := r.Build(Request{Duration: Duration(-time.Second)}, dock.DefaultParams())
		assert.Error(t, err)
	})
}

func TestRoutines_Get(t *testing.T) {
	rs := DefaultRoutines()
	_, err := rs.Get("juggle")
	require.ErrorIs(t, err, ErrUnknownRoutine)
	assert.Contains(t, err.Error(), "pickup", "lists what is available")

	names := rs.Names()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "mount_charger")
}

func TestRequest_Position(t *testing.T) {
	p, err := Request{}.position()
	require.NoError(t, err)
	assert.Equal(t, "at_end", p.String())

	p, err = Request{Position: "in_parallel"}.position()
	require.NoError(t, err)
	assert.Equal(t, "in_parallel", p.String())

	_, err = Request{Position: "later"}.position()
	assert.Error(t, err)
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{`"1.5s"`, 1500 * time.Millisecond, false},
		{`250000000`, 250 * time.Millisecond, false},
		{`"soon"`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalJSON([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}
