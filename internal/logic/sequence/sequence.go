package sequence

import (
	"context"
	"time"

	"github.com/mlefort/LambdaGo/internal/debug"
	"github.com/mlefort/LambdaGo/internal/logic/session"
	"github.com/mlefort/LambdaGo/internal/protocol"
)

// Instrument is the slice of the device session the sequences drive.
type Instrument interface {
	Move(wheel any, position, speed int, block bool) error
	SetShutter(shutter any, open bool, block bool) error
	SetShutterMode(shutter any, fast bool, block bool) error
	Finish() error
	Wheels() []protocol.Channel
	Shutters() []protocol.Channel
}

// Sequence contains high-level exercise routines for the instrument
// (shutter cycling, wheel sweeps, overlap demonstrations).
type Sequence struct {
	ctrl Instrument
}

func New(ctrl Instrument) *Sequence {
	return &Sequence{ctrl: ctrl}
}

// CycleParams defines the parameters for a shutter cycling run.
type CycleParams struct {
	Repeats int           // open/close repetitions per mode
	Dwell   time.Duration // hold time in each state
}

// CycleShutters exercises every detected shutter: first in fast mode
// (high pitched!), then in soft mode (quiet), opening and closing it
// Repeats times per mode and ending closed.
func (s *Sequence) CycleShutters(ctx context.Context, p CycleParams) error {
	if p.Repeats <= 0 {
		p.Repeats = 3
	}

	for _, shutter := range s.ctrl.Shutters() {
		for _, fast := range []bool{true, false} {
			debug.Section(debug.Fmt("Cycling shutter %s in %s mode", shutter.Name(), session.ModeName(fast)))
			if err := s.ctrl.SetShutterMode(shutter, fast, true); err != nil {
				return err
			}
			for i := 0; i < p.Repeats; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := s.ctrl.SetShutter(shutter, true, true); err != nil {
					return err
				}
				time.Sleep(p.Dwell)
				if err := s.ctrl.SetShutter(shutter, false, true); err != nil {
					return err
				}
				time.Sleep(p.Dwell)
			}
		}
	}
	return nil
}

// SweepParams defines the parameters for a wheel sweep run.
type SweepParams struct {
	Speed int // wheel speed 0-7
}

// SweepWheels times an adjacent move (fastest) and an opposite move
// (slowest) for every detected wheel, then demonstrates a non-blocking
// move with an explicit Finish, and returns every wheel to position 0.
func (s *Sequence) SweepWheels(ctx context.Context, p SweepParams) error {
	for _, wheel := range s.ctrl.Wheels() {
		if err := ctx.Err(); err != nil {
			return err
		}
		debug.Section(debug.Fmt("Sweeping wheel %s", wheel.Name()))

		// Adjacent (fastest) move.
		t0 := time.Now()
		if err := s.ctrl.Move(wheel, 1, p.Speed, true); err != nil {
			return err
		}
		debug.Info("Wheel %s: adjacent move took %v", wheel.Name(), time.Since(t0))

		// Opposite (slowest) move.
		t0 = time.Now()
		if err := s.ctrl.Move(wheel, 6, p.Speed, true); err != nil {
			return err
		}
		debug.Info("Wheel %s: opposite move took %v", wheel.Name(), time.Since(t0))

		// Non-blocking call: the command returns immediately, the echo
		// is consumed by the explicit Finish.
		t0 = time.Now()
		if err := s.ctrl.Move(wheel, 0, p.Speed, false); err != nil {
			return err
		}
		debug.Info("Wheel %s: non-blocking issue took %v", wheel.Name(), time.Since(t0))
		if err := s.ctrl.Finish(); err != nil {
			return err
		}
		debug.Info("Wheel %s: completion after %v", wheel.Name(), time.Since(t0))
	}

	// With two wheels, overlap their motion: the second issue forces
	// completion of the first, so the controller is already moving
	// wheel A while wheel B's command goes out.
	wheels := s.ctrl.Wheels()
	if len(wheels) > 1 {
		debug.Section("Overlapped two-wheel move")
		if err := s.ctrl.Move(wheels[0], 6, p.Speed, false); err != nil {
			return err
		}
		if err := s.ctrl.Move(wheels[1], 1, p.Speed, false); err != nil {
			return err
		}
		if err := s.ctrl.Finish(); err != nil {
			return err
		}
		for _, wheel := range wheels {
			if err := s.ctrl.Move(wheel, 0, p.Speed, true); err != nil {
				return err
			}
		}
	}
	return nil
}
