package session

import (
	"github.com/kingrea/fieldbot/internal/bindings"
)

// wireOperatorControls binds the typed keys to robot actions.
func (s *Session) wireOperatorControls() {
	p := s.Teleop
	p.OnPress(bindings.LiftUp, func() error {
		s.Robot.Lift.Set(1)
		return nil
	})
	p.OnRelease(bindings.LiftUp, func() error {
		s.Robot.Lift.Stop()
		return nil
	})
	p.OnPress(bindings.LiftDown, func() error {
		s.Robot.Lift.Set(-1)
		return nil
	})
	p.OnRelease(bindings.LiftDown, func() error {
		s.Robot.Lift.Stop()
		return nil
	})
	p.OnPress(bindings.GrabberToggle, func() error {
		open := s.Robot.Grabber.Toggle()
		s.log.Debug().Bool("open", open).Msg("grabber toggled")
		return nil
	})
	p.OnPress(bindings.RunAuto, func() error {
		_, _, err := s.StartRoutine(s.Config.DefaultRoutine(), s.Side(), nil)
		return err
	})
	p.OnPress(bindings.CancelAll, func() error {
		s.CancelAll()
		return nil
	})
}
