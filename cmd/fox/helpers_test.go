package main

import (
	"github.com/misty-step/foxglove/internal/gateway"
	"github.com/misty-step/foxglove/internal/state"
	"github.com/misty-step/foxglove/internal/tool"
)

// stubAdapter implements tool.Adapter with scripted behavior for command
// tests.
type stubAdapter struct {
	kind      tool.Kind
	detection tool.Detection
	routed    bool

	configure  func(tool.Paths, tool.Plan) ([]state.Change, error)
	removeErr  error
	configured []tool.Plan
	removed    [][]state.Change
}

func (s *stubAdapter) Kind() tool.Kind                  { return s.kind }
func (s *stubAdapter) BinaryName() string               { return string(s.kind) }
func (s *stubAdapter) Detect(tool.Paths) tool.Detection { return s.detection }

func (s *stubAdapter) Configure(p tool.Paths, plan tool.Plan) ([]state.Change, error) {
	s.configured = append(s.configured, plan)
	if s.configure != nil {
		return s.configure(p, plan)
	}
	return []state.Change{{Kind: state.ChangeFileKey, Path: "/tmp/" + string(s.kind) + ".json", Key: "env"}}, nil
}

func (s *stubAdapter) Remove(_ tool.Paths, changes []state.Change) error {
	s.removed = append(s.removed, changes)
	return s.removeErr
}

func (s *stubAdapter) Routed(tool.Paths, gateway.Gateway, bool) bool { return s.routed }
