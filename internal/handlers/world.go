package handlers

import (
	"fmt"

	"github.com/OCAP2/siegelimit/internal/dispatcher"
)

func (s *Service) handleObjectAdd(e dispatcher.Event) (any, error) {
	obj, err := s.deps.Parser.ParseWorldObject(e.Args)
	if err != nil {
		return nil, fmt.Errorf("parse world object: %w", err)
	}
	if err := s.deps.World.UpsertObject(obj); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (s *Service) handleObjectRemove(e dispatcher.Event) (any, error) {
	id, err := s.deps.Parser.ParseID(e.Args)
	if err != nil {
		return nil, fmt.Errorf("parse object id: %w", err)
	}
	if !s.deps.World.RemoveObject(id) {
		s.log.Debug("Removed unknown object", "id", id)
	}
	return "ok", nil
}

func (s *Service) handleObstacleAdd(e dispatcher.Event) (any, error) {
	ob, err := s.deps.Parser.ParseObstacle(e.Args)
	if err != nil {
		return nil, fmt.Errorf("parse obstacle: %w", err)
	}
	if err := s.deps.World.UpsertObstacle(ob); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (s *Service) handleObstacleRemove(e dispatcher.Event) (any, error) {
	id, err := s.deps.Parser.ParseID(e.Args)
	if err != nil {
		return nil, fmt.Errorf("parse obstacle id: %w", err)
	}
	s.deps.World.RemoveObstacle(id)
	return "ok", nil
}

func (s *Service) handleSyncBegin(dispatcher.Event) (any, error) {
	s.deps.World.BeginSync()
	return "ok", nil
}

func (s *Service) handleSyncEnd(dispatcher.Event) (any, error) {
	stats := s.deps.World.EndSync()
	s.log.Info("World sync complete", "objects", stats.Objects, "obstacles", stats.Obstacles)
	return []int{stats.Objects, stats.Obstacles}, nil
}

func (s *Service) handleWorldReset(dispatcher.Event) (any, error) {
	s.deps.World.Reset()
	return "ok", nil
}
