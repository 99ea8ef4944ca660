package services

import (
	"context"
	"fmt"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"golang.org/x/sync/singleflight"
)

// ViewService serves the installed/updates listings and invalidates them
// when a task changes what they show.
type ViewService struct {
	backend ports.PackageManager
	cache   ports.ViewCache
	surface ports.TaskSurface
	logger  *logger.Logger
	group   singleflight.Group
}

func NewViewService(backend ports.PackageManager, cache ports.ViewCache, surface ports.TaskSurface, log *logger.Logger) *ViewService {
	return &ViewService{
		backend: backend,
		cache:   cache,
		surface: surface,
		logger:  log,
	}
}

// Load returns the listing, from cache unless refresh is set.
func (s *ViewService) Load(ctx context.Context, view domain.View, refresh bool) ([]string, error) {
	if !refresh {
		lines, ok, err := s.cache.Get(ctx, view)
		if err != nil {
			s.logger.Warnw("view_cache_get_failed", "view", view, "error", err)
		} else if ok {
			return lines, nil
		}
	}

	// concurrent loads of one view share a single backend listing
	v, err, _ := s.group.Do(string(view), func() (interface{}, error) {
		lines, err := s.backend.List(ctx, view)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, view, lines); err != nil {
			s.logger.Warnw("view_cache_set_failed", "view", view, "error", err)
		}
		return lines, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", view, err)
	}
	return v.([]string), nil
}

// Refresh drops the cached listing and tells the browser to reload it.
func (s *ViewService) Refresh(ctx context.Context, view domain.View) {
	if err := s.cache.Invalidate(ctx, view); err != nil {
		s.logger.Warnw("view_cache_invalidate_failed", "view", view, "error", err)
	}
	s.surface.ViewInvalidated(view)
	s.logger.Infow("view_invalidated", "view", view)
}
