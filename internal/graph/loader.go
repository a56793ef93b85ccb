package graph

import (
	"context"
	"log"

	"gorm.io/gorm"
)

// Cache holds compiled graphs between calls. A miss returns (nil, nil).
type Cache interface {
	GetGraph(ctx context.Context, scenarioID uint) (*Graph, error)
	SetGraph(ctx context.Context, g *Graph) error
	InvalidateGraph(ctx context.Context, scenarioID uint) error
}

// Loader resolves scenario graphs, consulting an optional cache before
// compiling from the database. Cache failures degrade to a database read,
// never to a failed call.
type Loader struct {
	cache Cache
}

func NewLoader(cache Cache) *Loader {
	return &Loader{cache: cache}
}

func (l *Loader) Load(ctx context.Context, db *gorm.DB, scenarioID uint) (*Graph, error) {
	if l.cache != nil {
		g, err := l.cache.GetGraph(ctx, scenarioID)
		if err != nil {
			log.Printf("[Graph] cache read failed for scenario %d: %v", scenarioID, err)
		} else if g != nil {
			return g, nil
		}
	}

	g, err := Build(db, scenarioID)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.SetGraph(ctx, g); err != nil {
			log.Printf("[Graph] cache write failed for scenario %d: %v", scenarioID, err)
		}
	}

	return g, nil
}

// Invalidate drops any cached graph for the scenario. Called after an import
// commits so stale content is never served.
func (l *Loader) Invalidate(ctx context.Context, scenarioID uint) {
	if l.cache == nil {
		return
	}
	if err := l.cache.InvalidateGraph(ctx, scenarioID); err != nil {
		log.Printf("[Graph] cache invalidation failed for scenario %d: %v", scenarioID, err)
	}
}
