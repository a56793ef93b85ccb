package graph

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gorm.io/gorm"

	"gamebook/server/internal/models"
	"gamebook/server/internal/storage"
)

// Scene is one node of a compiled scenario graph.
type Scene struct {
	ID         uint        `json:"id"`
	Number     int         `json:"number"`
	Text       string      `json:"text"`
	Image      string      `json:"image,omitempty"`
	IsEnd      bool        `json:"is_end"`
	Selections []Selection `json:"selections"`
}

// Selection is one outgoing choice of a scene, with its candidate targets in
// storage order.
type Selection struct {
	ID      uint   `json:"id"`
	Text    string `json:"text"`
	Targets []int  `json:"targets"`
}

// Graph is the read-only compiled form of one scenario. Its content only
// changes when the scenario is re-imported, so a Graph may be cached and
// shared between calls.
type Graph struct {
	ScenarioID  uint           `json:"scenario_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Scenes      map[int]*Scene `json:"scenes"`
}

// Build compiles the scenario's scenes, selections, and transitions into a
// Graph. Returns storage.ErrNotFound if the scenario does not exist.
func Build(db *gorm.DB, scenarioID uint) (*Graph, error) {
	var scenario models.Scenario
	if err := db.First(&scenario, scenarioID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load scenario %d: %w", scenarioID, err)
	}

	var scenes []models.Scene
	if err := db.Where("scenario_id = ?", scenarioID).Order("id").Find(&scenes).Error; err != nil {
		return nil, fmt.Errorf("failed to load scenes: %w", err)
	}

	g := &Graph{
		ScenarioID:  scenario.ID,
		Title:       scenario.Title,
		Description: scenario.Description,
		Scenes:      make(map[int]*Scene, len(scenes)),
	}

	sceneIDs := make([]uint, 0, len(scenes))
	byRowID := make(map[uint]*Scene, len(scenes))
	for _, sc := range scenes {
		node := &Scene{
			ID:     sc.ID,
			Number: sc.Number,
			Text:   sc.Text,
			Image:  sc.Image,
			IsEnd:  sc.IsEnd,
		}
		g.Scenes[sc.Number] = node
		byRowID[sc.ID] = node
		sceneIDs = append(sceneIDs, sc.ID)
	}

	if len(sceneIDs) == 0 {
		return g, nil
	}

	var selections []models.Selection
	if err := db.Where("scene_id IN ?", sceneIDs).Order("id").Find(&selections).Error; err != nil {
		return nil, fmt.Errorf("failed to load selections: %w", err)
	}

	selectionIDs := make([]uint, 0, len(selections))
	for _, sel := range selections {
		selectionIDs = append(selectionIDs, sel.ID)
	}

	targets := make(map[uint][]int)
	if len(selectionIDs) > 0 {
		var transitions []models.Transition
		if err := db.Where("selection_id IN ?", selectionIDs).Order("id").Find(&transitions).Error; err != nil {
			return nil, fmt.Errorf("failed to load transitions: %w", err)
		}
		for _, tr := range transitions {
			targets[tr.SelectionID] = append(targets[tr.SelectionID], tr.TargetNumber)
		}
	}

	for _, sel := range selections {
		node, ok := byRowID[sel.SceneID]
		if !ok {
			continue
		}
		node.Selections = append(node.Selections, Selection{
			ID:      sel.ID,
			Text:    sel.Text,
			Targets: targets[sel.ID],
		})
	}

	return g, nil
}

// EntryScene returns the scene with the lowest author-assigned number. There
// is no explicit start marker; the entry point is always derived this way.
// Returns storage.ErrNotFound when the scenario has no scenes.
func (g *Graph) EntryScene() (*Scene, error) {
	if len(g.Scenes) == 0 {
		return nil, storage.ErrNotFound
	}
	numbers := make([]int, 0, len(g.Scenes))
	for n := range g.Scenes {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return g.Scenes[numbers[0]], nil
}

// SceneByNumber looks a scene up by its author-assigned number.
func (g *Graph) SceneByNumber(number int) (*Scene, error) {
	sc, ok := g.Scenes[number]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return sc, nil
}

// SelectionsOf returns the selections of a scene in storage order. A terminal
// scene may own selections; they are never evaluated during play.
func (g *Graph) SelectionsOf(number int) ([]Selection, error) {
	sc, err := g.SceneByNumber(number)
	if err != nil {
		return nil, err
	}
	return sc.Selections, nil
}

// SelectionByID finds a selection and the scene that owns it.
func (g *Graph) SelectionByID(selectionID uint) (*Selection, *Scene, error) {
	for _, sc := range g.Scenes {
		for i := range sc.Selections {
			if sc.Selections[i].ID == selectionID {
				return &sc.Selections[i], sc, nil
			}
		}
	}
	return nil, nil, storage.ErrNotFound
}

// IsTerminal reports whether a scene number designates an ending.
func (g *Graph) IsTerminal(number int) (bool, error) {
	sc, err := g.SceneByNumber(number)
	if err != nil {
		return false, err
	}
	return sc.IsEnd, nil
}

// ResolveTransition returns the scene number a selection leads to. A single
// target is returned as is; among several targets one is drawn uniformly at
// random, independently on every call. The draw is never persisted, so
// replaying the same selection may route differently.
func (g *Graph) ResolveTransition(selectionID uint) (int, error) {
	sel, _, err := g.SelectionByID(selectionID)
	if err != nil {
		return 0, err
	}
	if len(sel.Targets) == 0 {
		return 0, fmt.Errorf("selection %d has no transition targets", selectionID)
	}
	if len(sel.Targets) == 1 {
		return sel.Targets[0], nil
	}
	return sel.Targets[rand.IntN(len(sel.Targets))], nil
}
