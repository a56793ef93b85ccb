package play

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gamebook/server/internal/graph"
	"gamebook/server/internal/interfaces"
	"gamebook/server/internal/models"
	"gamebook/server/internal/storage"
)

var (
	// ErrInvalidSelection reports a Choose with a selection that does not
	// exist or does not belong to the session's current scene. The session
	// is left unchanged.
	ErrInvalidSelection = errors.New("selection is not valid for the current scene")

	// ErrNeedsStart reports a view of a (reader, scenario) pair with no
	// session yet; the caller should invoke Start.
	ErrNeedsStart = errors.New("no play session exists")
)

// Machine advances play sessions through scenario graphs. Each entry point is
// one transaction against the store: it commits as a whole or leaves prior
// state untouched. The machine is the only writer of sessions and choice
// history.
type Machine struct {
	store  *storage.Store
	graphs *graph.Loader
	events interfaces.EventSink
}

// NewMachine wires the machine to its store and graph loader. events may be
// nil, in which case transitions are simply not broadcast.
func NewMachine(store *storage.Store, graphs *graph.Loader, events interfaces.EventSink) *Machine {
	return &Machine{store: store, graphs: graphs, events: events}
}

// Start places the reader at the scenario's entry scene. Any existing session
// for the pair is destroyed together with its entire choice history; Start is
// deliberately not idempotent. Returns storage.ErrNotFound when the scenario
// does not exist or has no scenes, without mutating anything.
func (m *Machine) Start(ctx context.Context, readerID string, scenarioID uint) (*interfaces.SessionView, error) {
	var view *interfaces.SessionView

	err := m.store.WithTx(func(tx *gorm.DB) error {
		g, err := m.graphs.Load(ctx, tx, scenarioID)
		if err != nil {
			return err
		}
		entry, err := g.EntryScene()
		if err != nil {
			return err
		}

		var prior models.PlaySession
		err = tx.Where("reader_id = ? AND scenario_id = ?", readerID, scenarioID).First(&prior).Error
		switch {
		case err == nil:
			if err := tx.Where("session_id = ?", prior.ID).Delete(&models.ChoiceEntry{}).Error; err != nil {
				return fmt.Errorf("failed to delete choice history: %w", err)
			}
			if err := tx.Delete(&prior).Error; err != nil {
				return fmt.Errorf("failed to delete prior session: %w", err)
			}
		case err != gorm.ErrRecordNotFound:
			return fmt.Errorf("failed to look up session: %w", err)
		}

		session := models.PlaySession{
			ReaderID:      readerID,
			ScenarioID:    scenarioID,
			CurrentNumber: entry.Number,
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		view, err = sessionView(g, &session)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.publish(interfaces.PlayEvent{
		Type:        interfaces.EventSessionStarted,
		ReaderID:    readerID,
		ScenarioID:  scenarioID,
		SceneNumber: view.Scene.Number,
	})
	return view, nil
}

// Choose records the selection, resolves its transition with exactly one
// random draw, and advances the session, all in one transaction. Reaching a
// terminal scene marks the session completed; any further Choose is rejected
// with ErrInvalidSelection.
func (m *Machine) Choose(ctx context.Context, readerID string, scenarioID, selectionID uint) (*interfaces.SessionView, error) {
	var view *interfaces.SessionView
	var completedNow bool

	err := m.store.WithTx(func(tx *gorm.DB) error {
		var session models.PlaySession
		if err := tx.Where("reader_id = ? AND scenario_id = ?", readerID, scenarioID).First(&session).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return storage.ErrNotFound
			}
			return fmt.Errorf("failed to look up session: %w", err)
		}
		if session.IsCompleted {
			return ErrInvalidSelection
		}

		g, err := m.graphs.Load(ctx, tx, scenarioID)
		if err != nil {
			return err
		}

		sel, owner, err := g.SelectionByID(selectionID)
		if err != nil {
			return ErrInvalidSelection
		}
		if owner.Number != session.CurrentNumber {
			return ErrInvalidSelection
		}

		entry := models.ChoiceEntry{
			SessionID:   session.ID,
			SceneID:     owner.ID,
			SelectionID: sel.ID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to append choice history: %w", err)
		}

		// One draw per Choose, never retried, never stored.
		target, err := g.ResolveTransition(selectionID)
		if err != nil {
			return err
		}
		next, err := g.SceneByNumber(target)
		if err != nil {
			return fmt.Errorf("transition target %d missing from scenario %d: %w", target, scenarioID, err)
		}

		// Guarded advance: the pointer moves only if it still matches the
		// snapshot this call validated against. Under MySQL's default
		// repeatable-read isolation the UPDATE is a current read, so a
		// concurrent Choose that already committed makes the predicate miss
		// and this whole unit, history append included, rolls back instead
		// of overwriting the pointer from a stale read.
		updates := map[string]interface{}{
			"current_number": next.Number,
			"is_completed":   next.IsEnd,
		}
		res := tx.Model(&models.PlaySession{}).
			Where("id = ? AND current_number = ? AND is_completed = ?", session.ID, session.CurrentNumber, false).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to advance session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidSelection
		}
		session.CurrentNumber = next.Number
		session.IsCompleted = next.IsEnd
		completedNow = next.IsEnd

		view, err = sessionView(g, &session)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.publish(interfaces.PlayEvent{
		Type:        interfaces.EventChoiceMade,
		ReaderID:    readerID,
		ScenarioID:  scenarioID,
		SceneNumber: view.Scene.Number,
		SelectionID: selectionID,
	})
	if completedNow {
		m.publish(interfaces.PlayEvent{
			Type:        interfaces.EventSessionCompleted,
			ReaderID:    readerID,
			ScenarioID:  scenarioID,
			SceneNumber: view.Scene.Number,
		})
	}
	return view, nil
}

// ViewCurrent returns the session's current scene and its selections. Returns
// ErrNeedsStart when the pair has no session yet.
func (m *Machine) ViewCurrent(ctx context.Context, readerID string, scenarioID uint) (*interfaces.SessionView, error) {
	var view *interfaces.SessionView

	err := m.store.WithTx(func(tx *gorm.DB) error {
		var session models.PlaySession
		if err := tx.Where("reader_id = ? AND scenario_id = ?", readerID, scenarioID).First(&session).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNeedsStart
			}
			return fmt.Errorf("failed to look up session: %w", err)
		}

		g, err := m.graphs.Load(ctx, tx, scenarioID)
		if err != nil {
			return err
		}

		view, err = sessionView(g, &session)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ViewHistory returns the session's ordered choice record plus the scene it
// currently stands on, for completed and in-progress sessions alike.
func (m *Machine) ViewHistory(ctx context.Context, readerID string, scenarioID uint) (*interfaces.HistoryView, error) {
	var view *interfaces.HistoryView

	err := m.store.WithTx(func(tx *gorm.DB) error {
		var session models.PlaySession
		if err := tx.Where("reader_id = ? AND scenario_id = ?", readerID, scenarioID).First(&session).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return storage.ErrNotFound
			}
			return fmt.Errorf("failed to look up session: %w", err)
		}

		g, err := m.graphs.Load(ctx, tx, scenarioID)
		if err != nil {
			return err
		}

		var entries []models.ChoiceEntry
		if err := tx.Where("session_id = ?", session.ID).Order("id").Find(&entries).Error; err != nil {
			return fmt.Errorf("failed to load choice history: %w", err)
		}

		scenesByRowID := make(map[uint]*graph.Scene, len(g.Scenes))
		selectionText := make(map[uint]string)
		for _, sc := range g.Scenes {
			scenesByRowID[sc.ID] = sc
			for _, sel := range sc.Selections {
				selectionText[sel.ID] = sel.Text
			}
		}

		view = &interfaces.HistoryView{
			ScenarioID:  g.ScenarioID,
			Title:       g.Title,
			IsCompleted: session.IsCompleted,
		}
		for _, e := range entries {
			var he interfaces.HistoryEntry
			sc, sceneOK := scenesByRowID[e.SceneID]
			text, selOK := selectionText[e.SelectionID]
			if sceneOK {
				he.SceneNumber = sc.Number
				he.SceneText = sc.Text
				he.SceneImage = sc.Image
			}
			he.SelectionText = text
			// Re-importing a scenario replaces its content rows, so entries
			// recorded against the old content no longer resolve. They stay
			// in the transcript but are flagged instead of rendering as a
			// scene numbered zero with blank text.
			he.Stale = !sceneOK || !selOK
			view.Entries = append(view.Entries, he)
		}

		if current, err := g.SceneByNumber(session.CurrentNumber); err == nil {
			sv := sceneView(current)
			view.Ending = &sv
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ListScenarios returns the catalog annotated with the reader's progress.
func (m *Machine) ListScenarios(ctx context.Context, readerID string) ([]interfaces.ScenarioSummary, error) {
	var summaries []interfaces.ScenarioSummary

	err := m.store.WithTx(func(tx *gorm.DB) error {
		var scenarios []models.Scenario
		if err := tx.Order("id").Find(&scenarios).Error; err != nil {
			return fmt.Errorf("failed to list scenarios: %w", err)
		}

		var sessions []models.PlaySession
		if err := tx.Where("reader_id = ?", readerID).Find(&sessions).Error; err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		byScenario := make(map[uint]models.PlaySession, len(sessions))
		for _, s := range sessions {
			byScenario[s.ScenarioID] = s
		}

		summaries = make([]interfaces.ScenarioSummary, 0, len(scenarios))
		for _, sc := range scenarios {
			status := "not_started"
			if s, ok := byScenario[sc.ID]; ok {
				if s.IsCompleted {
					status = "completed"
				} else {
					status = "in_progress"
				}
			}
			summaries = append(summaries, interfaces.ScenarioSummary{
				ID:          sc.ID,
				Title:       sc.Title,
				Description: sc.Description,
				Status:      status,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// ScenarioStats counts completed and in-progress sessions for one scenario.
func (m *Machine) ScenarioStats(ctx context.Context, scenarioID uint) (*interfaces.ScenarioStats, error) {
	var stats *interfaces.ScenarioStats

	err := m.store.WithTx(func(tx *gorm.DB) error {
		var scenario models.Scenario
		if err := tx.First(&scenario, scenarioID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return storage.ErrNotFound
			}
			return fmt.Errorf("failed to look up scenario: %w", err)
		}

		stats = &interfaces.ScenarioStats{ScenarioID: scenarioID}
		if err := tx.Model(&models.PlaySession{}).
			Where("scenario_id = ? AND is_completed = ?", scenarioID, true).
			Count(&stats.Completed).Error; err != nil {
			return fmt.Errorf("failed to count completed sessions: %w", err)
		}
		if err := tx.Model(&models.PlaySession{}).
			Where("scenario_id = ? AND is_completed = ?", scenarioID, false).
			Count(&stats.InProgress).Error; err != nil {
			return fmt.Errorf("failed to count in-progress sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (m *Machine) publish(event interfaces.PlayEvent) {
	if m.events == nil {
		return
	}
	event.Timestamp = time.Now().Unix()
	m.events.Publish(event)
}

func sceneView(sc *graph.Scene) interfaces.SceneView {
	return interfaces.SceneView{
		Number: sc.Number,
		Text:   sc.Text,
		Image:  sc.Image,
		IsEnd:  sc.IsEnd,
	}
}

func sessionView(g *graph.Graph, session *models.PlaySession) (*interfaces.SessionView, error) {
	scene, err := g.SceneByNumber(session.CurrentNumber)
	if err != nil {
		return nil, err
	}

	view := &interfaces.SessionView{
		ScenarioID:  g.ScenarioID,
		Title:       g.Title,
		Scene:       sceneView(scene),
		Selections:  []interfaces.SelectionView{},
		IsCompleted: session.IsCompleted,
	}
	if !scene.IsEnd {
		for _, sel := range scene.Selections {
			view.Selections = append(view.Selections, interfaces.SelectionView{ID: sel.ID, Text: sel.Text})
		}
	}
	return view, nil
}
