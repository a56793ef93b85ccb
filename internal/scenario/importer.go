package scenario

import (
	"context"
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"gamebook/server/internal/graph"
	"gamebook/server/internal/models"
	"gamebook/server/internal/storage"
)

// Importer turns validated scenario documents into store content. An import
// either leaves a fully formed scenario under the document's title, or the
// store completely unchanged.
type Importer struct {
	store  *storage.Store
	graphs *graph.Loader
}

func NewImporter(store *storage.Store, graphs *graph.Loader) *Importer {
	return &Importer{store: store, graphs: graphs}
}

// Import validates doc and writes it in one transaction. Importing an
// existing title is a replace: the old scenes, selections, and transitions
// are deleted in dependency order inside the same transaction, and the
// scenario keeps its id. Returns the scenario's stable id.
func (im *Importer) Import(ctx context.Context, doc *Document) (uint, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}

	var scenarioID uint
	err := im.store.WithTx(func(tx *gorm.DB) error {
		var existing models.Scenario
		err := tx.Where("title = ?", doc.Title).First(&existing).Error
		switch {
		case err == nil:
			if err := deleteScenarioContent(tx, existing.ID); err != nil {
				return err
			}
			if err := tx.Model(&existing).Update("description", doc.Description).Error; err != nil {
				return fmt.Errorf("failed to update scenario: %w", err)
			}
			scenarioID = existing.ID
		case err == gorm.ErrRecordNotFound:
			created := models.Scenario{Title: doc.Title, Description: doc.Description}
			if err := tx.Create(&created).Error; err != nil {
				return fmt.Errorf("failed to create scenario: %w", err)
			}
			scenarioID = created.ID
		default:
			return fmt.Errorf("failed to look up scenario: %w", err)
		}

		for _, ds := range doc.Scenes {
			scene := models.Scene{
				ScenarioID: scenarioID,
				Number:     ds.ID,
				Text:       ds.Text,
				Image:      ds.Image,
				IsEnd:      ds.End,
			}
			if err := tx.Create(&scene).Error; err != nil {
				return fmt.Errorf("failed to create scene %d: %w", ds.ID, err)
			}

			for _, dsel := range ds.Selection {
				sel := models.Selection{SceneID: scene.ID, Text: dsel.Text}
				if err := tx.Create(&sel).Error; err != nil {
					return fmt.Errorf("failed to create selection on scene %d: %w", ds.ID, err)
				}
				for _, target := range dsel.NextID {
					tr := models.Transition{SelectionID: sel.ID, TargetNumber: target}
					if err := tx.Create(&tr).Error; err != nil {
						return fmt.Errorf("failed to create transition on scene %d: %w", ds.ID, err)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	im.graphs.Invalidate(ctx, scenarioID)
	log.Printf("[Importer] imported scenario %q (id %d, %d scenes)", doc.Title, scenarioID, len(doc.Scenes))
	return scenarioID, nil
}

// ImportFile reads, parses, and imports one scenario JSON file.
func (im *Importer) ImportFile(ctx context.Context, path string) (uint, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open scenario file: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return 0, err
	}
	return im.Import(ctx, doc)
}

// deleteScenarioContent removes the scenario's transitions, selections, and
// scenes, in that order. The scenario row itself stays so session foreign
// keys keep pointing at a stable id.
func deleteScenarioContent(tx *gorm.DB, scenarioID uint) error {
	var sceneIDs []uint
	if err := tx.Model(&models.Scene{}).Where("scenario_id = ?", scenarioID).Pluck("id", &sceneIDs).Error; err != nil {
		return fmt.Errorf("failed to list scenes: %w", err)
	}
	if len(sceneIDs) == 0 {
		return nil
	}

	var selectionIDs []uint
	if err := tx.Model(&models.Selection{}).Where("scene_id IN ?", sceneIDs).Pluck("id", &selectionIDs).Error; err != nil {
		return fmt.Errorf("failed to list selections: %w", err)
	}

	if len(selectionIDs) > 0 {
		if err := tx.Where("selection_id IN ?", selectionIDs).Delete(&models.Transition{}).Error; err != nil {
			return fmt.Errorf("failed to delete transitions: %w", err)
		}
	}
	if err := tx.Where("scene_id IN ?", sceneIDs).Delete(&models.Selection{}).Error; err != nil {
		return fmt.Errorf("failed to delete selections: %w", err)
	}
	if err := tx.Where("scenario_id = ?", scenarioID).Delete(&models.Scene{}).Error; err != nil {
		return fmt.Errorf("failed to delete scenes: %w", err)
	}
	return nil
}
