package scenario

import (
	"context"
	"path/filepath"
	"testing"

	"gamebook/server/internal/config"
	"gamebook/server/internal/graph"
	"gamebook/server/internal/models"
	"gamebook/server/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "engine.db")},
	}
	store, err := storage.NewStore(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func forkDoc() *Document {
	return &Document{
		Title:       "The Fork",
		Description: "A short branching story",
		Scenes: []DocumentScene{
			{ID: 1, Text: "You stand at a fork.", Selection: []DocumentSelection{
				{Text: "go left", NextID: NextID{2}},
				{Text: "go right", NextID: NextID{2, 3}},
			}},
			{ID: 2, Text: "The left path ends.", End: true},
			{ID: 3, Text: "The right path ends.", End: true},
		},
	}
}

func countRows(t *testing.T, store *storage.Store, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := store.DB().Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

func TestImportWritesFullScenario(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	im := NewImporter(store, graph.NewLoader(nil))

	id, err := im.Import(context.Background(), forkDoc())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if id == 0 {
		t.Fatal("scenario id = 0, want assigned id")
	}

	if n := countRows(t, store, &models.Scene{}); n != 3 {
		t.Fatalf("scenes = %d, want 3", n)
	}
	if n := countRows(t, store, &models.Selection{}); n != 2 {
		t.Fatalf("selections = %d, want 2", n)
	}
	if n := countRows(t, store, &models.Transition{}); n != 3 {
		t.Fatalf("transitions = %d, want 3", n)
	}
}

func TestImportValidationLeavesStoreUnchanged(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	im := NewImporter(store, graph.NewLoader(nil))

	if _, err := im.Import(context.Background(), forkDoc()); err != nil {
		t.Fatalf("import: %v", err)
	}

	// Re-import under the same title with a dangling target. The prior
	// content must survive untouched.
	bad := forkDoc()
	bad.Scenes[0].Selection[0].NextID = NextID{99}

	_, err := im.Import(context.Background(), bad)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}

	if n := countRows(t, store, &models.Scene{}); n != 3 {
		t.Fatalf("scenes after failed import = %d, want 3", n)
	}
	if n := countRows(t, store, &models.Transition{}); n != 3 {
		t.Fatalf("transitions after failed import = %d, want 3", n)
	}

	var scene models.Scene
	if err := store.DB().Where("number = ?", 1).First(&scene).Error; err != nil {
		t.Fatalf("load scene 1: %v", err)
	}
	if scene.Text != "You stand at a fork." {
		t.Fatalf("scene text = %q, want original text", scene.Text)
	}
}

func TestImportReplaceKeepsIDAndDropsOldRows(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	im := NewImporter(store, graph.NewLoader(nil))

	firstID, err := im.Import(context.Background(), forkDoc())
	if err != nil {
		t.Fatalf("first import: %v", err)
	}

	second := &Document{
		Title:       "The Fork",
		Description: "Rewritten",
		Scenes: []DocumentScene{
			{ID: 10, Text: "A new beginning.", Selection: []DocumentSelection{
				{Text: "continue", NextID: NextID{20}},
			}},
			{ID: 20, Text: "A new ending.", End: true},
		},
	}
	secondID, err := im.Import(context.Background(), second)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if secondID != firstID {
		t.Fatalf("scenario id changed on replace: %d -> %d", firstID, secondID)
	}

	if n := countRows(t, store, &models.Scenario{}); n != 1 {
		t.Fatalf("scenarios = %d, want 1", n)
	}
	if n := countRows(t, store, &models.Scene{}); n != 2 {
		t.Fatalf("scenes = %d, want 2 (no orphans)", n)
	}
	if n := countRows(t, store, &models.Selection{}); n != 1 {
		t.Fatalf("selections = %d, want 1 (no orphans)", n)
	}
	if n := countRows(t, store, &models.Transition{}); n != 1 {
		t.Fatalf("transitions = %d, want 1 (no orphans)", n)
	}

	var scenario models.Scenario
	if err := store.DB().First(&scenario, firstID).Error; err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if scenario.Description != "Rewritten" {
		t.Fatalf("description = %q, want %q", scenario.Description, "Rewritten")
	}
}

func TestImportFileMissing(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	im := NewImporter(store, graph.NewLoader(nil))

	if _, err := im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if n := countRows(t, store, &models.Scenario{}); n != 0 {
		t.Fatalf("scenarios = %d, want 0", n)
	}
}
