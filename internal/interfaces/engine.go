package interfaces

// SceneView is the reader-facing projection of one scene.
type SceneView struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Image  string `json:"image,omitempty"`
	IsEnd  bool   `json:"is_end"`
}

// SelectionView is one choice the reader can take from the current scene.
type SelectionView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// SessionView describes where a play session currently stands. Selections is
// empty once the session reached a terminal scene.
type SessionView struct {
	ScenarioID  uint            `json:"scenario_id"`
	Title       string          `json:"title"`
	Scene       SceneView       `json:"scene"`
	Selections  []SelectionView `json:"selections"`
	IsCompleted bool            `json:"is_completed"`
}

// HistoryEntry is one recorded choice: the scene the reader left and the
// selection they took there.
type HistoryEntry struct {
	SceneNumber   int    `json:"scene_number"`
	SceneText     string `json:"scene_text"`
	SceneImage    string `json:"scene_image,omitempty"`
	SelectionText string `json:"selection_text"`
	// Stale marks entries recorded against scenario content that a later
	// re-import replaced; their scene and selection rows no longer exist.
	Stale bool `json:"stale,omitempty"`
}

// HistoryView is the full ordered choice record of a session plus the scene
// the session currently stands on (the ending, once completed).
type HistoryView struct {
	ScenarioID  uint           `json:"scenario_id"`
	Title       string         `json:"title"`
	Entries     []HistoryEntry `json:"entries"`
	Ending      *SceneView     `json:"ending,omitempty"`
	IsCompleted bool           `json:"is_completed"`
}

// ScenarioSummary is one row of the scenario catalog, annotated with the
// requesting reader's progress.
type ScenarioSummary struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Status is "not_started", "in_progress", or "completed".
	Status string `json:"status"`
}

// ScenarioStats counts sessions per scenario.
type ScenarioStats struct {
	ScenarioID uint  `json:"scenario_id"`
	Completed  int64 `json:"completed"`
	InProgress int64 `json:"in_progress"`
}

// Play event types broadcast to observers.
const (
	EventSessionStarted   = "session_started"
	EventChoiceMade       = "choice_made"
	EventSessionCompleted = "session_completed"
)

// PlayEvent is one observable engine transition. Events are fire-and-forget
// observability glue; the engine never reads them back.
type PlayEvent struct {
	Type        string `json:"type"`
	ReaderID    string `json:"reader_id"`
	ScenarioID  uint   `json:"scenario_id"`
	SceneNumber int    `json:"scene_number"`
	SelectionID uint   `json:"selection_id,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// EventSink receives play events after the transaction that produced them
// committed. Implementations must not block.
type EventSink interface {
	Publish(event PlayEvent)
}
