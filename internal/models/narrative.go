package models

import (
	"time"
)

// Scenario represents one complete branching narrative, identified by a unique title.
type Scenario struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"uniqueIndex;size:255" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Scene is one narrative beat within a scenario. Number is the author-assigned
// scene number, unique within the scenario but not globally. The scene with the
// lowest Number is the scenario's entry point.
type Scene struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ScenarioID uint      `gorm:"uniqueIndex:idx_scenario_number" json:"scenario_id"`
	Number     int       `gorm:"uniqueIndex:idx_scenario_number" json:"number"`
	Text       string    `gorm:"type:text" json:"text"`
	Image      string    `gorm:"size:255" json:"image,omitempty"`
	IsEnd      bool      `json:"is_end"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Selection is one reader-facing choice attached to a scene.
type Selection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SceneID   uint      `gorm:"index" json:"scene_id"`
	Text      string    `gorm:"type:text" json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transition is one candidate target of a selection. A selection always owns at
// least one transition; with exactly one the jump is deterministic, with more the
// engine draws uniformly at random among them on every evaluation.
type Transition struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SelectionID  uint      `gorm:"index" json:"selection_id"`
	TargetNumber int       `json:"target_number"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PlaySession is one reader's traversal of one scenario. At most one session
// exists per (reader, scenario) pair; starting again replaces it.
type PlaySession struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ReaderID      string    `gorm:"size:64;uniqueIndex:idx_reader_scenario" json:"reader_id"`
	ScenarioID    uint      `gorm:"uniqueIndex:idx_reader_scenario" json:"scenario_id"`
	CurrentNumber int       `json:"current_number"`
	IsCompleted   bool      `json:"is_completed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChoiceEntry is one append-only record of a selection taken by a session.
// Entries are ordered by ID and deleted only when their session is replaced.
type ChoiceEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   uint      `gorm:"index" json:"session_id"`
	SceneID     uint      `json:"scene_id"`
	SelectionID uint      `json:"selection_id"`
	CreatedAt   time.Time `json:"created_at"`
}
