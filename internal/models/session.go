package models

import "time"

// EditorSessionInfo is the externally visible state of an editor session.
type EditorSessionInfo struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	MapID           string         `json:"mapId"`
	Version         string         `json:"version"`
	ActiveLayoutID  string         `json:"activeLayoutId"`
	Layouts         []Layout       `json:"layouts"`
	SelectedNodeIDs []string       `json:"selectedNodeIds"`
	CanUndo         bool           `json:"canUndo"`
	CanRedo         bool           `json:"canRedo"`
	HasUnsavedData  bool           `json:"hasUnsavedData"`
	RecoveryPending bool           `json:"recoveryPending"`
	ReadOnly        bool           `json:"readOnly"`
	StageScale      float64        `json:"stageScale"`
	LatticeSize     float64        `json:"latticeSize"`
	ShowRemarksIcon bool           `json:"showRemarksIcon"`
	Preferences     MapPreferences `json:"preferences"`
	Note            string         `json:"note,omitempty"`
	LastAccessed    time.Time      `json:"lastAccessed"`
}

// LayerSnapshot is the live config set of the active floor, in z-order.
type LayerSnapshot struct {
	LayoutID string       `json:"layoutId"`
	Maps     []ShapeEntry `json:"maps"`
	Areas    []ShapeEntry `json:"areas"`
}
