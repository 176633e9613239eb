package workspace

import (
	"encoding/json"
	"errors"
)

// CurrentSchemaVersion gates restore: any stored snapshot carrying a
// different version is discarded wholesale, never migrated in place.
const CurrentSchemaVersion = 6

// Snapshot is the versioned bundle that gets persisted and restored: the
// panel engine's document plus the surrounding workspace settings.
type Snapshot struct {
	Version       int               `json:"version"`
	PanelDocument PanelDocument     `json:"panelDocument"`
	Sidebar       *Sidebar          `json:"sidebar,omitempty"`
	GlobalFilters map[string]string `json:"globalFilters,omitempty"`
	Appearance    *Appearance       `json:"appearance,omitempty"`
}

// PanelDocument mirrors what the external panel engine round-trips: a map
// of panel definitions and a grid whose root is a tagged node tree. Panel
// contents are opaque; only the tree shape is this package's contract.
type PanelDocument struct {
	Panels map[string]json.RawMessage `json:"panels"`
	Grid   Grid                       `json:"grid"`
}

type Grid struct {
	Root   PanelNode `json:"root"`
	Width  *float64  `json:"width,omitempty"`
	Height *float64  `json:"height,omitempty"`
}

// PanelNode is the tagged variant: "branch" carries child nodes in Data,
// "leaf" carries a LeafData. Size may be absent.
type PanelNode struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Size *float64        `json:"size,omitempty"`
}

const (
	NodeBranch = "branch"
	NodeLeaf   = "leaf"
)

type LeafData struct {
	ID         string            `json:"id"`
	Views      []json.RawMessage `json:"views"`
	ActiveView string            `json:"activeView,omitempty"`
}

type Sidebar struct {
	Collapsed bool `json:"collapsed"`
	Width     int  `json:"width"`
}

type Appearance struct {
	Theme       string `json:"theme"`
	FontSize    int    `json:"fontSize"`
	FontFamily  string `json:"fontFamily"`
	SpacingMode string `json:"spacingMode"`
}

// State classifies a stored document.
type State string

const (
	StateValid           State = "valid"
	StateVersionMismatch State = "version_mismatch"
	StateCorrupt         State = "corrupt"
	StateAbsent          State = "absent"
)

// ErrAbsent is returned by snapshot stores when no document exists for the
// requested target.
var ErrAbsent = errors.New("no stored snapshot")

// DefaultSnapshot synthesizes the fresh workspace used whenever a stored
// document is absent or had to be discarded.
func DefaultSnapshot() *Snapshot {
	emptyChildren, _ := json.Marshal([]PanelNode{})
	return &Snapshot{
		Version: CurrentSchemaVersion,
		PanelDocument: PanelDocument{
			Panels: map[string]json.RawMessage{},
			Grid: Grid{
				Root: PanelNode{Type: NodeBranch, Data: emptyChildren},
			},
		},
		Sidebar: &Sidebar{Collapsed: false, Width: 280},
		Appearance: &Appearance{
			Theme:       "default",
			FontSize:    12,
			FontFamily:  "Inter",
			SpacingMode: "default",
		},
	}
}
