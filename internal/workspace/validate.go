package workspace

import (
	"encoding/json"
)

// Validate classifies a raw stored document. It never panics on malformed
// input: any structural defect anywhere in the tree makes the whole
// document Corrupt, and a structurally sound document with the wrong
// schema version is a VersionMismatch. Only a fully valid document is ever
// applied; everything else is replaced by DefaultSnapshot.
func Validate(raw []byte) State {
	if len(raw) == 0 {
		return StateCorrupt
	}

	var head struct {
		Version       *int            `json:"version"`
		PanelDocument json.RawMessage `json:"panelDocument"`
		Sidebar       json.RawMessage `json:"sidebar"`
		GlobalFilters json.RawMessage `json:"globalFilters"`
		Appearance    json.RawMessage `json:"appearance"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return StateCorrupt
	}
	if head.Version == nil {
		return StateCorrupt
	}

	if !validPanelDocument(head.PanelDocument) {
		return StateCorrupt
	}
	if !validOptionalSection(head.Sidebar, &Sidebar{}) {
		return StateCorrupt
	}
	if !validOptionalSection(head.Appearance, &Appearance{}) {
		return StateCorrupt
	}
	if len(head.GlobalFilters) > 0 && string(head.GlobalFilters) != "null" {
		var filters map[string]string
		if err := json.Unmarshal(head.GlobalFilters, &filters); err != nil {
			return StateCorrupt
		}
	}

	if *head.Version != CurrentSchemaVersion {
		return StateVersionMismatch
	}
	return StateValid
}

func validPanelDocument(raw json.RawMessage) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	var doc struct {
		Panels map[string]json.RawMessage `json:"panels"`
		Grid   *struct {
			Root json.RawMessage `json:"root"`
		} `json:"grid"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	if doc.Panels == nil || doc.Grid == nil {
		return false
	}
	return validNode(doc.Grid.Root, 0)
}

const maxTreeDepth = 64

func validNode(raw json.RawMessage, depth int) bool {
	if depth > maxTreeDepth {
		return false
	}
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}

	var node PanelNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return false
	}

	switch node.Type {
	case NodeLeaf:
		var leaf LeafData
		if err := json.Unmarshal(node.Data, &leaf); err != nil {
			return false
		}
		return leaf.ID != "" && len(leaf.Views) > 0
	case NodeBranch:
		var children []json.RawMessage
		if err := json.Unmarshal(node.Data, &children); err != nil {
			return false
		}
		for _, child := range children {
			if !validNode(child, depth+1) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// validOptionalSection accepts an absent section but requires a present
// one to decode cleanly into its typed shape (bools stay bools, ints stay
// ints).
func validOptionalSection(raw json.RawMessage, target interface{}) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	return json.Unmarshal(raw, target) == nil
}
