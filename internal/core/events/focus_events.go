package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	FocusCreatedEvent  = "focus.created"
	FocusUpdatedEvent  = "focus.updated"
	FocusDeletedEvent  = "focus.deleted"
	FocusSelectedEvent = "focus.selected"
	LayoutSavedEvent   = "workspace.layout_saved"
)

func NewFocusCreated(focusID string, createdBy int64) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      FocusCreatedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"focus_id":   focusID,
			"created_by": createdBy,
		},
	}
}

func NewFocusUpdated(focusID string, updatedBy int64) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      FocusUpdatedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"focus_id":   focusID,
			"updated_by": updatedBy,
		},
	}
}

func NewFocusDeleted(focusID string, deletedBy int64) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      FocusDeletedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"focus_id":   focusID,
			"deleted_by": deletedBy,
		},
	}
}

func NewFocusSelected(focusID string, userID int64) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      FocusSelectedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"focus_id": focusID,
			"user_id":  userID,
		},
	}
}

func NewLayoutSaved(target string, userID int64, schemaVersion int) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      LayoutSavedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"target":         target,
			"user_id":        userID,
			"schema_version": schemaVersion,
		},
	}
}

// FocusID extracts the focus id from a focus event payload.
func FocusID(e Event) string {
	data, ok := e.Payload().(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := data["focus_id"].(string)
	return id
}
