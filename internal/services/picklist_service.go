package services

import (
	"fmt"
	"sync"

	"pim-service/internal/models"
)

// PicklistEditor stages dropdown option edits per attribute. The dialog editing
// an attribute's options works on a draft copy; the owning attribute sees
// nothing until Commit, and Discard throws the draft away. One draft per
// attribute id at a time.
type PicklistEditor struct {
	mu     sync.Mutex
	drafts map[string][]string
}

// NewPicklistEditor creates an empty editor.
func NewPicklistEditor() *PicklistEditor {
	return &PicklistEditor{drafts: make(map[string][]string)}
}

// Open starts a draft for an attribute, seeded with its current options.
// Reopening an attribute with a live draft resets the draft to the given list.
func (e *PicklistEditor) Open(attributeID models.EntityID, current []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	draft := make([]string, len(current))
	copy(draft, current)
	e.drafts[attributeID.String()] = draft
}

// Draft returns the staged options for an attribute, nil when no draft is open.
func (e *PicklistEditor) Draft(attributeID models.EntityID) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	draft, ok := e.drafts[attributeID.String()]
	if !ok {
		return nil
	}
	out := make([]string, len(draft))
	copy(out, draft)
	return out
}

// AddOption appends an option to the draft. Duplicates are not checked;
// insertion order is meaningful.
func (e *PicklistEditor) AddOption(attributeID models.EntityID, option string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	draft, ok := e.drafts[attributeID.String()]
	if !ok {
		return fmt.Errorf("no open draft for attribute %s", attributeID)
	}
	e.drafts[attributeID.String()] = append(draft, option)
	return nil
}

// UpdateOption replaces the option at index.
func (e *PicklistEditor) UpdateOption(attributeID models.EntityID, index int, option string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	draft, ok := e.drafts[attributeID.String()]
	if !ok {
		return fmt.Errorf("no open draft for attribute %s", attributeID)
	}
	if index < 0 || index >= len(draft) {
		return fmt.Errorf("option index %d out of range", index)
	}
	draft[index] = option
	return nil
}

// RemoveOption deletes the option at index.
func (e *PicklistEditor) RemoveOption(attributeID models.EntityID, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	draft, ok := e.drafts[attributeID.String()]
	if !ok {
		return fmt.Errorf("no open draft for attribute %s", attributeID)
	}
	if index < 0 || index >= len(draft) {
		return fmt.Errorf("option index %d out of range", index)
	}
	e.drafts[attributeID.String()] = append(draft[:index], draft[index+1:]...)
	return nil
}

// ReorderOption moves the option at fromIndex to toIndex.
func (e *PicklistEditor) ReorderOption(attributeID models.EntityID, fromIndex, toIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	draft, ok := e.drafts[attributeID.String()]
	if !ok {
		return fmt.Errorf("no open draft for attribute %s", attributeID)
	}
	if fromIndex < 0 || fromIndex >= len(draft) || toIndex < 0 || toIndex >= len(draft) {
		return fmt.Errorf("reorder indexes out of range")
	}
	moved := draft[fromIndex]
	draft = append(draft[:fromIndex], draft[fromIndex+1:]...)
	draft = append(draft, "")
	copy(draft[toIndex+1:], draft[toIndex:])
	draft[toIndex] = moved
	e.drafts[attributeID.String()] = draft
	return nil
}

// Commit closes the draft and merges it into the owning attribute through the
// editing session. This is the only point at which staged edits become visible.
func (e *PicklistEditor) Commit(session *EditSession, sectionID, attributeID models.EntityID) error {
	e.mu.Lock()
	draft, ok := e.drafts[attributeID.String()]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("no open draft for attribute %s", attributeID)
	}
	delete(e.drafts, attributeID.String())
	e.mu.Unlock()

	options := make([]string, len(draft))
	copy(options, draft)
	return session.UpdateAttribute(sectionID, attributeID, AttributeUpdate{Options: &options})
}

// Discard drops the draft without touching the attribute.
func (e *PicklistEditor) Discard(attributeID models.EntityID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.drafts, attributeID.String())
}
