package service

import (
	"encoding/json"
	"fmt"
	"log"

	"pagebuilder/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Editor state persistence
// ─────────────────────────────────────────────────────────────
//
// One-shot CLI runs start a fresh session every time. The current page,
// the selection per page and the clipboard are kept as key-value rows
// in app_settings so the next run picks up where the last one stopped.

// KeyValueStore is the app_settings table.
type KeyValueStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

const (
	settingCurrentPage = "current_page"
	settingClipboard   = "clipboard"
	settingSelection   = "selection:"
)

// SettingsService persists editor state between CLI runs.
type SettingsService struct {
	kv KeyValueStore
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(kv KeyValueStore) *SettingsService {
	return &SettingsService{kv: kv}
}

// CurrentPage returns the page the last `edit open` picked, or "".
func (s *SettingsService) CurrentPage() string {
	v, _, err := s.kv.Get(settingCurrentPage)
	if err != nil {
		log.Printf("[SETTINGS] read current page: %v", err)
	}
	return v
}

func (s *SettingsService) SetCurrentPage(pageID string) error {
	if pageID == "" {
		return s.kv.Delete(settingCurrentPage)
	}
	return s.kv.Set(settingCurrentPage, pageID)
}

// Selection returns the saved selection of pageID, or "".
func (s *SettingsService) Selection(pageID string) string {
	v, _, err := s.kv.Get(settingSelection + pageID)
	if err != nil {
		log.Printf("[SETTINGS] read selection of %s: %v", pageID, err)
	}
	return v
}

func (s *SettingsService) SetSelection(pageID, componentID string) error {
	if componentID == "" {
		return s.kv.Delete(settingSelection + pageID)
	}
	return s.kv.Set(settingSelection+pageID, componentID)
}

// Clipboard returns the saved clipboard node, or nil. A corrupt row
// reads as an empty clipboard.
func (s *SettingsService) Clipboard() *domain.ComponentNode {
	v, ok, err := s.kv.Get(settingClipboard)
	if err != nil || !ok || v == "" {
		return nil
	}
	var n domain.ComponentNode
	if err := json.Unmarshal([]byte(v), &n); err != nil {
		log.Printf("[SETTINGS] discard unreadable clipboard: %v", err)
		return nil
	}
	return &n
}

func (s *SettingsService) SetClipboard(n *domain.ComponentNode) error {
	if n == nil {
		return s.kv.Delete(settingClipboard)
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode clipboard: %w", err)
	}
	return s.kv.Set(settingClipboard, string(data))
}
