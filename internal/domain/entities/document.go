package entities

import (
	"encoding/json"
	"fmt"
)

// rawDocument mirrors ExportData with pointer slices so a missing array
// can be told apart from an empty one during validation.
type rawDocument struct {
	Meta       ExportMeta       `json:"meta"`
	AppName    string           `json:"appName"`
	AppIcon    string           `json:"appIcon"`
	Categories *[]Category      `json:"categories"`
	Tasks      *[]Task          `json:"tasks"`
	Events     *[]CalendarEvent `json:"events"`
}

// ParseDocument decodes and validates a persisted board document.
// A document is accepted only if categories and tasks are both present
// as arrays; events is optional and defaults to empty. Rejections name
// the missing fields and leave nothing imported.
func ParseDocument(data []byte) (ExportData, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return ExportData{}, fmt.Errorf("parse document: %w", err)
	}

	var missing []string
	if raw.Categories == nil {
		missing = append(missing, "categories")
	}
	if raw.Tasks == nil {
		missing = append(missing, "tasks")
	}
	if len(missing) > 0 {
		return ExportData{}, ValidationError{Missing: missing}
	}

	doc := ExportData{
		Meta:       raw.Meta,
		AppName:    raw.AppName,
		AppIcon:    raw.AppIcon,
		Categories: *raw.Categories,
		Tasks:      *raw.Tasks,
	}
	if raw.Events != nil {
		doc.Events = *raw.Events
	} else {
		doc.Events = []CalendarEvent{}
	}
	return doc, nil
}

// EncodeDocument marshals a document the way it is persisted on disk.
func EncodeDocument(doc ExportData) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}
