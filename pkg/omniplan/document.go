package omniplan

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// IDRef is an element pointing at another record, e.g. <child-task idref="t3"/>.
type IDRef struct {
	IDRef string `xml:"idref,attr"`
}

// UserData is a free-form key/value pair attached to a task.
type UserData struct {
	Key   string `xml:"key"`
	Value string `xml:"value"`
}

// RawTask is one <task> entry of an OmniPlan export.
type RawTask struct {
	ID            string     `xml:"id,attr"`
	Type          string     `xml:"type,attr"`
	Title         string     `xml:"title"`
	Prerequisites []IDRef    `xml:"prerequisite-task"`
	ChildTasks    []IDRef    `xml:"child-task"`
	Assignment    *IDRef     `xml:"assignment"`
	Effort        string     `xml:"effort"`
	EffortDone    string     `xml:"effort_done"`
	Priority      *string    `xml:"priority"`
	UserData      []UserData `xml:"user-data"`
}

// ChildRefs returns the idrefs of the task's children in document order.
func (t *RawTask) ChildRefs() []string {
	return refs(t.ChildTasks)
}

// PrerequisiteRefs returns the idrefs of the tasks this one depends on.
func (t *RawTask) PrerequisiteRefs() []string {
	return refs(t.Prerequisites)
}

// Field returns the value of a scalar field by its XML name. Unknown keys
// return "" so they never match a non-empty query.
func (t *RawTask) Field(key string) string {
	switch key {
	case "id":
		return t.ID
	case "type":
		return t.Type
	case "title":
		return t.Title
	case "assignment":
		if t.Assignment != nil {
			return t.Assignment.IDRef
		}
	case "effort":
		return t.Effort
	case "effort_done":
		return t.EffortDone
	case "priority":
		if t.Priority != nil {
			return *t.Priority
		}
	}
	return ""
}

// RawResource is one <resource> entry.
type RawResource struct {
	ID   string `xml:"id,attr"`
	Type string `xml:"type,attr"`
	Name string `xml:"name"`
}

// Field is the RawResource counterpart of RawTask.Field.
func (r *RawResource) Field(key string) string {
	switch key {
	case "id":
		return r.ID
	case "type":
		return r.Type
	case "name":
		return r.Name
	}
	return ""
}

// IsGroup reports whether the resource is a resource group rather than a person.
func (r *RawResource) IsGroup() bool {
	return strings.EqualFold(r.Type, "group")
}

// Document is an OmniPlan scenario. It is read once and never modified.
type Document struct {
	Tasks       []RawTask     `xml:"task"`
	Resources   []RawResource `xml:"resource"`
	TopTask     *IDRef        `xml:"top-task"`
	TopResource *IDRef        `xml:"top-resource"`
}

// Loader loads a Document from a path.
type Loader interface {
	Load(path string) (*Document, error)
}

// FileLoader reads documents from the local filesystem.
type FileLoader struct{}

// Load implements Loader.
func (FileLoader) Load(path string) (*Document, error) {
	return Load(path)
}

// Load reads and parses an OmniPlan XML file (the Actual.xml inside a .oplx bundle).
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes an OmniPlan XML document.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode omniplan xml: %w", err)
	}
	return &doc, nil
}

func refs(ids []IDRef) []string {
	out := make([]string, 0, len(ids))
	for _, r := range ids {
		out = append(out, r.IDRef)
	}
	return out
}
