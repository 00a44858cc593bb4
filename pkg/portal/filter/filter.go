// Package filter turns gallery selections made by name into the id-based
// filters the prompt listing understands.
package filter

import (
	"strings"
	"sync"

	"github.com/mikepea/promptportal/pkg/portal/models"
)

// All is the selection sentinel meaning "do not filter on this dimension"
const All = "All"

// Selection is what the user picked in the gallery
type Selection struct {
	Category string `form:"category" json:"category"`
	Tool     string `form:"tool" json:"tool"`
	Type     string `form:"type" json:"type"`
	Search   string `form:"search" json:"search"`
}

// Compose resolves category and tool names against the loaded reference
// lists. A name with no match (for example because the list has not loaded
// yet) drops that filter rather than producing an invalid id.
func Compose(sel Selection, categories []models.Category, tools []models.Tool) models.PromptFilters {
	var f models.PromptFilters

	if selected(sel.Category) {
		for _, c := range categories {
			if c.Name == sel.Category {
				f.CategoryID = c.ID
				break
			}
		}
	}

	if selected(sel.Tool) {
		for _, t := range tools {
			if t.Name == sel.Tool {
				f.ToolID = t.ID
				break
			}
		}
	}

	if selected(sel.Type) {
		if t := models.PromptType(strings.ToLower(sel.Type)); t.Valid() {
			f.Type = t
		}
	}

	f.Search = strings.TrimSpace(sel.Search)
	return f
}

func selected(name string) bool {
	return name != "" && name != All
}

type ref struct {
	id   uint
	name string
}

type memo struct {
	sel        Selection
	categories []ref
	tools      []ref
	filters    models.PromptFilters
}

// Composer memoizes Compose: it only recomputes when the selection or the
// id/name pairs of the reference lists change.
type Composer struct {
	mu   sync.Mutex
	last *memo
	runs int
}

// Compose returns the filters for sel, reusing the previous result when
// nothing it depends on has changed
func (c *Composer) Compose(sel Selection, categories []models.Category, tools []models.Tool) models.PromptFilters {
	cats := make([]ref, len(categories))
	for i, cat := range categories {
		cats[i] = ref{cat.ID, cat.Name}
	}
	tls := make([]ref, len(tools))
	for i, t := range tools {
		tls[i] = ref{t.ID, t.Name}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last != nil && c.last.sel == sel && equalRefs(c.last.categories, cats) && equalRefs(c.last.tools, tls) {
		return c.last.filters
	}

	c.runs++
	c.last = &memo{
		sel:        sel,
		categories: cats,
		tools:      tls,
		filters:    Compose(sel, categories, tools),
	}
	return c.last.filters
}

func equalRefs(a, b []ref) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
