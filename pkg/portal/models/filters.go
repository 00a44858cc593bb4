package models

// PromptFilters narrows the public prompt listing. Zero values mean "no
// filter" for that dimension. The struct is comparable so it can be used
// directly inside cache keys.
type PromptFilters struct {
	CategoryID uint       `form:"category_id" json:"category_id,omitempty"`
	ToolID     uint       `form:"tool_id" json:"tool_id,omitempty"`
	Type       PromptType `form:"type" json:"type,omitempty"`
	Search     string     `form:"search" json:"search,omitempty"`
}

// IsZero reports whether no filter is set
func (f PromptFilters) IsZero() bool {
	return f == PromptFilters{}
}
