// Package builder implements the component builder's state machine: the
// component library, the ordered canvas composition, named templates, the
// shared theme, and the best-effort cloud sync policy around them.
package builder

// Component categories. Category is free-typed on the wire but every entry
// the system produces uses one of these.
const (
	CategoryElements  = "Elements"
	CategoryForms     = "Forms"
	CategoryLayout    = "Layout"
	CategoryCards     = "Cards"
	CategoryComplex   = "Complex"
	CategoryDashboard = "Dashboard"

	// CategoryAll is the wildcard filter value, not a storable category.
	CategoryAll = "All"
)

// Categories lists the valid component categories.
var Categories = []string{
	CategoryElements, CategoryForms, CategoryLayout,
	CategoryCards, CategoryComplex, CategoryDashboard,
}

// ValidCategory returns true if c is a known storable category.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultComplexity is the display weight used when a primitive has none.
const DefaultComplexity = 42

// ComponentPrimitive is a reusable component descriptor in the library.
type ComponentPrimitive struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Code        string   `json:"code,omitempty"`
	ExtractedAt int64    `json:"extractedAt,omitempty"` // unix millis; zero for seed entries
	Complexity  int      `json:"complexity,omitempty"`
}

// DisplayComplexity returns the primitive's complexity weight, defaulting
// when none was recorded.
func (p ComponentPrimitive) DisplayComplexity() int {
	if p.Complexity > 0 {
		return p.Complexity
	}
	return DefaultComplexity
}

func (p ComponentPrimitive) clone() ComponentPrimitive {
	out := p
	out.Tags = append([]string(nil), p.Tags...)
	return out
}

// CanvasItem is one placement of a primitive on the canvas. The descriptor
// fields are a snapshot copy — later library edits do not reach back into
// placed instances.
type CanvasItem struct {
	ComponentPrimitive
	InstanceID string `json:"instanceId"`
	CustomName string `json:"customName,omitempty"`
}

// DisplayName returns the user override when set, else the primitive name.
func (c CanvasItem) DisplayName() string {
	if c.CustomName != "" {
		return c.CustomName
	}
	return c.Name
}

func (c CanvasItem) clone() CanvasItem {
	out := c
	out.ComponentPrimitive = c.ComponentPrimitive.clone()
	return out
}

func cloneItems(items []CanvasItem) []CanvasItem {
	out := make([]CanvasItem, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}

// SavedTemplate is an immutable named snapshot of a canvas composition.
type SavedTemplate struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Items   []CanvasItem `json:"items"`
	SavedAt int64        `json:"savedAt"` // unix millis
}

func (t SavedTemplate) clone() SavedTemplate {
	out := t
	out.Items = cloneItems(t.Items)
	return out
}

// Theme holds the shared visual theme. Partial updates merge into it.
type Theme struct {
	PrimaryColor string `json:"primaryColor"`
	BorderRadius int    `json:"borderRadius"` // pixels
	FontFamily   string `json:"fontFamily"`   // "Inter" or "Sora"
}

// DefaultTheme returns the theme every fresh builder starts with.
func DefaultTheme() Theme {
	return Theme{
		PrimaryColor: "#3B82F6",
		BorderRadius: 8,
		FontFamily:   "Inter",
	}
}

// ThemeUpdate is a partial theme mutation; nil fields are left unchanged.
type ThemeUpdate struct {
	PrimaryColor *string `json:"primaryColor,omitempty"`
	BorderRadius *int    `json:"borderRadius,omitempty"`
	FontFamily   *string `json:"fontFamily,omitempty"`
}

// Descriptor is the structured result of an extraction: a primitive
// without identity. The caller stamps id and extraction time when
// inserting it into a library.
type Descriptor struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Code     string   `json:"code"`
}

// Primitive converts the descriptor into a library entry with the given id.
func (d Descriptor) Primitive(id string) ComponentPrimitive {
	return ComponentPrimitive{
		ID:       id,
		Name:     d.Name,
		Category: d.Category,
		Tags:     append([]string(nil), d.Tags...),
		Code:     d.Code,
	}
}

// UserState is the blob pushed to and pulled from the remote state service.
type UserState struct {
	Components []ComponentPrimitive `json:"components"`
	Templates  []SavedTemplate      `json:"templates"`
	Theme      Theme                `json:"theme"`
}

// Snapshot is a deep copy of the full builder state, safe to read and
// serialize while further commands run.
type Snapshot struct {
	Components     []ComponentPrimitive `json:"components"`
	CanvasItems    []CanvasItem         `json:"canvasItems"`
	Templates      []SavedTemplate      `json:"templates"`
	LastExtracted  *ComponentPrimitive  `json:"lastExtracted,omitempty"`
	SearchQuery    string               `json:"searchQuery"`
	ActiveCategory string               `json:"activeCategory"`
	Theme          Theme                `json:"theme"`
}
