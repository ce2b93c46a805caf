package entity

// Viewport is the visible page size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// Position is an element's bounding box relative to the viewport.
type Position struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ElementSummary is one interactive element as seen by the planner. Text is
// truncated at capture time; BestSelector is the most specific selector the
// probe could derive for the element.
type ElementSummary struct {
	Tag          string
	ID           string
	Name         string
	Type         string
	Href         string
	Text         string
	Attributes   map[string]string
	BestSelector string
	IsVisible    bool
	Position     Position
}

// PageInfo is coarse page metadata used for page-type classification.
type PageInfo struct {
	Forms     int
	Links     int
	Images    int
	HasLogin  bool
	HasSearch bool
	PageReady bool
}

// PlanProgress marks which step of a multi-step plan a probe was taken for.
type PlanProgress struct {
	Step  int
	Total int
}

// PageContext is a point-in-time snapshot of observable page state. It is
// captured fresh before every planning decision and never cached across
// actions. Error is set instead of the other fields when the capture failed
// at the top level (no active page).
type PageContext struct {
	CurrentURL          string
	PageTitle           string
	Viewport            Viewport
	InteractiveElements []ElementSummary
	PageInfo            PageInfo
	PlanProgress        *PlanProgress
	Error               string
}
