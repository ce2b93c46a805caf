// Package logg holds the shared structured-log field names so that every
// layer logs under the same keys.
package logg

const (
	Layer     = "layer"
	Operation = "operation"
	TaskID    = "task_id"
	Action    = "action"
	URL       = "url"
	Selector  = "selector"
	Step      = "step"
	PageType  = "page_type"
)
