package llm

import "context"

// RawRecord is one loosely-typed tariff row as returned by the
// content-understanding model, before normalization.
type RawRecord map[string]any

// ParseRequest carries one cropped table image plus its provenance.
type ParseRequest struct {
	ImagePath     string
	Source        string
	PageIndex     int
	InstanceIndex int
}

// TableParser is the content-understanding capability the pipeline depends on.
// One synchronous call per region; implementations apply a bounded timeout.
type TableParser interface {
	ParseTables(ctx context.Context, req ParseRequest) ([]RawRecord, error)
}
