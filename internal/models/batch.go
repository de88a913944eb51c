package models

type AssetRole string

const (
	RoleMain   AssetRole = "main"
	RoleDetail AssetRole = "detail"
)

// AssetRequest is one planned image download.
type AssetRequest struct {
	URL      string    `json:"url"`
	Filename string    `json:"filename"`
	Role     AssetRole `json:"role"`
}

// AssetRef is the outcome of one planned download. Err is nil when Data holds
// the image bytes.
type AssetRef struct {
	SourceURL string    `json:"source_url"`
	Filename  string    `json:"filename"`
	Role      AssetRole `json:"role"`
	Data      []byte    `json:"-"`
	Err       error     `json:"-"`
}

func (a *AssetRef) OK() bool {
	return a.Err == nil
}

type WarningKind string

const (
	WarningFetch      WarningKind = "fetch"
	WarningSkip       WarningKind = "skip"
	WarningExtraction WarningKind = "extraction"
	WarningAsset      WarningKind = "asset"
	WarningError      WarningKind = "error"
)

// Warning is a per-URL or per-asset problem the presentation layer can show.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	Target string      `json:"target"`
	Reason string      `json:"reason"`
}

type BatchResult struct {
	Records  []ProductRecord `json:"records"`
	Assets   []AssetRef      `json:"-"`
	Warnings []Warning       `json:"warnings"`
	Notice   string          `json:"notice,omitempty"`
}

func NewBatchResult() *BatchResult {
	return &BatchResult{
		Records:  make([]ProductRecord, 0),
		Assets:   make([]AssetRef, 0),
		Warnings: make([]Warning, 0),
	}
}

func (b *BatchResult) Warn(kind WarningKind, target, reason string) {
	b.Warnings = append(b.Warnings, Warning{Kind: kind, Target: target, Reason: reason})
}

// WarningsOf returns the warnings of one kind, in order.
func (b *BatchResult) WarningsOf(kind WarningKind) []Warning {
	var out []Warning
	for _, w := range b.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}
