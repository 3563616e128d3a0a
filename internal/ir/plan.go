package ir

// Action classifies what the executor must do for a resource.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionNoOp   Action = "NOOP"
)

// DiffEntry is the result of comparing one desired resource against its
// state record. A RequiresReplace change produces two entries for the same
// address, a DELETE followed by a CREATE, both with Replace set.
type DiffEntry struct {
	Address      string           `json:"address"`
	Action       Action           `json:"action"`
	Desired      *Resource        `json:"desired,omitempty"`
	Prior        *Record          `json:"prior,omitempty"`
	Diffs        []*AttributeDiff `json:"diffs,omitempty"`
	Replace      bool             `json:"replace,omitempty"`
	Dependencies []string         `json:"dependencies,omitempty"`
}

// Kind returns the resource kind from whichever side the entry carries.
func (e *DiffEntry) Kind() string {
	if e.Desired != nil {
		return e.Desired.Kind
	}
	if e.Prior != nil {
		return e.Prior.Kind
	}
	return ""
}

// Name returns the resource name from whichever side the entry carries.
func (e *DiffEntry) Name() string {
	if e.Desired != nil {
		return e.Desired.Name
	}
	if e.Prior != nil {
		return e.Prior.Name
	}
	return ""
}

// AttributeDiff describes a single changed attribute path.
type AttributeDiff struct {
	Path   string `json:"path"`
	Op     string `json:"op"` // "create", "update", "delete"
	Before any    `json:"before,omitempty"`
	After  any    `json:"after,omitempty"`
}

// Plan is an ordered list of stages. Entries within a stage have no
// dependency relationship and may execute concurrently; stage N+1 never
// starts before stage N completes. A plan is immutable once produced.
type Plan struct {
	Metadata *PlanMetadata `json:"metadata"`
	Stages   []*Stage      `json:"stages"`
	Summary  *PlanSummary  `json:"summary"`
}

type PlanMetadata struct {
	Timestamp string `json:"timestamp"`
}

// Stage is a set of entries whose dependency edges are fully satisfied by
// prior stages.
type Stage struct {
	Entries []*DiffEntry `json:"entries"`
}

type PlanSummary struct {
	Create  int `json:"create"`
	Update  int `json:"update"`
	Delete  int `json:"delete"`
	Replace int `json:"replace"`
	NoOp    int `json:"noop"`
}

// Empty reports whether the plan contains no operations.
func (p *Plan) Empty() bool {
	for _, stage := range p.Stages {
		if len(stage.Entries) > 0 {
			return false
		}
	}
	return true
}

// Entries returns every entry across all stages in stage order.
func (p *Plan) Entries() []*DiffEntry {
	var out []*DiffEntry
	for _, stage := range p.Stages {
		out = append(out, stage.Entries...)
	}
	return out
}
