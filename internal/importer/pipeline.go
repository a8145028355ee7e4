// Package importer implements the multi-step report import workflow:
// source intake, heuristic field mapping, data sanitization and final
// confirmation. All engines here are pure and synchronous; remote
// collaborators are injected as interfaces.
package importer

import (
	"sync"
)

// Step is a position in the import pipeline.
type Step int

const (
	StepSource Step = iota + 1
	StepMapping
	StepSanitization
	StepConfirmation
)

// Source identifies where raw records came from.
type Source string

const (
	SourceCSV   Source = "csv"
	SourceExcel Source = "excel"
	SourceJSON  Source = "json"
	SourceAPI   Source = "api"
)

// Record is one flat row of imported data, source-side column names to
// string values.
type Record map[string]string

// ImportData is the shared workflow aggregate. Each step merges its output
// into the aggregate and never removes a prior step's contribution, so
// backward navigation loses nothing.
type ImportData struct {
	Source        Source            `json:"source"`
	Endpoint      string            `json:"endpoint,omitempty"`
	Raw           []Record          `json:"raw_data"`
	Suggestions   []Suggestion      `json:"suggestions"`
	FieldMappings map[string]string `json:"field_mappings"`
	Mapped        []Record          `json:"mapped_data"`
	Rules         []Rule            `json:"sanitization_rules"`
	Sanitized     []Record          `json:"sanitized_data"`
}

// NewImportData returns an empty aggregate.
func NewImportData() *ImportData {
	return &ImportData{
		FieldMappings: make(map[string]string),
	}
}

// SourceFields returns the column names of the raw data, taken from the
// first record.
func (d *ImportData) SourceFields() []string {
	if len(d.Raw) == 0 {
		return nil
	}
	fields := make([]string, 0, len(d.Raw[0]))
	for k := range d.Raw[0] {
		fields = append(fields, k)
	}
	return fields
}

// Clone returns a deep copy of the aggregate.
func (d *ImportData) Clone() ImportData {
	c := *d
	c.Raw = cloneRecords(d.Raw)
	c.Mapped = cloneRecords(d.Mapped)
	c.Sanitized = cloneRecords(d.Sanitized)
	c.Suggestions = append([]Suggestion(nil), d.Suggestions...)
	c.Rules = append([]Rule(nil), d.Rules...)
	c.FieldMappings = make(map[string]string, len(d.FieldMappings))
	for k, v := range d.FieldMappings {
		c.FieldMappings[k] = v
	}
	return c
}

func cloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	for i, r := range in {
		clone := make(Record, len(r))
		for k, v := range r {
			clone[k] = v
		}
		out[i] = clone
	}
	return out
}

// Pipeline is the 4-state import workflow. Forward transitions are gated on
// per-step completion; backward transitions are unconditional.
type Pipeline struct {
	mu   sync.Mutex
	step Step
	data *ImportData
}

// NewPipeline starts a pipeline at the source-selection step with an empty
// aggregate.
func NewPipeline() *Pipeline {
	return &Pipeline{
		step: StepSource,
		data: NewImportData(),
	}
}

// Step returns the current step.
func (p *Pipeline) Step() Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.step
}

// Update runs fn with exclusive access to the aggregate. All reads and
// writes of the aggregate go through here or Snapshot; the pointer must
// not escape fn.
func (p *Pipeline) Update(fn func(*ImportData)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.data)
}

// Snapshot returns a deep copy of the aggregate, safe to read and
// serialize while other requests mutate the session.
func (p *Pipeline) Snapshot() ImportData {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.Clone()
}

// CanAdvance reports whether the current step's completion gate is satisfied.
// The confirmation step has no forward transition.
func (p *Pipeline) CanAdvance() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return canAdvance(p.step, p.data)
}

func canAdvance(step Step, d *ImportData) bool {
	switch step {
	case StepSource:
		return d.Source != "" && len(d.Raw) > 0
	case StepMapping:
		return len(d.Mapped) > 0
	case StepSanitization:
		return len(d.Sanitized) > 0
	default:
		return false
	}
}

// Next advances one step when the gate allows it. Returns the resulting step
// and whether a transition happened.
func (p *Pipeline) Next() (Step, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.step >= StepConfirmation || !canAdvance(p.step, p.data) {
		return p.step, false
	}
	p.step++
	return p.step, true
}

// Previous steps back unconditionally; completed data is never discarded.
func (p *Pipeline) Previous() (Step, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.step <= StepSource {
		return p.step, false
	}
	p.step--
	return p.step, true
}

// JumpTo moves to target when it is a completed step, the current step, or
// the immediate next step with its gate satisfied. Anything further forward
// is silently rejected.
func (p *Pipeline) JumpTo(target Step) (Step, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if target < StepSource || target > StepConfirmation {
		return p.step, false
	}
	if target <= p.step {
		p.step = target
		return p.step, true
	}
	if target == p.step+1 && canAdvance(p.step, p.data) {
		p.step = target
		return p.step, true
	}
	return p.step, false
}

// Reset discards the aggregate and returns to the first step.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.step = StepSource
	p.data = NewImportData()
}
