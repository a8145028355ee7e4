package importer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPipelineStartsAtSource(t *testing.T) {
	p := NewPipeline()
	assert.Equal(t, StepSource, p.Step())
	assert.False(t, p.CanAdvance())
}

func TestNextBlockedUntilGateSatisfied(t *testing.T) {
	p := NewPipeline()

	step, moved := p.Next()
	assert.False(t, moved)
	assert.Equal(t, StepSource, step)

	// Source selected but no rows loaded yet.
	p.Update(func(d *ImportData) { d.Source = SourceCSV })
	_, moved = p.Next()
	assert.False(t, moved)

	p.Update(func(d *ImportData) { d.Raw = []Record{{"name": "x"}} })
	step, moved = p.Next()
	assert.True(t, moved)
	assert.Equal(t, StepMapping, step)
}

func TestFullWalkThroughAllSteps(t *testing.T) {
	p := NewPipeline()

	p.Update(func(d *ImportData) {
		d.Source = SourceCSV
		d.Raw = []Record{{"Reporter Name": "Alice"}}
	})
	_, moved := p.Next()
	assert.True(t, moved)

	p.Update(func(d *ImportData) { d.Mapped = []Record{{"reporterName": "Alice"}} })
	step, moved := p.Next()
	assert.True(t, moved)
	assert.Equal(t, StepSanitization, step)

	p.Update(func(d *ImportData) { d.Sanitized = []Record{{"reporterName": "Alice"}} })
	step, moved = p.Next()
	assert.True(t, moved)
	assert.Equal(t, StepConfirmation, step)

	// No forward transition from confirmation.
	_, moved = p.Next()
	assert.False(t, moved)
}

func TestPreviousIsUnconditionalAndKeepsData(t *testing.T) {
	p := NewPipeline()
	p.Update(func(d *ImportData) {
		d.Source = SourceJSON
		d.Raw = []Record{{"a": "1"}}
	})
	p.Next()
	p.Update(func(d *ImportData) { d.Mapped = []Record{{"reporterName": "1"}} })
	p.Next()

	step, moved := p.Previous()
	assert.True(t, moved)
	assert.Equal(t, StepMapping, step)
	assert.Len(t, p.Snapshot().Mapped, 1)

	step, moved = p.Previous()
	assert.True(t, moved)
	assert.Equal(t, StepSource, step)

	_, moved = p.Previous()
	assert.False(t, moved)
}

func TestJumpToBackwardAlwaysAllowed(t *testing.T) {
	p := NewPipeline()
	p.Update(func(d *ImportData) {
		d.Source = SourceCSV
		d.Raw = []Record{{"a": "1"}}
	})
	p.Next()
	p.Update(func(d *ImportData) { d.Mapped = []Record{{"reporterName": "1"}} })
	p.Next()

	step, moved := p.JumpTo(StepSource)
	assert.True(t, moved)
	assert.Equal(t, StepSource, step)
}

func TestJumpToForwardOnlyOneGatedStep(t *testing.T) {
	p := NewPipeline()
	p.Update(func(d *ImportData) {
		d.Source = SourceCSV
		d.Raw = []Record{{"a": "1"}}
	})

	// Two steps ahead is rejected even with the first gate satisfied.
	step, moved := p.JumpTo(StepSanitization)
	assert.False(t, moved)
	assert.Equal(t, StepSource, step)

	step, moved = p.JumpTo(StepMapping)
	assert.True(t, moved)
	assert.Equal(t, StepMapping, step)

	// Next gate not satisfied yet.
	_, moved = p.JumpTo(StepSanitization)
	assert.False(t, moved)
}

func TestJumpToOutOfRange(t *testing.T) {
	p := NewPipeline()
	_, moved := p.JumpTo(Step(0))
	assert.False(t, moved)
	_, moved = p.JumpTo(Step(5))
	assert.False(t, moved)
}

func TestResetClearsEverything(t *testing.T) {
	p := NewPipeline()
	p.Update(func(d *ImportData) {
		d.Source = SourceCSV
		d.Raw = []Record{{"a": "1"}}
	})
	p.Next()

	p.Reset()
	assert.Equal(t, StepSource, p.Step())
	assert.Empty(t, p.Snapshot().Raw)
	assert.Empty(t, p.Snapshot().Source)
}

func TestSourceFields(t *testing.T) {
	d := NewImportData()
	assert.Nil(t, d.SourceFields())

	d.Raw = []Record{{"Reporter Name": "Alice", "Phone": "555"}}
	fields := d.SourceFields()
	assert.ElementsMatch(t, []string{"Reporter Name", "Phone"}, fields)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	p := NewPipeline()
	p.Update(func(d *ImportData) {
		d.Raw = []Record{{"a": "1"}}
		d.FieldMappings["reporterName"] = "a"
	})

	snap := p.Snapshot()
	snap.Raw[0]["a"] = "mutated"
	snap.FieldMappings["reporterName"] = "mutated"

	fresh := p.Snapshot()
	assert.Equal(t, "1", fresh.Raw[0]["a"])
	assert.Equal(t, "a", fresh.FieldMappings["reporterName"])
}

func TestConcurrentUpdatesAndSnapshots(t *testing.T) {
	p := NewPipeline()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.Update(func(d *ImportData) {
				d.FieldMappings["reporterName"] = "col"
			})
		}()
		go func() {
			defer wg.Done()
			_ = p.Snapshot()
		}()
	}
	wg.Wait()

	assert.Equal(t, "col", p.Snapshot().FieldMappings["reporterName"])
}
