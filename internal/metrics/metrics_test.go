package metrics

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"
)

// tape renders every backend call as one line, labels sorted, so tests can
// compare whole sequences.
type tape struct {
	lines   []string
	flushes int
}

func (t *tape) IncCounter(name string, delta float64, l Labels) {
	t.lines = append(t.lines, fmt.Sprintf("count %s %g %s", name, delta, render(l)))
}

func (t *tape) ObserveHistogram(name string, v float64, l Labels) {
	t.lines = append(t.lines, fmt.Sprintf("hist %s %g %s", name, v, render(l)))
}

func (t *tape) Flush() error {
	t.flushes++
	return nil
}

func render(l Labels) string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	s := ""
	for _, k := range keys {
		s += k + "=" + l[k] + ","
	}
	return s
}

func TestRecorderCalls(t *testing.T) {
	tp := &tape{}
	r := NewRecorder("ny_taxi", tp)

	r.RecordBatches("zones", 1)
	r.RecordRows("zones", KindInserted, 265)
	r.RecordStep(StepLoad, "zones", nil, 2*time.Second)
	r.RecordStep(StepLoad, "green_taxi_data", errors.New("batch #2"), 1500*time.Millisecond)
	r.RecordRows("zones", KindInserted, 0)
	r.RecordBatches("zones", -1)

	want := []string{
		"count etl_batches_total 1 job=ny_taxi,table=zones,",
		"count etl_records_total 265 job=ny_taxi,kind=inserted,table=zones,",
		"count etl_step_total 1 job=ny_taxi,status=success,step=load,table=zones,",
		"hist etl_step_duration_seconds 2 job=ny_taxi,status=success,step=load,table=zones,",
		"count etl_step_total 1 job=ny_taxi,status=failure,step=load,table=green_taxi_data,",
		"hist etl_step_duration_seconds 1.5 job=ny_taxi,status=failure,step=load,table=green_taxi_data,",
	}
	if !slices.Equal(tp.lines, want) {
		t.Fatalf("calls:\n%v\nwant:\n%v", tp.lines, want)
	}

	if err := r.Flush(); err != nil || tp.flushes != 1 {
		t.Fatalf("Flush: err=%v flushes=%d", err, tp.flushes)
	}
}

func TestNilRecorderAndBackend(t *testing.T) {
	var r *Recorder
	r.RecordStep(StepLoad, "t", nil, time.Second)
	r.RecordRows("t", KindInserted, 1)
	r.RecordBatches("t", 1)
	if err := r.Flush(); err != nil {
		t.Fatal(err)
	}

	nop := NewRecorder("j", nil)
	nop.RecordRows("t", KindInserted, 5)
	if err := nop.Flush(); err != nil {
		t.Fatal(err)
	}
}
