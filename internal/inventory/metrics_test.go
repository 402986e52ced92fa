package inventory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/yurtlab/pjinventory/internal/equipment"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, resultOK},
		{fmt.Errorf("%w: empty", equipment.ErrInvalidSerial), resultInvalid},
		{fmt.Errorf("%w: P9", ErrReferential), resultReferential},
		{ErrInvalidTransition, resultRejected},
		{ErrProjectorExists, resultRejected},
		{ErrBulbExists, resultRejected},
		{ErrPoweredOff, resultRejected},
		{errors.New("disk full"), resultError},
	}
	for _, tt := range tests {
		if got := result(tt.err); got != tt.want {
			t.Errorf("result(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	m := NewMetrics()
	f.o.SetMetrics(m)

	if err := f.o.AddProjector(testCtx, "P1", mfg, equipment.LensLong); err != nil {
		t.Fatalf("AddProjector() error = %v", err)
	}
	_ = f.o.AddProjector(testCtx, "P1", mfg, equipment.LensLong) //nolint:errcheck // counted below
	_ = f.o.AddProjector(testCtx, "", mfg, equipment.LensLong)   //nolint:errcheck // counted below

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	counts := make(map[string]float64)
	var observed uint64
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			switch mf.GetName() {
			case "pjinventory_operations_total":
				counts[labels["op"]+"/"+labels["result"]] = metric.GetCounter().GetValue()
			case "pjinventory_operation_duration_seconds":
				observed += metric.GetHistogram().GetSampleCount()
			}
		}
	}

	want := map[string]float64{
		"add_projector/ok":       1,
		"add_projector/rejected": 1,
		"add_projector/invalid":  1,
	}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("operations_total{%s} = %v, want %v", k, counts[k], v)
		}
	}
	// Validation failures never reach a transaction.
	if observed != 2 {
		t.Errorf("duration samples = %d, want 2", observed)
	}
}

func TestMetricsCountReports(t *testing.T) {
	f := newFixture(t)
	f.installed(t)
	m := NewMetrics()
	f.o.SetMetrics(m)

	if _, err := f.o.ProjectorReport(testCtx, AllProjectors); err != nil {
		t.Fatalf("ProjectorReport() error = %v", err)
	}
	if _, err := f.o.ProjectorReport(testCtx, "P9"); !errors.Is(err, ErrReferential) {
		t.Fatalf("ProjectorReport() error = %v, want ErrReferential", err)
	}
	if _, err := f.o.InstalledSlots(testCtx); err != nil {
		t.Fatalf("InstalledSlots() error = %v", err)
	}

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	counts := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != "pjinventory_operations_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			counts[labels["op"]+"/"+labels["result"]] = metric.GetCounter().GetValue()
		}
	}

	want := map[string]float64{
		"projector_report/ok":          1,
		"projector_report/referential": 1,
		"installed_slots/ok":           1,
	}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("operations_total{%s} = %v, want %v", k, counts[k], v)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.observe("add_projector", nil, 0)
}
