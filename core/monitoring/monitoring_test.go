package monitoring

import (
	"errors"
	"testing"
	"time"
)

type recordMonitor struct {
	errs []error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func TestGlobalMonitor(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	defer Init(nil)

	CaptureException(nil, nil)
	CaptureException(errors.New("boom"), map[string]string{"model": "m"})
	if len(mon.errs) != 1 {
		t.Fatalf("expected 1 captured error, got %d", len(mon.errs))
	}
	if mon.tags["model"] != "m" {
		t.Fatalf("tags missing")
	}
	if Current() != mon {
		t.Fatalf("current monitor not installed")
	}

	Init(nil)
	if _, ok := Current().(NopMonitor); !ok {
		t.Fatalf("expected NopMonitor after reset, got %T", Current())
	}
}
