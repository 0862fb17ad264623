package cli

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestSimpleProgress(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgressReporter(&buf, "samples")

	progress.Start(4)
	progress.Update(2)
	progress.Finish()

	out := buf.String()
	if !strings.Contains(out, "Progress:") || !strings.Contains(out, "(4/4)") {
		t.Errorf("unexpected output %q", out)
	}
	if !strings.Contains(out, "samples/s") {
		t.Errorf("unit missing from %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish() did not end the line")
	}
}

func TestSimpleProgress_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgressReporter(&buf, "")

	progress.Start(0)
	progress.Update(0)
	progress.Finish()

	if buf.String() != "\n" {
		t.Errorf("output = %q, want only a newline", buf.String())
	}
}

func TestSimpleProgress_Error(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgressReporter(&buf, "samples")

	progress.Start(10)
	progress.Error(errors.New("sample 3 is not an object"))

	if !strings.Contains(buf.String(), "Error: sample 3 is not an object") {
		t.Errorf("error not reported: %q", buf.String())
	}
}

func TestSimpleProgress_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgressReporter(&buf, "samples")
	progress.Start(100)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			progress.Update(n)
		}(int64(i))
	}
	wg.Wait()
	progress.Finish()

	if !strings.Contains(buf.String(), "(100/100)") {
		t.Error("final state not rendered")
	}
}

func TestNopProgress(t *testing.T) {
	var p ProgressReporter = NopProgress{}
	p.Start(1)
	p.Update(1)
	p.Error(errors.New("ignored"))
	p.Finish()
}
