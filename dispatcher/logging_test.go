package dispatcher

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func newBufferLogger(buf *bytes.Buffer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(buf),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(level),
	).Logger()
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	d := New(0, WithLogger(newBufferLogger(&buf, logiface.LevelTrace)))
	c := d.Clone()
	c.DispatchOnMain(RunnableFunc(func() {}))
	d.DispatchAfter(time.Second, RunnableFunc(func() {}))
	d.AdvanceClock(2 * time.Second)
	d.StartWaiting()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 log lines, got %d:\n%s", len(lines), buf.String())
	}
	for i, want := range []string{
		`"lvl":"debug"`, `"lvl":"trace"`, `"lvl":"trace"`, `"lvl":"debug"`, `"lvl":"warning"`,
	} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d: expected %s: %s", i, want, lines[i])
		}
	}
	for i, want := range []string{
		`"msg":"dispatcher clone"`,
		`"msg":"dispatcher step"`,
		`"msg":"dispatcher step"`,
		`"msg":"dispatcher advance clock"`,
		`"msg":"dispatcher waiting while parking is forbidden"`,
	} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d: expected %s: %s", i, want, lines[i])
		}
	}
}

func TestWithLogger_levelFiltered(t *testing.T) {
	var buf bytes.Buffer
	d := New(0, WithLogger(newBufferLogger(&buf, logiface.LevelInformational)))
	d.Clone()
	d.Dispatch(RunnableFunc(func() {}))
	d.AdvanceClock(time.Second)
	d.AllowParking()
	d.StartWaiting()
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got:\n%s", buf.String())
	}
}
