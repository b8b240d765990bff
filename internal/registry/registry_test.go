package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iw_parser/internal/patterns"
	"iw_parser/internal/screen"
)

type stubRecord struct{ Text string }

func (stubRecord) Type() string { return "stub" }

type stubParser struct {
	desc *screen.Descriptor
}

func newStub(t *testing.T, id, canParse string, prio int) *stubParser {
	t.Helper()
	d, err := screen.NewDescriptor(screen.DescriptorConfig{ID: id, CanParse: canParse, Priority: prio}, time.Second)
	require.NoError(t, err)
	return &stubParser{desc: d}
}

func (p *stubParser) Descriptor() *screen.Descriptor { return p.desc }

func (p *stubParser) Parse(text string) *screen.Outcome {
	return screen.Succeeded(p.desc.ID, stubRecord{Text: text}, nil)
}

func TestClassifyPriorityAndTies(t *testing.T) {
	r := New()
	r.Add(newStub(t, "late", `Flotte`, 20))
	r.Add(newStub(t, "first-tie", `Flotte`, 10))
	r.Add(newStub(t, "second-tie", `Flotte`, 10))
	r.Add(newStub(t, "other", `Gebäude`, 0))

	p, err := r.Classify("Flotte unterwegs")
	require.NoError(t, err)
	assert.Equal(t, "first-tie", p.Descriptor().ID)

	all, err := r.ClassifyAll("Flotte unterwegs")
	require.NoError(t, err)
	var ids []string
	for _, p := range all {
		ids = append(ids, p.Descriptor().ID)
	}
	assert.Equal(t, []string{"first-tie", "second-tie", "late"}, ids)
	assert.Equal(t, []string{"other", "first-tie", "second-tie", "late"}, r.IDs())
}

func TestClassifyMismatch(t *testing.T) {
	r := New()
	r.Add(newStub(t, "a", `Flotte`, 0))

	_, err := r.Classify("nothing here")
	assert.True(t, errors.Is(err, ErrLayoutMismatch))

	out := r.Dispatch("nothing here")
	require.NotNil(t, out)
	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, ErrLayoutMismatch)
	assert.Equal(t, "nothing here", out.Errors[1])
}

func TestDispatch(t *testing.T) {
	r := New()
	r.Add(newStub(t, "a", `Flotte`, 0))

	out := r.Dispatch("Flotte")
	assert.True(t, out.Success)
	assert.Equal(t, "a", out.Identifier)
	assert.Equal(t, stubRecord{Text: "Flotte"}, out.Record)

	p, ok := r.Lookup("a")
	assert.True(t, ok)
	assert.NotNil(t, p)
	_, ok = r.Lookup("b")
	assert.False(t, ok)
}

func TestBuildUsesRegisteredFactories(t *testing.T) {
	Register("registry-test-stub", func(lib *patterns.Library) (Parser, error) {
		d, err := screen.NewDescriptor(screen.DescriptorConfig{ID: "registry-test-stub", CanParse: `stub`}, lib.MatchTimeout())
		if err != nil {
			return nil, err
		}
		return &stubParser{desc: d}, nil
	})

	r, err := Build(patterns.NewLibrary(nil))
	require.NoError(t, err)
	_, ok := r.Lookup("registry-test-stub")
	assert.True(t, ok)

	assert.Panics(t, func() {
		Register("registry-test-stub", nil)
	})
}

func TestTraceWithoutCompiler(t *testing.T) {
	d, err := screen.NewDescriptor(screen.DescriptorConfig{ID: "t", CanParse: `X`, Begin: `X`}, time.Second)
	require.NoError(t, err)

	tr := Trace(&stubParser{desc: d}, "head X tail")
	assert.True(t, tr.Matches)
	assert.Equal(t, "X tail", tr.Stripped)
	assert.Empty(t, tr.Formats)
}
