package ical

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceScanner serves pre-split lines and reports how far the parse
// has pulled.
type sliceScanner struct {
	lines []string
	pos   int
	err   error
}

func (s *sliceScanner) Scan() bool {
	if s.pos < len(s.lines) {
		s.pos++
		return true
	}
	return false
}

func (s *sliceScanner) Text() string { return s.lines[s.pos-1] }
func (s *sliceScanner) Err() error   { return s.err }

type recordingHooks struct {
	events []string
}

func (h *recordingHooks) OnStart(c *Component)  { h.events = append(h.events, "start "+c.Name) }
func (h *recordingHooks) OnFinish(c *Component) { h.events = append(h.events, "finish "+c.Name) }

func TestParse_MinimalCalendar(t *testing.T) {
	components, err := Parse(strings.NewReader("BEGIN:VCALENDAR\nVERSION:2.0\nEND:VCALENDAR"))

	require.NoError(t, err)
	require.Len(t, components, 1)

	cal := components[0]
	assert.Equal(t, "VCALENDAR", cal.Name)
	assert.Empty(t, cal.Children)
	require.Len(t, cal.Properties, 1)

	version := cal.Property("version")
	require.NotNil(t, version)
	assert.Equal(t, []interface{}{"2.0"}, version.Values)
	assert.Equal(t, "2.0", version.Text())
}

func TestParse_Nesting(t *testing.T) {
	components, err := Parse(strings.NewReader("BEGIN:A\nBEGIN:B\nEND:B\nEND:A"))

	require.NoError(t, err)
	require.Len(t, components, 1)

	a := components[0]
	assert.Equal(t, "A", a.Name)
	assert.Empty(t, a.Properties)
	require.Len(t, a.Children, 1)

	b := a.Children[0]
	assert.Equal(t, "B", b.Name)
	assert.Empty(t, b.Properties)
	assert.Empty(t, b.Children)
	assert.Same(t, b, a.Child("b"))
}

func TestParse_SiblingsInOrder(t *testing.T) {
	components, err := Parse(strings.NewReader(
		"BEGIN:VCALENDAR\nBEGIN:VEVENT\nSUMMARY:one\nEND:VEVENT\nBEGIN:VEVENT\nSUMMARY:two\nEND:VEVENT\nEND:VCALENDAR"))

	require.NoError(t, err)
	require.Len(t, components, 1)
	require.Len(t, components[0].Children, 2)
	assert.Equal(t, "one", components[0].Children[0].Property("SUMMARY").Text())
	assert.Equal(t, "two", components[0].Children[1].Property("SUMMARY").Text())
}

func TestParse_EmptyInput(t *testing.T) {
	components, err := Parse(strings.NewReader(""))

	require.NoError(t, err)
	assert.Empty(t, components)
}

func TestDeserialize_StreamsTopLevelComponents(t *testing.T) {
	src := &sliceScanner{lines: []string{"BEGIN:A", "X-N:1", "END:A", "BEGIN:B", "END:B"}}
	iter := new(Deserializer).DeserializeLines(src)

	first, err := iter.Next()
	require.NoError(t, err)
	assert.Equal(t, "A", first.Name)
	// The first component comes back before the source is drained.
	assert.Less(t, src.pos, len(src.lines))

	second, err := iter.Next()
	require.NoError(t, err)
	assert.Equal(t, "B", second.Name)

	_, err = iter.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDeserialize_CaseInsensitiveDelimiters(t *testing.T) {
	components, err := Parse(strings.NewReader("begin:calendar\nend:CALENDAR"))

	require.NoError(t, err)
	require.Len(t, components, 1)
	// The component keeps the BEGIN value as written.
	assert.Equal(t, "calendar", components[0].Name)
}

func TestDeserialize_MismatchedEnd(t *testing.T) {
	_, err := Parse(strings.NewReader("BEGIN:A\nEND:B"))

	require.Error(t, err)

	var le *LineError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 1, le.Line)
	assert.Equal(t, 1, le.Source)
	assert.Equal(t, "END:B", le.Text)

	var se *StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "END:B", se.Found)
	assert.Equal(t, "END:A", se.Expected)
}

func TestDeserialize_PropertyBeforeBegin(t *testing.T) {
	_, err := Parse(strings.NewReader("VERSION:2.0"))

	var se *StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "VERSION", se.Found)
	assert.Equal(t, "BEGIN", se.Expected)
}

func TestDeserialize_EndBeforeBegin(t *testing.T) {
	_, err := Parse(strings.NewReader("END:A"))

	var se *StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "END:A", se.Found)
	assert.Equal(t, "BEGIN", se.Expected)
}

func TestDeserialize_UnclosedComponent(t *testing.T) {
	_, err := Parse(strings.NewReader("BEGIN:A\nBEGIN:B\nEND:B"))

	var se *StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "end of input", se.Found)
	assert.Equal(t, "END:A", se.Expected)

	// End of input is not a line, so there is no line context.
	var le *LineError
	assert.False(t, errors.As(err, &le))
}

func TestDeserialize_LineErrorLocatesFoldedLines(t *testing.T) {
	_, err := Parse(strings.NewReader("BEGIN:A\nSUMMARY:foo\n bar\nBAD LINE\nEND:A"))

	var le *LineError
	require.True(t, errors.As(err, &le))
	// "BAD LINE" is the third logical line but the fourth physical one.
	assert.Equal(t, 2, le.Line)
	assert.Equal(t, 3, le.Source)
	assert.Equal(t, "BAD LINE", le.Text)

	var ge *GrammarError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "BAD LINE", ge.Text)
}

func TestDeserialize_ErrorIsSticky(t *testing.T) {
	iter := new(Deserializer).Deserialize(strings.NewReader("END:A"))

	_, err := iter.Next()
	require.Error(t, err)

	_, again := iter.Next()
	assert.Equal(t, err, again)
}

func TestDeserialize_SourceErrorPropagates(t *testing.T) {
	readErr := errors.New("disk on fire")
	src := &sliceScanner{lines: []string{"BEGIN:A"}, err: readErr}
	iter := new(Deserializer).DeserializeLines(src)

	_, err := iter.Next()
	assert.Equal(t, readErr, err)
}

func TestDeserialize_Hooks(t *testing.T) {
	hooks := &recordingHooks{}
	d := &Deserializer{Hooks: hooks}

	iter := d.Deserialize(strings.NewReader("BEGIN:A\nBEGIN:B\nEND:B\nEND:A"))
	_, err := iter.Next()
	require.NoError(t, err)

	assert.Equal(t, []string{"start A", "start B", "finish B", "finish A"}, hooks.events)
}

type upperFactory struct {
	built []string
}

func (f *upperFactory) Build(name string) *Component {
	f.built = append(f.built, name)
	return NewComponent(strings.ToUpper(name))
}

func TestDeserialize_CustomFactory(t *testing.T) {
	factory := &upperFactory{}
	d := &Deserializer{Factory: factory}

	iter := d.Deserialize(strings.NewReader("begin:vtodo\nend:vtodo"))
	component, err := iter.Next()

	require.NoError(t, err)
	assert.Equal(t, []string{"vtodo"}, factory.built)
	assert.Equal(t, "VTODO", component.Name)
}

func TestDeserializer_Reusable(t *testing.T) {
	d := new(Deserializer)

	for i := 0; i < 2; i++ {
		iter := d.Deserialize(strings.NewReader("BEGIN:A\nEND:A"))
		component, err := iter.Next()
		require.NoError(t, err)
		assert.Equal(t, "A", component.Name)

		_, err = iter.Next()
		assert.Equal(t, io.EOF, err)
	}
}
