package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory_ListenAndDispatch(t *testing.T) {
	doc := NewMemory()
	var got []Event
	cancel := doc.Listen(KindPointer, func(ev Event) { got = append(got, ev) })

	doc.Dispatch(Event{Kind: KindPointer, X: 1})
	doc.Dispatch(Event{Kind: KindScroll, Offset: 10})

	assert.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].X)
	assert.Equal(t, 1, doc.ListenerCount())

	cancel()
	cancel()
	assert.Equal(t, 0, doc.ListenerCount())

	doc.Dispatch(Event{Kind: KindPointer})
	assert.Len(t, got, 1)
}

func TestMemory_ListenerCountByKind(t *testing.T) {
	doc := NewMemory()
	doc.Listen(KindPointer, func(Event) {})
	doc.Listen(KindHover, func(Event) {})
	doc.Listen(KindHover, func(Event) {})

	assert.Equal(t, 3, doc.ListenerCount())
	assert.Equal(t, 2, doc.ListenerCount(KindHover))
	assert.Equal(t, 3, doc.ListenerCount(KindHover, KindPointer))
}

func TestMemory_HandlerMayCancelItself(t *testing.T) {
	doc := NewMemory()
	calls := 0
	var cancel func()
	cancel = doc.Listen(KindHover, func(Event) {
		calls++
		cancel()
	})

	doc.Dispatch(Event{Kind: KindHover})
	doc.Dispatch(Event{Kind: KindHover})
	assert.Equal(t, 1, calls)
}

func TestMemory_Elements(t *testing.T) {
	doc := NewMemory("hero", "features")
	assert.True(t, doc.HasElement("hero"))
	assert.False(t, doc.HasElement("pricing"))

	doc.AddElement("pricing")
	doc.RemoveElement("hero")
	assert.Equal(t, []string{"features", "pricing"}, doc.Elements())
}

func TestKindRoundTrip(t *testing.T) {
	for k := KindPointer; k <= KindReducedMotion; k++ {
		parsed, ok := ParseKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, parsed)
	}
	_, ok := ParseKind("wheel")
	assert.False(t, ok)
}
