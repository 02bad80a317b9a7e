package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/choreo/internal/engine"
	"github.com/san-kum/choreo/internal/host"
	"github.com/san-kum/choreo/internal/profile"
	"github.com/san-kum/choreo/internal/signal"
)

const frame = 16 * time.Millisecond

func newEngine(t *testing.T) (*engine.Engine, *host.Memory, *engine.FakeClock) {
	t.Helper()
	reg, err := profile.NewRegistry([]profile.Entry{
		{Key: "hero", Profile: profile.Profile{Preset: "clear-seas", Intensity: 0.6, Chaos: 0.15, Speed: 1, Hue: 200}},
		{Key: "pricing", Profile: profile.Profile{Preset: "ledger", Intensity: 0.3, Chaos: 0.05, Speed: 0.6, Hue: 40}},
	}, nil)
	require.NoError(t, err)

	doc := host.NewMemory("hero", "pricing")
	p := engine.DefaultParams()
	p.Sections = []string{"hero", "pricing"}
	eng := engine.New(doc, reg, p)
	clock := engine.NewFakeClock()
	require.NoError(t, eng.Start(clock))
	t.Cleanup(func() { eng.Close() })
	return eng, doc, clock
}

func TestMessageDecode(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"type":"visibility","id":"hero","ratio":0.7,"t":120}`), &m))

	ev, ok, err := m.Event()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, host.KindVisibility, ev.Kind)
	assert.Equal(t, "hero", ev.Target)
	assert.Equal(t, 0.7, ev.Ratio)
	assert.Equal(t, 120*time.Millisecond, ev.At)

	_, ok, err = Message{Type: TypePulse, Intensity: 1}.Event()
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = Message{Type: "keyboard"}.Event()
	assert.Error(t, err)
}

func TestDispatch(t *testing.T) {
	eng, doc, clock := newEngine(t)
	srv := New(eng, doc)

	require.NoError(t, srv.Dispatch(Message{Type: "mutation", Added: []string{"card-9"}}))
	assert.True(t, doc.HasElement("card-9"))
	require.NoError(t, srv.Dispatch(Message{Type: "mutation", Removed: []string{"card-9"}}))
	assert.False(t, doc.HasElement("card-9"))

	clock.Advance(frame)
	before := eng.Dynamics().Energy
	require.NoError(t, srv.Dispatch(Message{Type: TypePulse, Intensity: 1}))
	clock.Step(10, frame)
	assert.Greater(t, eng.Dynamics().Energy, before)

	assert.Error(t, srv.Dispatch(Message{Type: "keyboard"}))
}

func TestStateEndpoint(t *testing.T) {
	eng, doc, clock := newEngine(t)
	ts := httptest.NewServer(New(eng, doc).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	clock.Advance(frame)

	resp, err = http.Get(ts.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out Outbound
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, TypeState, out.Type)
	assert.Contains(t, out.Payload.State, signal.Intensity)
}

func TestWebsocketRoundTrip(t *testing.T) {
	eng, doc, clock := newEngine(t)
	srv := New(eng, doc)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return srv.Sessions() == 1 }, 2*time.Second, 5*time.Millisecond)

	clock.Advance(frame)

	var out Outbound
	require.NoError(t, wsjson.Read(ctx, conn, &out))
	assert.Equal(t, TypeState, out.Type)
	assert.Equal(t, "hero", out.Payload.Context.Section)

	require.NoError(t, wsjson.Write(ctx, conn, Message{Type: "mutation", Added: []string{"card-3"}}))
	require.Eventually(t, func() bool { return doc.HasElement("card-3") }, 2*time.Second, 5*time.Millisecond)

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return srv.Sessions() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, eng.Bus().Len())
}
