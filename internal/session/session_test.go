package session

import (
	"strings"
	"testing"
	"time"

	"github.com/rampkit/rampkit-go/internal/flow"
	"github.com/rampkit/rampkit-go/internal/navigation"
	"github.com/rampkit/rampkit-go/internal/protocol"
	"github.com/rs/zerolog"
)

// recordingSink captures outbound events for one surface.
type recordingSink struct {
	events []OutboundEvent
}

func (r *recordingSink) Send(ev OutboundEvent) { r.events = append(r.events, ev) }

func (r *recordingSink) lastVars(t *testing.T) map[string]any {
	t.Helper()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == "variables" {
			return r.events[i].Data["vars"].(map[string]any)
		}
	}
	t.Fatal("no variables event recorded")
	return nil
}

func (r *recordingSink) count(eventType string) int {
	n := 0
	for _, ev := range r.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

// recordingHost captures host notifications.
type recordingHost struct {
	NopHost
	reviews     int
	permissions int
	paywalls    []map[string]any
	haptics     []string
	finished    []map[string]any
	abandoned   []string
	closed      []bool
}

func (h *recordingHost) ShowReview() { h.reviews++ }
func (h *recordingHost) RequestNotificationPermission(_, _ map[string]any) {
	h.permissions++
}
func (h *recordingHost) ShowPaywall(p map[string]any) { h.paywalls = append(h.paywalls, p) }
func (h *recordingHost) PlayHaptic(ht, _, _ string)   { h.haptics = append(h.haptics, ht) }
func (h *recordingHost) OnboardingFinished(p map[string]any) {
	h.finished = append(h.finished, p)
}
func (h *recordingHost) SessionAbandoned(reason string, _ int, _ string) {
	h.abandoned = append(h.abandoned, reason)
}
func (h *recordingHost) SessionClosed(completed bool) { h.closed = append(h.closed, completed) }

// testClock is an adjustable clock for window tests.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func threeScreenFlow() *flow.Onboarding {
	return &flow.Onboarding{
		ID:         "ob-1",
		Allocation: 100,
		Screens: []flow.Screen{
			{ID: "s1", HTML: "<p>1</p>"},
			{ID: "s2", HTML: "<p>2</p>"},
			{ID: "s3", HTML: "<p>3</p>"},
		},
		Variables: map[string]any{"name": ""},
	}
}

type fixture struct {
	session *Session
	host    *recordingHost
	sinks   []*recordingSink
	clock   *testClock
}

func newFixture(t *testing.T, ob *flow.Onboarding) *fixture {
	t.Helper()
	f := &fixture{
		host:  &recordingHost{},
		clock: &testClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.session = New(Config{
		ID:         "sess-1",
		Onboarding: ob,
		Host:       f.host,
		Logger:     zerolog.Nop(),
		Clock:      f.clock.now,
	})
	for i := 0; i < len(ob.Screens); i++ {
		sink := &recordingSink{}
		f.sinks = append(f.sinks, sink)
		f.session.AttachSurface(i, sink)
		f.session.SurfaceLoaded(i)
	}
	// Surfaces settle; most tests are about ordering, not the windows.
	f.clock.advance(2 * time.Second)
	return f
}

func TestSession_InitialState(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	if f.session.ActiveIndex() != 0 {
		t.Errorf("surface 0 should start active, got index %d", f.session.ActiveIndex())
	}
	if f.session.Closed() {
		t.Error("new session should not be closed")
	}
	// Loading pushed the seed variables to every surface.
	for i, sink := range f.sinks {
		if sink.count("variables") == 0 {
			t.Errorf("surface %d got no variables push on load", i)
		}
	}
}

func TestSession_DuplicateLoadSignalIgnored(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	before := f.sinks[1].count("variables")
	f.session.SurfaceLoaded(1)
	if f.sinks[1].count("variables") != before {
		t.Error("duplicate load signal should be ignored")
	}
}

func TestSession_VariablesFromActiveSurfaceMergeAndEcho(t *testing.T) {
	f := newFixture(t, threeScreenFlow())

	f.session.HandleMessage(0, protocol.VariablesUpdate{Vars: map[string]any{"name": "Alice"}})

	if got := f.session.Variables()["name"]; got != "Alice" {
		t.Errorf("name = %v, want Alice", got)
	}
	// Merged map re-sent to the originating surface only.
	if f.sinks[0].lastVars(t)["name"] != "Alice" {
		t.Error("originating surface did not get the merged map back")
	}
	if f.sinks[1].count("variables") != 1 {
		t.Errorf("non-originating surface should not receive the echo, got %d sends", f.sinks[1].count("variables"))
	}
}

func TestSession_VariablesFromInactiveSurfaceRejected(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	f.session.HandleMessage(0, protocol.VariablesUpdate{Vars: map[string]any{"name": "Alice"}})

	// Surface 1 is not active; even a destructive write must bounce.
	f.session.HandleMessage(1, protocol.VariablesUpdate{Vars: map[string]any{"name": ""}})

	if got := f.session.Variables()["name"]; got != "Alice" {
		t.Errorf("inactive surface clobbered host value: %v", got)
	}
}

func TestSession_RequestVarsSendsToSenderOnly(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	before2 := f.sinks[2].count("variables")
	before1 := f.sinks[1].count("variables")

	f.session.HandleMessage(2, protocol.RequestVars{})

	if f.sinks[2].count("variables") != before2+1 {
		t.Error("sender did not receive requested vars")
	}
	if f.sinks[1].count("variables") != before1 {
		t.Error("request-vars must not broadcast")
	}
}

func TestSession_ContinueAdvancesAndPushesProgress(t *testing.T) {
	f := newFixture(t, threeScreenFlow())

	f.session.HandleMessage(0, protocol.Continue{})

	if f.session.ActiveIndex() != 1 {
		t.Fatalf("active index = %d, want 1", f.session.ActiveIndex())
	}
	progress := f.sinks[1].events[len(f.sinks[1].events)-1]
	if progress.Type != "progress" {
		t.Fatalf("last event to new surface = %s, want progress", progress.Type)
	}
	if progress.Data["currentIndex"] != 1 || progress.Data["screenId"] != "s2" || progress.Data["totalScreens"] != 3 {
		t.Errorf("unexpected progress payload: %v", progress.Data)
	}
}

func TestSession_ContinuePastEndClosesCompleted(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	f.session.Navigate(2)

	f.session.HandleMessage(2, protocol.Continue{})

	if !f.session.Closed() || !f.session.Completed() {
		t.Error("continue past the last screen should close the session as completed")
	}
	if len(f.host.closed) != 1 || !f.host.closed[0] {
		t.Errorf("host closed notifications: %v", f.host.closed)
	}
}

func TestSession_GoBackFromFirstScreenCloses(t *testing.T) {
	// No navigation graph: go-back resolves to array order, index -1 is out
	// of bounds, the session closes.
	f := newFixture(t, threeScreenFlow())

	f.session.HandleMessage(0, protocol.Navigate{TargetScreenID: protocol.SentinelGoBack})

	if !f.session.Closed() {
		t.Error("go-back from the first screen should close the session")
	}
}

func TestSession_NavigateSentinelsAndTargets(t *testing.T) {
	f := newFixture(t, threeScreenFlow())

	f.session.HandleMessage(0, protocol.Navigate{TargetScreenID: "s3"})
	if f.session.ActiveIndex() != 2 {
		t.Fatalf("navigate to s3: index = %d", f.session.ActiveIndex())
	}
	f.session.HandleMessage(2, protocol.Navigate{TargetScreenID: protocol.SentinelGoBack})
	if f.session.ActiveIndex() != 1 {
		t.Fatalf("goBack sentinel: index = %d", f.session.ActiveIndex())
	}
	f.session.HandleMessage(1, protocol.Navigate{TargetScreenID: protocol.SentinelContinue})
	if f.session.ActiveIndex() != 2 {
		t.Fatalf("continue sentinel: index = %d", f.session.ActiveIndex())
	}

	// Unknown target: protocol violation, silently ignored.
	f.session.HandleMessage(2, protocol.Navigate{TargetScreenID: "nope"})
	if f.session.ActiveIndex() != 2 || f.session.Closed() {
		t.Error("navigate to unknown screen should be a no-op")
	}
}

func TestSession_NavigateNoOps(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	f.session.Navigate(0)  // same index
	f.session.Navigate(-1) // out of bounds
	f.session.Navigate(3)  // out of bounds
	if f.session.ActiveIndex() != 0 {
		t.Errorf("no-op navigations moved the index to %d", f.session.ActiveIndex())
	}
}

func TestSession_BranchFlowRejoinsMainSequence(t *testing.T) {
	ob := &flow.Onboarding{
		ID: "ob-branch",
		Screens: []flow.Screen{
			{ID: "s1"}, {ID: "s2"}, {ID: "variant"}, {ID: "s3"},
		},
		Navigation: &navigation.Data{
			MainFlow: []string{"s1", "s2", "s3"},
			ScreenPositions: map[string]navigation.Position{
				"s1": {X: 0}, "s2": {X: 10}, "s3": {X: 20},
				"variant": {Row: 1, X: 10},
			},
		},
	}
	f := newFixture(t, ob)

	// Jump onto the branch, then continue: must rejoin at s3, skipping the
	// array-order neighbor.
	f.session.HandleMessage(0, protocol.Navigate{TargetScreenID: "variant"})
	f.session.HandleMessage(2, protocol.Continue{})
	if got := f.session.ActiveIndex(); got != 3 {
		t.Errorf("continue from branch landed on index %d, want 3 (s3)", got)
	}
}

func TestSession_GatedActionRunsImmediatelyWhenActive(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	f.session.HandleMessage(0, protocol.RequestReview{})
	if f.host.reviews != 1 {
		t.Errorf("active surface review request should run now, got %d", f.host.reviews)
	}
}

func TestSession_GatedActionDeferredUntilActivation(t *testing.T) {
	f := newFixture(t, threeScreenFlow())

	// Surface 1 is preloading in the background and asks for two prompts.
	f.session.HandleMessage(1, protocol.RequestReview{})
	f.session.HandleMessage(1, protocol.RequestNotificationPermission{})
	if f.host.reviews != 0 || f.host.permissions != 0 {
		t.Fatal("background surface must not trigger system prompts")
	}

	f.session.Navigate(1)
	if f.host.reviews != 1 || f.host.permissions != 1 {
		t.Errorf("pending actions not drained on activation: reviews=%d permissions=%d",
			f.host.reviews, f.host.permissions)
	}

	// Queue was cleared; re-activating must not replay.
	f.session.Navigate(0)
	f.session.Navigate(1)
	if f.host.reviews != 1 || f.host.permissions != 1 {
		t.Error("drained queue replayed on re-activation")
	}
}

func TestSession_RequestCloseIdempotent(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	f.session.RequestClose(false)
	f.session.RequestClose(false)
	f.session.RequestClose(true)

	if len(f.host.closed) != 1 {
		t.Fatalf("host notified %d times, want exactly once", len(f.host.closed))
	}
	if len(f.host.abandoned) != 1 {
		t.Errorf("abandonment signals: %d, want 1", len(f.host.abandoned))
	}
}

func TestSession_AbandonmentOnlyWhenNotCompleted(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	f.session.HandleMessage(0, protocol.OnboardingFinished{Payload: map[string]any{"ok": true}})

	if len(f.host.finished) != 1 {
		t.Fatalf("finished notifications: %d", len(f.host.finished))
	}
	if len(f.host.abandoned) != 0 {
		t.Errorf("completed session must not signal abandonment: %v", f.host.abandoned)
	}
	if len(f.host.closed) != 1 || !f.host.closed[0] {
		t.Errorf("closed notifications: %v", f.host.closed)
	}
}

func TestSession_MessagesAfterCloseIgnored(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	f.session.RequestClose(true)

	f.session.HandleMessage(0, protocol.Continue{})
	f.session.HandleMessage(0, protocol.VariablesUpdate{Vars: map[string]any{"name": "late"}})

	if f.session.Variables()["name"] == "late" {
		t.Error("closed session accepted a variable write")
	}
	if len(f.host.closed) != 1 {
		t.Errorf("closed notifications: %v", f.host.closed)
	}
}

func TestSession_SettlingWindowViaClock(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	f.session.HandleMessage(0, protocol.VariablesUpdate{Vars: map[string]any{"name": "Alice"}})

	// Activate surface 1 and immediately let it echo an empty default.
	f.session.Navigate(1)
	f.clock.advance(50 * time.Millisecond)
	f.session.HandleMessage(1, protocol.VariablesUpdate{Vars: map[string]any{"name": ""}})
	if got := f.session.Variables()["name"]; got != "Alice" {
		t.Errorf("settling window failed, name = %v", got)
	}

	// Well past both windows the same write is a genuine clear.
	f.clock.advance(5 * time.Second)
	f.session.HandleMessage(1, protocol.VariablesUpdate{Vars: map[string]any{"name": ""}})
	if got := f.session.Variables()["name"]; got != "" {
		t.Errorf("genuine clear rejected, name = %v", got)
	}
}

func TestSession_SetVariablesBroadcasts(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	counts := make([]int, 3)
	for i, sink := range f.sinks {
		counts[i] = sink.count("variables")
	}

	f.session.SetVariables(map[string]any{"onboarding.permissionGranted": true})

	for i, sink := range f.sinks {
		if sink.count("variables") != counts[i]+1 {
			t.Errorf("surface %d missed the broadcast", i)
		}
		if sink.lastVars(t)["onboarding.permissionGranted"] != true {
			t.Errorf("surface %d got stale map", i)
		}
	}
}

func TestSession_HapticAndPaywallForwarded(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	f.session.HandleMessage(0, protocol.Haptic{HapticType: "impact", ImpactStyle: "light"})
	f.session.HandleMessage(0, protocol.ShowPaywall{Payload: map[string]any{"placement": "onboarding"}})

	if len(f.host.haptics) != 1 || f.host.haptics[0] != "impact" {
		t.Errorf("haptics: %v", f.host.haptics)
	}
	if len(f.host.paywalls) != 1 {
		t.Errorf("paywalls: %v", f.host.paywalls)
	}
}

func TestSession_IgnoredMessageIsSilent(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	f.session.HandleMessage(0, protocol.Ignored{Raw: "???"})
	f.session.HandleMessage(99, protocol.Continue{}) // out-of-range surface

	if f.session.ActiveIndex() != 0 || f.session.Closed() {
		t.Error("ignored input affected session state")
	}
}

func TestSession_OnVarsChangedFiresForPersistence(t *testing.T) {
	var snapshots []map[string]any
	ob := threeScreenFlow()
	s := New(Config{
		ID:         "sess-2",
		Onboarding: ob,
		Host:       &recordingHost{},
		Logger:     zerolog.Nop(),
		OnVarsChanged: func(vars map[string]any) {
			snapshots = append(snapshots, vars)
		},
	})
	s.AttachSurface(0, &recordingSink{})
	s.SurfaceLoaded(0)

	// Outside windows by default clock; write a real value.
	s.HandleMessage(0, protocol.VariablesUpdate{Vars: map[string]any{"plan": "pro"}})

	if len(snapshots) == 0 {
		t.Fatal("no persistence snapshot emitted")
	}
	if snapshots[len(snapshots)-1]["plan"] != "pro" {
		t.Errorf("snapshot missing merged key: %v", snapshots[len(snapshots)-1])
	}
}

func TestSession_ScriptPayloadShape(t *testing.T) {
	f := newFixture(t, threeScreenFlow())
	ev := f.sinks[0].events[0]
	if ev.Type != "variables" {
		t.Fatalf("first event = %s", ev.Type)
	}
	if ev.Script == "" {
		t.Fatal("variables event missing injected script")
	}
	for _, want := range []string{"window.rampkitVariables", "rampkit:variables", "CustomEvent", "MessageEvent"} {
		if !strings.Contains(ev.Script, want) {
			t.Errorf("script missing %q:\n%s", want, ev.Script)
		}
	}
}
