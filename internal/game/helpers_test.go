package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingUI struct {
	countdowns []int
	results    []RoundResult
	progress   map[string]float64
	health     map[string]int
}

func newRecordingUI() *recordingUI {
	return &recordingUI{progress: map[string]float64{}, health: map[string]int{}}
}

func (u *recordingUI) ShowProgress(id, _ string, p float64) { u.progress[id] = p }
func (u *recordingUI) HideProgress(id string)               { delete(u.progress, id) }
func (u *recordingUI) ShowHealth(id string, h int)          { u.health[id] = h }
func (u *recordingUI) ShowCountdown(s int)                  { u.countdowns = append(u.countdowns, s) }
func (u *recordingUI) ShowResult(r RoundResult)             { u.results = append(u.results, r) }

type recordingAudio struct {
	cues []Cue
}

func (a *recordingAudio) PlayCue(c Cue) { a.cues = append(a.cues, c) }

func (a *recordingAudio) count(kind CueKind) int {
	n := 0
	for _, c := range a.cues {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// newBareWorld returns an active world with an empty arena so tests can
// place tanks by hand.
func newBareWorld(mode Mode) *World {
	w := NewWorld(Options{Rand: rand.New(rand.NewSource(7)), Mode: mode})
	w.arena = &Arena{sites: map[Team]Vec3{}}
	if mode == ModeBomb {
		for team, site := range bombSites {
			w.arena.sites[team] = site
		}
	}
	w.round.ID = "test-round"
	w.round.Phase = PhaseActive
	return w
}

func (w *World) addTestTank(id string, team Team, pos Vec3, ctrl Controller) *Tank {
	t := NewTank(id, id, team, pos, ctrl)
	w.tanks = append(w.tanks, t)
	w.round.Teams[team].Members = append(w.round.Teams[team].Members, t)
	return t
}

// newLobbyWorld returns a world with human participants and no bots.
func newLobbyWorld(t *testing.T, mode Mode, red, blue []string) (*World, *recordingUI, *recordingAudio) {
	t.Helper()
	ui := newRecordingUI()
	audio := &recordingAudio{}
	w := NewWorld(Options{
		Rand:     rand.New(rand.NewSource(42)),
		Mode:     mode,
		TeamSize: 0,
		UI:       ui,
		Audio:    audio,
	})
	for _, id := range red {
		_, err := w.AddParticipant(id, id, TeamRed)
		require.NoError(t, err)
		require.NoError(t, w.SetReady(id, true))
	}
	for _, id := range blue {
		_, err := w.AddParticipant(id, id, TeamBlue)
		require.NoError(t, err)
		require.NoError(t, w.SetReady(id, true))
	}
	return w, ui, audio
}

// startRound runs the countdown to completion.
func startRound(t *testing.T, w *World) {
	t.Helper()
	require.NoError(t, w.StartCountdown())
	for i := 0; i < CountdownSeconds*TickRate; i++ {
		w.Step()
	}
	require.Equal(t, PhaseActive, w.Round().Phase)
}

// stepUntil steps until cond holds and returns the number of steps taken.
func stepUntil(t *testing.T, w *World, limit int, cond func() bool) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		w.Step()
		if cond() {
			return i
		}
	}
	t.Fatalf("condition not met after %d steps", limit)
	return 0
}

func mustTank(t *testing.T, w *World, id string) *Tank {
	t.Helper()
	tank, ok := w.Tank(id)
	require.True(t, ok, "tank %s", id)
	return tank
}
