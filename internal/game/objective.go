package game

// advanceAction starts or continues the bomb action a holding tank is
// eligible for: planting as the carrier on the blue site, or defusing as a
// blue tank next to the planted bomb.
func (w *World) advanceAction(t *Tank) {
	b := w.bomb
	if b == nil {
		return
	}
	now := w.Now()
	site, hasSite := w.arena.BombSite(TeamBlue)

	switch b.State {
	case BombCarried:
		if hasSite && b.StartPlanting(t, site, now) {
			w.ui.ShowProgress(t.ID, LabelPlanting, 0)
			w.log.Debug().Str("tank", t.ID).Msg("planting started")
		}

	case BombPlanting:
		if b.Actor() != t {
			return
		}
		progress, planted := b.ContinuePlanting(site, now)
		switch {
		case planted:
			w.onBombPlanted(t)
		case b.State != BombPlanting:
			w.ui.HideProgress(t.ID)
		default:
			w.ui.ShowProgress(t.ID, LabelPlanting, progress)
		}

	case BombPlanted:
		if b.StartDefusing(t, now) {
			w.ui.ShowProgress(t.ID, LabelDefusing, 0)
			w.log.Debug().Str("tank", t.ID).Msg("defusing started")
		}

	case BombDefusing:
		if b.Actor() != t {
			return
		}
		progress, defused := b.ContinueDefusing(now)
		switch {
		case defused:
			w.onBombDefused(t)
		case b.State != BombDefusing:
			w.ui.HideProgress(t.ID)
		default:
			w.ui.ShowProgress(t.ID, LabelDefusing, progress)
		}
	}
}

func (w *World) onBombPlanted(planter *Tank) {
	b := w.bomb
	w.ui.HideProgress(planter.ID)
	w.audio.PlayCue(Cue{Kind: CueBombPlant, TankID: planter.ID, Position: b.Position})
	w.log.Info().Str("planter", planter.ID).Float64("x", b.Position.X).Float64("z", b.Position.Z).Msg("bomb planted")
	if w.hooks.BombPlanted != nil {
		w.hooks.BombPlanted(planter, b.Position)
	}

	roundID := w.round.ID
	armed := func() bool {
		return w.round.ID == roundID && w.round.Phase == PhaseActive && w.bomb == b && b.Armed()
	}

	var blink func()
	blink = func() {
		if !armed() {
			return
		}
		b.Blink = !b.Blink
		w.sched.After(BlinkInterval, blink)
	}
	w.sched.After(BlinkInterval, blink)

	var tick func()
	tick = func() {
		if !armed() {
			return
		}
		interval := b.TickInterval(w.Now())
		w.audio.PlayCue(Cue{Kind: CueBombTick, Position: b.Position, Interval: interval})
		w.sched.After(interval, tick)
	}
	tick()
}

func (w *World) onBombDefused(defuser *Tank) {
	w.ui.HideProgress(defuser.ID)
	w.audio.PlayCue(Cue{Kind: CueBombDefuse, TankID: defuser.ID, Position: w.bomb.Position})
	w.log.Info().Str("defuser", defuser.ID).Msg("bomb defused")
	if w.hooks.BombDefused != nil {
		w.hooks.BombDefused(defuser)
	}
	w.endRound(TeamBlue)
}

// checkFuse detonates the bomb once its fuse runs out. It runs before
// controllers so a defuse finishing on the same tick does not win.
func (w *World) checkFuse() {
	if w.bomb == nil || !w.bomb.CheckFuse(w.Now()) {
		return
	}
	w.explode()
}

func (w *World) explode() {
	pos := w.bomb.Position
	w.log.Info().Float64("x", pos.X).Float64("z", pos.Z).Msg("bomb exploded")
	w.audio.PlayCue(Cue{Kind: CueExplosion, Position: pos})

	for _, t := range w.tanks {
		if !t.Alive() {
			continue
		}
		w.ui.HideProgress(t.ID)
		if dmg := ExplosionDamage(t.Position.DistanceTo(pos)); dmg > 0 {
			w.applyDamage(t, dmg, nil, KillCauseExplosion)
		}
	}

	if w.hooks.BombExploded != nil {
		w.hooks.BombExploded(pos)
	}
	w.endRound(TeamRed)
}
