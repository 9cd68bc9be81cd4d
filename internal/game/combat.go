package game

// KillCause represents the origin of lethal damage for logging and relay.
type KillCause string

const (
	KillCauseBullet    KillCause = "bullet"
	KillCauseExplosion KillCause = "explosion"
)

// applyDamage subtracts health from the target and handles death
// side-effects. It returns true when the target died.
func (w *World) applyDamage(target *Tank, damage int, attacker *Tank, cause KillCause) bool {
	if target == nil || !target.Alive() || damage <= 0 {
		return false
	}

	died := target.TakeDamage(damage)
	w.ui.ShowHealth(target.ID, target.Health)
	w.audio.PlayCue(Cue{Kind: CueHit, TankID: target.ID, Position: target.Position})
	if !died {
		if target.Health < LowHealthThreshold {
			w.audio.PlayCue(Cue{Kind: CueLowHealth, TankID: target.ID})
		}
		return false
	}

	w.handleTankDeath(target, attacker, cause)
	return true
}

func (w *World) handleTankDeath(victim, killer *Tank, cause KillCause) {
	if killer != nil {
		w.log.Info().
			Str("victim", victim.ID).
			Str("killer", killer.ID).
			Str("cause", cause.describe()).
			Msg("tank destroyed")
	} else {
		w.log.Info().Str("victim", victim.ID).Str("cause", cause.describe()).Msg("tank destroyed")
	}

	w.audio.PlayCue(Cue{Kind: CueExplosion, TankID: victim.ID, Position: victim.Position})
	w.ui.HideProgress(victim.ID)

	if w.bomb != nil {
		if w.bomb.Actor() == victim {
			w.bomb.Cancel()
		}
		if w.bomb.Carrier == victim {
			w.bomb.Drop()
			w.reassignBomb()
		}
	}

	if w.hooks.TankDied != nil {
		w.hooks.TankDied(victim, killer, cause)
	}

	roundID := w.round.ID
	w.sched.After(DeathRemovalDelay, func() {
		if w.round.ID != roundID || victim.removed {
			return
		}
		w.removeTank(victim)
	})
}

// reassignBomb hands a dropped bomb to a random live red tank.
func (w *World) reassignBomb() {
	var candidates []*Tank
	for _, t := range w.tanks {
		if t.Team == TeamRed && t.Alive() {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		w.log.Debug().Msg("bomb dropped with no red tank to carry it")
		return
	}
	carrier := candidates[w.rng.Intn(len(candidates))]
	w.bomb.Assign(carrier)
	w.log.Debug().Str("carrier", carrier.ID).Msg("bomb reassigned")
}

func (cause KillCause) describe() string {
	switch cause {
	case KillCauseBullet:
		return "a bullet"
	case KillCauseExplosion:
		return "the bomb blast"
	default:
		return string(cause)
	}
}
