package room

import (
	"fmt"

	"github.com/KirkDiggler/rpg-arena/internal/engine/combat"
	combatent "github.com/KirkDiggler/rpg-arena/internal/entities/combat"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

func (r *Room) drainInputs() {
	for _, in := range r.queue.Drain() {
		err := r.apply(in)
		if err != nil {
			r.logger.Debug("input rejected",
				"player_id", in.PlayerID,
				"kind", in.Kind,
				"seq", in.Seq,
				"error", err,
			)
		}
		in.reply(err)
	}
}

func (r *Room) apply(in Input) error {
	switch in.Kind {
	case InputJoin:
		return r.join(in)
	case InputLeave:
		return r.leave(in.PlayerID)
	case InputReady:
		return r.ready(in.PlayerID)
	}

	if r.state != StateRunning {
		return errors.StateConflictf("cannot %s while room is %s", in.Kind, r.state)
	}
	if _, ok := r.members[in.PlayerID]; !ok {
		return errors.StateConflictf("player %s is not in room %s", in.PlayerID, r.settings.ID)
	}
	actor, ok := r.entities[in.PlayerID].(*Actor)
	if !ok || !actor.IsAlive() {
		return r.reject(in.PlayerID, errors.StateConflictf("player %s is dead", in.PlayerID))
	}
	if err := r.intend(actor, in); err != nil {
		return r.reject(in.PlayerID, err)
	}
	return nil
}

func (r *Room) reject(actorID string, err error) error {
	r.events = append(r.events, Event{Kind: EventRejected, Actor: actorID, Detail: errors.GetMessage(err)})
	return err
}

func (r *Room) join(in Input) error {
	if r.state != StateEmpty && r.state != StateWaiting {
		return errors.StateConflictf("room %s is %s, joins are closed", r.settings.ID, r.state)
	}
	if _, ok := r.members[in.PlayerID]; ok {
		return errors.StateConflictf("player %s already joined", in.PlayerID)
	}
	if len(r.members) >= r.settings.MaxPlayers {
		return errors.ResourceExhaustedf(errors.ReasonRoomFull, "room %s is full (%d players)", r.settings.ID, r.settings.MaxPlayers)
	}

	loadout := r.settings.DefaultLoadout
	if in.Loadout != nil {
		loadout = *in.Loadout
	}
	if err := r.catalog.ValidateLoadout(loadout); err != nil {
		return err
	}

	r.members[in.PlayerID] = &member{
		playerID: in.PlayerID,
		out:      in.Outbound,
		loadout:  loadout.Clone(),
	}
	r.memberOrder = append(r.memberOrder, in.PlayerID)
	r.events = append(r.events, Event{Kind: EventJoined, Actor: in.PlayerID})

	if r.state == StateEmpty {
		r.transition(StateWaiting)
	}
	return nil
}

func (r *Room) leave(playerID string) error {
	m, ok := r.members[playerID]
	if !ok {
		return errors.StateConflictf("player %s is not in room %s", playerID, r.settings.ID)
	}

	delete(r.members, playerID)
	for i, pid := range r.memberOrder {
		if pid == playerID {
			r.memberOrder = append(r.memberOrder[:i], r.memberOrder[i+1:]...)
			break
		}
	}
	close(m.out)

	r.remove(playerID)
	r.events = append(r.events, Event{Kind: EventLeft, Actor: playerID})
	return nil
}

func (r *Room) ready(playerID string) error {
	if r.state != StateWaiting {
		return errors.StateConflictf("cannot ready while room is %s", r.state)
	}
	m, ok := r.members[playerID]
	if !ok {
		return errors.StateConflictf("player %s is not in room %s", playerID, r.settings.ID)
	}
	m.ready = true
	r.events = append(r.events, Event{Kind: EventReady, Actor: playerID})
	return nil
}

// intend applies an input in arrival order. Movement sets the velocity and
// combat intents are checked against where this tick's movement will leave
// both sides, given every input applied before them. Intents that pass
// reserve their cooldown and wait for the combat phase.
func (r *Room) intend(a *Actor, in Input) error {
	switch in.Kind {
	case InputMove:
		if !in.Direction.Finite() {
			return errors.InvalidArgument("direction must be finite")
		}
		a.vel = in.Direction.Clamp1().Scale(a.MoveSpeed(r.tick))
		return nil
	case InputAttack:
		return r.prepareSkill(a, combatent.BasicAttack.ID, in.TargetID, Vec{})
	case InputSkill:
		if _, ok := a.skills[in.SkillID]; !ok {
			return errors.InvalidArgumentf("%s does not have skill %s", a.id, in.SkillID)
		}
		return r.prepareSkill(a, in.SkillID, in.TargetID, in.Direction)
	case InputUseItem:
		return r.prepareItem(a, in.TargetID)
	default:
		return errors.InvalidArgumentf("unsupported input kind %s", in.Kind)
	}
}

// projected is the position the actor reaches at the end of this tick's
// movement with its current velocity
func (r *Room) projected(a *Actor) Vec {
	return a.next(1/float64(r.settings.TickRate), r.settings.Bounds, r.settings.Walls)
}

func (r *Room) prepareSkill(a *Actor, skillID, targetID string, dir Vec) error {
	slot := a.skills[skillID]
	if r.tick < slot.readyTick {
		return errors.StateConflictf("%s is on cooldown until tick %d", slot.skill.ID, slot.readyTick)
	}
	skill := slot.skill
	act := action{actor: a, kind: InputSkill, skill: skill, origin: r.projected(a)}

	switch {
	case skill.Kind != combatent.SkillDamage:
		act.target = a
		if t, ok := r.entities[targetID].(*Actor); ok && t.team == a.team && t.IsAlive() {
			act.target = t
		}

	case skill.Projectile():
		act.dir = dir.Unit()
		if target := r.hostileTarget(a, targetID); target != nil && (act.dir == Vec{}) {
			act.dir = r.projected(target).Sub(act.origin).Unit()
		}
		if (act.dir == Vec{}) {
			return errors.StateConflictf("%s has no direction", skill.ID)
		}

	default:
		act.target = r.hostileTarget(a, targetID)
		if act.target == nil {
			return errors.StateConflictf("%s has no target", skill.ID)
		}
		if d := act.origin.Dist(r.projected(act.target)); d > skill.Range {
			return errors.StateConflictf("%s out of range (%.2f > %.2f)", act.target.id, d, skill.Range)
		}
	}

	act.prevReady = slot.readyTick
	slot.readyTick = r.tick + max(1, skill.CooldownTicks(r.settings.TickRate, a.profile.Totals(r.tick).CooldownRate))
	r.actions = append(r.actions, act)
	return nil
}

func (r *Room) prepareItem(a *Actor, itemID string) error {
	item, ok := r.entities[itemID].(*Item)
	if !ok || item.taken {
		return errors.StateConflictf("item %s is not available", itemID)
	}
	if d := r.projected(a).Dist(item.pos); d > pickupRange {
		return errors.StateConflictf("item %s out of reach (%.2f)", item.id, d)
	}
	r.actions = append(r.actions, action{actor: a, kind: InputUseItem, item: item})
	return nil
}

func (r *Room) thinkNPCs() {
	for _, id := range r.order {
		a, ok := r.entities[id].(*Actor)
		if !ok || a.brain == nil || !a.IsAlive() {
			continue
		}
		for _, in := range a.brain.Think(r.tick, a, r) {
			in.PlayerID = a.id
			if err := r.intend(a, in); err != nil {
				_ = r.reject(a.id, err)
			}
		}
	}
}

func (r *Room) integrate() {
	dt := 1 / float64(r.settings.TickRate)
	for _, id := range r.order {
		m, ok := r.entities[id].(Mover)
		if !ok {
			continue
		}
		if m.Integrate(dt, r.settings.Bounds, r.settings.Walls) {
			r.changed[id] = true
		}
	}
}

// resolveCombat settles projectile hits first, then queued intents. Every
// hit is applied before the next one is evaluated.
func (r *Room) resolveCombat() error {
	defer func() { r.actions = r.actions[:0] }()

	for _, id := range append([]string(nil), r.order...) {
		p, ok := r.entities[id].(*Projectile)
		if !ok || p.spent {
			continue
		}
		target := r.firstHostileWithin(p.team, p.pos, projectileRange)
		if target == nil {
			continue
		}
		p.spent = true
		owner, ok := r.entities[p.ownerID].(*Actor)
		if !ok || !owner.IsAlive() {
			continue
		}
		if err := r.strike(owner, target, p.skill); err != nil {
			return err
		}
	}

	for _, act := range r.actions {
		if !r.present(act.actor) {
			continue
		}
		var err error
		if act.kind == InputUseItem {
			err = r.useItem(act)
		} else {
			err = r.useSkill(act)
		}
		if err == nil {
			continue
		}
		if errors.IsStateConflict(err) {
			_ = r.reject(act.actor.id, err)
			continue
		}
		return err
	}
	return nil
}

// useSkill carries out an intent that already passed its checks. Only a
// target lost to an earlier hit this tick can still stop it, and then the
// cooldown is given back.
func (r *Room) useSkill(act action) error {
	a := act.actor
	skill := act.skill

	switch {
	case skill.Kind != combatent.SkillDamage:
		target := act.target
		if !r.present(target) {
			target = a
		}
		return r.strike(a, target, skill)

	case skill.Projectile():
		r.nextID++
		r.spawn(&Projectile{
			id:        fmt.Sprintf("proj_%d", r.nextID),
			ownerID:   a.id,
			team:      a.team,
			skill:     skill,
			pos:       act.origin,
			vel:       act.dir.Scale(skill.ProjectileSpeed),
			expiresAt: r.tick + combatent.SecondsToTicks(skill.ProjectileLifetime, r.settings.TickRate),
		})
		return nil

	default:
		if !r.present(act.target) {
			a.skills[skill.ID].readyTick = act.prevReady
			return errors.StateConflictf("%s has no target", skill.ID)
		}
		return r.strike(a, act.target, skill)
	}
}

// present reports whether the actor is still alive and in the room
func (r *Room) present(a *Actor) bool {
	e, ok := r.entities[a.id]
	return ok && e == Entity(a) && a.IsAlive()
}

func (r *Room) useItem(act action) error {
	item := act.item
	if item.taken {
		return errors.StateConflictf("item %s is not available", item.id)
	}

	a := act.actor
	item.taken = true
	healed := min(a.hp+item.heal, a.profile.Totals(r.tick).MaxHP) - a.hp
	a.hp += healed
	r.changed[a.id] = true
	r.events = append(r.events,
		Event{Kind: EventPickedUp, Actor: a.id, Target: item.id},
		Event{Kind: EventHeal, Actor: a.id, Target: a.id, Amount: healed, Detail: item.id},
	)
	return nil
}

// strike resolves one skill use and records its events
func (r *Room) strike(attacker, target *Actor, skill combatent.Skill) error {
	out, err := r.resolver.Resolve(r.tick, attacker, target, skill)
	if err != nil {
		if errors.IsStateConflict(err) {
			return err
		}
		return errors.InternalFault(err, "combat resolution failed")
	}
	r.record(out)
	return nil
}

func (r *Room) record(out combat.Outcome) {
	ev := Event{Actor: out.AttackerID, Target: out.TargetID, SkillID: out.SkillID, Amount: out.Amount, Crit: out.Crit}
	switch {
	case out.Kind == combatent.SkillHeal:
		ev.Kind = EventHeal
	case out.Kind == combatent.SkillBuff:
		ev.Kind = EventBuff
	case out.Hit:
		ev.Kind = EventDamage
	default:
		ev.Kind = EventMiss
	}
	r.events = append(r.events, ev)
	r.changed[out.TargetID] = true

	if !out.Killed {
		return
	}
	r.events = append(r.events, Event{Kind: EventKilled, Actor: out.AttackerID, Target: out.TargetID, SkillID: out.SkillID})
	if killer, ok := r.entities[out.AttackerID].(*Actor); ok {
		killer.score++
	}
	if m, ok := r.members[out.AttackerID]; ok {
		m.score++
	}
}

// hostileTarget returns the named target when it is a living enemy, or the
// nearest enemy when no target was named.
func (r *Room) hostileTarget(a *Actor, targetID string) *Actor {
	if targetID != "" {
		t, ok := r.entities[targetID].(*Actor)
		if !ok || !t.IsAlive() || t.team == a.team {
			return nil
		}
		return t
	}
	t, _ := r.NearestHostile(a)
	return t
}

func (r *Room) firstHostileWithin(team string, pos Vec, reach float64) *Actor {
	for _, id := range r.order {
		a, ok := r.entities[id].(*Actor)
		if ok && a.IsAlive() && a.team != team && a.pos.Dist(pos) <= reach+actorRadius {
			return a
		}
	}
	return nil
}

// NearestHostile implements World. Ties go to the earlier spawned actor.
func (r *Room) NearestHostile(from *Actor) (*Actor, bool) {
	var best *Actor
	bestDist := 0.0
	for _, id := range r.order {
		a, ok := r.entities[id].(*Actor)
		if !ok || a == from || !a.IsAlive() || a.team == from.team {
			continue
		}
		if d := a.pos.Dist(from.pos); best == nil || d < bestDist {
			best, bestDist = a, d
		}
	}
	return best, best != nil
}

func (r *Room) runLifecycles() {
	for _, id := range r.order {
		r.events = append(r.events, r.entities[id].OnTick(r.tick)...)
	}

	var dead []string
	for _, id := range r.order {
		if !r.entities[id].IsAlive() {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		r.remove(id)
	}
}

func (r *Room) checkWinConditions() {
	if len(r.members) == 0 {
		r.finish("", ReasonAbandoned)
		return
	}

	if limit := r.settings.ScoreLimit; limit > 0 {
		for _, pid := range r.memberOrder {
			if r.members[pid].score >= limit {
				r.finish(pid, ReasonScoreLimit)
				return
			}
		}
	}

	var alive []string
	for _, pid := range r.memberOrder {
		if a, ok := r.entities[pid].(*Actor); ok && a.IsAlive() {
			alive = append(alive, pid)
		}
	}
	if len(alive) == 0 || (r.startPlayers >= 2 && len(alive) == 1) {
		winner := ""
		if len(alive) == 1 {
			winner = alive[0]
		}
		r.finish(winner, ReasonElimination)
		return
	}

	if limit := r.settings.ticks(r.settings.TimeLimit); limit > 0 && r.elapsed() >= limit {
		r.finish(r.topScorer(), ReasonTimeLimit)
	}
}

// topScorer returns the unique highest scorer, or "" on a tie
func (r *Room) topScorer() string {
	winner, best, tied := "", -1, false
	for _, pid := range r.memberOrder {
		switch score := r.members[pid].score; {
		case score > best:
			winner, best, tied = pid, score, false
		case score == best:
			tied = true
		}
	}
	if tied {
		return ""
	}
	return winner
}

func (r *Room) finish(winnerID, reason string) {
	r.result = &Result{WinnerID: winnerID, Reason: reason, Scores: r.scores()}
	r.transition(StateFinished)
}
