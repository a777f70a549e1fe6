package system

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/console"
	"github.com/stridepath/server/internal/core/event"
	coresys "github.com/stridepath/server/internal/core/system"
	"github.com/stridepath/server/internal/world"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Operator is the instigator recorded for console commands.
var Operator = ability.NamedActor("console")

// InputSystem drains console intents and settings reloads handed over by
// other goroutines and applies them on the game loop. Phase 0 (Input).
type InputSystem struct {
	world      *world.State
	bus        *event.Bus
	intents    <-chan console.Intent
	reloads    <-chan event.SettingsReloaded
	limiter    *rate.Limiter
	maxPerTick int
	history    JournalReader
	out        io.Writer
	log        *zap.Logger
}

// NewInputSystem builds the input phase. A non-positive perSecond disables
// rate limiting; intents over the limit stay queued for later ticks.
func NewInputSystem(ws *world.State, bus *event.Bus, intents <-chan console.Intent,
	reloads <-chan event.SettingsReloaded, perSecond, maxPerTick int, out io.Writer, log *zap.Logger) *InputSystem {
	s := &InputSystem{
		world:      ws,
		bus:        bus,
		intents:    intents,
		reloads:    reloads,
		maxPerTick: maxPerTick,
		out:        out,
		log:        log,
	}
	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
	if s.out == nil {
		s.out = io.Discard
	}
	return s
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

// SetJournal enables the journal command.
func (s *InputSystem) SetJournal(r JournalReader) { s.history = r }

func (s *InputSystem) Update(_ time.Duration) {
	s.drainReloads()
	for n := 0; s.maxPerTick <= 0 || n < s.maxPerTick; n++ {
		if s.limiter != nil && s.limiter.Tokens() < 1 {
			return
		}
		select {
		case in := <-s.intents:
			if s.limiter != nil {
				s.limiter.Allow()
			}
			s.Apply(in)
		default:
			return
		}
	}
}

func (s *InputSystem) drainReloads() {
	for {
		select {
		case ev := <-s.reloads:
			s.log.Debug("settings reload handed to game loop",
				zap.Int("added", len(ev.Added)), zap.Int("removed", len(ev.Removed)))
			if s.bus != nil {
				event.Emit(s.bus, ev)
			}
		default:
			return
		}
	}
}

// Apply executes one intent and writes the outcome to the console.
func (s *InputSystem) Apply(in console.Intent) bool {
	if in.Op == console.OpAdd {
		return s.reply(in, s.world.Grant(in.Actor, in.Key, in.Class, Operator))
	}
	if in.Op == console.OpJournal {
		return s.journal(in)
	}
	if in.Op == console.OpPause || in.Op == console.OpResume {
		if _, ok := s.world.GetByName(in.Actor); !ok {
			return s.unknownActor(in)
		}
		return s.reply(in, s.world.SetPaused(in.Actor, in.Op == console.OpPause))
	}

	sys, ok := s.world.GetByName(in.Actor)
	if !ok {
		return s.unknownActor(in)
	}
	var done bool
	switch in.Op {
	case console.OpRemove:
		done = sys.RemoveAbility(in.Key, Operator)
	case console.OpActivate:
		done = sys.Activate(in.Key, Operator)
	case console.OpDisable:
		done = sys.ForceDisable(in.Key, Operator, in.Cause)
	case console.OpSlide:
		done = sys.ChangeSlide(in.Key, in.Slide)
	case console.OpInput:
		if in.Vector != nil {
			done = sys.AddInputVector(in.Input, in.Event, *in.Vector)
		} else {
			done = sys.AddInput(in.Input, in.Event)
		}
	case console.OpTags:
		fmt.Fprintf(s.out, "%s tags: %s\n", in.Actor, world.TagSummary(sys))
		return true
	case console.OpList:
		s.list(in.Actor, sys)
		return true
	default:
		s.log.Warn("unhandled console op", zap.Stringer("op", in.Op))
		return false
	}
	return s.reply(in, done)
}

func (s *InputSystem) list(actor string, sys *ability.System) {
	abilities := sys.Abilities()
	fmt.Fprintf(s.out, "%s abilities: %d\n", actor, len(abilities))
	for _, a := range abilities {
		fmt.Fprintf(s.out, "  %-12s %-10s %-10s slide=%s", a.Key(), a.Kind(), a.State(), a.Slide())
		if left, ok := a.Pending(); ok {
			fmt.Fprintf(s.out, " pending=%s", left)
		}
		if a.Updating() {
			fmt.Fprint(s.out, " updating")
		}
		fmt.Fprintln(s.out)
	}
}

// journal prints stored history; despawned actors keep theirs.
func (s *InputSystem) journal(in console.Intent) bool {
	if s.history == nil {
		fmt.Fprintf(s.out, "%s: journal not available\n", in.Op)
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	entries, err := s.history.Recent(ctx, in.Actor, in.Limit)
	if err != nil {
		s.log.Warn("journal read failed", zap.String("actor", in.Actor), zap.Error(err))
	}
	fmt.Fprintf(s.out, "%s journal: %d\n", in.Actor, len(entries))
	for _, e := range entries {
		fmt.Fprintf(s.out, "  %s %-13s %-12s by=%s", e.At.Format("15:04:05.000"), e.Kind, e.Key, e.Instigator)
		if e.Reason != "" {
			fmt.Fprintf(s.out, " reason=%s", e.Reason)
		}
		if e.Cause != "" {
			fmt.Fprintf(s.out, " cause=%s", e.Cause)
		}
		fmt.Fprintln(s.out)
	}
	return err == nil
}

func (s *InputSystem) unknownActor(in console.Intent) bool {
	fmt.Fprintf(s.out, "%s: unknown actor %q\n", in.Op, in.Actor)
	return false
}

func (s *InputSystem) reply(in console.Intent, done bool) bool {
	target := in.Key
	if in.Op == console.OpInput {
		target = in.Input.String()
	}
	status := "ok"
	if !done {
		status = "rejected"
	}
	if target != "" {
		fmt.Fprintf(s.out, "%s %s %s: %s\n", in.Op, in.Actor, target, status)
	} else {
		fmt.Fprintf(s.out, "%s %s: %s\n", in.Op, in.Actor, status)
	}
	return done
}
