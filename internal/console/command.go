package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/core/tag"
)

// Op is the operation a console line asks for.
type Op uint8

const (
	OpAdd Op = iota
	OpRemove
	OpActivate
	OpDisable
	OpSlide
	OpInput
	OpPause
	OpResume
	OpTags
	OpList
	OpJournal
)

// DefaultJournalLimit is how many entries "journal" shows without a count.
const DefaultJournalLimit = 10

var opNames = [...]string{
	OpAdd:      "add",
	OpRemove:   "remove",
	OpActivate: "activate",
	OpDisable:  "disable",
	OpSlide:    "slide",
	OpInput:    "input",
	OpPause:    "pause",
	OpResume:   "resume",
	OpTags:     "tags",
	OpList:     "list",
	OpJournal:  "journal",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// Intent is one parsed console command addressed to an actor.
type Intent struct {
	Op    Op
	Actor string
	Key   string // ability key; empty for actor-wide ops
	Class string // add: class kind, defaults to the key's table entry
	Slide tag.Tag
	Cause tag.Tag
	Input tag.Tag
	Event ability.TriggerEvent
	// Vector is set for vector inputs ("input hero Input.Move started 1 0 0").
	Vector *ability.Vector
	Limit  int // journal: entries to show
}

// Usage lists the accepted commands.
const Usage = `commands:
  add <actor> <key> [class]
  remove <actor> <key>
  activate <actor> <key>
  disable <actor> <key> [cause]
  slide <actor> <key> [slide]
  input <actor> <input> <event> [x y z]
  pause <actor> | resume <actor>
  tags <actor> | list <actor>
  journal <actor> [count]`

// Parse turns a console line into an Intent. Blank lines and lines starting
// with '#' yield ok=false and no error.
func Parse(line string) (Intent, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Intent{}, false, nil
	}
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var in Intent
	switch cmd {
	case "add":
		if err := arity(cmd, args, 2, 3); err != nil {
			return in, false, err
		}
		in = Intent{Op: OpAdd, Actor: args[0], Key: args[1]}
		if len(args) == 3 {
			in.Class = args[2]
		}
	case "remove", "activate":
		if err := arity(cmd, args, 2, 2); err != nil {
			return in, false, err
		}
		in = Intent{Op: OpRemove, Actor: args[0], Key: args[1]}
		if cmd == "activate" {
			in.Op = OpActivate
		}
	case "disable":
		if err := arity(cmd, args, 2, 3); err != nil {
			return in, false, err
		}
		in = Intent{Op: OpDisable, Actor: args[0], Key: args[1]}
		if len(args) == 3 {
			in.Cause = tag.Tag(args[2])
		}
	case "slide":
		if err := arity(cmd, args, 2, 3); err != nil {
			return in, false, err
		}
		in = Intent{Op: OpSlide, Actor: args[0], Key: args[1]}
		if len(args) == 3 && args[2] != "base" {
			in.Slide = tag.Tag(args[2])
		}
	case "input":
		if len(args) != 3 && len(args) != 6 {
			return in, false, fmt.Errorf("input: want 3 or 6 arguments, got %d", len(args))
		}
		ev, err := ability.ParseTriggerEvent(args[2])
		if err != nil {
			return in, false, fmt.Errorf("input: %w", err)
		}
		in = Intent{Op: OpInput, Actor: args[0], Input: tag.Tag(args[1]), Event: ev}
		if len(args) == 6 {
			v, err := parseVector(args[3:])
			if err != nil {
				return in, false, fmt.Errorf("input: %w", err)
			}
			in.Vector = &v
		}
	case "pause", "resume", "tags", "list":
		if err := arity(cmd, args, 1, 1); err != nil {
			return in, false, err
		}
		in = Intent{Actor: args[0]}
		switch cmd {
		case "pause":
			in.Op = OpPause
		case "resume":
			in.Op = OpResume
		case "tags":
			in.Op = OpTags
		default:
			in.Op = OpList
		}
	case "journal":
		if err := arity(cmd, args, 1, 2); err != nil {
			return in, false, err
		}
		in = Intent{Op: OpJournal, Actor: args[0], Limit: DefaultJournalLimit}
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return in, false, fmt.Errorf("journal: bad count %q", args[1])
			}
			in.Limit = n
		}
	default:
		return in, false, fmt.Errorf("unknown command %q", cmd)
	}
	return in, true, nil
}

func arity(cmd string, args []string, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%s: want %d arguments, got %d", cmd, lo, len(args))
		}
		return fmt.Errorf("%s: want %d to %d arguments, got %d", cmd, lo, hi, len(args))
	}
	return nil
}

func parseVector(xs []string) (ability.Vector, error) {
	var f [3]float64
	for i, s := range xs {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ability.Vector{}, fmt.Errorf("bad vector component %q", s)
		}
		f[i] = v
	}
	return ability.Vector{X: f[0], Y: f[1], Z: f[2]}, nil
}
