package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/core/tag"
	"go.uber.org/zap/zaptest"
)

func TestParse(t *testing.T) {
	cases := []struct {
		line string
		want Intent
	}{
		{"add hero Crouch", Intent{Op: OpAdd, Actor: "hero", Key: "Crouch"}},
		{"ADD hero Dash dash", Intent{Op: OpAdd, Actor: "hero", Key: "Dash", Class: "dash"}},
		{"remove hero Crouch", Intent{Op: OpRemove, Actor: "hero", Key: "Crouch"}},
		{"activate hero Crouch", Intent{Op: OpActivate, Actor: "hero", Key: "Crouch"}},
		{"disable hero Crouch Hit.Stun", Intent{Op: OpDisable, Actor: "hero", Key: "Crouch", Cause: "Hit.Stun"}},
		{"slide hero Crouch Ability.Crouch.Start", Intent{Op: OpSlide, Actor: "hero", Key: "Crouch", Slide: "Ability.Crouch.Start"}},
		{"slide hero Crouch base", Intent{Op: OpSlide, Actor: "hero", Key: "Crouch", Slide: tag.Root}},
		{"slide hero Crouch", Intent{Op: OpSlide, Actor: "hero", Key: "Crouch"}},
		{"input hero Input.Crouch completed", Intent{Op: OpInput, Actor: "hero", Input: "Input.Crouch", Event: ability.TriggerCompleted}},
		{"pause hero", Intent{Op: OpPause, Actor: "hero"}},
		{"resume hero", Intent{Op: OpResume, Actor: "hero"}},
		{"tags hero", Intent{Op: OpTags, Actor: "hero"}},
		{"list hero", Intent{Op: OpList, Actor: "hero"}},
		{"journal hero", Intent{Op: OpJournal, Actor: "hero", Limit: DefaultJournalLimit}},
		{"journal hero 3", Intent{Op: OpJournal, Actor: "hero", Limit: 3}},
	}
	for _, c := range cases {
		got, ok, err := Parse(c.line)
		if err != nil || !ok {
			t.Fatalf("Parse(%q) = %v, %v", c.line, ok, err)
		}
		if got != c.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", c.line, got, c.want)
		}
	}
}

func TestParseVectorInput(t *testing.T) {
	in, ok, err := Parse("input hero Input.Move ongoing 1 -0.5 2")
	if err != nil || !ok {
		t.Fatalf("Parse: %v %v", ok, err)
	}
	if in.Vector == nil || *in.Vector != (ability.Vector{X: 1, Y: -0.5, Z: 2}) {
		t.Fatalf("vector = %v", in.Vector)
	}
	if in.Event != ability.TriggerOngoing {
		t.Fatalf("event = %v", in.Event)
	}
}

func TestParseSkipsBlankAndComments(t *testing.T) {
	for _, line := range []string{"", "   ", "# note"} {
		if _, ok, err := Parse(line); ok || err != nil {
			t.Fatalf("Parse(%q) = %v, %v", line, ok, err)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{
		"fly hero",
		"add hero",
		"activate hero Crouch extra",
		"input hero Input.Crouch pressed",
		"input hero Input.Move started 1 2",
		"input hero Input.Move started 1 x 2",
		"tags",
		"journal hero 0",
		"journal hero many",
	} {
		if _, _, err := Parse(line); err == nil {
			t.Fatalf("Parse(%q) accepted", line)
		}
	}
}

func TestReadForwardsIntentsAndReportsErrors(t *testing.T) {
	src := strings.NewReader("add hero Crouch\nbogus\n\nactivate hero Crouch\n")
	out := make(chan Intent, 4)
	var errs bytes.Buffer
	if err := Read(context.Background(), src, out, &errs, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Read: %v", err)
	}
	close(out)
	var ops []Op
	for in := range out {
		ops = append(ops, in.Op)
	}
	if len(ops) != 2 || ops[0] != OpAdd || ops[1] != OpActivate {
		t.Fatalf("ops = %v", ops)
	}
	if !strings.Contains(errs.String(), "unknown command") {
		t.Fatalf("errors = %q", errs.String())
	}
}

func TestReadStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := make(chan Intent) // unbuffered, never drained
	if err := Read(ctx, strings.NewReader("tags hero\n"), out, nil, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Read: %v", err)
	}
}
