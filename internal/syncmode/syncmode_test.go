package syncmode

import "testing"

func TestSetReportsTransitions(t *testing.T) {
	var calls []bool
	s := New(func(on bool) { calls = append(calls, on) })

	if !s.Set(true) {
		t.Fatalf("expected first enable to change state")
	}
	if s.Set(true) {
		t.Fatalf("expected repeated enable to be a no-op")
	}
	if !s.Set(false) {
		t.Fatalf("expected disable to change state")
	}
	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Fatalf("unexpected callbacks: %v", calls)
	}
}

func TestShuffleResolution(t *testing.T) {
	s := New(nil)
	yes, no := true, false

	if !s.Shuffle(true, nil) {
		t.Fatalf("expected configured shuffle when sync mode is off")
	}
	s.Set(true)
	if s.Shuffle(true, nil) {
		t.Fatalf("expected sync mode to disable default shuffle")
	}
	if !s.Shuffle(false, &yes) {
		t.Fatalf("expected explicit shuffle=true to win")
	}
	if s.Shuffle(true, &no) {
		t.Fatalf("expected explicit shuffle=false to win")
	}
}
