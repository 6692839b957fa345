package ws

import (
	"testing"
	"time"
)

func frames(from, to uint64) []Message {
	var out []Message
	for seq := from; seq <= to; seq++ {
		out = append(out, Message{Type: TypeRunEvent, Seq: seq})
	}
	return out
}

func TestReplayBuffer_Since(t *testing.T) {
	b := newReplayBuffer(3, time.Hour)
	for _, m := range frames(1, 5) {
		b.Append("t1", m)
	}

	tests := []struct {
		name    string
		lastSeq uint64
		want    []uint64
		wantOK  bool
	}{
		{name: "caught up", lastSeq: 5, want: nil, wantOK: true},
		{name: "one behind", lastSeq: 4, want: []uint64{5}, wantOK: true},
		{name: "oldest kept boundary", lastSeq: 2, want: []uint64{3, 4, 5}, wantOK: true},
		{name: "already dropped", lastSeq: 1, wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := b.Since("t1", tc.lastSeq)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d frames, want %d", len(got), len(tc.want))
			}
			for i, m := range got {
				if m.Seq != tc.want[i] {
					t.Errorf("frame %d seq = %d, want %d", i, m.Seq, tc.want[i])
				}
			}
		})
	}
}

func TestReplayBuffer_TenantsAreSeparate(t *testing.T) {
	b := newReplayBuffer(10, time.Hour)
	b.Append("t1", Message{Seq: 1})

	got, ok := b.Since("t2", 0)
	if !ok || len(got) != 0 {
		t.Errorf("t2 sees %d frames (ok=%v)", len(got), ok)
	}
}

func TestReplayBuffer_Expires(t *testing.T) {
	b := newReplayBuffer(10, 20*time.Millisecond)
	b.Append("t1", Message{Seq: 1})

	time.Sleep(60 * time.Millisecond)

	if got, _ := b.Since("t1", 0); len(got) != 0 {
		t.Errorf("expected expired buffer, got %d frames", len(got))
	}
}

func TestSequence_PerTenant(t *testing.T) {
	s := newSequence()
	s.Next("t1")
	s.Next("t1")

	if got := s.Next("t2"); got != 1 {
		t.Errorf("t2 first seq = %d, want 1", got)
	}
	if got := s.Next("t1"); got != 3 {
		t.Errorf("t1 third seq = %d, want 3", got)
	}
}
