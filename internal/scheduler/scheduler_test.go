package scheduler

import (
	"math/rand"
	"testing"
)

// runSession drives a scheduler to completion. answer decides correctness
// given the question id and how many times it has been asked so far. It
// returns the full presentation order.
func runSession(t *testing.T, s *Scheduler, answer func(id, asked int) bool) []int {
	t.Helper()

	asked := make(map[int]int)
	var shown []int
	last := NoExclusion

	for i := 0; !s.IsComplete(); i++ {
		if i > 10000 {
			t.Fatalf("session did not terminate after %d submissions", i)
		}
		id, err := s.NextQuestion(last)
		if err != nil {
			t.Fatalf("NextQuestion(%d) returned %v with session incomplete", last, err)
		}
		shown = append(shown, id)
		correct := answer(id, asked[id])
		asked[id]++
		if err := s.RecordAnswer(id, correct); err != nil {
			t.Fatalf("RecordAnswer(%d, %v) returned %v", id, correct, err)
		}
		last = id
	}

	return shown
}

func alwaysCorrect(int, int) bool { return true }

func TestAllCorrectCompletesInOnePass(t *testing.T) {
	const n = 5
	s := New(n, rand.New(rand.NewSource(1)))

	shown := runSession(t, s, alwaysCorrect)

	if len(shown) != n {
		t.Fatalf("expected exactly %d presentations, got %d: %v", n, len(shown), shown)
	}
	seen := make(map[int]bool)
	for _, id := range shown {
		if seen[id] {
			t.Errorf("question %d presented more than once in an all-correct session", id)
		}
		seen[id] = true
	}
	for id := 0; id < n; id++ {
		if !seen[id] {
			t.Errorf("question %d never presented", id)
		}
	}
}

func TestThreeQuestionsAllCorrectScenario(t *testing.T) {
	s := New(3, rand.New(rand.NewSource(7)))

	last := NoExclusion
	for i := 0; i < 3; i++ {
		id, err := s.NextQuestion(last)
		if err != nil {
			t.Fatalf("NextQuestion: %v", err)
		}
		if s.IsComplete() {
			t.Fatal("IsComplete true before all questions attempted")
		}
		if err := s.RecordAnswer(id, true); err != nil {
			t.Fatalf("RecordAnswer: %v", err)
		}
		last = id
	}

	if !s.IsComplete() {
		t.Error("session not complete after 3 correct first attempts")
	}
	if _, err := s.NextQuestion(last); err != ErrNoCandidate {
		t.Errorf("NextQuestion after completion = %v, want ErrNoCandidate", err)
	}
}

func TestMissedQuestionEarnsRepeats(t *testing.T) {
	// Question 0 is missed once, then always answered correctly.
	s := New(2, rand.New(rand.NewSource(3)))

	shown := runSession(t, s, func(id, asked int) bool {
		return !(id == 0 && asked == 0)
	})

	count0 := 0
	for _, id := range shown {
		if id == 0 {
			count0++
		}
	}
	// One miss, one recovery, then 1 or 2 scheduled repeats.
	if count0 < 3 || count0 > 4 {
		t.Errorf("question 0 presented %d times, want 3 or 4 (miss + recovery + 1-2 repeats)", count0)
	}

	perf := s.Performance()
	p := perf[0]
	if !p.EverMissed {
		t.Error("EverMissed false for a missed question")
	}
	if p.RepeatsNeeded != 0 {
		t.Errorf("RepeatsNeeded = %d after completion, want 0", p.RepeatsNeeded)
	}
	if p.IncorrectCount != 1 {
		t.Errorf("IncorrectCount = %d, want 1", p.IncorrectCount)
	}
}

func TestFixedTwoPolicy(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		s := NewWithPolicy(2, PolicyFixedTwo, rand.New(rand.NewSource(seed)))

		shown := runSession(t, s, func(id, asked int) bool {
			return !(id == 0 && asked == 0)
		})

		count0 := 0
		for _, id := range shown {
			if id == 0 {
				count0++
			}
		}
		// Miss + recovery + exactly 2 repeats, independent of seed.
		if count0 != 4 {
			t.Errorf("seed %d: question 0 presented %d times, want 4", seed, count0)
		}
	}
}

func TestSpacingBetweenRepeats(t *testing.T) {
	// Every question missed on the first attempt; lots of repeat traffic.
	for seed := int64(0); seed < 20; seed++ {
		s := New(6, rand.New(rand.NewSource(seed)))

		shown := runSession(t, s, func(id, asked int) bool {
			return asked > 0
		})

		lastPos := make(map[int]int)
		for pos, id := range shown {
			if prev, ok := lastPos[id]; ok {
				if pos-prev < 2 {
					t.Fatalf("seed %d: question %d shown at positions %d and %d (gap %d < 2): %v",
						seed, id, prev, pos, pos-prev, shown)
				}
			}
			lastPos[id] = pos
		}
	}
}

func TestCountersInvariant(t *testing.T) {
	s := New(8, rand.New(rand.NewSource(11)))
	decide := rand.New(rand.NewSource(12))

	checkAll := func() {
		for id, p := range s.Performance() {
			if p.Attempts != p.CorrectCount+p.IncorrectCount {
				t.Fatalf("question %d: attempts %d != correct %d + incorrect %d",
					id, p.Attempts, p.CorrectCount, p.IncorrectCount)
			}
		}
	}

	missed := make(map[int]bool)
	last := NoExclusion
	for i := 0; i < 500 && !s.IsComplete(); i++ {
		id, err := s.NextQuestion(last)
		if err != nil {
			t.Fatalf("NextQuestion: %v", err)
		}
		correct := decide.Intn(3) != 0
		if err := s.RecordAnswer(id, correct); err != nil {
			t.Fatalf("RecordAnswer: %v", err)
		}
		if !correct {
			missed[id] = true
		}
		// EverMissed must stay true once set.
		for mid := range missed {
			if !s.Performance()[mid].EverMissed {
				t.Fatalf("question %d lost its EverMissed flag", mid)
			}
		}
		checkAll()
		last = id
	}
}

func TestInitialOrderVariesAcrossSessions(t *testing.T) {
	const n = 10
	orders := make(map[string]bool)
	for seed := int64(0); seed < 10; seed++ {
		s := New(n, rand.New(rand.NewSource(seed)))
		shown := runSession(t, s, alwaysCorrect)
		key := ""
		for _, id := range shown {
			key += string(rune('a' + id))
		}
		orders[key] = true
	}
	// 10 seeds over 10! permutations colliding into one ordering would be
	// astronomically unlikely with a working shuffle.
	if len(orders) < 2 {
		t.Errorf("all %d sessions produced the same initial ordering", 10)
	}
}

func TestPerformanceSnapshotIsDefensive(t *testing.T) {
	s := New(3, rand.New(rand.NewSource(5)))
	id, err := s.NextQuestion(NoExclusion)
	if err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if err := s.RecordAnswer(id, false); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	first := s.Performance()
	second := s.Performance()
	if len(first) != len(second) {
		t.Fatalf("snapshot sizes differ: %d vs %d", len(first), len(second))
	}
	for qid := range first {
		if first[qid] != second[qid] {
			t.Errorf("snapshots differ for question %d without intervening RecordAnswer", qid)
		}
	}

	// Mutating the snapshot must not leak into scheduler state.
	p := first[id]
	p.IncorrectCount = 99
	p.EverMissed = false
	first[id] = p
	if got := s.Performance()[id].IncorrectCount; got != 1 {
		t.Errorf("scheduler state mutated through snapshot: IncorrectCount = %d", got)
	}
}

func TestStats(t *testing.T) {
	s := New(2, rand.New(rand.NewSource(9)))

	runSession(t, s, func(id, asked int) bool {
		return !(id == 1 && asked == 0)
	})

	st := s.Stats()
	if st.TotalAttempts != st.TotalCorrect+st.TotalIncorrect {
		t.Errorf("stats inconsistent: %+v", st)
	}
	if st.TotalIncorrect != 1 {
		t.Errorf("TotalIncorrect = %d, want 1", st.TotalIncorrect)
	}
	if st.TotalAttempts != s.SubmissionCount() {
		t.Errorf("TotalAttempts %d != SubmissionCount %d", st.TotalAttempts, s.SubmissionCount())
	}
}

func TestRecordAnswerUnknownID(t *testing.T) {
	s := New(3, rand.New(rand.NewSource(2)))

	for _, id := range []int{-1, 3, 100} {
		if err := s.RecordAnswer(id, true); err != ErrUnknownQuestion {
			t.Errorf("RecordAnswer(%d) = %v, want ErrUnknownQuestion", id, err)
		}
	}
	// A rejected answer must not advance the session clock.
	if s.SubmissionCount() != 0 {
		t.Errorf("SubmissionCount = %d after rejected answers, want 0", s.SubmissionCount())
	}
}

func TestEmptySessionIsComplete(t *testing.T) {
	s := New(0, rand.New(rand.NewSource(1)))
	if !s.IsComplete() {
		t.Error("zero-question session should be immediately complete")
	}
	if _, err := s.NextQuestion(NoExclusion); err != ErrNoCandidate {
		t.Errorf("NextQuestion on empty session = %v, want ErrNoCandidate", err)
	}
}

func TestSingleQuestionWithMissTerminates(t *testing.T) {
	// N=1 cannot satisfy the usual cool-down; the session must still finish.
	s := New(1, rand.New(rand.NewSource(4)))

	shown := runSession(t, s, func(id, asked int) bool {
		return asked > 0
	})

	if len(shown) < 3 {
		t.Errorf("expected at least miss + recovery + repeat, got %d presentations", len(shown))
	}
}

func TestTwoQuestionRecoveryScenario(t *testing.T) {
	// Question 0: incorrect then always correct. Question 1: correct first
	// try. The session must stay open until question 0's repeat quota is
	// fully consumed.
	s := New(2, rand.New(rand.NewSource(42)))

	shown := runSession(t, s, func(id, asked int) bool {
		return !(id == 0 && asked == 0)
	})

	count0 := 0
	for _, id := range shown {
		if id == 0 {
			count0++
		}
	}
	r := count0 - 2 // presentations beyond miss + recovery
	if r < 1 || r > 2 {
		t.Fatalf("repeat quota consumed %d times, want 1 or 2 (shown: %v)", r, shown)
	}
	if got := s.Stats().TotalAttempts; got < 3+r {
		t.Errorf("session closed after %d submissions, want at least %d", got, 3+r)
	}
}
