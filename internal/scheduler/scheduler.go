// Package scheduler decides which question of a practice session to present
// next, based on the running record of correct and incorrect answers. It is
// purely in-memory and session-scoped: the host creates one Scheduler per
// session, calls RecordAnswer after every submission and NextQuestion to
// advance, and discards the instance when IsComplete reports true (or the
// session is abandoned). Questions are identified by their position in the
// session's question list, 0..N-1.
package scheduler

import (
	"errors"
	"math/rand"
	"sort"
	"time"
)

var (
	// ErrUnknownQuestion is returned when RecordAnswer is called with an id
	// outside 0..N-1. This is a caller bug, never normal operation.
	ErrUnknownQuestion = errors.New("scheduler: unknown question id")

	// ErrNoCandidate is returned when NextQuestion is called but no question
	// is eligible. With correct host usage this only happens once the
	// session is already complete.
	ErrNoCandidate = errors.New("scheduler: no eligible question")
)

// NoExclusion disables the exclude-id filter in NextQuestion.
const NoExclusion = -1

// Result is the outcome of the most recent submission for a question.
type Result int

const (
	ResultNone Result = iota
	ResultCorrect
	ResultIncorrect
)

// Policy selects how many extra repeats a question earns after recovering
// from a miss.
type Policy int

const (
	// PolicyRandomRepeat schedules 1 or 2 extra repeats (uniform random)
	// after the first correct answer that follows a miss.
	PolicyRandomRepeat Policy = iota

	// PolicyFixedTwo always schedules exactly 2 extra repeats.
	PolicyFixedTwo
)

// Performance holds the per-question counters the scheduler maintains.
type Performance struct {
	QuestionID     int
	Attempts       int
	CorrectCount   int
	IncorrectCount int
	LastResult     Result
	EverMissed     bool

	// RepeatsNeeded is the number of scheduled repeats still outstanding
	// after the question, having been missed, was answered correctly again.
	RepeatsNeeded int

	// LastShownAt is the value of the session's submission counter when the
	// question was last presented, or -1 if it was never presented.
	LastShownAt int

	// openMisses counts incorrect answers not yet recovered from. It resets
	// when the repeat quota is assigned, unlike IncorrectCount which only
	// grows (Attempts == CorrectCount + IncorrectCount always holds).
	openMisses int
}

// Stats aggregates totals across every question in the session.
type Stats struct {
	TotalAttempts  int
	TotalCorrect   int
	TotalIncorrect int
}

// Scheduler tracks one practice session. It is not safe for concurrent use;
// the host must serialize calls, which matches the one-submission-at-a-time
// interaction model.
type Scheduler struct {
	perf            []Performance
	initialOrder    []int
	firstPassIndex  int
	submissionCount int
	rotationIndex   int
	policy          Policy
	rng             *rand.Rand
}

// New creates a scheduler for a session of totalQuestions questions using
// the randomized-repeat policy. A nil rng gets a time-seeded source; tests
// pass a seeded one for determinism. totalQuestions == 0 yields a session
// that is immediately complete.
func New(totalQuestions int, rng *rand.Rand) *Scheduler {
	return NewWithPolicy(totalQuestions, PolicyRandomRepeat, rng)
}

// NewWithPolicy is New with an explicit repeat policy.
func NewWithPolicy(totalQuestions int, policy Policy, rng *rand.Rand) *Scheduler {
	if totalQuestions < 0 {
		totalQuestions = 0
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Scheduler{
		perf:         make([]Performance, totalQuestions),
		initialOrder: make([]int, totalQuestions),
		policy:       policy,
		rng:          rng,
	}
	for i := range s.perf {
		s.perf[i] = Performance{QuestionID: i, LastShownAt: -1}
	}

	// Fisher-Yates shuffle for the first-pass ordering.
	for i := range s.initialOrder {
		s.initialOrder[i] = i
	}
	for i := totalQuestions - 1; i >= 1; i-- {
		j := s.rng.Intn(i + 1)
		s.initialOrder[i], s.initialOrder[j] = s.initialOrder[j], s.initialOrder[i]
	}

	return s
}

// RecordAnswer records the outcome of one submission for questionID.
func (s *Scheduler) RecordAnswer(questionID int, isCorrect bool) error {
	if questionID < 0 || questionID >= len(s.perf) {
		return ErrUnknownQuestion
	}

	s.submissionCount++

	p := &s.perf[questionID]
	p.Attempts++

	if !isCorrect {
		p.IncorrectCount++
		p.openMisses++
		p.LastResult = ResultIncorrect
		p.EverMissed = true
		return nil
	}

	p.CorrectCount++
	p.LastResult = ResultCorrect

	switch {
	case p.EverMissed && p.RepeatsNeeded == 0 && p.openMisses > 0:
		// First correct answer since the (latest) miss: schedule repeats
		// and consider the miss recovered.
		p.RepeatsNeeded = s.repeatQuota()
		p.openMisses = 0
	case p.RepeatsNeeded > 0:
		p.RepeatsNeeded--
	}

	return nil
}

func (s *Scheduler) repeatQuota() int {
	if s.policy == PolicyFixedTwo {
		return 2
	}
	return 1 + s.rng.Intn(2)
}

// eligibleForRepeat enforces the 2-submission cool-down: a question that was
// just answered is never the immediate next question.
func (s *Scheduler) eligibleForRepeat(p *Performance) bool {
	return s.submissionCount-p.LastShownAt >= 2
}

// repeatCandidates returns the indexes of answered questions with an
// outstanding repeat need, excluding excludeID. During the first pass only
// questions shown within the last 3 submissions qualify, so misses resurface
// quickly instead of piling up at the end of the pass.
func (s *Scheduler) repeatCandidates(excludeID int, duringFirstPass bool) []int {
	var out []int
	for i := range s.perf {
		p := &s.perf[i]
		if p.Attempts == 0 || i == excludeID {
			continue
		}
		if !s.eligibleForRepeat(p) {
			continue
		}
		if duringFirstPass && s.submissionCount-p.LastShownAt >= 4 {
			continue
		}
		if p.openMisses == 0 && p.RepeatsNeeded == 0 {
			continue
		}
		out = append(out, i)
	}
	return out
}

// sortCandidates orders candidate ids by incorrect count (desc), then
// outstanding repeats (desc), then longest idle first.
func (s *Scheduler) sortCandidates(ids []int) {
	sort.SliceStable(ids, func(a, b int) bool {
		pa, pb := &s.perf[ids[a]], &s.perf[ids[b]]
		if pa.IncorrectCount != pb.IncorrectCount {
			return pa.IncorrectCount > pb.IncorrectCount
		}
		if pa.RepeatsNeeded != pb.RepeatsNeeded {
			return pa.RepeatsNeeded > pb.RepeatsNeeded
		}
		return pa.LastShownAt < pb.LastShownAt
	})
}

// NextQuestion returns the id of the question to present next. Pass the id
// of the question just shown as excludeID (or NoExclusion) so it cannot be
// re-served immediately.
func (s *Scheduler) NextQuestion(excludeID int) (int, error) {
	if s.hasUnanswered() {
		return s.nextFirstPass(excludeID)
	}
	return s.nextAfterFirstPass(excludeID)
}

func (s *Scheduler) hasUnanswered() bool {
	for i := range s.perf {
		if s.perf[i].Attempts == 0 {
			return true
		}
	}
	return false
}

func (s *Scheduler) nextFirstPass(excludeID int) (int, error) {
	if cands := s.repeatCandidates(excludeID, true); len(cands) > 0 {
		s.sortCandidates(cands)
		return s.present(cands[0]), nil
	}

	// Serve the next brand-new question from the shuffled order.
	if id, ok := s.scanUnanswered(excludeID); ok {
		return id, nil
	}
	// The only unanswered question left is the excluded one; serving it
	// anyway beats stalling the session.
	if id, ok := s.scanUnanswered(NoExclusion); ok {
		return id, nil
	}
	return s.nextAfterFirstPass(excludeID)
}

func (s *Scheduler) scanUnanswered(excludeID int) (int, bool) {
	for pos := s.firstPassIndex; pos < len(s.initialOrder); pos++ {
		id := s.initialOrder[pos]
		if s.perf[id].Attempts != 0 || id == excludeID {
			continue
		}
		if pos+1 > s.firstPassIndex {
			s.firstPassIndex = pos + 1
		}
		return s.present(id), true
	}
	return 0, false
}

func (s *Scheduler) nextAfterFirstPass(excludeID int) (int, error) {
	cands := s.repeatCandidates(excludeID, false)
	if len(cands) == 0 {
		if s.IsComplete() {
			return 0, ErrNoCandidate
		}
		// Questions still owe repeats but none may be shown yet (cool-down
		// or exclusion). Serve a filler so the session can wait out the
		// spacing instead of stalling.
		return s.nextFiller(excludeID)
	}
	s.sortCandidates(cands)

	// Round-robin through the top group of equal incorrect counts so ties
	// are served fairly instead of always repeating the same question.
	top := s.perf[cands[0]].IncorrectCount
	group := 1
	for group < len(cands) && s.perf[cands[group]].IncorrectCount == top {
		group++
	}
	chosen := cands[s.rotationIndex%group]
	s.rotationIndex++

	return s.present(chosen), nil
}

// nextFiller picks the least recently shown question that passes the
// cool-down, ignoring repeat need. With a single-question session no filler
// can satisfy the cool-down, so the pending question is served directly.
func (s *Scheduler) nextFiller(excludeID int) (int, error) {
	best := -1
	for i := range s.perf {
		p := &s.perf[i]
		if i == excludeID || !s.eligibleForRepeat(p) {
			continue
		}
		if best == -1 || p.LastShownAt < s.perf[best].LastShownAt {
			best = i
		}
	}
	if best >= 0 {
		return s.present(best), nil
	}

	// Nothing passes the cool-down: serve the question with the oldest
	// outstanding need rather than none at all.
	for i := range s.perf {
		p := &s.perf[i]
		if p.openMisses == 0 && p.RepeatsNeeded == 0 {
			continue
		}
		if best == -1 || p.LastShownAt < s.perf[best].LastShownAt {
			best = i
		}
	}
	if best >= 0 {
		return s.present(best), nil
	}
	return 0, ErrNoCandidate
}

func (s *Scheduler) present(id int) int {
	s.perf[id].LastShownAt = s.submissionCount
	return id
}

// IsComplete reports whether every question has been attempted, has no
// unrecovered miss, and has consumed its scheduled repeats.
func (s *Scheduler) IsComplete() bool {
	for i := range s.perf {
		p := &s.perf[i]
		if p.Attempts == 0 || p.openMisses > 0 || p.RepeatsNeeded > 0 {
			return false
		}
	}
	return true
}

// Performance returns a copy of the per-question counters keyed by question
// id. Mutating the result does not affect the scheduler.
func (s *Scheduler) Performance() map[int]Performance {
	out := make(map[int]Performance, len(s.perf))
	for i := range s.perf {
		out[i] = s.perf[i]
	}
	return out
}

// Stats returns submission totals summed over all questions.
func (s *Scheduler) Stats() Stats {
	var st Stats
	for i := range s.perf {
		st.TotalAttempts += s.perf[i].Attempts
		st.TotalCorrect += s.perf[i].CorrectCount
		st.TotalIncorrect += s.perf[i].IncorrectCount
	}
	return st
}

// TotalQuestions returns the size of the session's question set.
func (s *Scheduler) TotalQuestions() int {
	return len(s.perf)
}

// SubmissionCount returns how many answers have been recorded so far.
func (s *Scheduler) SubmissionCount() int {
	return s.submissionCount
}
