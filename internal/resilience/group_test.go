package resilience

import (
	"errors"
	"testing"
	"time"
)

// countingService counts invocations and fails until healthyAfter calls.
type countingService struct {
	name         string
	calls        int
	healthyAfter int
}

func (s *countingService) work() error {
	s.calls++
	if s.calls <= s.healthyAfter {
		return errBackend
	}
	return nil
}

func TestGroup_PrimarySuccessSkipsStandby(t *testing.T) {
	t.Parallel()

	primary := &countingService{name: "elevenlabs"}
	standby := &countingService{name: "openai"}
	g := NewGroup("elevenlabs", primary, BreakerConfig{})
	g.Add("openai", standby)

	if err := g.Do(func(s *countingService) error { return s.work() }); err != nil {
		t.Fatalf("Do = %v, want nil", err)
	}
	if primary.calls != 1 || standby.calls != 0 {
		t.Errorf("calls = %d/%d, want 1/0", primary.calls, standby.calls)
	}
}

func TestGroup_FailedPrimaryFallsThrough(t *testing.T) {
	t.Parallel()

	primary := &countingService{name: "elevenlabs", healthyAfter: 100}
	standby := &countingService{name: "openai"}
	g := NewGroup("elevenlabs", primary, BreakerConfig{})
	g.Add("openai", standby)

	if err := g.Do(func(s *countingService) error { return s.work() }); err != nil {
		t.Fatalf("Do = %v, want nil via standby", err)
	}
	if primary.calls != 1 || standby.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.calls, standby.calls)
	}
}

func TestGroup_OpenBreakerSkipsEntryWithoutCalling(t *testing.T) {
	t.Parallel()

	primary := &countingService{name: "elevenlabs", healthyAfter: 100}
	standby := &countingService{name: "openai"}
	g := NewGroup("elevenlabs", primary, BreakerConfig{MaxFailures: 2, Cooldown: time.Minute})
	g.Add("openai", standby)

	work := func(s *countingService) error { return s.work() }
	for i := 0; i < 3; i++ {
		if err := g.Do(work); err != nil {
			t.Fatalf("Do %d = %v, want nil", i, err)
		}
	}

	// Two failures trip the primary's breaker; the third round must not
	// touch it.
	if primary.calls != 2 {
		t.Errorf("primary calls = %d, want 2", primary.calls)
	}
	if standby.calls != 3 {
		t.Errorf("standby calls = %d, want 3", standby.calls)
	}
}

func TestGroup_AllFailed(t *testing.T) {
	t.Parallel()

	g := NewGroup("elevenlabs", &countingService{healthyAfter: 100}, BreakerConfig{})
	g.Add("openai", &countingService{healthyAfter: 100})

	err := g.Do(func(s *countingService) error { return s.work() })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("Do = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errBackend) {
		t.Fatalf("Do = %v, want the last cause wrapped", err)
	}
}

func TestDoResult(t *testing.T) {
	t.Parallel()

	primary := &countingService{name: "elevenlabs", healthyAfter: 100}
	standby := &countingService{name: "openai"}
	g := NewGroup("elevenlabs", primary, BreakerConfig{})
	g.Add("openai", standby)

	got, err := DoResult(g, func(s *countingService) (string, error) {
		if err := s.work(); err != nil {
			return "", err
		}
		return s.name, nil
	})
	if err != nil {
		t.Fatalf("DoResult = %v, want nil", err)
	}
	if got != "openai" {
		t.Errorf("DoResult value = %q, want openai", got)
	}
}

func TestGroup_Names(t *testing.T) {
	t.Parallel()

	g := NewGroup("elevenlabs", &countingService{}, BreakerConfig{})
	g.Add("openai", &countingService{})

	got := g.Names()
	want := []string{"elevenlabs", "openai"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}
