package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/quotevox/quotevox/internal/interpret"
	"github.com/quotevox/quotevox/internal/question"
	"github.com/quotevox/quotevox/pkg/types"
)

func newTestSession(clock *time.Time) *Session {
	s := NewSession("sess-1", interpret.New(), NewMachine(Config{SilenceTimeout: 10 * time.Second}))
	s.now = func() time.Time { return *clock }
	return s
}

func finalTr(text string) types.Transcript {
	return types.Transcript{Text: text, IsFinal: true, Confidence: 0.92}
}

func selectFuelQuestion() *question.Question {
	return &question.Question{
		ID:        "fuel",
		Text:      "What fuel does the car use?",
		InputType: types.InputSelect,
		Options: []types.AnswerOption{
			{Label: "Petrol", Value: "petrol", Aliases: []string{"benzine", "gasoline"}},
			{Label: "Diesel", Value: "diesel"},
		},
	}
}

func TestSession_SelectAnswer(t *testing.T) {
	t.Parallel()

	clock := machineTestBase
	s := newTestSession(&clock)
	s.Activate(selectFuelQuestion(), nil)

	ans, effects := s.HandleTranscript(context.Background(), finalTr("benzine"))
	if ans == nil {
		t.Fatal("no answer for a resolvable option")
	}
	if effects != nil {
		t.Fatalf("effects = %v, want none", kinds(effects))
	}
	if ans.Text != "petrol" || ans.Source != interpret.SourceOption {
		t.Fatalf("answer = %q via %q, want petrol via option", ans.Text, ans.Source)
	}
	if ans.Option == nil || ans.Option.Label != "Petrol" {
		t.Fatalf("resolved option = %+v, want Petrol", ans.Option)
	}
	if ans.QuestionID != "fuel" || ans.SessionID != "sess-1" {
		t.Fatalf("answer identity = %s/%s, want sess-1/fuel", ans.SessionID, ans.QuestionID)
	}
	if ans.Raw != "benzine" || ans.Confidence != 0.92 {
		t.Fatalf("raw = %q confidence = %v, want transcript carried over", ans.Raw, ans.Confidence)
	}
}

func TestSession_SelectNoMatchDoesNotSubmit(t *testing.T) {
	t.Parallel()

	clock := machineTestBase
	s := newTestSession(&clock)
	s.Activate(selectFuelQuestion(), nil)

	clock = clock.Add(9 * time.Second)
	ans, effects := s.HandleTranscript(context.Background(), finalTr("quantum physics"))
	if ans != nil {
		t.Fatalf("answer = %+v, want none for an unresolvable transcript", ans)
	}
	if effects != nil {
		t.Fatalf("effects = %v, want none", kinds(effects))
	}

	// The mishearing defers the silence clock instead of answering.
	if got := s.Tick(clock.Add(9 * time.Second)); got != nil {
		t.Fatalf("tick right after mishearing produced %v, want none", kinds(got))
	}
	if got := s.Tick(clock.Add(10 * time.Second)); len(got) != 1 || got[0].Kind != EffectSay {
		t.Fatalf("tick after timeout = %v, want one say", kinds(got))
	}
}

func TestSession_DateAnswer(t *testing.T) {
	t.Parallel()

	clock := machineTestBase
	s := newTestSession(&clock)
	s.Activate(&question.Question{
		ID:        "policy_start",
		Text:      "When should the policy start?",
		InputType: types.InputDate,
	}, nil)

	ans, _ := s.HandleTranscript(context.Background(), finalTr("twenty third of april twenty twenty four"))
	if ans == nil {
		t.Fatal("no answer for a valid spoken date")
	}
	if ans.Text != "23/04/2024" || ans.Source != interpret.SourceDate {
		t.Fatalf("answer = %q via %q, want 23/04/2024 via date", ans.Text, ans.Source)
	}
}

func TestSession_DateInvalidStaysUnanswered(t *testing.T) {
	t.Parallel()

	clock := machineTestBase
	s := newTestSession(&clock)
	s.Activate(&question.Question{
		ID:        "policy_start",
		Text:      "When should the policy start?",
		InputType: types.InputDate,
	}, nil)

	ans, _ := s.HandleTranscript(context.Background(), finalTr("thirty first of february twenty twenty"))
	if ans != nil {
		t.Fatalf("answer = %+v, want none for an impossible date", ans)
	}
}

func TestSession_SpellingAccumulatesThenDone(t *testing.T) {
	t.Parallel()

	clock := machineTestBase
	s := newTestSession(&clock)
	s.Activate(&question.Question{
		ID:        "surname",
		Text:      "Please spell your surname.",
		InputType: types.InputSpelling,
	}, nil)

	ans, effects := s.HandleTranscript(context.Background(), finalTr("sierra mike india tango hotel"))
	if ans != nil {
		t.Fatalf("answer = %+v, want none while spelling is pending", ans)
	}
	if effects != nil {
		t.Fatalf("effects = %v, want none", kinds(effects))
	}
	if got := s.SpellingBuffer(); got != "SMITH" {
		t.Fatalf("buffer = %q, want SMITH", got)
	}

	ans, _ = s.HandleTranscript(context.Background(), finalTr("that's it"))
	if ans == nil {
		t.Fatal("done phrase did not submit the buffer")
	}
	if ans.Text != "SMITH" || ans.Source != interpret.SourceSpelling {
		t.Fatalf("answer = %q via %q, want SMITH via spelling", ans.Text, ans.Source)
	}
}

func TestSession_SpellingDoneWithEmptyBuffer(t *testing.T) {
	t.Parallel()

	clock := machineTestBase
	s := newTestSession(&clock)
	s.Activate(&question.Question{
		ID:        "surname",
		Text:      "Please spell your surname.",
		InputType: types.InputSpelling,
	}, nil)

	ans, effects := s.HandleTranscript(context.Background(), finalTr("done"))
	if ans != nil || effects != nil {
		t.Fatalf("got answer %+v effects %v, want nothing before any letters", ans, kinds(effects))
	}
}

func TestSession_TextAnswerKeepsRawTranscript(t *testing.T) {
	t.Parallel()

	clock := machineTestBase
	s := newTestSession(&clock)
	s.Activate(&question.Question{
		ID:        "usage",
		Text:      "How do you mainly use the car?",
		InputType: types.InputText,
	}, nil)

	ans, _ := s.HandleTranscript(context.Background(), finalTr("  mostly commuting to work  "))
	if ans == nil {
		t.Fatal("no answer for free text")
	}
	if ans.Text != "mostly commuting to work" || ans.Source != interpret.SourceRaw {
		t.Fatalf("answer = %q via %q, want trimmed raw transcript", ans.Text, ans.Source)
	}
}

func TestSession_PartialOnlyDefersSilence(t *testing.T) {
	t.Parallel()

	clock := machineTestBase
	s := newTestSession(&clock)
	s.Activate(selectFuelQuestion(), nil)

	clock = clock.Add(9 * time.Second)
	ans, effects := s.HandleTranscript(context.Background(), types.Transcript{Text: "pe", IsFinal: false})
	if ans != nil || effects != nil {
		t.Fatalf("partial produced answer %+v effects %v", ans, kinds(effects))
	}

	// The partial pushed the silence deadline out.
	if got := s.Tick(clock.Add(9 * time.Second)); got != nil {
		t.Fatalf("tick before deferred timeout produced %v", kinds(got))
	}
	if got := s.Tick(clock.Add(10 * time.Second)); len(got) != 1 {
		t.Fatalf("tick after deferred timeout = %v, want one say", kinds(got))
	}
}

func TestSession_TranscriptWhileHeldResumes(t *testing.T) {
	t.Parallel()

	clock := machineTestBase
	s := NewSession("sess-1", interpret.New(), NewMachine(Config{SilenceTimeout: 10 * time.Second, MaxAttempts: 1}))
	s.now = func() time.Time { return clock }
	q := selectFuelQuestion()
	s.Activate(q, nil)

	clock = clock.Add(10 * time.Second)
	s.Tick(clock)
	if got := s.State(); got != StateOnHold {
		t.Fatalf("state = %v, want %v", got, StateOnHold)
	}

	// The first utterance only lifts the hold, even if it looks like an
	// answer.
	clock = clock.Add(time.Minute)
	ans, effects := s.HandleTranscript(context.Background(), finalTr("diesel"))
	if ans != nil {
		t.Fatalf("answer = %+v, want none while resuming", ans)
	}
	if len(effects) != 2 || effects[0].Kind != EffectResumed || effects[1].Kind != EffectSay {
		t.Fatalf("effects = %v, want resumed then say", kinds(effects))
	}

	clock = clock.Add(2 * time.Second)
	ans, _ = s.HandleTranscript(context.Background(), finalTr("diesel"))
	if ans == nil || ans.Text != "diesel" {
		t.Fatalf("answer after resume = %+v, want diesel", ans)
	}
}

func TestSession_SetOptionsReplacesVocabulary(t *testing.T) {
	t.Parallel()

	clock := machineTestBase
	s := newTestSession(&clock)
	s.Activate(&question.Question{
		ID:        "model",
		Text:      "Which model is it?",
		InputType: types.InputSelect,
		ParentID:  "make",
	}, []types.AnswerOption{{Label: "Corolla", Value: "corolla"}})

	s.SetOptions([]types.AnswerOption{{Label: "Golf", Value: "golf"}, {Label: "Polo", Value: "polo"}})

	ans, _ := s.HandleTranscript(context.Background(), finalTr("golf"))
	if ans == nil || ans.Text != "golf" {
		t.Fatalf("answer = %+v, want golf from the replaced options", ans)
	}
	if ans2, _ := s.HandleTranscript(context.Background(), finalTr("corolla")); ans2 != nil {
		t.Fatalf("answer = %+v, want none for an option no longer offered", ans2)
	}
}
