package reputation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeSource struct {
	name    string
	verdict Verdict
	delay   time.Duration
	panics  bool
	meet    *rendezvous
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Check(ctx context.Context, _ string) Verdict {
	if f.panics {
		panic("boom")
	}
	if f.meet != nil && f.meet.arrive(ctx) != nil {
		return UnknownVerdict("timeout")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return UnknownVerdict("timeout")
		}
	}
	return f.verdict
}

// rendezvous releases its callers only once n of them have arrived, so a
// caller that is never joined by the others waits until its context ends.
type rendezvous struct {
	wg  sync.WaitGroup
	all chan struct{}
}

func newRendezvous(n int) *rendezvous {
	r := &rendezvous{all: make(chan struct{})}
	r.wg.Add(n)
	go func() {
		r.wg.Wait()
		close(r.all)
	}()
	return r
}

func (r *rendezvous) arrive(ctx context.Context) error {
	r.wg.Done()
	select {
	case <-r.all:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type countingObserver struct {
	mu   sync.Mutex
	seen map[string]Outcome
}

func (o *countingObserver) ObserveLookup(source string, outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen[source] = outcome
}

func TestGateway_KeepsSourceOrder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	g := NewGateway(logger, time.Second,
		fakeSource{name: "a", verdict: CleanVerdict("fine"), delay: 20 * time.Millisecond},
		fakeSource{name: "b", verdict: MatchedVerdict("bad")},
	)

	res := g.Check(context.Background(), "http://example.com")

	if len(res) != 2 || res[0].Source != "a" || res[1].Source != "b" {
		t.Fatalf("results = %+v", res)
	}
	if !res.AnyMatched() {
		t.Error("AnyMatched() = false, want true")
	}
}

func TestGateway_QueriesSourcesConcurrently(t *testing.T) {
	logger, _ := test.NewNullLogger()
	meet := newRendezvous(2)
	g := NewGateway(logger, 200*time.Millisecond,
		fakeSource{name: "a", verdict: CleanVerdict("fine"), meet: meet},
		fakeSource{name: "b", verdict: CleanVerdict("fine"), meet: meet},
	)

	start := time.Now()
	res := g.Check(context.Background(), "http://example.com")

	for _, r := range res {
		if r.Verdict.Outcome != Clean {
			t.Errorf("%s verdict = %+v, want Clean", r.Source, r.Verdict)
		}
	}
	if took := time.Since(start); took >= 200*time.Millisecond {
		t.Errorf("Check() took %v, want under the per-source timeout", took)
	}
}

func TestGateway_PanicBecomesUnknown(t *testing.T) {
	logger, hook := test.NewNullLogger()
	obs := &countingObserver{seen: map[string]Outcome{}}
	g := NewGateway(logger, time.Second,
		fakeSource{name: "broken", panics: true},
		fakeSource{name: "ok", verdict: CleanVerdict("fine")},
	).WithObserver(obs)

	res := g.Check(context.Background(), "http://example.com")

	v, _ := res.Get("broken")
	if v.Outcome != Unknown || v.Reason != "internal error" {
		t.Errorf("broken verdict = %+v, want Unknown(internal error)", v)
	}
	if v, _ := res.Get("ok"); v.Outcome != Clean {
		t.Errorf("ok verdict = %+v, want Clean", v)
	}

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Data["source"] == "broken" {
			logged = true
		}
	}
	if !logged {
		t.Error("panic was not logged at error level")
	}
	if obs.seen["broken"] != Unknown || obs.seen["ok"] != Clean {
		t.Errorf("observer saw %v", obs.seen)
	}
}

func TestGateway_TimeoutBecomesUnknown(t *testing.T) {
	logger, _ := test.NewNullLogger()
	g := NewGateway(logger, 20*time.Millisecond,
		fakeSource{name: "slow", verdict: MatchedVerdict("late"), delay: time.Second},
	)

	start := time.Now()
	res := g.Check(context.Background(), "http://example.com")

	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Check took %s, want it bounded by the timeout", time.Since(start))
	}
	if v, _ := res.Get("slow"); v.Outcome != Unknown {
		t.Errorf("slow verdict = %+v, want Unknown", v)
	}
}

func TestResults_MarshalJSON(t *testing.T) {
	res := Results{
		{Source: SafeBrowsingName, Verdict: UnknownVerdict("API key missing")},
		{Source: URLhausName, Verdict: CleanVerdict("Not listed")},
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `{"googleSafeBrowsing":null,"urlhaus":false}`; string(data) != want {
		t.Errorf("Marshal(results) = %s, want %s", data, want)
	}

	data, err = json.Marshal(res.Reasons())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `{"googleSafeBrowsing":"API key missing","urlhaus":"Not listed"}`; string(data) != want {
		t.Errorf("Marshal(reasons) = %s, want %s", data, want)
	}
}

func TestVerdict_Bool(t *testing.T) {
	if MatchedVerdict("").Bool() == nil || !*MatchedVerdict("").Bool() {
		t.Error("Matched.Bool() != true")
	}
	if CleanVerdict("").Bool() == nil || *CleanVerdict("").Bool() {
		t.Error("Clean.Bool() != false")
	}
	if UnknownVerdict("").Bool() != nil {
		t.Error("Unknown.Bool() != nil")
	}
}
