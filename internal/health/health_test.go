package health

import (
	"testing"
	"time"
)

func TestBreaker_OpensOnTrip(t *testing.T) {
	b := NewBreaker(FallbackConfig{FallbackDuration: time.Second, RecoveryDuration: time.Second, HalfOpenProbes: 1})
	if got := b.Evaluate(false); got != BreakerClosed {
		t.Fatalf("want closed, got %s", got)
	}
	if got := b.Evaluate(true); got != BreakerOpen {
		t.Fatalf("want open, got %s", got)
	}
	if !b.ServingFallback() {
		t.Fatal("want ServingFallback true while open")
	}
}

func TestBreaker_TransitionsToHalfOpenAfterFallbackDuration(t *testing.T) {
	now := time.Now()
	b := NewBreaker(FallbackConfig{FallbackDuration: 10 * time.Second, HalfOpenProbes: 2})
	b.now = func() time.Time { return now }

	b.Evaluate(true)
	if b.State() != BreakerOpen {
		t.Fatalf("want open, got %s", b.State())
	}

	b.now = func() time.Time { return now.Add(5 * time.Second) }
	if got := b.Evaluate(false); got != BreakerOpen {
		t.Fatalf("want still open before fallback duration elapses, got %s", got)
	}

	b.now = func() time.Time { return now.Add(11 * time.Second) }
	if got := b.Evaluate(false); got != BreakerHalfOpen {
		t.Fatalf("want half-open once fallback duration elapses, got %s", got)
	}
}

func TestBreaker_HalfOpenClosesAfterEnoughSuccessfulProbes(t *testing.T) {
	b := NewBreaker(FallbackConfig{FallbackDuration: 0, HalfOpenProbes: 2})
	b.Evaluate(true) // closed -> open
	b.Evaluate(false) // open -> half-open (fallback duration is 0)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("want half-open, got %s", b.State())
	}

	if got := b.RecordProbe(true); got != BreakerHalfOpen {
		t.Fatalf("want still half-open after 1/2 probes, got %s", got)
	}
	if got := b.RecordProbe(true); got != BreakerClosed {
		t.Fatalf("want closed after 2/2 probes, got %s", got)
	}
}

func TestBreaker_HalfOpenReopensOnFailedProbe(t *testing.T) {
	b := NewBreaker(FallbackConfig{FallbackDuration: 0, HalfOpenProbes: 3})
	b.Evaluate(true)
	b.Evaluate(false)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("want half-open, got %s", b.State())
	}
	if got := b.RecordProbe(false); got != BreakerOpen {
		t.Fatalf("want re-opened on failed probe, got %s", got)
	}
}

func TestPassiveTracker_EjectsAfterThresholdFailures(t *testing.T) {
	now := time.Now()
	tr := NewPassiveTracker(3, 1, 10*time.Second)
	tr.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		tr.RecordResult("s1", false)
	}
	if !tr.Eligible("s1") {
		t.Fatal("want still eligible before threshold")
	}
	tr.RecordResult("s1", false)
	if tr.Eligible("s1") {
		t.Fatal("want ejected at threshold")
	}
}

func TestPassiveTracker_RecoversAfterSkipDuration(t *testing.T) {
	now := time.Now()
	tr := NewPassiveTracker(1, 1, 10*time.Second)
	tr.now = func() time.Time { return now }

	tr.RecordResult("s1", false)
	if tr.Eligible("s1") {
		t.Fatal("want ejected")
	}

	tr.now = func() time.Time { return now.Add(11 * time.Second) }
	if !tr.Eligible("s1") {
		t.Fatal("want eligible once the skip window has elapsed")
	}
}

func TestPassiveTracker_SuccessResetsSkip(t *testing.T) {
	now := time.Now()
	tr := NewPassiveTracker(1, 1, 10*time.Second)
	tr.now = func() time.Time { return now }

	tr.RecordResult("s1", false)
	if tr.Eligible("s1") {
		t.Fatal("want ejected")
	}
	tr.RecordResult("s1", true)
	if !tr.Eligible("s1") {
		t.Fatal("want eligible again once a success clears the skip window")
	}
}

func TestPassiveTracker_UnknownServerAlwaysEligible(t *testing.T) {
	tr := NewPassiveTracker(0, 0, 0)
	if !tr.Eligible("never-seen") {
		t.Fatal("want eligible for a server with no recorded history")
	}
}

func TestPassiveTracker_ResetClearsHistory(t *testing.T) {
	tr := NewPassiveTracker(1, 1, time.Hour)
	tr.RecordResult("s1", false)
	if tr.Eligible("s1") {
		t.Fatal("want ejected")
	}
	tr.Reset("s1")
	if !tr.Eligible("s1") {
		t.Fatal("want eligible after reset")
	}
}

func TestCompileExpression_NetworkErrorRatio(t *testing.T) {
	expr, err := CompileExpression("NetworkErrorRatio() > 0.5")
	if err != nil {
		t.Fatal(err)
	}
	if !expr.Evaluate(Metrics{NetworkErrorRatio: 0.9}) {
		t.Fatal("want tripped at 0.9 > 0.5")
	}
	if expr.Evaluate(Metrics{NetworkErrorRatio: 0.1}) {
		t.Fatal("want not tripped at 0.1 > 0.5")
	}
}

func TestCompileExpression_ResponseCodeRatio(t *testing.T) {
	expr, err := CompileExpression("ResponseCodeRatio(500,599,1,1) > 0.3")
	if err != nil {
		t.Fatal(err)
	}
	if !expr.Evaluate(Metrics{ResponseCodeRatio: map[string]float64{"5xx": 0.5}}) {
		t.Fatal("want tripped at 0.5 > 0.3")
	}
}

func TestCompileExpression_LatencyAtQuantile(t *testing.T) {
	expr, err := CompileExpression("LatencyAtQuantileMS(99) > 200")
	if err != nil {
		t.Fatal(err)
	}
	if !expr.Evaluate(Metrics{LatencyQuantilesMS: map[int]float64{99: 350}}) {
		t.Fatal("want tripped at p99=350 > 200")
	}
	if expr.Evaluate(Metrics{LatencyQuantilesMS: map[int]float64{99: 50}}) {
		t.Fatal("want not tripped at p99=50 > 200")
	}
}

func TestCompileExpression_Malformed(t *testing.T) {
	if _, err := CompileExpression("not a valid expression"); err == nil {
		t.Fatal("want error for malformed expression")
	}
}
