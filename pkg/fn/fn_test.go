package fn

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func TestResultBasics(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok result misreports state")
	}
	if v, err := r.Unwrap(); v != 42 || err != nil {
		t.Fatalf("Unwrap = (%v, %v)", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Fatal("Err result misreports state")
	}
	if got := e.UnwrapOr(7); got != 7 {
		t.Fatalf("UnwrapOr = %d, want 7", got)
	}

	if p := FromPair(3, error(nil)); p.IsErr() {
		t.Fatal("FromPair with nil error should be ok")
	}
	if p := FromPair(0, errors.New("x")); p.IsOk() {
		t.Fatal("FromPair with error should be err")
	}
}

func TestCollect(t *testing.T) {
	ok := []Result[int]{Ok(1), Ok(2), Ok(3)}
	r := Collect(ok)
	vals, err := r.Unwrap()
	if err != nil || !reflect.DeepEqual(vals, []int{1, 2, 3}) {
		t.Fatalf("Collect = (%v, %v)", vals, err)
	}

	mixed := []Result[int]{Ok(1), Err[int](errors.New("bad")), Ok(3)}
	if Collect(mixed).IsOk() {
		t.Fatal("Collect must surface the first error")
	}
}

func TestThenShortCircuits(t *testing.T) {
	double := MapStage(func(n int) int { return n * 2 })
	fail := Stage[int, int](func(context.Context, int) Result[int] {
		return Errf[int]("nope")
	})
	var reached bool
	probe := TapStage(func(context.Context, int) { reached = true })

	r := Then(Then(double, fail), probe)(context.Background(), 5)
	if r.IsOk() {
		t.Fatal("expected error")
	}
	if reached {
		t.Fatal("stage after failure must not run")
	}
}

func TestPipelineOrder(t *testing.T) {
	var trace []string
	step := func(name string) Stage[int, int] {
		return func(_ context.Context, n int) Result[int] {
			trace = append(trace, name)
			return Ok(n + 1)
		}
	}
	r := Pipeline(step("a"), step("b"), step("c"))(context.Background(), 0)
	v, err := r.Unwrap()
	if err != nil || v != 3 {
		t.Fatalf("Pipeline = (%d, %v)", v, err)
	}
	if !reflect.DeepEqual(trace, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v", trace)
	}
}

func TestTracedPassesThrough(t *testing.T) {
	s := Traced("test", MapStage(func(n int) int { return n + 1 }))
	if v, _ := s(context.Background(), 1).Unwrap(); v != 2 {
		t.Fatalf("Traced altered the value: %d", v)
	}
	f := Traced("test", Stage[int, int](func(context.Context, int) Result[int] {
		return Errf[int]("x")
	}))
	if f(context.Background(), 1).IsOk() {
		t.Fatal("Traced swallowed the error")
	}
}

func TestChunks(t *testing.T) {
	got := Chunks([]int{1, 2, 3, 4, 5}, 2)
	want := [][]int{{1, 2}, {3, 4}, {5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Chunks = %v", got)
	}
	if Chunks([]int{1}, 0) != nil {
		t.Fatal("n <= 0 must return nil")
	}
	if Chunks([]int{}, 3) != nil {
		t.Fatal("empty input must return nil")
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"12", "5", "12", "31", "5"})
	if !reflect.DeepEqual(got, []string{"12", "5", "31"}) {
		t.Fatalf("Unique = %v", got)
	}
}

func TestMapFilterFlatMap(t *testing.T) {
	n := Map([]int{1, 2, 3}, func(v int) int { return v * v })
	if !reflect.DeepEqual(n, []int{1, 4, 9}) {
		t.Fatalf("Map = %v", n)
	}
	f := Filter([]int{1, 2, 3, 4}, func(v int) bool { return v%2 == 0 })
	if !reflect.DeepEqual(f, []int{2, 4}) {
		t.Fatalf("Filter = %v", f)
	}
	fm := FlatMap([]int{1, 2}, func(v int) []int { return []int{v, v} })
	if !reflect.DeepEqual(fm, []int{1, 1, 2, 2}) {
		t.Fatalf("FlatMap = %v", fm)
	}
}

func TestParMapPreservesOrder(t *testing.T) {
	items := make([]int, 64)
	for i := range items {
		items[i] = i
	}
	var active, peak atomic.Int32
	out := ParMap(items, 4, func(v int) string {
		cur := active.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return fmt.Sprintf("v%d", v)
	})
	for i, s := range out {
		if s != fmt.Sprintf("v%d", i) {
			t.Fatalf("out[%d] = %q", i, s)
		}
	}
	if p := peak.Load(); p > 4 {
		t.Fatalf("concurrency peaked at %d, want <= 4", p)
	}
}

func TestRetryStopsAfterSuccess(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 5, InitialWait: time.Millisecond, MaxWait: time.Millisecond},
		func(context.Context) Result[int] {
			attempts++
			if attempts < 3 {
				return Errf[int]("not yet")
			}
			return Ok(attempts)
		})
	v, err := r.Unwrap()
	if err != nil || v != 3 {
		t.Fatalf("Retry = (%d, %v)", v, err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond},
		func(context.Context) Result[int] {
			attempts++
			return Errf[int]("always")
		})
	if r.IsOk() || attempts != 3 {
		t.Fatalf("attempts = %d, ok = %v", attempts, r.IsOk())
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 10, InitialWait: time.Hour, MaxWait: time.Hour},
		func(context.Context) Result[int] { return Errf[int]("fail") })
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
