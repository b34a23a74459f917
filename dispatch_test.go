package colorist

import (
	"sync/atomic"
	"testing"
)

func TestParallelForCoversEveryPixelOnce(t *testing.T) {
	for _, tasks := range []int{1, 2, 3, 7, 16, 64} {
		const pixels = 1003
		var touched [pixels]int32
		parallelFor(tasks, pixels, func(start, count int) {
			for i := start; i < start+count; i++ {
				atomic.AddInt32(&touched[i], 1)
			}
		})
		for i, n := range touched {
			if n != 1 {
				t.Fatalf("tasks=%d: pixel %d touched %d times", tasks, i, n)
			}
		}
	}
}

func TestParallelForMoreTasksThanPixels(t *testing.T) {
	var total int32
	parallelFor(64, 3, func(start, count int) {
		atomic.AddInt32(&total, int32(count))
	})
	if total != 3 {
		t.Errorf("covered %d pixels, want 3", total)
	}
}

func TestParallelForEmpty(t *testing.T) {
	called := false
	parallelFor(4, 0, func(start, count int) {
		called = true
		if count != 0 {
			t.Errorf("count = %d, want 0", count)
		}
	})
	if !called {
		t.Error("fn should still run once for an empty range")
	}
}

// Per-pixel results must be independent of the slab count: every worker
// count must produce bit-identical output.
func TestRunDeterministicAcrossJobs(t *testing.T) {
	ctx := testContext()
	src := NewProfile(BT2020Primaries, TransferCurve{Kind: CurvePQ}, 10000, "PQ")
	dst := gammaProfile(BT709Primaries, 2.2, 100)

	const pixels = 257
	in := make([]float64, pixels*4)
	for i := 0; i < pixels; i++ {
		in[i*4] = float64(i%256) / 255
		in[i*4+1] = float64((i*7)%256) / 255
		in[i*4+2] = float64((i*13)%256) / 255
		in[i*4+3] = 1
	}

	run := func(jobs int) []float64 {
		xf := NewTransform(ctx, &src, FormatRGBA, Depth32, &dst, FormatRGBA, Depth8, TonemapAuto)
		out := make([]float64, pixels*4)
		if err := xf.Run(ctx, jobs, in, out, pixels); err != nil {
			t.Fatal(err)
		}
		return out
	}

	reference := run(1)
	for _, jobs := range []int{2, 3, 5, 8, 16, 64} {
		got := run(jobs)
		for i := range reference {
			if got[i] != reference[i] {
				t.Fatalf("jobs=%d: sample %d = %g, want %g", jobs, i, got[i], reference[i])
			}
		}
	}
}
