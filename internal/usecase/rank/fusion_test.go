package rank

import (
	"math"
	"testing"
	"time"

	"github.com/seluna-ai/passage/internal/domain/candidate"
)

func TestFuse_ReciprocalRankExample(t *testing.T) {
	// Vector list [A, B, C], full-text list [C, A], κ=60:
	//   A = 1/61 + 1/62 ≈ 0.03254
	//   B = 1/62        ≈ 0.01613
	//   C = 1/63 + 1/61 ≈ 0.03222
	// Expected fused order: A, C, B.
	vector := rankedList(
		vectorCand("A", 0.9, time.Time{}),
		vectorCand("B", 0.8, time.Time{}),
		vectorCand("C", 0.7, time.Time{}),
	)
	fulltext := rankedList(
		textCand("C", 12.0),
		textCand("A", 8.0),
	)

	fused := NewFusionEngine(DefaultParams()).Fuse(vector, fulltext, 10, testNow)

	if len(fused) != 3 {
		t.Fatalf("expected 3 results, got %d", len(fused))
	}
	got := []string{fused[0].ID(), fused[1].ID(), fused[2].ID()}
	want := []string{"A", "C", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	expect := map[string]float64{
		"A": 1.0/61 + 1.0/62,
		"C": 1.0/63 + 1.0/61,
		"B": 1.0 / 62,
	}
	for _, r := range fused {
		if math.Abs(r.FinalScore()-expect[r.ID()]) > 1e-12 {
			t.Errorf("score %s = %f, want %f", r.ID(), r.FinalScore(), expect[r.ID()])
		}
	}
}

func TestFuse_ConservationProperty(t *testing.T) {
	// A candidate present in both lists outranks the same candidate present
	// in only one, at identical rank positions.
	both := NewFusionEngine(DefaultParams()).Fuse(
		rankedList(vectorCand("X", 0.9, time.Time{})),
		rankedList(textCand("X", 5.0)),
		10, testNow,
	)
	single := NewFusionEngine(DefaultParams()).Fuse(
		rankedList(vectorCand("X", 0.9, time.Time{})),
		nil,
		10, testNow,
	)

	if both[0].FinalScore() <= single[0].FinalScore() {
		t.Errorf("dual-source score %f must exceed single-source %f",
			both[0].FinalScore(), single[0].FinalScore())
	}
}

func TestFuse_MergesByID(t *testing.T) {
	fused := NewFusionEngine(DefaultParams()).Fuse(
		rankedList(vectorCand("X", 0.9, time.Time{})),
		rankedList(textCand("X", 5.0)),
		10, testNow,
	)

	if len(fused) != 1 {
		t.Fatalf("expected 1 merged entry, got %d", len(fused))
	}
	// The vector-side candidate wins the merge.
	if fused[0].Source() != candidate.SourceVector {
		t.Errorf("expected vector source after merge, got %s", fused[0].Source())
	}
}

func TestFuse_DiversityAppliedOncePostFusion(t *testing.T) {
	recent := vectorCand("R", 0.9, testNow.Add(-24*time.Hour))
	fresh := vectorCand("F", 0.9, time.Time{})

	// R ranks first in both lists, F second in both. Without the penalty R
	// wins; the post-fusion decay flips the order.
	fused := NewFusionEngine(DefaultParams()).Fuse(
		rankedList(recent, fresh),
		rankedList(recent, fresh),
		10, testNow,
	)

	if fused[0].ID() != "F" {
		t.Fatalf("expected fresh candidate first after decay, got %s", fused[0].ID())
	}

	rScore := fused[1].FinalScore()
	expected := (1.0/61 + 1.0/61) * 0.70
	if math.Abs(rScore-expected) > 1e-12 {
		t.Errorf("expected single post-fusion penalty (%f), got %f", expected, rScore)
	}
}

func TestFuse_TruncatesToK(t *testing.T) {
	vector := rankedList(
		vectorCand("a", 0.9, time.Time{}),
		vectorCand("b", 0.8, time.Time{}),
		vectorCand("c", 0.7, time.Time{}),
	)

	fused := NewFusionEngine(DefaultParams()).Fuse(vector, nil, 2, testNow)
	if len(fused) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fused))
	}
}

func TestFuse_TieBreakByID(t *testing.T) {
	// Same single-list rank contribution for two ids at equal positions in
	// opposite lists: identical fused scores, id decides.
	fused := NewFusionEngine(DefaultParams()).Fuse(
		rankedList(vectorCand("b", 0.9, time.Time{})),
		rankedList(textCand("a", 5.0)),
		10, testNow,
	)

	if fused[0].ID() != "a" || fused[1].ID() != "b" {
		t.Fatalf("expected tie broken by id: a before b, got %s, %s",
			fused[0].ID(), fused[1].ID())
	}
}

func TestFuse_EmptyInputs(t *testing.T) {
	fused := NewFusionEngine(DefaultParams()).Fuse(nil, nil, 5, testNow)
	if len(fused) != 0 {
		t.Fatalf("expected empty result, got %d", len(fused))
	}
}
