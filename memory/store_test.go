/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"chainguard.dev/memalign/index/indextest"
)

func newTestStore() (*Store, *indextest.Fake, *indextest.Fake) {
	principles := indextest.NewFake()
	examples := indextest.NewFake()
	return NewStore(principles, examples), principles, examples
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestAddPrincipleUpsert(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()

	p := Principle{ID: "p1", Text: "Reward clarity", CreatedAt: time.Now().UTC()}
	if err := store.AddPrinciple(ctx, p); err != nil {
		t.Fatalf("AddPrinciple() = %v", err)
	}

	// Same id again keeps one record with the latest text.
	p.Text = "Reward concision"
	if err := store.AddPrinciple(ctx, p); err != nil {
		t.Fatalf("AddPrinciple() = %v", err)
	}

	all, err := store.GetAllPrinciples(ctx)
	if err != nil {
		t.Fatalf("GetAllPrinciples() = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d principles, want 1", len(all))
	}
	if all[0].Text != "Reward concision" {
		t.Errorf("Text = %q, want %q", all[0].Text, "Reward concision")
	}
}

func TestAddPrincipleValidation(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()
	if err := store.AddPrinciple(ctx, Principle{ID: "p1"}); err == nil {
		t.Error("AddPrinciple() with empty text = nil, want error")
	}
	if err := store.AddPrinciple(ctx, Principle{Text: "t"}); err == nil {
		t.Error("AddPrinciple() with empty id = nil, want error")
	}
}

func TestExampleRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()

	want := Example{
		ID:             "e1",
		InputText:      "def add(a, b): return a - b",
		ExpertFeedback: "The implementation subtracts instead of adding.",
		ExpertScore:    intPtr(2),
		JudgeOutput:    strPtr("looks fine"),
		JudgeScore:     intPtr(4),
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.AddExample(ctx, want); err != nil {
		t.Fatalf("AddExample() = %v", err)
	}

	got, err := store.GetAllExamples(ctx, 0)
	if err != nil {
		t.Fatalf("GetAllExamples() = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d examples, want 1", len(got))
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("example round trip (-want, +got):\n%s", diff)
	}
}

func TestExampleOptionalFieldsAbsent(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()

	want := Example{
		ID:             "e1",
		InputText:      "some input",
		ExpertFeedback: "some feedback",
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.AddExample(ctx, want); err != nil {
		t.Fatalf("AddExample() = %v", err)
	}
	got, err := store.GetAllExamples(ctx, 0)
	if err != nil {
		t.Fatalf("GetAllExamples() = %v", err)
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("example round trip (-want, +got):\n%s", diff)
	}
}

func TestFindSimilarPrinciplesThreshold(t *testing.T) {
	ctx := context.Background()
	store, principles, _ := newTestStore()

	for _, p := range []Principle{
		{ID: "near", Text: "Penalize off-by-one errors", CreatedAt: time.Now().UTC()},
		{ID: "boundary", Text: "Penalize boundary mistakes", CreatedAt: time.Now().UTC()},
		{ID: "far", Text: "Reward good naming", CreatedAt: time.Now().UTC()},
	} {
		if err := store.AddPrinciple(ctx, p); err != nil {
			t.Fatalf("AddPrinciple(%s) = %v", p.ID, err)
		}
	}
	principles.SetDistance("near", 0.05)     // similarity 0.95
	principles.SetDistance("boundary", 0.10) // similarity 0.90, exactly at threshold
	principles.SetDistance("far", 0.50)      // similarity 0.50

	got, err := store.FindSimilarPrinciples(ctx, "Penalize off-by-one errors", 0.90)
	if err != nil {
		t.Fatalf("FindSimilarPrinciples() = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d similar principles, want 2", len(got))
	}
	// Nearest first; the boundary similarity is inclusive.
	if got[0].Principle.ID != "near" || got[1].Principle.ID != "boundary" {
		t.Errorf("order = %q, %q, want near, boundary", got[0].Principle.ID, got[1].Principle.ID)
	}
	if got[1].Similarity != 0.90 {
		t.Errorf("boundary similarity = %v, want 0.90", got[1].Similarity)
	}
}

func TestFindSimilarPrinciplesEmpty(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()
	got, err := store.FindSimilarPrinciples(ctx, "anything", 0.9)
	if err != nil {
		t.Fatalf("FindSimilarPrinciples() = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d results on empty store, want 0", len(got))
	}
}

func TestRetrieveExamplesEmpty(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()
	got, err := store.RetrieveExamples(ctx, "anything", 5)
	if err != nil {
		t.Fatalf("RetrieveExamples() = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d results on empty store, want 0", len(got))
	}
}

func TestRetrieveExamplesTopK(t *testing.T) {
	ctx := context.Background()
	store, _, examples := newTestStore()

	for i, id := range []string{"e1", "e2", "e3"} {
		if err := store.AddExample(ctx, Example{
			ID:             id,
			InputText:      "input " + id,
			ExpertFeedback: "feedback " + id,
			CreatedAt:      time.Now().UTC(),
		}); err != nil {
			t.Fatalf("AddExample(%s) = %v", id, err)
		}
		examples.SetDistance(id, float64(i)*0.1)
	}

	got, err := store.RetrieveExamples(ctx, "input", 2)
	if err != nil {
		t.Fatalf("RetrieveExamples() = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d examples, want 2", len(got))
	}
	if got[0].ID != "e1" || got[1].ID != "e2" {
		t.Errorf("order = %q, %q, want e1, e2", got[0].ID, got[1].ID)
	}
}

func TestDeleteReturnsExistence(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()

	if err := store.AddPrinciple(ctx, Principle{ID: "p1", Text: "t", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}
	if ok, err := store.DeletePrinciple(ctx, "p1"); err != nil || !ok {
		t.Errorf("DeletePrinciple(existing) = %v, %v, want true, nil", ok, err)
	}
	if ok, err := store.DeletePrinciple(ctx, "p1"); err != nil || ok {
		t.Errorf("DeletePrinciple(absent) = %v, %v, want false, nil", ok, err)
	}

	if err := store.AddExample(ctx, Example{ID: "e1", ExpertFeedback: "f", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}
	if ok, err := store.DeleteExample(ctx, "e1"); err != nil || !ok {
		t.Errorf("DeleteExample(existing) = %v, %v, want true, nil", ok, err)
	}
	if ok, err := store.DeleteExample(ctx, "e1"); err != nil || ok {
		t.Errorf("DeleteExample(absent) = %v, %v, want false, nil", ok, err)
	}
}

func TestUpdatePrinciple(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()

	created := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	orig := Principle{
		ID:               "p1",
		Text:             "Old text",
		SourceExampleIDs: []string{"e1", "e2"},
		CreatedAt:        created,
	}
	if err := store.AddPrinciple(ctx, orig); err != nil {
		t.Fatal(err)
	}

	got, err := store.UpdatePrinciple(ctx, "p1", "New text")
	if err != nil {
		t.Fatalf("UpdatePrinciple() = %v", err)
	}
	if got == nil {
		t.Fatal("UpdatePrinciple() = nil, want principle")
	}
	want := orig
	want.Text = "New text"
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("updated principle (-want, +got):\n%s", diff)
	}

	// Absent id is a nil result, not an error.
	got, err = store.UpdatePrinciple(ctx, "missing", "whatever")
	if err != nil {
		t.Fatalf("UpdatePrinciple(missing) = %v", err)
	}
	if got != nil {
		t.Errorf("UpdatePrinciple(missing) = %+v, want nil", got)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()

	// Empty store: zero counts, nil timestamps, no error.
	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() = %v", err)
	}
	if st.PrincipleCount != 0 || st.ExampleCount != 0 {
		t.Errorf("empty counts = %d/%d, want 0/0", st.PrincipleCount, st.ExampleCount)
	}
	if st.OldestPrinciple != nil || st.NewestExample != nil {
		t.Error("empty store timestamps should be nil")
	}

	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := store.AddPrinciple(ctx, Principle{ID: "p1", Text: "a", CreatedAt: late}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddPrinciple(ctx, Principle{ID: "p2", Text: "b", CreatedAt: early}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddExample(ctx, Example{ID: "e1", ExpertFeedback: "f", CreatedAt: early}); err != nil {
		t.Fatal(err)
	}

	st, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() = %v", err)
	}
	if st.PrincipleCount != 2 || st.ExampleCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", st.PrincipleCount, st.ExampleCount)
	}
	if st.OldestPrinciple == nil || !st.OldestPrinciple.Equal(early) {
		t.Errorf("OldestPrinciple = %v, want %v", st.OldestPrinciple, early)
	}
	if st.NewestPrinciple == nil || !st.NewestPrinciple.Equal(late) {
		t.Errorf("NewestPrinciple = %v, want %v", st.NewestPrinciple, late)
	}
	if st.OldestExample == nil || !st.OldestExample.Equal(early) {
		t.Errorf("OldestExample = %v, want %v", st.OldestExample, early)
	}
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()

	if err := store.AddPrinciple(ctx, Principle{ID: "p1", Text: "a", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddExample(ctx, Example{ID: "e1", ExpertFeedback: "f", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() = %v", err)
	}

	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() = %v", err)
	}
	if st.PrincipleCount != 0 || st.ExampleCount != 0 {
		t.Errorf("counts after DeleteAll = %d/%d, want 0/0", st.PrincipleCount, st.ExampleCount)
	}
}

func TestNewID(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		id := NewID()
		if len(id) != 12 {
			t.Fatalf("NewID() = %q, want 12 characters", id)
		}
		if seen[id] {
			t.Fatalf("NewID() repeated %q", id)
		}
		seen[id] = true
	}
}
