package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func TestNodeCounts(t *testing.T) {
	res := newMockResult(
		&neo4j.Record{Keys: []string{"type", "count"}, Values: []any{"Law", int64(6)}},
		&neo4j.Record{Keys: []string{"type", "count"}, Values: []any{"Article", int64(3120)}},
		&neo4j.Record{Keys: []string{"type", "count"}, Values: []any{"Source", int64(6)}},
	)
	sess := &mockSession{runResult: res}
	gs := NewWithOpener(&mockOpener{session: sess})

	counts, err := gs.NodeCounts(context.Background())
	if err != nil {
		t.Fatalf("NodeCounts: %v", err)
	}
	if counts["Article"] != 3120 || counts["Law"] != 6 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestRelationshipCounts(t *testing.T) {
	res := newMockResult(
		&neo4j.Record{Keys: []string{"type", "count"}, Values: []any{"HAS_ARTICLE", int64(3120)}},
		&neo4j.Record{Keys: []string{"type", "count"}, Values: []any{"CITES", int64(8455)}},
	)
	sess := &mockSession{runResult: res}
	gs := NewWithOpener(&mockOpener{session: sess})

	counts, err := gs.RelationshipCounts(context.Background())
	if err != nil {
		t.Fatalf("RelationshipCounts: %v", err)
	}
	if counts["CITES"] != 8455 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestNodeCountsError(t *testing.T) {
	sess := &mockSession{runErr: errors.New("fail")}
	gs := NewWithOpener(&mockOpener{session: sess})

	if _, err := gs.NodeCounts(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestLawOverview(t *testing.T) {
	res := newMockResult(
		&neo4j.Record{
			Keys:   []string{"doc_id", "title", "articles", "cites"},
			Values: []any{"civil-code", "საქართველოს სამოქალაქო კოდექსი", int64(1520), int64(4200)},
		},
		&neo4j.Record{
			Keys:   []string{"doc_id", "title", "articles", "cites"},
			Values: []any{"labor-code", "საქართველოს შრომის კოდექსი", int64(83), int64(120)},
		},
	)
	sess := &mockSession{runResult: res}
	gs := NewWithOpener(&mockOpener{session: sess})

	stats, err := gs.LawOverview(context.Background())
	if err != nil {
		t.Fatalf("LawOverview: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 laws, got %d", len(stats))
	}
	if stats[0].DocID != "civil-code" || stats[0].Articles != 1520 || stats[0].Cites != 4200 {
		t.Fatalf("stats[0] = %+v", stats[0])
	}
}

func TestTopCited(t *testing.T) {
	res := newMockResult(
		&neo4j.Record{
			Keys:   []string{"id", "doc_id", "num", "title", "cited_by"},
			Values: []any{"civil-code:103", "civil-code", "103", "ხანდაზმულობა", int64(37)},
		},
	)
	sess := &mockSession{runResult: res}
	gs := NewWithOpener(&mockOpener{session: sess})

	stats, err := gs.TopCited(context.Background(), 10)
	if err != nil {
		t.Fatalf("TopCited: %v", err)
	}
	if len(stats) != 1 || stats[0].CitedBy != 37 || stats[0].Num != "103" {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRecentlyIndexed(t *testing.T) {
	rec := makeNodeRecord(sourceProps("civil-code", StatusIndexed, 412))
	sess := &mockSession{runResult: newMockResult(rec)}
	gs := NewWithOpener(&mockOpener{session: sess})

	entries, err := gs.RecentlyIndexed(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentlyIndexed: %v", err)
	}
	if len(entries) != 1 || entries[0].DocID != "civil-code" {
		t.Fatalf("entries = %+v", entries)
	}
}
