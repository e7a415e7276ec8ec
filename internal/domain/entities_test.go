package domain

import "testing"

func sampleChapter() Chapter {
	return Chapter{
		ID:    "ch-1",
		Index: 1,
		Sources: []CDNSource{
			{Domain: "a.example", Videos: []QualityVariant{{Quality: 540, URL: "a-540"}}},
			{Domain: "naka.example", Videos: []QualityVariant{{Quality: 720, URL: "n-720"}, {Quality: 720, URL: "n-720-dup"}}},
			{Domain: "b.example", Videos: []QualityVariant{{Quality: 720, URL: "b-720"}}},
		},
	}
}

func TestAttemptOrderPutsPreferredFirst(t *testing.T) {
	order := sampleChapter().AttemptOrder("naka.example")
	got := []string{order[0].Domain, order[1].Domain, order[2].Domain}
	want := []string{"naka.example", "a.example", "b.example"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ожидали порядок %v, получили %v", want, got)
		}
	}
}

func TestAttemptOrderWithoutPreferred(t *testing.T) {
	order := sampleChapter().AttemptOrder("missing.example")
	if len(order) != 3 || order[0].Domain != "a.example" {
		t.Fatalf("ожидали исходный порядок, получили %+v", order)
	}
}

func TestFindQualityFirstMatchWins(t *testing.T) {
	src := sampleChapter().Sources[1]
	v, ok := src.FindQuality(720)
	if !ok || v.URL != "n-720" {
		t.Fatalf("ожидали первый вариант 720, получили %+v", v)
	}
	if _, ok := src.FindQuality(1080); ok {
		t.Fatal("не ожидали качество 1080")
	}
}

func TestMenuSourceFallsBackToFirst(t *testing.T) {
	ch := sampleChapter()
	src, ok := ch.MenuSource("missing.example")
	if !ok || src.Domain != "a.example" {
		t.Fatalf("ожидали первый CDN, получили %+v", src)
	}
	if _, ok := (Chapter{}).MenuSource("x"); ok {
		t.Fatal("для серии без источников ожидали false")
	}
}

func TestNeighboursAtBoundaries(t *testing.T) {
	c := Catalog{Chapters: []Chapter{{ID: "1"}, {ID: "2"}, {ID: "3"}}}
	prev, next := c.Neighbours(0)
	if prev != nil || next == nil || next.ID != "2" {
		t.Fatalf("неверные соседи первой серии: %v %v", prev, next)
	}
	prev, next = c.Neighbours(2)
	if next != nil || prev == nil || prev.ID != "2" {
		t.Fatalf("неверные соседи последней серии: %v %v", prev, next)
	}
}

func TestHasQuality(t *testing.T) {
	ch := sampleChapter()
	if !ch.HasQuality(540) || ch.HasQuality(1080) {
		t.Fatal("неверная проверка наличия качества")
	}
}
