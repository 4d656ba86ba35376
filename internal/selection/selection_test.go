package selection

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/hyperifyio/execbrief/internal/classify"
	"github.com/hyperifyio/execbrief/internal/item"
	"github.com/hyperifyio/execbrief/internal/score"
)

var testEpoch = time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

func cand(id string, b Bucket, frontier float64, ageHours int) Candidate {
	return Candidate{
		Item: item.RawItem{
			ID:           id,
			Title:        "title " + id,
			CanonicalURL: "https://example.com/" + id,
			PublishedAt:  testEpoch.Add(-time.Duration(ageHours) * time.Hour),
			Frontier:     frontier,
		},
		Score:  score.Score{ItemID: id, Final: 7},
		Bucket: b,
	}
}

func pool(b Bucket, n int, baseFrontier float64) []Candidate {
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, cand(fmt.Sprintf("%s%02d", b, i), b, baseFrontier-float64(i), i))
	}
	return out
}

func countBucket(sel []Candidate, b Bucket) int {
	n := 0
	for _, c := range sel {
		if c.Bucket == b {
			n++
		}
	}
	return n
}

func TestSelect_HealthyDayMeetsQuotas(t *testing.T) {
	primary := append(pool(BucketProduct, 4, 90), pool(BucketTech, 4, 85)...)
	primary = append(primary, pool(BucketBusiness, 4, 80)...)
	q := DefaultQuotas()

	out := Select(primary, nil, nil, q)
	if out.SparseDay {
		t.Fatal("healthy day marked sparse")
	}
	if out.Backfill.Triggered {
		t.Fatal("backfill triggered with a full primary pool")
	}
	for _, b := range []Bucket{BucketProduct, BucketTech, BucketBusiness} {
		if got := countBucket(out.Selected, b); got < 2 {
			t.Errorf("bucket %s has %d selected, want >= 2", b, got)
		}
	}
	if len(out.Selected) < q.MinEvents || len(out.Selected) > q.MaxEvents {
		t.Fatalf("selected %d events outside [%d,%d]", len(out.Selected), q.MinEvents, q.MaxEvents)
	}
}

func TestSelect_Deterministic(t *testing.T) {
	primary := append(pool(BucketProduct, 5, 90), pool(BucketTech, 5, 88)...)
	primary = append(primary, pool(BucketBusiness, 5, 86)...)
	a := Select(primary, nil, nil, DefaultQuotas())
	b := Select(primary, nil, nil, DefaultQuotas())
	if !reflect.DeepEqual(idsOf(a.Selected), idsOf(b.Selected)) {
		t.Fatalf("selection not deterministic:\n%v\n%v", idsOf(a.Selected), idsOf(b.Selected))
	}
}

func TestSelect_BackfillFromTiers(t *testing.T) {
	// Business has only one primary candidate; one more sits in extra.
	primary := append(pool(BucketProduct, 3, 90), pool(BucketTech, 3, 85)...)
	primary = append(primary, cand("bizprimary", BucketBusiness, 80, 1))
	extra := []Candidate{cand("bizextra", BucketBusiness, 70, 2)}

	out := Select(primary, extra, nil, DefaultQuotas())
	if !out.Backfill.Triggered {
		t.Fatal("backfill not triggered for short bucket")
	}
	if got := countBucket(out.Selected, BucketBusiness); got != 2 {
		t.Fatalf("business bucket has %d, want 2 after backfill", got)
	}
	if out.Backfill.OriginCounts[string(PoolExtra)] != 1 {
		t.Fatalf("origin counts = %v, want one extra_pool pick", out.Backfill.OriginCounts)
	}
	if len(out.Backfill.SelectedIDs) != 1 || out.Backfill.SelectedIDs[0] != "bizextra" {
		t.Fatalf("backfill selected ids = %v", out.Backfill.SelectedIDs)
	}
}

func TestSelect_GeneralTierAfterExtra(t *testing.T) {
	primary := append(pool(BucketProduct, 2, 90), pool(BucketTech, 2, 85)...)
	general := []Candidate{
		cand("gen1", BucketBusiness, 60, 3),
		cand("gen2", BucketBusiness, 55, 4),
	}
	out := Select(primary, nil, general, DefaultQuotas())
	if got := countBucket(out.Selected, BucketBusiness); got != 2 {
		t.Fatalf("business bucket has %d, want 2 from general tier", got)
	}
	if out.Backfill.OriginCounts[string(PoolGeneral)] != 2 {
		t.Fatalf("origin counts = %v, want two backfill picks", out.Backfill.OriginCounts)
	}
}

func TestSelect_SparseDay(t *testing.T) {
	primary := []Candidate{
		cand("p1", BucketProduct, 90, 1),
		cand("t1", BucketTech, 85, 2),
		cand("b1", BucketBusiness, 80, 3),
	}
	out := Select(primary, nil, nil, DefaultQuotas())
	if !out.SparseDay {
		t.Fatal("undersized pool not marked sparse")
	}
	if len(out.Selected) != 3 {
		t.Fatalf("selected %d, want all 3 available", len(out.Selected))
	}
}

func TestSelect_CapRespected(t *testing.T) {
	primary := append(pool(BucketProduct, 10, 90), pool(BucketTech, 10, 85)...)
	primary = append(primary, pool(BucketBusiness, 10, 80)...)
	q := DefaultQuotas()
	q.MaxEvents = 8
	out := Select(primary, nil, nil, q)
	if len(out.Selected) != 8 {
		t.Fatalf("selected %d, want exactly the cap 8", len(out.Selected))
	}
}

func TestLess_TotalOrder(t *testing.T) {
	hi := cand("aa", BucketTech, 90, 5)
	lo := cand("bb", BucketTech, 80, 1)
	if !Less(hi, lo) {
		t.Fatal("higher frontier must sort first")
	}

	newer := cand("cc", BucketTech, 80, 1)
	older := cand("dd", BucketTech, 80, 9)
	if !Less(newer, older) {
		t.Fatal("more recent must sort first on frontier tie")
	}

	short := cand("ee", BucketTech, 80, 1)
	long := cand("ff", BucketTech, 80, 1)
	long.Item.CanonicalURL = "https://example.com/a/very/long/path/segment"
	if !Less(short, long) {
		t.Fatal("shorter canonical URL must sort first on time tie")
	}
}

func TestBucketFor(t *testing.T) {
	cases := []struct {
		cat         classify.Category
		title, body string
		want        Bucket
	}{
		{classify.Consumer, "", "", BucketProduct},
		{classify.AI, "", "", BucketTech},
		{classify.Finance, "", "", BucketBusiness},
		{classify.General, "Vendor unveils flagship phone", "", BucketProduct},
		{classify.General, "Company announces layoffs", "", BucketBusiness},
		{classify.General, "Team publishes research paper", "", BucketTech},
		{classify.General, "Weekend reading list", "assorted links", BucketOther},
	}
	for _, tc := range cases {
		if got := BucketFor(tc.cat, tc.title, tc.body); got != tc.want {
			t.Errorf("BucketFor(%s, %q) = %s, want %s", tc.cat, tc.title, got, tc.want)
		}
	}
}

func TestEvents_CarriesIdentity(t *testing.T) {
	sel := []Candidate{cand("p1", BucketProduct, 90, 1)}
	sel[0].Pool = PoolPrimary
	evs := Events(sel)
	if len(evs) != 1 {
		t.Fatalf("got %d events", len(evs))
	}
	e := evs[0]
	if e.ItemID != "p1" || e.Bucket != BucketProduct || e.Origin != PoolPrimary || e.URL == "" {
		t.Fatalf("event fields not carried: %+v", e)
	}
}

func idsOf(sel []Candidate) []string {
	out := make([]string, 0, len(sel))
	for _, c := range sel {
		out = append(out, c.Item.ID)
	}
	return out
}
