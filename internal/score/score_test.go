package score

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/execbrief/internal/classify"
	"github.com/hyperifyio/execbrief/internal/item"
)

func sampleItem(body string) item.RawItem {
	return item.RawItem{
		ID:          "abc123def456",
		Title:       "Chip maker ships new accelerator",
		Body:        body,
		Frontier:    80,
		PublishedAt: time.Now().Add(-2 * time.Hour),
		Lang:        "en",
	}
}

func TestCompute_DimensionsInRange(t *testing.T) {
	long := strings.Repeat("The accelerator delivers 400 TFLOPS at 250 watts. ", 40)
	s := Compute(Inputs{
		Item:           sampleItem(long),
		DupCount:       2,
		HydrationOK:    true,
		Classification: classify.Result{Category: classify.Technology, Confidence: 0.6},
	})
	for name, v := range map[string]float64{
		"novelty": s.Novelty, "utility": s.Utility, "heat": s.Heat,
		"feasibility": s.Feasibility, "final": s.Final,
	} {
		if v < 0 || v > 10 {
			t.Errorf("%s = %f out of [0,10]", name, v)
		}
	}
	if s.DupRisk < 0 || s.DupRisk > 1 {
		t.Errorf("dup_risk = %f out of [0,1]", s.DupRisk)
	}
	if s.ItemID != "abc123def456" {
		t.Errorf("item id not carried: %q", s.ItemID)
	}
}

func TestCompute_NoveltyTracksFrontier(t *testing.T) {
	hi := sampleItem("body")
	hi.Frontier = 90
	lo := sampleItem("body")
	lo.Frontier = 20
	in := Inputs{Classification: classify.Result{}}
	in.Item = hi
	a := Compute(in)
	in.Item = lo
	b := Compute(in)
	if a.Novelty <= b.Novelty {
		t.Fatalf("novelty %f not above %f for higher frontier", a.Novelty, b.Novelty)
	}
	if a.Novelty != 9 {
		t.Fatalf("novelty = %f, want 9 for frontier 90", a.Novelty)
	}
}

func TestCompute_UtilityRewardsSubstance(t *testing.T) {
	thin := Compute(Inputs{Item: sampleItem("Short note.")})
	rich := Compute(Inputs{Item: sampleItem(strings.Repeat(
		`"We shipped 12 million units in Q2," the CEO said, citing 38% growth. `, 30))})
	if rich.Utility <= thin.Utility {
		t.Fatalf("utility %f not above %f for quotable numeric body", rich.Utility, thin.Utility)
	}
}

func TestCompute_HeatGrowsWithDuplicates(t *testing.T) {
	base := Inputs{Item: sampleItem("body")}
	solo := Compute(base)
	base.DupCount = 3
	wide := Compute(base)
	if wide.Heat <= solo.Heat {
		t.Fatalf("heat %f not above %f with syndication", wide.Heat, solo.Heat)
	}
}

func TestCompute_FeasibilityNeedsFulltext(t *testing.T) {
	short := Compute(Inputs{Item: sampleItem("too short")})
	hydrated := Compute(Inputs{Item: sampleItem("too short"), HydrationOK: true})
	if hydrated.Feasibility-short.Feasibility != 4 {
		t.Fatalf("hydration bump = %f, want 4", hydrated.Feasibility-short.Feasibility)
	}
}

func TestDupRisk_Mapping(t *testing.T) {
	cases := []struct {
		n    int
		want float64
	}{
		{0, 0}, {1, 0.2}, {2, 0.45}, {3, 0.70}, {10, 1},
	}
	for _, tc := range cases {
		if got := dupRisk(tc.n); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("dupRisk(%d) = %f, want %f", tc.n, got, tc.want)
		}
	}
}

func TestIsAd(t *testing.T) {
	ads := []string{
		"Sponsored: the best laptops of 2026",
		"Use code SAVE20 at checkout",
		"This paid partnership brings you a limited time offer",
		"Shop now for deals via our affiliate link",
	}
	for _, s := range ads {
		if !IsAd(s, "") {
			t.Errorf("IsAd(%q) = false, want true", s)
		}
	}
	clean := []string{
		"Company sponsors open source fund", // sponsor, not sponsored
		"Chip maker ships new accelerator",
	}
	for _, s := range clean {
		if IsAd(s, "") {
			t.Errorf("IsAd(%q) = true, want false", s)
		}
	}
}

func TestEventGate_AllConditions(t *testing.T) {
	p := DefaultGatePolicy()
	long := strings.Repeat("substantial reporting with detail ", 20)
	it := sampleItem(long)
	ok := Score{Final: 7, DupRisk: 0.1}

	if pass, reason := EventGate(it, ok, false, true, p); !pass {
		t.Fatalf("healthy item rejected: %s", reason)
	}

	cases := []struct {
		name        string
		s           Score
		hydrated    bool
		langAllowed bool
		body        string
		want        GateReason
	}{
		{"low score", Score{Final: 3, DupRisk: 0.1}, false, true, long, ReasonScore},
		{"dup risk", Score{Final: 7, DupRisk: 0.9}, false, true, long, ReasonDupRisk},
		{"ad flag", Score{Final: 7, DupRisk: 0.1, AdFlag: true}, false, true, long, ReasonAd},
		{"language", Score{Final: 7, DupRisk: 0.1}, false, false, long, ReasonLang},
		{"no fulltext", Score{Final: 7, DupRisk: 0.1}, false, true, "stub", ReasonNoFulltext},
	}
	for _, tc := range cases {
		it := sampleItem(tc.body)
		pass, reason := EventGate(it, tc.s, tc.hydrated, tc.langAllowed, p)
		if pass || reason != tc.want {
			t.Errorf("%s: pass=%v reason=%s, want fail/%s", tc.name, pass, reason, tc.want)
		}
	}

	// Hydration substitutes for a long original body.
	stub := sampleItem("stub")
	if pass, reason := EventGate(stub, ok, true, true, p); !pass {
		t.Fatalf("hydrated short-body item rejected: %s", reason)
	}
}
