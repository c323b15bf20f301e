package domain

import "testing"

func TestResolveDomain(t *testing.T) {
	cases := []struct {
		name, icon string
		want       string
	}{
		{"health", "", "Health"},
		{"  CAREER ", "", "Career"},
		{"", "cash", "Finance"},
		{"Gardening", "leaf", "Personal Growth"},
		{"Gardening", "", "Other"},
		{"", "", "Other"},
	}
	for _, c := range cases {
		if got := ResolveDomain(c.name, c.icon).Name; got != c.want {
			t.Fatalf("ResolveDomain(%q, %q)=%s want %s", c.name, c.icon, got, c.want)
		}
	}
}

func TestNormalizeGoalOnlyFillsBlanks(t *testing.T) {
	g := Goal{Domain: "Health", Icon: "dumbbell"}
	NormalizeGoal(&g)
	if g.Icon != "dumbbell" {
		t.Fatalf("custom icon must be kept, got %s", g.Icon)
	}
	if g.Color != "#E57373" || g.Domain != "Health" {
		t.Fatalf("expected Health color filled, got %+v", g)
	}

	custom := Goal{Domain: "career", Color: "#000000"}
	NormalizeGoal(&custom)
	if custom.Domain != "Career" || custom.Color != "#000000" || custom.Icon != "briefcase" {
		t.Fatalf("unexpected normalization: %+v", custom)
	}
}

func TestNormalizeProjectFallsBackToOther(t *testing.T) {
	p := Project{Domain: "nonsense"}
	NormalizeProject(&p)
	if p.Domain != OtherDomain.Name || p.Color != OtherDomain.Color {
		t.Fatalf("expected Other domain, got %+v", p)
	}
}

func TestTaxonomyReturnsCopy(t *testing.T) {
	list := Taxonomy()
	list[0].Name = "mutated"
	if Taxonomy()[0].Name != "Health" {
		t.Fatalf("taxonomy must not be mutable through the returned slice")
	}
	if last := list[len(list)-1]; last != OtherDomain {
		t.Fatalf("expected Other last, got %+v", last)
	}
}
