package domain

import "strings"

// LifeDomain is a canonical category from the fixed taxonomy used for
// display theming of goals and projects.
type LifeDomain struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// OtherDomain is the fallback when neither name nor icon resolve.
var OtherDomain = LifeDomain{Name: "Other", Icon: "ellipsis-horizontal", Color: "#90A4AE"}

var taxonomy = []LifeDomain{
	{Name: "Health", Icon: "heart", Color: "#E57373"},
	{Name: "Career", Icon: "briefcase", Color: "#64B5F6"},
	{Name: "Finance", Icon: "cash", Color: "#81C784"},
	{Name: "Learning", Icon: "school", Color: "#FFB74D"},
	{Name: "Relationships", Icon: "people", Color: "#F06292"},
	{Name: "Personal Growth", Icon: "leaf", Color: "#9575CD"},
	{Name: "Creativity", Icon: "color-palette", Color: "#4DB6AC"},
	{Name: "Home", Icon: "home", Color: "#A1887F"},
	OtherDomain,
}

// Taxonomy returns a copy of the fixed domain list.
func Taxonomy() []LifeDomain {
	return append([]LifeDomain(nil), taxonomy...)
}

// ResolveDomain finds the canonical domain by case-insensitive name, then by
// icon, falling back to OtherDomain.
func ResolveDomain(name, icon string) LifeDomain {
	if n := strings.TrimSpace(name); n != "" {
		for _, d := range taxonomy {
			if strings.EqualFold(d.Name, n) {
				return d
			}
		}
	}
	if i := strings.TrimSpace(icon); i != "" {
		for _, d := range taxonomy {
			if d.Icon == i {
				return d
			}
		}
	}
	return OtherDomain
}

// NormalizeDomain returns the canonical domain name and fills icon and color
// only when they were not set by the caller.
func NormalizeDomain(name, icon, color string) (string, string, string) {
	d := ResolveDomain(name, icon)
	if strings.TrimSpace(icon) == "" {
		icon = d.Icon
	}
	if strings.TrimSpace(color) == "" {
		color = d.Color
	}
	return d.Name, icon, color
}

// NormalizeGoal applies NormalizeDomain to a goal in place.
func NormalizeGoal(g *Goal) {
	g.Domain, g.Icon, g.Color = NormalizeDomain(g.Domain, g.Icon, g.Color)
}

// NormalizeProject applies NormalizeDomain to a project in place. Projects do
// not carry an icon, so only name and color are written back.
func NormalizeProject(p *Project) {
	p.Domain, _, p.Color = NormalizeDomain(p.Domain, "", p.Color)
}
