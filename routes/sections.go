package routes

import (
	"slices"
	"strings"

	"github.com/jrsteele09/evcharge-client/users"
)

// Section is a panel of a role's dashboard.
type Section string

const (
	SectionDashboard   Section = "dashboard"
	SectionProfile     Section = "profile"
	SectionPayments    Section = "payments"
	SectionSupport     Section = "support"
	SectionChargers    Section = "chargers"
	SectionMyChargers  Section = "myChargers"
	SectionAddCharger  Section = "addCharger"
	SectionEditCharger Section = "editCharger"
	SectionBookings    Section = "bookings"
	SectionUsers       Section = "users"
	SectionHosts       Section = "hosts"
	SectionReports     Section = "reports"
)

type dashboard struct {
	fallback Section
	sections []Section
	slugs    map[string]Section
}

var dashboards = map[users.Role]dashboard{
	users.RoleUser: {
		fallback: SectionProfile,
		sections: []Section{SectionProfile, SectionPayments, SectionSupport, SectionChargers},
		slugs: map[string]Section{
			"profile":  SectionProfile,
			"payments": SectionPayments,
			"support":  SectionSupport,
			"chargers": SectionChargers,
			"charger":  SectionChargers,
		},
	},
	users.RoleHost: {
		fallback: SectionMyChargers,
		sections: []Section{SectionMyChargers, SectionAddCharger, SectionEditCharger, SectionBookings, SectionPayments, SectionSupport},
		slugs: map[string]Section{
			"my-chargers":  SectionMyChargers,
			"add-charger":  SectionAddCharger,
			"edit-charger": SectionEditCharger,
			"bookings":     SectionBookings,
			"payments":     SectionPayments,
			"support":      SectionSupport,
		},
	},
	users.RoleAdmin: {
		fallback: SectionUsers,
		sections: []Section{SectionUsers, SectionHosts, SectionChargers, SectionReports, SectionSupport},
		slugs: map[string]Section{
			"users":    SectionUsers,
			"hosts":    SectionHosts,
			"chargers": SectionChargers,
			"reports":  SectionReports,
			"support":  SectionSupport,
		},
	},
}

// Sections lists the panels of a role's dashboard, nil when the role has none.
func Sections(role users.Role) []Section {
	d, ok := dashboards[role]
	if !ok {
		return nil
	}
	return slices.Clone(d.sections)
}

// DefaultSection is what "dashboard" shows for role.
func DefaultSection(role users.Role) Section {
	return dashboards[role].fallback
}

// Lookup returns the panel shown for active. "dashboard" and unknown sections
// show the role's default. ok is false for roles without a dashboard.
func Lookup(role users.Role, active Section) (Section, bool) {
	d, found := dashboards[role]
	if !found {
		return "", false
	}
	if slices.Contains(d.sections, active) {
		return active, true
	}
	return d.fallback, true
}

// SectionForPath maps a dashboard path such as /host-dashboard/edit-charger/7
// to its panel and the trailing parameter ("7").
func SectionForPath(role users.Role, path string) (Section, string) {
	d, found := dashboards[role]
	if !found {
		return "", ""
	}
	rest := strings.TrimPrefix(Clean(path), DefaultPath(role))
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)

	section, ok := d.slugs[parts[0]]
	if !ok {
		return d.fallback, ""
	}
	if len(parts) == 2 {
		return section, parts[1]
	}
	return section, ""
}
