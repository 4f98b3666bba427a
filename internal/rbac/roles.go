package rbac

import "masthead/internal/auth/models"

const (
	// MasterAdminRole carries the wildcard grant. The last active holder
	// can never be deleted, deactivated, or demoted.
	MasterAdminRole = "Master Admin"
	// RegistrationRole is assigned to self-registered accounts.
	RegistrationRole = "Contributors"
)

func grant(resource string, actions ...string) []models.Permission {
	grants := make([]models.Permission, 0, len(actions))
	for _, a := range actions {
		grants = append(grants, models.Permission{Resource: resource, Action: a})
	}
	return grants
}

func grants(sets ...[]models.Permission) []models.Permission {
	return Merge(sets...)
}

// DefaultRoles returns the built-in editorial role catalog. Stores seed these
// on first run; custom roles can be added alongside them.
func DefaultRoles() []models.Role {
	return []models.Role{
		{
			Name:        "Master Admin",
			Description: "Full platform control",
			AccessLevel: 10,
			Wildcard:    true,
		},
		{
			Name:        "Webmaster",
			Description: "Technical operation and security oversight",
			AccessLevel: 9,
			Grants: grants(
				grant("system", "technical_access", "performance_monitoring", "maintenance", "settings", "logs"),
				grant("analytics", "*"),
				grant("security", "*"),
				grant("content", "create", "edit", "delete", "publish"),
				grant("users", "*"),
			),
		},
		{
			Name:        "Content Admin",
			Description: "Editorial operations management",
			AccessLevel: 8,
			Grants: grants(
				grant("system", "dashboard_view", "settings"),
				grant("content", "*"),
				grant("analytics", "view"),
				grant("users", "view"),
				grant("communication", "*"),
			),
		},
		{
			Name:        "Editor-in-Chief",
			Description: "Editorial direction and final approvals",
			AccessLevel: 7,
			Grants: grants(
				grant("content", "create", "edit", "delete", "publish", "approve", "quality_control"),
				grant("editorial", "strategy", "standards", "approvals"),
			),
		},
		{
			Name:        "Section Editors",
			Description: "Section-level editorial oversight",
			AccessLevel: 6,
			Grants: grants(
				grant("content", "create", "edit", "delete", "publish", "section_oversight"),
				grant("editorial", "section_strategy", "writer_coordination"),
			),
		},
		{
			Name:        "Senior Writers",
			Description: "Feature and investigative reporting",
			AccessLevel: 5,
			Grants: grants(
				grant("content", "create", "edit", "publish", "feature_articles", "investigative"),
			),
		},
		{
			Name:        "Staff Writers",
			Description: "Daily reporting and event coverage",
			AccessLevel: 4,
			Grants: grants(
				grant("content", "create", "edit", "publish", "daily_articles", "event_coverage"),
			),
		},
		{
			Name:        "Contributors",
			Description: "Submission with limited editing",
			AccessLevel: 3,
			Grants: grants(
				grant("content", "create", "submit", "limited_edit"),
			),
		},
		{
			Name:        "Reviewers",
			Description: "Fact checking and quality assurance",
			AccessLevel: 2,
			Grants: grants(
				grant("content", "review", "fact_check", "quality_assurance", "approve"),
			),
		},
		{
			Name:        "Social Media Manager",
			Description: "Platform promotion and engagement",
			AccessLevel: 1,
			Grants: grants(
				grant("social", "*"),
			),
		},
	}
}
