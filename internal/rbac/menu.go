package rbac

import "masthead/internal/auth/models"

// MenuItem is one entry of the admin navigation. Each item names the single
// permission that makes it visible.
type MenuItem struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Icon       string `json:"icon"`
	Resource   string `json:"-"`
	Action     string `json:"-"`
	Permission string `json:"permission"`
}

// menuRegistry is the total, ordered set of navigable admin sections. Menu
// derivation filters this list; it never invents entries.
var menuRegistry = []MenuItem{
	{Name: "Dashboard", Path: "/admin/dashboard", Icon: "dashboard", Resource: "system", Action: "dashboard_view", Permission: "system.dashboard_view"},
	{Name: "Articles", Path: "/admin/articles", Icon: "article", Resource: "content", Action: "view", Permission: "content.view"},
	{Name: "Video Articles", Path: "/admin/video-articles", Icon: "video", Resource: "content", Action: "view", Permission: "content.view"},
	{Name: "Categories", Path: "/admin/categories", Icon: "category", Resource: "content", Action: "view", Permission: "content.view"},
	{Name: "Authors", Path: "/admin/authors", Icon: "person", Resource: "content", Action: "view", Permission: "content.view"},
	{Name: "Media", Path: "/admin/media", Icon: "image", Resource: "content", Action: "view", Permission: "content.view"},
	{Name: "Newsletter", Path: "/admin/newsletter", Icon: "mail", Resource: "content", Action: "view", Permission: "content.view"},
	{Name: "Events", Path: "/admin/events", Icon: "event", Resource: "content", Action: "view", Permission: "content.view"},
	{Name: "Flipbooks", Path: "/admin/flipbooks", Icon: "book", Resource: "content", Action: "view", Permission: "content.view"},
	{Name: "Downloads", Path: "/admin/downloads", Icon: "download", Resource: "content", Action: "view", Permission: "content.view"},
	{Name: "Lists", Path: "/admin/lists", Icon: "list", Resource: "content", Action: "view", Permission: "content.view"},
	{Name: "Analytics", Path: "/admin/analytics", Icon: "chart", Resource: "analytics", Action: "view", Permission: "analytics.view"},
	{Name: "Users", Path: "/admin/users", Icon: "group", Resource: "users", Action: "view", Permission: "users.view"},
	{Name: "Roles", Path: "/admin/roles", Icon: "shield", Resource: "system", Action: "role_management", Permission: "system.role_management"},
	{Name: "Settings", Path: "/admin/settings", Icon: "settings", Resource: "system", Action: "site_config", Permission: "system.site_config"},
	{Name: "Security", Path: "/admin/security", Icon: "lock", Resource: "security", Action: "view_logs", Permission: "security.view_logs"},
	{Name: "Technical Access", Path: "/admin/technical-access", Icon: "terminal", Resource: "system", Action: "technical_access", Permission: "system.technical_access"},
	{Name: "Performance Monitoring", Path: "/admin/performance-monitoring", Icon: "speed", Resource: "system", Action: "performance_monitoring", Permission: "system.performance_monitoring"},
}

// MenuFor returns the registry entries the principal is allowed to see, in
// registry order.
func (e *Evaluator) MenuFor(p *models.Principal) []MenuItem {
	items := make([]MenuItem, 0, len(menuRegistry))
	for _, item := range menuRegistry {
		if e.Has(p, item.Resource, item.Action) {
			items = append(items, item)
		}
	}
	return items
}
