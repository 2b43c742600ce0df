package routes

import (
	"ordertrack/console/internal/access"
	"ordertrack/console/internal/registry"
	"ordertrack/console/internal/views"
)

// Names the guard redirects to.
const (
	NameLogin     = "login"
	NameDashboard = "dashboard"
)

const defaultSettingsChild = "queue"

// Compose merges the built-in routes with the registry's admin and user
// route tables. Admin routes are mounted under /admin/settings and user
// routes under /providers.
func Compose(reg *registry.Registry) (*Table, error) {
	return New(Builtins(reg))
}

// Builtins returns the full declared route tree for reg.
func Builtins(reg *registry.Registry) []Route {
	adminRoutes := reg.AdminRoutes()
	userRoutes := reg.UserRoutes()

	settingsIndex := defaultSettingsChild
	if len(adminRoutes) > 0 {
		settingsIndex = adminRoutes[0].Path
	}
	settings := []Route{
		{Path: "", Redirect: registry.AdminSettingsPath + "/" + settingsIndex},
		{Path: "queue", Name: "queue-settings", View: views.Lazy("views/admin/QueueSettingsView")},
		{Path: "modules", Name: "settings-modules", View: views.Lazy("views/admin/ModulesView")},
	}
	for _, e := range adminRoutes {
		settings = append(settings, Route{
			Path:      e.Path,
			Name:      "settings-" + e.Path,
			View:      e.View,
			ModuleKey: e.ModuleKey,
		})
	}

	tree := []Route{
		{Path: "/", Redirect: "/dashboard"},
		{
			Path:        "/login",
			Name:        NameLogin,
			View:        views.Lazy("views/LoginView"),
			Requirement: access.GuestOnly,
			CheckSetup:  true,
		},
		{Path: "/setup", Redirect: "/login"},
		{Path: "/dashboard", Name: NameDashboard, View: views.Lazy("views/DashboardView"), Requirement: access.Authenticated},
		{Path: "/orders", Name: "orders", View: views.Lazy("views/OrdersView"), Requirement: access.Authenticated},
		{Path: "/orders/:id", Name: "order-detail", View: views.Lazy("views/OrderDetailView"), Requirement: access.Authenticated},
		{Path: "/history", Name: "history", View: views.Lazy("views/HistoryView"), Requirement: access.Authenticated},
		{
			Path:        "/accounts",
			View:        views.Lazy("views/AccountsView"),
			Requirement: access.Authenticated,
			Children: []Route{
				{Path: "", Name: "accounts", Redirect: "/accounts/imap"},
				{Path: "imap", Name: "accounts-imap", View: views.Lazy("modules/providers/email-user/UserImapAccountsView")},
				{Path: "forwarding", Name: "accounts-forwarding", View: views.Lazy("modules/providers/email-global/UserForwardingView")},
			},
		},
		{Path: "/profile", Name: "profile", View: views.Lazy("views/ProfileView"), Requirement: access.Authenticated},
		{Path: "/admin/users", Name: "admin-users", View: views.Lazy("views/admin/UsersView"), Requirement: access.Admin},
		{
			Path:        registry.AdminSettingsPath,
			View:        views.Lazy("views/admin/SettingsView"),
			Requirement: access.Admin,
			Children:    settings,
		},
		{Path: "/admin/system", Name: "admin-system", View: views.Lazy("views/admin/SystemView"), Requirement: access.Admin},
	}

	// Legacy location of the LLM settings page.
	for _, e := range adminRoutes {
		if e.Path == "llm" {
			tree = append(tree, Route{Path: "/admin/llm", Redirect: registry.AdminSettingsPath + "/llm"})
		}
	}

	if len(userRoutes) > 0 {
		providers := []Route{
			{Path: "", Redirect: registry.UserProvidersPath + "/" + userRoutes[0].Path},
		}
		for _, e := range userRoutes {
			providers = append(providers, Route{
				Path:      e.Path,
				Name:      "providers-" + e.Path,
				View:      e.View,
				ModuleKey: e.ModuleKey,
			})
		}
		tree = append(tree, Route{
			Path:        registry.UserProvidersPath,
			View:        views.Lazy("views/ProvidersView"),
			Requirement: access.Authenticated,
			Children:    providers,
		})
	}
	return tree
}
