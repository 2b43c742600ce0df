// Package emailglobal contributes the global mail redirect pages: the admin
// mailbox settings and the per-user forwarding sender list.
package emailglobal

import (
	"ordertrack/console/internal/registry"
	"ordertrack/console/internal/views"
)

const Key = "email-global"

func Manifest() registry.Manifest {
	return registry.Manifest{
		Key:      Key,
		Name:     "Email - Global/Redirect",
		Category: registry.CategoryProvider,
		AdminRoutes: []registry.AdminRoute{
			{Path: "email-global", View: views.Lazy("modules/providers/email-global/AdminGlobalMailView"), Label: "Email - Global/Redirect"},
		},
		UserRoutes: []registry.UserRoute{
			{Path: "email-global", View: views.Lazy("modules/providers/email-global/UserForwardingView"), Label: "Email Redirect"},
		},
	}
}
