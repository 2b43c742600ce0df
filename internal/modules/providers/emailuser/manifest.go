// Package emailuser contributes the per-user IMAP account pages.
package emailuser

import (
	"ordertrack/console/internal/registry"
	"ordertrack/console/internal/views"
)

const Key = "email-user"

func Manifest() registry.Manifest {
	return registry.Manifest{
		Key:      Key,
		Name:     "Email - User IMAP",
		Category: registry.CategoryProvider,
		AdminRoutes: []registry.AdminRoute{
			{Path: "email-user", View: views.Lazy("modules/providers/email-user/AdminImapSettingsView"), Label: "Email - User IMAP"},
		},
		UserRoutes: []registry.UserRoute{
			{Path: "email-user", View: views.Lazy("modules/providers/email-user/UserImapAccountsView"), Label: "Email IMAP"},
		},
	}
}
