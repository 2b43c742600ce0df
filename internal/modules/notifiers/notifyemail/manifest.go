package notifyemail

import (
	"ordertrack/console/internal/registry"
	"ordertrack/console/internal/views"
)

const Key = "notify-email"

// Manifest labels are catalog keys, resolved per client locale.
func Manifest() registry.Manifest {
	return registry.Manifest{
		Key:      Key,
		Name:     "modules.notify-email.title",
		Category: registry.CategoryNotifier,
		AdminRoutes: []registry.AdminRoute{
			{Path: "notify-email", View: views.Lazy("modules/notifiers/notify-email/AdminNotifyEmailView"), Label: "modules.notify-email.title"},
		},
		UserRoutes: []registry.UserRoute{
			{Path: "notify-email", View: views.Lazy("modules/notifiers/notify-email/UserNotifyEmailView"), Label: "modules.notify-email.userTitle"},
		},
	}
}
