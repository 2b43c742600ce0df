package notifywebhook

import (
	"ordertrack/console/internal/registry"
	"ordertrack/console/internal/views"
)

const Key = "notify-webhook"

func Manifest() registry.Manifest {
	return registry.Manifest{
		Key:      Key,
		Name:     "modules.notify-webhook.title",
		Category: registry.CategoryNotifier,
		AdminRoutes: []registry.AdminRoute{
			{Path: "notify-webhook", View: views.Lazy("modules/notifiers/notify-webhook/AdminNotifyWebhookView"), Label: "modules.notify-webhook.title"},
		},
		UserRoutes: []registry.UserRoute{
			{Path: "notify-webhook", View: views.Lazy("modules/notifiers/notify-webhook/UserNotifyWebhookView"), Label: "modules.notify-webhook.userTitle"},
		},
	}
}
