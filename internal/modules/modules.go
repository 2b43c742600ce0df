// Package modules lists the first-party feature modules of the console. The
// order of All is the registration order, and therefore the order of every
// derived navigation list.
package modules

import (
	"ordertrack/console/internal/modules/analysers/llm"
	"ordertrack/console/internal/modules/notifiers/notifyemail"
	"ordertrack/console/internal/modules/notifiers/notifywebhook"
	"ordertrack/console/internal/modules/providers/emailglobal"
	"ordertrack/console/internal/modules/providers/emailuser"
	"ordertrack/console/internal/registry"
)

func All() []registry.Manifest {
	return []registry.Manifest{
		llm.Manifest(),
		emailuser.Manifest(),
		emailglobal.Manifest(),
		notifyemail.Manifest(),
		notifywebhook.Manifest(),
	}
}

// NewRegistry builds the registry from All.
func NewRegistry() (*registry.Registry, error) {
	return registry.Build(All()...)
}
