// Package llm contributes the LLM classification settings page.
package llm

import (
	"ordertrack/console/internal/registry"
	"ordertrack/console/internal/views"
)

const Key = "llm"

func Manifest() registry.Manifest {
	return registry.Manifest{
		Key:      Key,
		Name:     "LLM Config",
		Category: registry.CategoryAnalyser,
		AdminRoutes: []registry.AdminRoute{
			{Path: "llm", View: views.Lazy("modules/analysers/llm/AdminLLMConfigView"), Label: "LLM Config"},
		},
	}
}
