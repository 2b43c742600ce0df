package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ordertrack/console/internal/modules"
	"ordertrack/console/internal/registry"
	"ordertrack/console/internal/routes"
)

var jsonOutput bool

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the composed route table",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := modules.NewRegistry()
		if err != nil {
			return err
		}
		table, err := routes.Compose(reg)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), table.Entries())
		}
		return printRoutes(cmd.OutOrStdout(), table.Entries())
	},
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Print the registered modules and the sidebars they produce",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := modules.NewRegistry()
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"admin": reg.AdminSidebarGroups(),
				"user":  reg.UserSidebarItems(),
			})
		}
		return printModules(cmd.OutOrStdout(), reg)
	},
}

func init() {
	routesCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	modulesCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
}

func printRoutes(out io.Writer, entries []routes.Entry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tNAME\tACCESS\tTARGET\tMODULE")
	for _, e := range entries {
		target := e.View.Name
		if e.Redirect != "" {
			target = "-> " + e.Redirect
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Path, dash(e.Name), e.Requirement, target, dash(e.ModuleKey))
	}
	return w.Flush()
}

func printModules(out io.Writer, reg *registry.Registry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tCATEGORY\tNAME\tADMIN\tUSER")
	for _, m := range reg.All() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", m.Key, m.Category, m.Name, len(m.AdminRoutes), len(m.UserRoutes))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	for _, g := range reg.AdminSidebarGroups() {
		fmt.Fprintf(out, "%s\n", g.Group)
		for _, item := range g.Items {
			fmt.Fprintf(out, "  %s  %s\n", item.Label, item.To)
		}
	}
	if items := reg.UserSidebarItems(); len(items) > 0 {
		fmt.Fprintln(out, "Providers")
		for _, item := range items {
			fmt.Fprintf(out, "  %s  %s\n", item.Label, item.To)
		}
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
