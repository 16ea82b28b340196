package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/config"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/kernel"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
)

func newClassifyCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <text>...",
		Short: "Show the intent and plan for a request without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			table, err := routingTable(cfg)
			if err != nil {
				return err
			}

			orch := kernel.NewOrchestrator(kernel.Deps{
				Planner: config.NewPlanner(table),
				Logger:  logging.NopLogger{},
			})
			c := orch.Classify(strings.Join(args, " "))

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, c)
			}

			bold := color.New(color.Bold)
			bold.Fprintf(out, "%s", c.Intent.Name)
			fmt.Fprintf(out, " (confidence %.2f, complexity %s)\n", c.Intent.Confidence, c.Intent.Complexity)
			printField(out, "platforms", strings.Join(c.Intent.PlatformNames(), ", "))
			printField(out, "dates", strings.Join(c.Intent.Entities.Dates, ", "))
			printField(out, "times", strings.Join(c.Intent.Entities.Times, ", "))
			printField(out, "people", strings.Join(c.Intent.Entities.People, ", "))

			mode := "sequential"
			if c.Plan.Parallel {
				mode = "parallel"
			}
			printField(out, "plan", fmt.Sprintf("%s (%s)", strings.Join(c.Plan.Agents, " -> "), mode))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the classification as JSON")
	return cmd
}

func newRoutesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the effective routing table as YAML",
		Long: `Print the routing table in the format accepted by routing_file, so the
built-in table can be used as a starting point for a custom one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			table, err := routingTable(cfg)
			if err != nil {
				return err
			}
			data, err := table.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func routingTable(cfg *config.CoreConfig) (*config.RoutingTable, error) {
	if cfg.RoutingFile == "" {
		return config.DefaultRoutingTable(), nil
	}
	return config.LoadRoutingTable(cfg.RoutingFile)
}
