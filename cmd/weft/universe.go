// Universe commands for the weft CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var universeDescription string

var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Manage universes",
}

var universeCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new root universe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			fmt.Fprintln(os.Stderr, "universe create:", err)
			os.Exit(exitSysError)
		}
		defer eng.Close()

		u, err := eng.CreateUniverse(context.Background(), args[0], universeDescription)
		if err != nil {
			fmt.Fprintln(os.Stderr, "create universe:", err)
			os.Exit(exitUserError)
		}

		if flagJSON {
			return printJSON(u)
		}
		fmt.Printf("Created universe: %s\n", u.UniverseID)
		return nil
	},
}

var universeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List universes in creation order",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			fmt.Fprintln(os.Stderr, "universe list:", err)
			os.Exit(exitSysError)
		}
		defer eng.Close()

		universes, err := eng.Universes(context.Background())
		if err != nil {
			fmt.Fprintln(os.Stderr, "list universes:", err)
			os.Exit(exitSysError)
		}

		if flagJSON {
			return printJSON(universes)
		}
		for _, u := range universes {
			line := fmt.Sprintf("%s  %s", u.UniverseID, u.Name)
			if u.DerivesFrom != "" {
				line += fmt.Sprintf("  (branch of %s)", u.DerivesFrom)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var universeShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Display a universe and its per-kind contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			fmt.Fprintln(os.Stderr, "universe show:", err)
			os.Exit(exitSysError)
		}
		defer eng.Close()

		ctx := context.Background()
		u, err := eng.Universe(ctx, args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "get universe:", err)
			os.Exit(exitUserError)
		}

		snap, err := eng.Snapshot(ctx, u.UniverseID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read universe:", err)
			os.Exit(exitSysError)
		}

		if flagJSON {
			return printJSON(map[string]any{
				"universe": u,
				"counts":   snap.Counts(),
			})
		}

		fmt.Printf("Universe: %s\n", u.Name)
		fmt.Printf("ID:       %s\n", u.UniverseID)
		if u.DerivesFrom != "" {
			fmt.Printf("Branch of: %s", u.DerivesFrom)
			if u.OriginSceneID != "" {
				fmt.Printf(" at scene %s", u.OriginSceneID)
			}
			fmt.Println()
		}
		if u.Description != "" {
			fmt.Printf("About:    %s\n", u.Description)
		}
		counts := snap.Counts()
		kinds := make([]string, 0, len(counts))
		for kind := range counts {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Printf("%-10s %d\n", kind+":", counts[kind])
		}
		return nil
	},
}

func init() {
	universeCreateCmd.Flags().StringVar(&universeDescription, "description", "", "universe description")

	universeCmd.AddCommand(universeCreateCmd)
	universeCmd.AddCommand(universeListCmd)
	universeCmd.AddCommand(universeShowCmd)
}
