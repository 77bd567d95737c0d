// Scene and fact listing commands for the weft CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var scenesCmd = &cobra.Command{
	Use:   "scenes <story-id>",
	Short: "List the scenes of a story in sequence order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			fmt.Fprintln(os.Stderr, "scenes:", err)
			os.Exit(exitSysError)
		}
		defer eng.Close()

		scenes, err := eng.Scenes(context.Background(), args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "list scenes:", err)
			os.Exit(exitUserError)
		}

		if flagJSON {
			return printJSON(scenes)
		}
		for _, sc := range scenes {
			line := fmt.Sprintf("%3d  %s  %s", sc.SequenceIndex, sc.SceneID, sc.Title)
			if sc.When != nil {
				line += "  @" + sc.When.Format(time.RFC3339)
			}
			if sc.Location != "" {
				line += "  [" + sc.Location + "]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var factsCmd = &cobra.Command{
	Use:   "facts <story-id>",
	Short: "List the facts of a story in scene order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			fmt.Fprintln(os.Stderr, "facts:", err)
			os.Exit(exitSysError)
		}
		defer eng.Close()

		facts, err := eng.Facts(context.Background(), args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "list facts:", err)
			os.Exit(exitUserError)
		}

		if flagJSON {
			return printJSON(facts)
		}
		for _, f := range facts {
			line := fmt.Sprintf("%s  %s", f.FactID, f.Description)
			if len(f.Participants) > 0 {
				names := make([]string, len(f.Participants))
				for i, p := range f.Participants {
					names[i] = p.EntityID
				}
				line += "  (" + strings.Join(names, ", ") + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}
