// Branch command for the weft CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/storymesh/weft/pkg/types"
)

var (
	branchName          string
	branchScene         string
	branchStories       []string
	branchEntities      []string
	branchMaxSceneIndex int
	branchFactsSince    string
	branchPreview       bool
)

var branchCmd = &cobra.Command{
	Use:   "branch <source-universe-id>",
	Short: "Clone a universe, in full or at a scene",
	Long: `Branch copies a universe into a new one with fresh ids and lineage
back to the source. --scene branches "at a scene": later scenes of that
scene's story and provenance recorded after it are left behind. --story,
--entity, --max-scene-index, and --facts-since restrict the copy further.
--preview reports what would be copied without writing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceID := args[0]

		sel := &types.BranchSelector{
			SceneID:       branchScene,
			StoryIDs:      branchStories,
			EntityIDs:     branchEntities,
			MaxSceneIndex: branchMaxSceneIndex,
		}
		if branchFactsSince != "" {
			since, err := time.Parse(time.RFC3339, branchFactsSince)
			if err != nil {
				fmt.Fprintln(os.Stderr, "branch: bad --facts-since:", err)
				os.Exit(exitUserError)
			}
			sel.FactsSince = &since
		}

		eng, err := openEngine()
		if err != nil {
			fmt.Fprintln(os.Stderr, "branch:", err)
			os.Exit(exitSysError)
		}
		defer eng.Close()

		ctx := context.Background()

		if branchPreview {
			counts, err := eng.PreviewBranch(ctx, sourceID, sel)
			if err != nil {
				fmt.Fprintln(os.Stderr, "preview:", err)
				os.Exit(exitUserError)
			}
			if flagJSON {
				return printJSON(counts)
			}
			kinds := make([]string, 0, len(counts))
			for kind := range counts {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)
			for _, kind := range kinds {
				fmt.Printf("%-10s %d\n", kind+":", counts[kind])
			}
			return nil
		}

		if branchName == "" {
			fmt.Fprintln(os.Stderr, "branch: --name is required")
			os.Exit(exitUserError)
		}

		u, err := eng.Branch(ctx, sourceID, branchName, sel)
		if err != nil {
			fmt.Fprintln(os.Stderr, "branch:", err)
			os.Exit(exitUserError)
		}

		if flagJSON {
			return printJSON(u)
		}
		fmt.Printf("Created branch: %s\n", u.UniverseID)
		return nil
	},
}

func init() {
	branchCmd.Flags().StringVar(&branchName, "name", "", "name for the new universe")
	branchCmd.Flags().StringVar(&branchScene, "scene", "", "branch at this scene")
	branchCmd.Flags().StringSliceVar(&branchStories, "story", nil, "restrict to these stories")
	branchCmd.Flags().StringSliceVar(&branchEntities, "entity", nil, "restrict to these entities")
	branchCmd.Flags().IntVar(&branchMaxSceneIndex, "max-scene-index", 0, "drop scenes beyond this index in every story")
	branchCmd.Flags().StringVar(&branchFactsSince, "facts-since", "", "drop facts recorded before this RFC3339 time")
	branchCmd.Flags().BoolVar(&branchPreview, "preview", false, "report counts without writing")
}
