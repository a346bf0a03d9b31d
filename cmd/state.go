package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/artifact"
	"github.com/loomkit/loom/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect project state",
}

var (
	stateProject string
	stateQuery   string
	statePath    string
	stateAll     bool
	stateLimit   int
)

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's artifacts",
	Long: `List a project's artifacts.

Shows the active set by default. --query ranks active artifacts by
semantic similarity, --path shows the full version history of one file,
and --all includes superseded versions.`,
	Args: cobra.NoArgs,
	RunE: runStateList,
}

func init() {
	stateListCmd.Flags().StringVar(&stateProject, "project", "", "project id (required)")
	stateListCmd.Flags().StringVar(&stateQuery, "query", "", "semantic query over active artifacts")
	stateListCmd.Flags().StringVar(&statePath, "path", "", "show version history for one path")
	stateListCmd.Flags().BoolVar(&stateAll, "all", false, "include superseded versions")
	stateListCmd.Flags().IntVar(&stateLimit, "limit", state.DefaultRetrieveLimit, "result cap for --query")
	_ = stateListCmd.MarkFlagRequired("project")
	stateCmd.AddCommand(stateListCmd)
	rootCmd.AddCommand(stateCmd)
}

func runStateList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	id, err := uuid.Parse(stateProject)
	if err != nil {
		return fmt.Errorf("invalid project id %q: %w", stateProject, err)
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	p, err := a.Registry.Get(ctx, id)
	if err != nil {
		return err
	}
	store, err := a.Pool.Get(p.ID.String())
	if err != nil {
		return err
	}

	var artifacts []artifact.Artifact
	switch {
	case statePath != "":
		artifacts, err = store.History(ctx, statePath)
	case stateQuery != "":
		artifacts, err = store.Retrieve(ctx, state.WithQuery(stateQuery), state.WithLimit(stateLimit))
	case stateAll:
		artifacts, err = store.Artifacts(ctx)
	default:
		artifacts, err = store.Active(ctx)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(artifacts) == 0 {
		fmt.Fprintln(out, "no artifacts")
		return nil
	}
	for _, art := range artifacts {
		status := "active"
		if !art.Active {
			status = "superseded"
		}
		fmt.Fprintf(out, "%-40s v%-3d %-12s %-12s %s\n",
			art.Path, art.Version, art.Ownership, art.Type, status)
	}
	return nil
}
