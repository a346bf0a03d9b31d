package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/orchestrator"
)

var (
	generateProject string
	generatePrompt  string
	generateAllow   []string
	generateDryRun  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one generation request against a project",
	Long: `Run one generation request against a project.

The instruction goes through the full pipeline: context retrieval, prompt
assembly, generation, validation, and commit. --allow restricts which
paths the model may write ("*" allows everything, user-owned files
included); without it, user-owned files are protected. --dry-run prints
the assembled prompt and its cost estimate without calling the model.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateProject, "project", "", "project id (required)")
	generateCmd.Flags().StringVarP(&generatePrompt, "prompt", "p", "", "instruction for the model (required)")
	generateCmd.Flags().StringSliceVar(&generateAllow, "allow", nil, "paths the model may write (repeatable)")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "print the assembled prompt without generating")
	_ = generateCmd.MarkFlagRequired("project")
	_ = generateCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	id, err := uuid.Parse(generateProject)
	if err != nil {
		return fmt.Errorf("invalid project id %q: %w", generateProject, err)
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

	req := orchestrator.Request{
		ProjectID:    p.ID.String(),
		Instruction:  generatePrompt,
		AllowedPaths: generateAllow,
	}
	out := cmd.OutOrStdout()

	if generateDryRun {
		prompt, err := a.Orchestrator.Preview(ctx, store, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "tokens: %d  estimated cost: $%.6f\n", prompt.Tokens, prompt.Cost)
		for _, path := range prompt.ContextPaths {
			fmt.Fprintf(out, "context: %s\n", path)
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, prompt.Text)
		return nil
	}

	resp, err := a.Orchestrator.Run(ctx, store, req)
	if err != nil {
		return err
	}
	if err := a.Registry.Touch(ctx, p.ID); err != nil {
		a.Logger.Warn("recording project activity failed", "project_id", p.ID, "error", err)
	}

	fmt.Fprintf(out, "request %s committed %d artifact(s) in %s\n",
		resp.RequestID, len(resp.Artifacts), resp.Elapsed.Round(time.Millisecond))
	for _, art := range resp.Artifacts {
		fmt.Fprintf(out, "  %s v%d (%s)\n", art.Path, art.Version, art.Type)
	}
	return nil
}
