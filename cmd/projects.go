package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/app"
	"github.com/loomkit/loom/internal/project"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage the project registry",
}

var projectsTemplate string

var projectsCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Register a project, optionally seeding a template scaffold",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsCreate,
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectsList,
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a project and its stored state",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsDelete,
}

func init() {
	projectsCreateCmd.Flags().StringVar(&projectsTemplate, "template", "",
		"scaffold template: "+strings.Join(project.Templates(), ", "))
	projectsCmd.AddCommand(projectsCreateCmd, projectsListCmd, projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	p, err := a.Registry.Create(ctx, args[0], projectsTemplate)
	if err != nil {
		return err
	}
	if err := seedTemplate(ctx, a, p); err != nil {
		// Roll the registry entry back so a failed seed does not leave
		// a project with no scaffold behind.
		if delErr := a.Registry.Delete(ctx, p.ID); delErr != nil {
			a.Logger.Error("rollback after seed failure failed", "project_id", p.ID, "error", delErr)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s (id %s)\n", p.Name, p.ID)
	return nil
}

// seedTemplate commits the template scaffold, if any, into the project's
// state store as version 1.
func seedTemplate(ctx context.Context, a *app.App, p project.Project) error {
	seeds, err := project.TemplateArtifacts(p.Template)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return nil
	}

	store, err := a.Pool.Get(p.ID.String())
	if err != nil {
		return err
	}
	if _, err := store.CommitAll(ctx, seeds); err != nil {
		return fmt.Errorf("seeding template %q: %w", p.Template, err)
	}
	return nil
}

func runProjectsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	projects, err := a.Registry.List(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "no projects")
		return nil
	}
	for _, p := range projects {
		name := p.Name
		if p.Template != "" {
			name += " [" + p.Template + "]"
		}
		fmt.Fprintf(out, "%s  %-30s updated %s\n",
			p.ID, name, p.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid project id %q: %w", args[0], err)
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.Registry.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
	return nil
}
