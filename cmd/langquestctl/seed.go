package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/langquest/langquest-core/internal/infrastructure/persistence/postgres"
	"github.com/langquest/langquest-core/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import a course from a YAML content file",
	Example: "  langquestctl seed --file content/spanish.yaml\n" +
		"  langquestctl seed --file content/spanish.yaml --dry-run",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		tree, err := parseCourse(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		stats := statsOf(tree)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d units, %d lessons, %d challenges, %d options\n",
			tree.Course.Title, stats.Units, stats.Lessons, stats.Challenges, stats.Options)
		if dryRun {
			return nil
		}

		conn, log, err := connect(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer conn.Close()

		id, err := postgres.NewCourseRepository(conn).ImportCourse(cmd.Context(), tree)
		if err != nil {
			return err
		}
		log.Info("course imported", logger.CourseID(id), logger.String("file", path))
		fmt.Fprintf(out, "imported course %d\n", id)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringP("file", "f", "", "YAML content file")
	seedCmd.Flags().Bool("dry-run", false, "Validate the file without touching the database")
	_ = seedCmd.MarkFlagRequired("file")
}
