package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/store"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Manage the identity registry",
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled students",
	RunE:  runStudentsList,
}

var studentsRemoveCmd = &cobra.Command{
	Use:   "remove <student-id>",
	Short: "Remove a student from the registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentsRemove,
}

var studentsDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Audit the registry for duplicate enrollments",
	Long: `Audit the registry for near-identical face profiles, usually the same
person enrolled under two student IDs.`,
	RunE: runStudentsDuplicates,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsListCmd)
	studentsCmd.AddCommand(studentsRemoveCmd)
	studentsCmd.AddCommand(studentsDuplicatesCmd)

	studentsListCmd.Flags().String("query", "", "Filter by name or student ID (diacritics-insensitive)")
	studentsDuplicatesCmd.Flags().Float64("max-distance", constants.DuplicateAuditDistance,
		"Cosine distance below which two profiles count as duplicates")
}

// loadRegistry builds and loads the registry for registry-only commands
// (no model service needed).
func loadRegistry(cmd *cobra.Command, cfg *config.Config) (store.Registry, func(), error) {
	registry, cleanup, err := buildRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := registry.Load(cmd.Context()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("loading identity registry: %w", err)
	}
	return registry, cleanup, nil
}

func runStudentsList(cmd *cobra.Command, args []string) error {
	registry, cleanup, err := loadRegistry(cmd, config.Load())
	if err != nil {
		return err
	}
	defer cleanup()

	summaries, err := registry.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing students: %w", err)
	}

	query := mustGetString(cmd, "query")
	shown := 0
	for _, s := range summaries {
		if !store.MatchesQuery(s, query) {
			continue
		}
		fmt.Printf("%-15s %s\n", s.StudentID, s.Name)
		shown++
	}
	fmt.Printf("\n%d students\n", shown)
	return nil
}

func runStudentsRemove(cmd *cobra.Command, args []string) error {
	registry, cleanup, err := loadRegistry(cmd, config.Load())
	if err != nil {
		return err
	}
	defer cleanup()

	studentID := store.NormalizeStudentID(args[0])
	if err := registry.Remove(cmd.Context(), studentID); err != nil {
		return fmt.Errorf("removing %s: %w", studentID, err)
	}

	fmt.Printf("Removed %s\n", studentID)
	return nil
}

func runStudentsDuplicates(cmd *cobra.Command, args []string) error {
	registry, cleanup, err := loadRegistry(cmd, config.Load())
	if err != nil {
		return err
	}
	defer cleanup()

	maxDistance := mustGetFloat64(cmd, "max-distance")
	pairs, err := store.FindDuplicates(cmd.Context(), registry, maxDistance)
	if err != nil {
		return fmt.Errorf("duplicate audit: %w", err)
	}

	if len(pairs) == 0 {
		fmt.Println("No duplicate enrollments found")
		return nil
	}

	fmt.Printf("%d suspicious pairs:\n", len(pairs))
	for _, p := range pairs {
		fmt.Printf("  %s (%s) ~ %s (%s)  distance %.4f\n",
			p.StudentIDA, p.NameA, p.StudentIDB, p.NameB, p.Distance)
	}
	return nil
}
