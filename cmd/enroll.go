package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <student-id> <name> <image>...",
	Short: "Enroll a student from face images",
	Long: `Enroll a student into the identity registry from face photos.
At least two images must contain a usable face. Re-enrolling an existing
student ID replaces the stored face profile.

Example:
  face-attend enroll MIT2025001 "Jana Novakova" front.jpg side.jpg`,
	Args: cobra.MinimumNArgs(3),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	engine, _, cleanup, err := buildEngine(cmd.Context(), cfg, cfg.Recognition.Threshold)
	if err != nil {
		return err
	}
	defer cleanup()

	studentID := args[0]
	name := args[1]
	paths := args[2:]

	images := make([][]byte, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		images = append(images, data)
	}

	if err := engine.Enroll(cmd.Context(), studentID, name, images); err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}

	fmt.Printf("Enrolled %s (%s) from %d images\n", studentID, name, len(images))
	return nil
}
