package cmd

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/recognition"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>...",
	Short: "Recognize enrolled students in images",
	Long: `Recognize enrolled students in one or more images.
With multiple images the per-image matches are merged into a single
attendance list keeping each student's best confidence.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Float64("threshold", 0, "Match threshold override (0 = use MATCH_THRESHOLD)")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	threshold := cfg.Recognition.Threshold
	if t := mustGetFloat64(cmd, "threshold"); t > 0 && t < 1 {
		threshold = t
	}

	engine, _, cleanup, err := buildEngine(cmd.Context(), cfg, threshold)
	if err != nil {
		return err
	}
	defer cleanup()

	bar := progressbar.NewOptions(len(args),
		progressbar.OptionSetDescription("Recognizing faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	results := make([]recognition.Result, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		results = append(results, engine.Recognize(cmd.Context(), data))
		_ = bar.Add(1)
	}
	fmt.Println()

	for i, res := range results {
		if !res.Success {
			fmt.Printf("%s: FAILED (%s)\n", args[i], res.Error)
			continue
		}
		fmt.Printf("%s: %d faces, %d recognized, %d unregistered\n",
			args[i], res.FacesDetected, len(res.Recognized), res.UnregisteredFaces)
		for _, match := range res.Recognized {
			fmt.Printf("  %-15s %-25s confidence %.3f (distance %.3f)\n",
				match.StudentID, match.Name, match.Confidence, match.Distance)
		}
	}

	if len(results) > 1 {
		attendance := recognition.MergeAttendance(results)
		fmt.Printf("\nAttendance (%d students):\n", len(attendance))
		for _, match := range attendance {
			fmt.Printf("  %-15s %-25s confidence %.3f\n", match.StudentID, match.Name, match.Confidence)
		}
	}

	return nil
}
