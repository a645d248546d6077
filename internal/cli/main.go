package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "reelsmith <script.txt>",
		Short:        "Turn a script into a captioned short-form video",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.Flags().String("out", "out", "Output directory")
	root.Flags().Int("fps", 60, "Output frame rate")
	root.Flags().String("size", "1080x1920", "Output frame size WxH")
	root.Flags().Float64("fade", 0.4, "Crossfade duration in seconds")
	root.Flags().Int("window", 5, "Caption window size in words")
	root.Flags().Int("workers", 6, "Parallel asset workers")
	root.Flags().Bool("publish", false, "Upload the finished video to YouTube")

	// Hidden tuning flag for reproducible renders
	root.Flags().Int64("seed", 0, "Motion plan seed (0 = random)")
	_ = root.Flags().MarkHidden("seed")

	join := &cobra.Command{
		Use:          "join <clip.mp4> [clip.mp4...]",
		Short:        "Chain finished clips with audio+video crossfades",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd, args)
		},
	}
	join.Flags().StringP("output", "o", "joined.mp4", "Output file")
	join.Flags().Float64("fade", 0.5, "Crossfade duration in seconds (negative picks one from clip lengths)")
	join.Flags().Int("fps", 60, "Output frame rate")
	root.AddCommand(join)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
