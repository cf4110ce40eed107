package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storyreel/internal/model/episode"
	"storyreel/internal/pkg/screenplayfile"
	episoderepo "storyreel/internal/repository/episode"
	episodesvc "storyreel/internal/service/episode"
)

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Split a screenplay file into video-generation segments",
	Long: `Read an episode (or a bare screenplay) from a JSON/YAML file, split it into
3-15 second segments and print the segmentation result as JSON.
With --save the screenplay and segments are also written to MongoDB.`,
	RunE: runSegment,
}

func init() {
	rootCmd.AddCommand(segmentCmd)

	flags := segmentCmd.Flags()
	flags.StringP("file", "f", "", "episode file (.json/.yaml/.yml)")
	flags.StringP("output", "o", "", "write the result to this file instead of stdout")
	flags.Bool("save", false, "save the screenplay and segments to MongoDB")
	addSegmentFlags(segmentCmd)
	_ = segmentCmd.MarkFlagRequired("file")
}

func runSegment(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("file")
	outPath, _ := cmd.Flags().GetString("output")
	save, _ := cmd.Flags().GetBool("save")

	ep, err := screenplayfile.Load(path)
	if err != nil {
		return err
	}
	opts := segmentOptions(cmd, c)

	var result *episode.SegmentationResult
	if save {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := connectMongo(ctx, c)
		if err != nil {
			return err
		}
		defer client.Close(context.Background())

		db := client.Database()
		svc := episodesvc.NewSegmentationService(episoderepo.NewEpisodeRepo(db), episoderepo.NewSegmentRepo(db), newSegmenter(c))
		result, err = svc.ImportAndSegment(ctx, ep, opts)
		if err != nil {
			return fmt.Errorf("segment episode %s: %w", ep.ID, err)
		}
	} else {
		result, err = newSegmenter(c).Segment(ep, opts)
		if err != nil {
			return fmt.Errorf("segment episode %s: %w", ep.ID, err)
		}
	}

	out, err := outputWriter(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	return writeJSON(out, result)
}
