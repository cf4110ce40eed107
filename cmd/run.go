package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"storyreel/internal/ai/component"
	"storyreel/internal/pkg/episodetools"
	episoderepo "storyreel/internal/repository/episode"
	episodesvc "storyreel/internal/service/episode"
)

const generatorSystemPrompt = "You write concise, concrete prompts for a text-to-video model. " +
	"Keep characters, wardrobe, lighting and location consistent with the details you are given."

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the continuity pipeline for a stored episode",
	Long: `Load an episode from MongoDB, segment it (when it has no segments yet or
--resegment is set), then generate every segment in order while carrying the
visual state of each segment into the next one. The pipeline report is printed
as JSON.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.String("episode-id", "", "episode ID in the screenplay store")
	flags.Bool("resegment", false, "segment the episode again before running")
	flags.Int("from", 1, "resume from this segment number using the cached snapshot of the previous one")
	flags.StringP("output", "o", "", "write the report to this file instead of stdout")
	flags.String("style", "", "visual style for generation (default: pipeline.style)")
	addSegmentFlags(runCmd)
	_ = runCmd.MarkFlagRequired("episode-id")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	episodeID, _ := flags.GetString("episode-id")
	resegment, _ := flags.GetBool("resegment")
	from, _ := flags.GetInt("from")
	outPath, _ := flags.GetString("output")
	style := c.Pipeline.Style
	if flags.Changed("style") {
		style, _ = flags.GetString("style")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := connectMongo(ctx, c)
	if err != nil {
		return err
	}
	defer client.Close(context.Background())

	db := client.Database()
	segmentRepo := episoderepo.NewSegmentRepo(db)
	svc := episodesvc.NewSegmentationService(episoderepo.NewEpisodeRepo(db), segmentRepo, newSegmenter(c))

	segments, err := svc.GetSegments(ctx, episodeID)
	if err != nil {
		return err
	}
	if resegment || len(segments) == 0 {
		result, err := svc.SegmentEpisode(ctx, episodeID, segmentOptions(cmd, c))
		if err != nil {
			return err
		}
		segments = result.Segments
	}

	llm, err := component.NewLLMProvider(ctx, &c.AI, generatorSystemPrompt)
	if err != nil {
		return err
	}
	extractLLM, err := component.NewLLMProvider(ctx, &c.AI, "")
	if err != nil {
		return err
	}
	extractor, err := episodetools.NewLLMVisualStateExtractor(extractLLM)
	if err != nil {
		return err
	}

	var snapshotCache episodesvc.SnapshotCache
	if rc := connectRedis(c); rc != nil {
		defer rc.Close()
		snapshotCache = rc
	}

	pipeline := episodesvc.NewPipeline(
		episodetools.NewPromptGenerator(llm),
		extractor,
		segmentRepo,
		snapshotCache,
		episodesvc.PipelineOptions{
			Style:             style,
			AutoCorrect:       c.Continuity.AutoCorrect,
			PlanWithExtractor: c.Continuity.PlanWithExtractor,
		},
	)

	var report *episodesvc.PipelineReport
	if from > 1 {
		report, err = pipeline.ResumeFrom(ctx, episodeID, segments, from)
	} else {
		report, err = pipeline.Run(ctx, episodeID, segments)
	}
	if report != nil {
		log.Info().
			Str("episode_id", episodeID).
			Int("generated", report.Generated).
			Int("failed", report.Failed).
			Int("blocking_issues", report.BlockingIssues).
			Float64("average_score", report.AverageScore).
			Msg("流水线执行完成")

		out, werr := outputWriter(outPath)
		if werr != nil {
			return werr
		}
		defer out.Close()
		if werr := writeJSON(out, report); werr != nil {
			return werr
		}
	}
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}
	return nil
}
