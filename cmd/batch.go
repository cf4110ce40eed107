package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"storyreel/internal/pkg/screenplayfile"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Segment every episode file in a directory",
	Long: `Segment all .json/.yaml/.yml episode files in a directory concurrently.
Each result is written to <out-dir>/<episode_id>.segments.json and a summary
is printed as JSON.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	flags := batchCmd.Flags()
	flags.StringP("dir", "d", "", "directory of episode files")
	flags.String("out-dir", "", "directory for segmentation results (default: same as --dir)")
	flags.IntP("concurrency", "j", 0, "episodes processed in parallel (default: pipeline.batch_concurrency)")
	addSegmentFlags(batchCmd)
	_ = batchCmd.MarkFlagRequired("dir")
}

// batchItem batch 汇总中的一行
type batchItem struct {
	File          string  `json:"file"`
	EpisodeID     string  `json:"episode_id"`
	SegmentCount  int     `json:"segment_count"`
	TotalDuration float64 `json:"total_duration"`
	Output        string  `json:"output"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("dir")
	outDir, _ := cmd.Flags().GetString("out-dir")
	if outDir == "" {
		outDir = dir
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = c.Pipeline.BatchConcurrency
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	paths, err := screenplayfile.List(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := segmentOptions(cmd, c)
	segmenter := newSegmenter(c)
	items := make([]batchItem, len(paths))

	// 剧集之间相互独立，每个剧集内部仍是顺序分段
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	var mu sync.Mutex
	seen := make(map[string]string)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ep, err := screenplayfile.Load(path)
			if err != nil {
				return err
			}
			mu.Lock()
			if other, dup := seen[ep.ID]; dup {
				mu.Unlock()
				return fmt.Errorf("episode id %s appears in both %s and %s", ep.ID, other, path)
			}
			seen[ep.ID] = path
			mu.Unlock()

			result, err := segmenter.Segment(ep, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			outPath := filepath.Join(outDir, ep.ID+".segments.json")
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := writeJSON(f, result); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			items[i] = batchItem{
				File:          path,
				EpisodeID:     ep.ID,
				SegmentCount:  result.SegmentCount,
				TotalDuration: result.TotalDuration,
				Output:        outPath,
			}
			log.Info().Str("episode_id", ep.ID).Int("segment_count", result.SegmentCount).Msg("剧集分段完成")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), items)
}
