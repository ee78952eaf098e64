package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"labanalyzer/internal/charts"
	"labanalyzer/internal/config"
	"labanalyzer/pkg/contracts/events"
)

// BundleOptions selects what ExportBundle writes besides the CSV files
type BundleOptions struct {
	Workbook bool
	Charts   bool
}

// ExportBundle writes the session's exports into dir: the raw data CSV, the
// growth CSV when results exist, and optionally the workbook and every
// chart that has data. A relative dir is placed under the exports directory.
// Files are rendered concurrently; the written paths are returned sorted.
func (s *AnalysisService) ExportBundle(ctx context.Context, id, dir string, opts BundleOptions) (paths []string, err error) {
	defer s.observe(ctx, "export_bundle", s.clock(), &err)

	data, err := s.workbookData(id)
	if err != nil {
		return nil, err
	}
	in, err := s.chartInput(id)
	if err != nil {
		return nil, err
	}
	dir = s.csv.ResolvePath(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	var mu sync.Mutex
	written := func(p string) {
		mu.Lock()
		paths = append(paths, p)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.csv.ExportDataset(filepath.Join(dir, config.RawDataCSVName), data.Dataset)
		if err != nil {
			return err
		}
		written(p)
		return nil
	})

	if len(data.Results) > 0 {
		g.Go(func() error {
			p, err := s.csv.ExportGrowth(filepath.Join(dir, config.GrowthCSVName), data.Results)
			if err != nil {
				return err
			}
			written(p)
			return nil
		})
	}

	if opts.Workbook {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := filepath.Join(dir, config.WorkbookName)
			if err := s.workbook.WriteFile(p, data); err != nil {
				return err
			}
			written(p)
			return nil
		})
	}

	if opts.Charts {
		for _, kind := range charts.Kinds() {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				p, err := s.writeChart(dir, kind, in)
				if errors.Is(err, charts.ErrNoData) {
					s.logger.DebugContext(gctx, "chart skipped, nothing to plot", slog.String("kind", string(kind)))
					return nil
				}
				if err != nil {
					return err
				}
				written(p)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		s.publishFailure(ctx, id, "Export failed", err)
		return nil, err
	}

	sort.Strings(paths)
	s.logger.InfoContext(ctx, "export bundle written",
		slog.String("session_id", id),
		slog.String("dir", dir),
		slog.Int("files", len(paths)))
	s.publish(ctx, events.New(events.MessageTypeExportReady, events.LevelSuccess,
		fmt.Sprintf("Exported %d files to %s", len(paths), dir)).ForSession(id).WithData(paths))
	return paths, nil
}

func (s *AnalysisService) writeChart(dir string, kind charts.Kind, in charts.Input) (path string, err error) {
	path = filepath.Join(dir, string(kind)+config.ChartFileSuffix)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := s.charts.Render(f, kind, in); err != nil {
		return "", err
	}
	return path, nil
}
