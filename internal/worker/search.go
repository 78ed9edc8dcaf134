package worker

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/packedit/pkg/formats"
	"github.com/Faultbox/packedit/pkg/schema"
	"github.com/Faultbox/packedit/pkg/table"
)

// globalSearch decodes and searches every table file of the PackFile, a bounded
// number at a time. Files without a definition are skipped and counted.
func (w *Worker) globalSearch(ctx context.Context, req GlobalSearch) (GlobalSearchResp, error) {
	// A bad pattern would otherwise fail every file and look like a search with no hits.
	if req.Regex {
		if _, err := regexp.Compile(req.Pattern); err != nil {
			return GlobalSearchResp{}, fmt.Errorf("invalid pattern %q: %w", req.Pattern, err)
		}
	}

	var paths []string
	for _, p := range w.archive.List() {
		if kind, _ := formats.KindFromPath(p); kind != schema.KindUnknown {
			paths = append(paths, p)
		}
	}

	results := make([][]GlobalMatch, len(paths))
	skipped := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.app.Config.Worker.SearchParallelism)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matches, err := w.searchFile(p, req)
			if err != nil {
				w.log.Debug("global search skipped file", zap.String("path", p), zap.Error(err))
				skipped[i] = true
				return nil
			}
			results[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return GlobalSearchResp{}, err
	}

	var resp GlobalSearchResp
	for i := range paths {
		resp.Matches = append(resp.Matches, results[i]...)
		if skipped[i] {
			resp.Skipped++
		}
	}
	w.log.Info("global search",
		zap.String("pattern", req.Pattern),
		zap.Int("files", len(paths)),
		zap.Int("matches", len(resp.Matches)),
		zap.Int("skipped", resp.Skipped))
	return resp, nil
}

func (w *Worker) searchFile(path string, req GlobalSearch) ([]GlobalMatch, error) {
	data, err := w.archive.Read(path)
	if err != nil {
		return nil, err
	}
	tb, _, err := w.app.OpenTable(path, data)
	if err != nil {
		return nil, err
	}
	if _, err := tb.Find(table.Query{
		Pattern:       req.Pattern,
		Column:        -1,
		CaseSensitive: req.CaseSensitive,
		Regex:         req.Regex,
	}); err != nil {
		return nil, err
	}

	def := tb.Definition()
	var out []GlobalMatch
	for _, m := range tb.Matches() {
		cell, err := tb.Cell(m.Pos.Row, m.Pos.Col)
		if err != nil {
			return nil, err
		}
		out = append(out, GlobalMatch{
			Path:  path,
			Row:   m.Pos.Row,
			Col:   m.Pos.Col,
			Field: def.Fields[m.Pos.Col].Name,
			Text:  cell.Value.String(),
		})
	}
	return out, nil
}
