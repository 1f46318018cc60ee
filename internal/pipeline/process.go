package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/veridose/boxscan/internal/decision"
	"github.com/veridose/boxscan/internal/detector"
	"github.com/veridose/boxscan/internal/feature"
	"github.com/veridose/boxscan/internal/match"
)

// ErrDetectionFailed is the only whole-image failure. Everything after
// detection is contained at the region boundary.
var ErrDetectionFailed = errors.New("pipeline: region detection failed")

type regionJob struct {
	index  int
	region detector.Region
}

type regionOutcome struct {
	index  int
	result RegionResult
}

// Process runs the full pipeline over one image. Regions are processed
// concurrently over a bounded worker pool and aggregated in original
// region order, so output is deterministic for a given input. Regions
// canceled mid-flight are omitted from the result. The session may be
// nil when no statistics are wanted.
func (p *Pipeline) Process(ctx context.Context, img image.Image, session *Session) (*MultiDrugResult, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrDetectionFailed)
	}
	start := time.Now()

	regions, err := p.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectionFailed, err)
	}
	slog.Debug("Detected regions", "count", len(regions))

	outcomes := p.processRegions(ctx, regions)

	// Aggregate in original region order. Canceled regions have no
	// outcome and are skipped.
	results := make([]RegionResult, 0, len(regions))
	for i := range regions {
		if out, ok := outcomes[i]; ok {
			results = append(results, out)
		}
	}

	res := aggregate(results)
	res.Source = p.cfg.Source
	res.DurationMS = time.Since(start).Milliseconds()
	if session != nil {
		res.SessionID = session.ID
		session.recordScan(res)
	}
	return res, nil
}

// processRegions fans the regions out over the worker pool and collects
// finished outcomes keyed by region index.
func (p *Pipeline) processRegions(ctx context.Context, regions []detector.Region) map[int]RegionResult {
	workers := p.cfg.Workers
	if workers > len(regions) {
		workers = len(regions)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan regionJob, len(regions))
	out := make(chan regionOutcome, len(regions))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job, ok := <-jobs:
					if !ok {
						return
					}
					result := p.processRegion(ctx, job.region)
					select {
					case out <- regionOutcome{index: job.index, result: result}:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for i, region := range regions {
		jobs <- regionJob{index: i, region: region}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(out)
	}()

	outcomes := make(map[int]RegionResult, len(regions))
	for o := range out {
		// A canceled region never reaches the output; a region that
		// finished before cancellation is kept.
		if ctx.Err() != nil && o.result.RegionID == "" {
			continue
		}
		outcomes[o.index] = o.result
	}
	return outcomes
}

// processRegion runs extraction, recovery, visual lookup, matching, and
// decision for one region. Every failure is contained here and recorded
// on the result.
func (p *Pipeline) processRegion(ctx context.Context, region detector.Region) RegionResult {
	start := time.Now()
	result := RegionResult{
		RegionID:  region.ID,
		Index:     region.Index,
		Box:       [4]int{int(region.Box.MinX), int(region.Box.MinY), int(region.Box.Width()), int(region.Box.Height())},
		Condition: region.Condition,
	}
	defer func() {
		result.DurationMS = time.Since(start).Milliseconds()
	}()

	extracted, extractErr := p.extractor.Extract(ctx, region.Image)
	result.Extracted = extracted
	if extractErr != nil && ctx.Err() != nil {
		// Canceled regions are dropped by the collector.
		return RegionResult{}
	}

	vec := p.fingerprint(region)
	visualMatch, visualOK, indexDown := p.visualLookup(ctx, vec)
	if indexDown {
		result.Failure = FailureIndexUnavailable
	}
	result.VisualHit = visualOK

	// Pick the text to match. Extraction failures and damaged or
	// low-quality text go through recovery.
	key := extracted.Normalized
	if extractErr != nil {
		result.Failure = FailureExtraction
	}
	if extractErr != nil || p.recovery.NeedsRecovery(extracted, region.Condition) {
		recovered, recErr := p.recovery.Recover(ctx, extracted.Raw, vec)
		if recErr != nil && ctx.Err() != nil {
			return RegionResult{}
		}
		result.Recovered = &recovered
		if recovered.Succeeded() {
			key = recovered.Recovered
		} else if result.Failure == FailureNone && !p.extractor.Usable(extracted) {
			// Original text still flows downstream, flagged low quality.
			// A damaged-looking box whose text cleared the quality floor
			// is not flagged; matching proceeds on the original text.
			result.Failure = FailureRecovery
		}
	}

	candidates, matchErr := p.matcher.Match(ctx, key)
	if matchErr != nil {
		if ctx.Err() != nil {
			return RegionResult{}
		}
		candidates = nil
	}
	candidates = p.confirmVisually(candidates, visualMatch, visualOK)

	visualDisagrees := visualOK && len(candidates) > 0 &&
		!sameCatalogEntry(candidates[0], visualMatch)

	verdict := p.decider.Decide(decision.Input{
		Candidates:      candidates,
		VisualDisagrees: visualDisagrees,
	})
	result.Candidates = verdict.Candidates
	result.Best = verdict.Selected
	if result.Best == nil && len(verdict.Candidates) > 0 {
		result.Best = &verdict.Candidates[0]
	}
	result.Action = verdict.Action
	if len(verdict.Candidates) == 0 && result.Failure == FailureNone {
		result.Failure = FailureNoMatch
	}
	return result
}

// fingerprint computes the region's visual descriptor. Failures just
// disable visual features for the region.
func (p *Pipeline) fingerprint(region detector.Region) feature.Vector {
	if p.visual == nil {
		return feature.Vector{}
	}
	vec, err := feature.Extract(region.Image)
	if err != nil {
		slog.Debug("Fingerprint extraction failed", "region", region.ID, "error", err)
		return feature.Vector{}
	}
	return vec
}

// visualLookup queries the index with its own timeout. The third return
// reports whether the index itself failed.
func (p *Pipeline) visualLookup(ctx context.Context, vec feature.Vector) (feature.Match, bool, bool) {
	if p.visual == nil || vec.IsZero() {
		return feature.Match{}, false, false
	}
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.VisualTimeout)
	defer cancel()

	matches, err := p.visual.Search(callCtx, vec, 1)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Visual index unavailable", "error", err)
		}
		return feature.Match{}, false, true
	}
	if len(matches) == 0 {
		return feature.Match{}, false, false
	}
	return matches[0], true, false
}

// confirmVisually flags text candidates that the visual index agrees
// with.
func (p *Pipeline) confirmVisually(candidates []match.Candidate, visual feature.Match, ok bool) []match.Candidate {
	if !ok {
		return candidates
	}
	for i := range candidates {
		if sameCatalogEntry(candidates[i], visual) {
			candidates[i].VisualConfirmed = true
		}
	}
	return candidates
}

func sameCatalogEntry(c match.Candidate, visual feature.Match) bool {
	return visual.Record.DrugID != "" && visual.Record.DrugID == c.Entry.ID
}

// ApplyCorrection forwards an operator correction. Nothing changes
// in-process; the catalog and feature store owners absorb corrections
// asynchronously.
func (p *Pipeline) ApplyCorrection(ctx context.Context, session *Session, c Correction) error {
	rec := c.toRecord()
	if session != nil {
		rec.SessionID = session.ID
	}
	if err := p.forwarder.Forward(ctx, rec); err != nil {
		return fmt.Errorf("forward correction: %w", err)
	}
	session.recordCorrection()
	return nil
}
