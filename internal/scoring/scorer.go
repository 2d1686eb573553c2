package scoring

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/speech-coach/internal/alignment"
	"github.com/RyanBlaney/speech-coach/pkg/audio/features"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// ScoreInput carries one attempt into the scorer
type ScoreInput struct {
	Audio          []byte                  // Raw recording forwarded to the external evaluator
	Features       *features.AudioFeatures // nil when the audio could not be decoded
	TextMatch      *alignment.TextMatch
	ReferenceText  string
	RecognizedText string
}

// Scorer combines the optional external evaluator with the local heuristics
type Scorer struct {
	local     *LocalScorer
	evaluator Evaluator
	logger    logging.Logger
}

// NewScorer creates a scorer; evaluator may be nil
func NewScorer(local *LocalScorer, evaluator Evaluator, logger logging.Logger) *Scorer {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if local == nil {
		local = NewLocalScorer(nil, logger)
	}
	return &Scorer{
		local:     local,
		evaluator: evaluator,
		logger:    logger.WithFields(logging.Fields{"component": "scorer"}),
	}
}

// Score always returns a usable result. Provider failures are logged and the
// local path takes over.
func (s *Scorer) Score(ctx context.Context, in *ScoreInput) *ScoreResult {
	if in == nil {
		return DefaultScoreResult()
	}

	localInput := &LocalInput{
		Features:      in.Features,
		TextMatch:     in.TextMatch,
		ReferenceText: in.ReferenceText,
	}

	if !s.useExternal(in) {
		return s.local.Score(localInput)
	}

	var (
		external    *ExternalScore
		externalErr error
		local       *ScoreResult
	)

	// errors are captured per branch so one failing path never cancels the other
	g := new(errgroup.Group)
	g.Go(func() error {
		external, externalErr = s.evaluator.Evaluate(ctx, in.Audio, in.ReferenceText)
		return nil
	})
	g.Go(func() error {
		local = s.local.Score(localInput)
		return nil
	})
	_ = g.Wait()

	if externalErr != nil || external == nil {
		if externalErr == nil {
			externalErr = NewProviderError(s.evaluator.Name(), ErrCodeMalformed, "empty evaluation", false, nil)
		}
		fields := logging.Fields{"provider": s.evaluator.Name(), "error": externalErr.Error()}
		var perr *ProviderError
		if errors.As(externalErr, &perr) {
			fields["code"] = perr.Code
			fields["retryable"] = perr.Retryable
		}
		s.logger.Warn("External evaluation failed, using local scoring", fields)
		return local
	}

	return s.mergeExternal(external, local, in)
}

func (s *Scorer) useExternal(in *ScoreInput) bool {
	if s.evaluator == nil || !s.evaluator.Enabled() {
		return false
	}
	return len(in.Audio) > 0 && strings.TrimSpace(in.ReferenceText) != ""
}

// mergeExternal keeps the external numbers and borrows the local explanations
func (s *Scorer) mergeExternal(ext *ExternalScore, local *ScoreResult, in *ScoreInput) *ScoreResult {
	result := &ScoreResult{
		Score:            clampInt(ext.Score, 5, 100),
		Accuracy:         clampInt(ext.Accuracy, 0, 100),
		Fluency:          clampInt(ext.Fluency, 0, 100),
		Completeness:     clampInt(ext.Completeness, 0, 100),
		Issues:           []Issue{},
		PositiveFeedback: []Issue{},
		Source:           SourceExternal,
		Provider:         s.evaluator.Name(),
	}

	// Issues come from the local analysis only; low provider sub-scores
	// are reported through Accuracy and Fluency, not as issues
	if strings.TrimSpace(in.RecognizedText) != "" && local != nil {
		result.Issues = SortIssues(append(result.Issues, local.Issues...))
		result.PositiveFeedback = append(result.PositiveFeedback, local.PositiveFeedback...)
		result.Metrics = local.Metrics
	}

	s.logger.Debug("External score accepted", logging.Fields{
		"provider": result.Provider,
		"score":    result.Score,
		"issues":   len(result.Issues),
	})

	return result
}
