// Package training fits the candidate classifiers on a labeled dataset,
// selects one by recall and persists the results.
package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/abhisek/atrisk/internal/artifact"
	"github.com/abhisek/atrisk/internal/dataset"
	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/ml"
)

// variant is one candidate model family.
type variant struct {
	name    string
	factory ml.Factory
}

// ModelResult is one trained candidate and its held-out metrics.
type ModelResult struct {
	Name    string
	Model   ml.Classifier
	Metrics ml.Metrics
}

// Result is the outcome of a training run.
type Result struct {
	RunID        string
	TrainedAt    time.Time
	Models       []ModelResult // training order
	Selected     int
	Scaler       *ml.Scaler
	Importance   []artifact.Importance // descending
	Rows         int
	TrainRows    int
	TestRows     int
	BalancedRows int
}

// Best returns the selected candidate.
func (r *Result) Best() ModelResult {
	return r.Models[r.Selected]
}

// Pipeline trains and persists models.
type Pipeline struct {
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a pipeline.
func New(cfg Config, logger zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger, now: time.Now}
}

func (p *Pipeline) variants() []variant {
	seed := p.cfg.Seed
	return []variant{
		{artifact.NameLogistic, func() ml.Classifier { return ml.NewLogistic() }},
		{artifact.NameTree, func() ml.Classifier { return ml.NewTree(seed) }},
		{artifact.NameForest, func() ml.Classifier {
			f := ml.NewForest(seed)
			f.NTrees = p.cfg.ForestTrees
			return f
		}},
	}
}

// matrix converts records into a feature matrix and 0/1 risk targets.
func matrix(recs []features.Record) (*mat.Dense, []float64) {
	X := mat.NewDense(len(recs), features.Count, nil)
	y := make([]float64, len(recs))
	for i, r := range recs {
		X.SetRow(i, r.Values[:])
		y[i] = float64(r.Risk())
	}
	return X, y
}

func insufficient(reason string, err error) error {
	return &InsufficientDataError{Reason: reason, Err: err}
}

// Train fits every candidate on ds and evaluates it on a stratified
// held-out split. It writes nothing.
func (p *Pipeline) Train(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("training config: %w", err)
	}

	labeled := ds.Labeled()
	if labeled.Len() == 0 {
		return nil, insufficient("no labeled records", nil)
	}
	labeled.ImputeMeans()
	for _, rec := range labeled.Records {
		if missing := rec.Values.MissingFeatures(); len(missing) > 0 {
			return nil, insufficient(fmt.Sprintf("no values for %v", missing), nil)
		}
	}

	res := &Result{RunID: uuid.NewString(), TrainedAt: p.now(), Rows: labeled.Len()}
	noRisk, atRisk := labeled.ClassCounts()
	log := p.logger.With().Str("run", res.RunID).Logger()
	log.Info().Int("rows", res.Rows).Int("no_risk", noRisk).Int("at_risk", atRisk).Msg("training started")

	X, y := matrix(labeled.Records)
	r := rand.New(rand.NewPCG(p.cfg.Seed, p.cfg.Seed))

	trainIdx, testIdx, err := ml.StratifiedSplit(y, p.cfg.TestFraction, r)
	if err != nil {
		return nil, insufficient("cannot split by class", err)
	}
	Xtrain, ytrain := ml.SelectRows(X, trainIdx), ml.SelectLabels(y, trainIdx)
	Xtest, ytest := ml.SelectRows(X, testIdx), ml.SelectLabels(y, testIdx)
	res.TrainRows, res.TestRows = len(trainIdx), len(testIdx)

	res.Scaler = ml.FitScaler(Xtrain)
	Xtrain = res.Scaler.Transform(Xtrain)
	Xtest = res.Scaler.Transform(Xtest)

	Xbal, ybal, err := p.cfg.SMOTE.Resample(Xtrain, ytrain, r)
	if err != nil {
		return nil, insufficient("cannot oversample minority class", err)
	}
	if Xbal == Xtrain {
		Xbal = mat.DenseCopyOf(Xtrain)
	}
	ml.AddNoise(Xbal, p.cfg.NoiseStd, r)
	res.BalancedRows = len(ybal)
	log.Debug().Int("train", res.TrainRows).Int("test", res.TestRows).Int("balanced", res.BalancedRows).Msg("data prepared")

	for _, v := range p.variants() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		model := v.factory()
		if err := model.Fit(Xbal, ybal); err != nil {
			return nil, fmt.Errorf("train %s: %w", v.name, err)
		}
		m := ml.Evaluate(ytest, model.PredictProba(Xtest), p.cfg.EvalThreshold)
		cvRand := rand.New(rand.NewPCG(p.cfg.Seed, uint64(len(res.Models))))
		m.CVMean, m.CVStd, err = ml.CrossValidate(v.factory, Xbal, ybal, p.cfg.CVFolds, cvRand)
		if err != nil {
			return nil, fmt.Errorf("cross-validate %s: %w", v.name, err)
		}
		res.Models = append(res.Models, ModelResult{Name: v.name, Model: model, Metrics: m})
		log.Info().
			Str("model", v.name).
			Float64("accuracy", m.Accuracy).
			Float64("recall", m.Recall).
			Float64("f1", m.F1).
			Float64("roc_auc", m.ROCAUC).
			Float64("cv_mean", m.CVMean).
			Msg("model trained")
	}

	res.Selected = selectBest(res.Models)
	res.Importance = importance(res.Models)
	log.Info().Str("selected", res.Best().Name).Msg("training finished")
	return res, nil
}

// selectBest picks the highest recall, then the highest F1, then the
// earliest trained.
func selectBest(models []ModelResult) int {
	best := 0
	for i := 1; i < len(models); i++ {
		a, b := models[i].Metrics, models[best].Metrics
		if a.Recall > b.Recall || (a.Recall == b.Recall && a.F1 > b.F1) {
			best = i
		}
	}
	return best
}

// importance ranks features by the forest's impurity decrease.
func importance(models []ModelResult) []artifact.Importance {
	var scores []float64
	for _, m := range models {
		if f, ok := m.Model.(*ml.Forest); ok {
			scores = f.FeatureImportance()
		}
	}
	if scores == nil {
		return nil
	}
	out := make([]artifact.Importance, len(scores))
	for i, s := range scores {
		if math.IsNaN(s) {
			s = 0
		}
		out[i] = artifact.Importance{Feature: string(features.At(i).Name), Score: s}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// Save persists every candidate under its own name, the selected one
// again under the canonical name, and the comparison and importance tables.
func (p *Pipeline) Save(dir artifact.Dir, res *Result) error {
	if res == nil || len(res.Models) == 0 {
		return errors.New("nothing to save")
	}
	pairs := make([]*artifact.Pair, 0, len(res.Models)+1)
	rows := make([]artifact.Comparison, 0, len(res.Models))
	for i, m := range res.Models {
		pairs = append(pairs, artifact.NewPair(m.Name, m.Model, res.Scaler, res.TrainedAt))
		rows = append(rows, artifact.Comparison{Model: m.Name, Selected: i == res.Selected, Metrics: m.Metrics})
	}
	pairs = append(pairs, artifact.NewPair(artifact.CanonicalName, res.Best().Model, res.Scaler, res.TrainedAt))

	cmp, err := artifact.EncodeComparison(rows)
	if err != nil {
		return err
	}
	imp, err := artifact.EncodeImportance(res.Importance)
	if err != nil {
		return err
	}
	if err := dir.SaveAll(pairs, map[string][]byte{
		artifact.ComparisonFile: cmp,
		artifact.ImportanceFile: imp,
	}); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}
	p.logger.Info().Str("dir", dir.Path).Int("pairs", len(pairs)).Msg("artifacts saved")
	return nil
}

// Run trains on ds and saves the result to dir. On any failure nothing is
// written.
func (p *Pipeline) Run(ctx context.Context, ds *dataset.Dataset, dir artifact.Dir) (*Result, error) {
	res, err := p.Train(ctx, ds)
	if err != nil {
		return nil, err
	}
	if err := p.Save(dir, res); err != nil {
		return nil, err
	}
	return res, nil
}
