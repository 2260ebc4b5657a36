// Package artifact persists trained model/scaler pairs and the training
// reports next to them.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/abhisek/atrisk/internal/features"
	"github.com/abhisek/atrisk/internal/ml"
)

// FormatVersion is written into every artifact. Files whose major version
// differs are refused.
const FormatVersion = "v1.0.0"

// DefaultDir is the artifact directory unless configured.
const DefaultDir = "models"

// CanonicalName is the pair inference loads by default. It always holds the
// selected model, whichever family that is.
const CanonicalName = "random_forest"

// Pair names for the individual model families.
const (
	NameLogistic = "logistic_regression"
	NameTree     = "decision_tree"
	NameForest   = "random_forest_ensemble"
)

// ErrModelNotTrained is returned when no usable pair exists.
var ErrModelNotTrained = errors.New("model not trained")

// Pair is a classifier together with the scaler it was trained behind.
type Pair struct {
	Name      string
	ID        string
	Variant   ml.Kind
	TrainedAt time.Time
	Features  []string
	Model     ml.Classifier
	Scaler    *ml.Scaler
}

// NewPair stamps a fresh pair ID on a trained model and scaler.
func NewPair(name string, model ml.Classifier, scaler *ml.Scaler, trainedAt time.Time) *Pair {
	return &Pair{
		Name:      name,
		ID:        uuid.NewString(),
		Variant:   model.Kind(),
		TrainedAt: trainedAt.UTC(),
		Features:  features.Names(),
		Model:     model,
		Scaler:    scaler,
	}
}

// header is common to both halves of a pair.
type header struct {
	FormatVersion string    `json:"format_version"`
	PairID        string    `json:"pair_id"`
	Name          string    `json:"name"`
	TrainedAt     time.Time `json:"trained_at"`
	Features      []string  `json:"features"`
}

type modelFile struct {
	header
	Variant ml.Kind         `json:"variant"`
	Model   json.RawMessage `json:"model"`
}

type scalerFile struct {
	header
	Scaler *ml.Scaler `json:"scaler"`
}

// Dir is an artifact directory.
type Dir struct {
	Path string
}

// NewDir returns the artifact directory at path.
func NewDir(path string) Dir {
	if path == "" {
		path = DefaultDir
	}
	return Dir{Path: path}
}

func (d Dir) modelPath(name string) string {
	return filepath.Join(d.Path, name+"_model.json")
}

func (d Dir) scalerPath(name string) string {
	return filepath.Join(d.Path, name+"_scaler.json")
}

// Save writes the pair, replacing any pair with the same name.
func (d Dir) Save(p *Pair) error {
	return d.SaveAll([]*Pair{p}, nil)
}

// SaveAll writes pairs and extra report files into the directory. Every
// file is staged first and only renamed into place once all of them have
// been written.
func (d Dir) SaveAll(pairs []*Pair, extra map[string][]byte) error {
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	staging, err := os.MkdirTemp(d.Path, ".staging-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	files := map[string][]byte{}
	for _, p := range pairs {
		mf, sf, err := encodePair(p)
		if err != nil {
			return err
		}
		files[filepath.Base(d.modelPath(p.Name))] = mf
		files[filepath.Base(d.scalerPath(p.Name))] = sf
	}
	for name, data := range extra {
		files[name] = data
	}

	names := make([]string, 0, len(files))
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(staging, name), data, 0o644); err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(d.Path, name)); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
	}
	return nil
}

func encodePair(p *Pair) (model, scaler []byte, err error) {
	body, err := ml.EncodeClassifier(p.Model)
	if err != nil {
		return nil, nil, err
	}
	h := header{
		FormatVersion: FormatVersion,
		PairID:        p.ID,
		Name:          p.Name,
		TrainedAt:     p.TrainedAt,
		Features:      p.Features,
	}
	model, err = json.MarshalIndent(modelFile{header: h, Variant: p.Variant, Model: body}, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode model %s: %w", p.Name, err)
	}
	scaler, err = json.MarshalIndent(scalerFile{header: h, Scaler: p.Scaler}, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode scaler %s: %w", p.Name, err)
	}
	return model, scaler, nil
}

// notTrained wraps a load failure so callers can match ErrModelNotTrained
// while keeping the cause.
func notTrained(name string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrModelNotTrained, name, cause)
}

// Load reads a pair and checks both halves belong together.
func (d Dir) Load(name string) (*Pair, error) {
	var mf modelFile
	if err := readJSON(d.modelPath(name), &mf); err != nil {
		return nil, notTrained(name, err)
	}
	var sf scalerFile
	if err := readJSON(d.scalerPath(name), &sf); err != nil {
		return nil, notTrained(name, err)
	}

	for _, h := range []header{mf.header, sf.header} {
		if err := checkVersion(h.FormatVersion); err != nil {
			return nil, notTrained(name, err)
		}
	}
	if mf.PairID == "" || mf.PairID != sf.PairID {
		return nil, notTrained(name, fmt.Errorf("model pair %q does not match scaler pair %q", mf.PairID, sf.PairID))
	}
	if !slices.Equal(mf.Features, features.Names()) {
		return nil, notTrained(name, fmt.Errorf("trained on features %v", mf.Features))
	}
	if sf.Scaler == nil {
		return nil, notTrained(name, errors.New("scaler missing"))
	}
	if err := sf.Scaler.Validate(); err != nil {
		return nil, notTrained(name, err)
	}
	if sf.Scaler.Width() != features.Count {
		return nil, notTrained(name, fmt.Errorf("scaler width %d", sf.Scaler.Width()))
	}
	model, err := ml.DecodeClassifier(mf.Model, features.Count)
	if err != nil {
		return nil, notTrained(name, err)
	}

	return &Pair{
		Name:      name,
		ID:        mf.PairID,
		Variant:   mf.Variant,
		TrainedAt: mf.TrainedAt,
		Features:  mf.Features,
		Model:     model,
		Scaler:    sf.Scaler,
	}, nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

func checkVersion(v string) error {
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid format version %q", v)
	}
	if semver.Major(v) != semver.Major(FormatVersion) {
		return fmt.Errorf("format version %s incompatible with %s", v, FormatVersion)
	}
	return nil
}

// List returns the names of pairs with a model file in the directory.
func (d Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), "_model.json"); ok && !e.IsDir() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
