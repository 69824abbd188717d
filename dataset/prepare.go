package dataset

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/petralab/libsmlp/spectra"
)

// Options control dataset preparation.
type Options struct {
	// Target selects the classification goal.
	Target Target

	// BatchSize for all generated batches.
	BatchSize int

	// Normalization method applied to every intensity vector.
	Normalization spectra.Method

	// TrainShuffleRepeat puts the train generator in repeating mode.
	// Defaults to true via Prepare's callers; eval/test are always
	// single-pass.
	TrainShuffleRepeat bool

	// CategoricalLabels one-hot encodes labels.
	CategoricalLabels bool

	// MeasurePointHeatmap additionally builds the test split's transition
	// matrix for 8x8 accuracy heatmap diagnostics.
	MeasurePointHeatmap bool

	// MapStrategy for out-of-domain labels in eval/test. MapStrict (the
	// zero value) fails loudly on unseen labels.
	MapStrategy MapStrategy

	// Baseline, when set, applies ALS baseline correction inside the
	// generators before normalization.
	Baseline *spectra.BaselineConfig

	// Seed for generator shuffling; 0 uses time-based seeds.
	Seed int64
}

func (o Options) validate() error {
	if err := o.Target.Validate(); err != nil {
		return err
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("dataset: batch size must be > 0, got %d", o.BatchSize)
	}
	return nil
}

// Dataset is the immutable descriptor produced by a preparation call: file
// lists, generators, the label mapping, weights, step counts and naming.
// Each call constructs an independent descriptor; nothing is shared.
type Dataset struct {
	// Name and Description identify the data source.
	Name        string
	Description string

	// Train is the repeating training generator. Eval and Test are eager
	// single-pass generators (plain preparation); EvalFunc and TestFunc
	// are reusable constructors set instead by mixture preparation, since
	// the same held-out split is scored repeatedly across sweeps.
	Train    *BatchGenerator
	Eval     *BatchGenerator
	Test     *BatchGenerator
	EvalFunc func() (*BatchGenerator, error)
	TestFunc func() (*BatchGenerator, error)

	// TrainFiles and TestFiles are the splits' sample files in the order
	// the labels below were extracted.
	TrainFiles []string
	TestFiles  []string

	// TrainLabels and TestLabels are the splits' labels in contiguous
	// index space.
	TrainLabels []int
	TestLabels  []int

	// Mapping is the transformation built from the training labels only.
	Mapping *LabelMapping

	// NumClasses observed in the training split.
	NumClasses int

	// ClassWeights are balanced inverse-frequency loss weights indexed by
	// contiguous class.
	ClassWeights []float64

	// BatchSize and per-split step counts (ceil(samples / batch)).
	BatchSize  int
	TrainSteps int
	TestSteps  int

	// NormName records the normalization strategy for reporting.
	NormName string

	// HeatmapTM is the test split's grid transition matrix, or nil when
	// heatmap diagnostics were not requested.
	HeatmapTM *TransitionMatrix
}

// listSplit returns the sorted sample files of one split directory.
func listSplit(root, split string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(root, split, "*.npz"))
	if err != nil {
		return nil, fmt.Errorf("list %s split of %s: %w", split, root, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("dataset: no sample files in %s", filepath.Join(root, split))
	}
	sort.Strings(files)
	return files, nil
}

// Prepare assembles generators, labels and bookkeeping for one configured
// data source. The label mapping and class weights come from the training
// split alone and are shared by all three generators.
func Prepare(cfg *Config, choice Choice, opts Options) (*Dataset, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	src, err := cfg.Source(choice)
	if err != nil {
		return nil, err
	}
	norm, err := spectra.NewNormalizer(opts.Normalization)
	if err != nil {
		return nil, err
	}

	trainFiles, err := listSplit(src.Path, "train")
	if err != nil {
		return nil, err
	}
	testFiles, err := listSplit(src.Path, "test")
	if err != nil {
		return nil, err
	}

	rawTrain, err := FileLabels(trainFiles, opts.Target)
	if err != nil {
		return nil, err
	}
	rawTest, err := FileLabels(testFiles, opts.Target)
	if err != nil {
		return nil, err
	}

	return assemble(src, trainFiles, testFiles, rawTrain, rawTest, norm, opts)
}

// assemble builds the descriptor shared by plain and mixture preparation.
func assemble(src *Source, trainFiles, testFiles []string, rawTrain, rawTest []int, norm spectra.Normalizer, opts Options) (*Dataset, error) {
	mapping, err := NewLabelMapping(rawTrain, opts.MapStrategy)
	if err != nil {
		return nil, err
	}
	numClasses := mapping.NumClasses()

	trainLabels, err := mapping.ApplyAll(rawTrain)
	if err != nil {
		return nil, err
	}
	testLabels, err := mapping.ApplyAll(rawTest)
	if err != nil {
		return nil, fmt.Errorf("test split contains labels unseen in training: %w", err)
	}

	weights, err := BalancedWeights(trainLabels, numClasses)
	if err != nil {
		return nil, err
	}

	genCfg := func(files []string, repeat bool) GeneratorConfig {
		return GeneratorConfig{
			Files:         files,
			Target:        opts.Target,
			NumClasses:    numClasses,
			BatchSize:     opts.BatchSize,
			Mapping:       mapping,
			ShuffleRepeat: repeat,
			Normalizer:    norm,
			Categorical:   opts.CategoricalLabels,
			Baseline:      opts.Baseline,
			Seed:          opts.Seed,
		}
	}

	train, err := NewBatchGenerator(genCfg(trainFiles, opts.TrainShuffleRepeat))
	if err != nil {
		return nil, err
	}
	eval, err := NewBatchGenerator(genCfg(testFiles, false))
	if err != nil {
		return nil, err
	}
	test, err := NewBatchGenerator(genCfg(testFiles, false))
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		Name:         src.Name,
		Description:  src.Description,
		Train:        train,
		Eval:         eval,
		Test:         test,
		TrainFiles:   trainFiles,
		TestFiles:    testFiles,
		TrainLabels:  trainLabels,
		TestLabels:   testLabels,
		Mapping:      mapping,
		NumClasses:   numClasses,
		ClassWeights: weights,
		BatchSize:    opts.BatchSize,
		TrainSteps:   Steps(len(trainLabels), opts.BatchSize),
		TestSteps:    Steps(len(testLabels), opts.BatchSize),
		NormName:     norm.Name(),
	}

	if opts.MeasurePointHeatmap {
		tm, err := BuildTransitionMatrix(testFiles)
		if err != nil {
			return nil, err
		}
		d.HeatmapTM = tm
	}
	return d, nil
}

// PrepareMixture blends the handheld training split with a percentage of the
// synthetic source's class-matching samples: for each class label present in
// both sources, MixturePct of the handheld class count is appended from the
// synthetic training files (by file reference; no data is loaded). A request
// exceeding the synthetic stock for a class warns and takes what is there.
//
// Eval and test generation is deferred via EvalFunc/TestFunc because mixture
// sweeps score the same held-out handheld split repeatedly.
func PrepareMixture(cfg *Config, mixturePct float64, opts Options) (*Dataset, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if mixturePct < 0 {
		return nil, fmt.Errorf("dataset: mixture percentage must be >= 0, got %g", mixturePct)
	}
	hh, err := cfg.Source(ChoiceHandheld12)
	if err != nil {
		return nil, err
	}
	syn, err := cfg.Source(ChoiceSynthetic)
	if err != nil {
		return nil, err
	}
	norm, err := spectra.NewNormalizer(opts.Normalization)
	if err != nil {
		return nil, err
	}

	trainHH, err := listSplit(hh.Path, "train")
	if err != nil {
		return nil, err
	}
	testHH, err := listSplit(hh.Path, "test")
	if err != nil {
		return nil, err
	}
	trainSyn, err := listSplit(syn.Path, "train")
	if err != nil {
		return nil, err
	}

	labelsHH, err := FileLabels(trainHH, opts.Target)
	if err != nil {
		return nil, err
	}
	labelsSyn, err := FileLabels(trainSyn, opts.Target)
	if err != nil {
		return nil, err
	}
	rawTest, err := FileLabels(testHH, opts.Target)
	if err != nil {
		return nil, err
	}

	hhCounts := make(map[int]int)
	for _, l := range labelsHH {
		hhCounts[l]++
	}
	synByLabel := make(map[int][]string)
	for i, l := range labelsSyn {
		synByLabel[l] = append(synByLabel[l], trainSyn[i])
	}

	// Deterministic label order for reproducible file lists.
	order := make([]int, 0, len(hhCounts))
	for l := range hhCounts {
		order = append(order, l)
	}
	sort.Ints(order)

	mixedFiles := append([]string(nil), trainHH...)
	mixedLabels := append([]int(nil), labelsHH...)
	for _, l := range order {
		stock, ok := synByLabel[l]
		if !ok {
			continue
		}
		n := int(float64(hhCounts[l]) * mixturePct)
		if n > len(stock) {
			log.Printf("warning: requested amount of data (%d) for label %d is larger than synthetic data for this label (%d)", n, l, len(stock))
			n = len(stock)
		}
		for _, f := range stock[:n] {
			mixedFiles = append(mixedFiles, f)
			mixedLabels = append(mixedLabels, l)
		}
	}

	mixOpts := opts
	mixOpts.TrainShuffleRepeat = true
	d, err := assemble(&Source{
		Name:        "mixture_synthetic_hh12",
		Description: fmt.Sprintf("%s augmented with %.0f%% synthetic data", hh.Name, mixturePct*100),
	}, mixedFiles, testHH, mixedLabels, rawTest, norm, mixOpts)
	if err != nil {
		return nil, err
	}

	// Swap the eager eval/test generators for reusable constructors.
	evalCfg := GeneratorConfig{
		Files:       testHH,
		Target:      opts.Target,
		NumClasses:  d.NumClasses,
		BatchSize:   opts.BatchSize,
		Mapping:     d.Mapping,
		Normalizer:  norm,
		Categorical: opts.CategoricalLabels,
		Baseline:    opts.Baseline,
		Seed:        opts.Seed,
	}
	d.Eval, d.Test = nil, nil
	d.EvalFunc = func() (*BatchGenerator, error) { return NewBatchGenerator(evalCfg) }
	d.TestFunc = func() (*BatchGenerator, error) { return NewBatchGenerator(evalCfg) }
	return d, nil
}

// Info renders a human-readable summary of the descriptor for visual
// inspection.
func (d *Dataset) Info() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Data set information:\n")
	fmt.Fprintf(&sb, "  %-14s: %s\n", "name", d.Name)
	fmt.Fprintf(&sb, "  %-14s: %s\n", "description", d.Description)
	fmt.Fprintf(&sb, "  %-14s: %d\n", "num_classes", d.NumClasses)
	fmt.Fprintf(&sb, "  %-14s: %v\n", "classes_orig", d.Mapping.Classes())
	fmt.Fprintf(&sb, "  %-14s: %d\n", "train_samples", len(d.TrainLabels))
	fmt.Fprintf(&sb, "  %-14s: %d\n", "test_samples", len(d.TestLabels))
	fmt.Fprintf(&sb, "  %-14s: %d\n", "batch_size", d.BatchSize)
	fmt.Fprintf(&sb, "  %-14s: %d\n", "train_steps", d.TrainSteps)
	fmt.Fprintf(&sb, "  %-14s: %d\n", "test_steps", d.TestSteps)
	fmt.Fprintf(&sb, "  %-14s: %s\n", "normalization", d.NormName)
	fmt.Fprintf(&sb, "  %-14s: %v\n", "class_weights", d.ClassWeights)
	if d.HeatmapTM != nil {
		fmt.Fprintf(&sb, "  %-14s: %d measure point transitions\n", "heatmap_tm", d.HeatmapTM.NumMeasurePoints())
	} else {
		fmt.Fprintf(&sb, "  %-14s: N/A\n", "heatmap_tm")
	}
	return sb.String()
}
