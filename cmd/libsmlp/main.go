// Command libsmlp trains and scores the spectral mineral classifier.
//
// It prepares a configured dataset (optionally blended with synthetic
// spectra), trains the MLP for a number of repetitions, and reports mean and
// standard deviation of accuracy and balanced accuracy, a row-normalized
// confusion matrix, and optionally per-measure-point accuracy heatmaps.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/petralab/libsmlp/dataset"
	"github.com/petralab/libsmlp/diagnostics"
	"github.com/petralab/libsmlp/mlp"
	"github.com/petralab/libsmlp/spectra"
)

func parseChoice(s string) (dataset.Choice, error) {
	switch s {
	case "synthetic":
		return dataset.ChoiceSynthetic, nil
	case "handheld_12":
		return dataset.ChoiceHandheld12, nil
	case "handheld_all":
		return dataset.ChoiceHandheldAll, nil
	default:
		return 0, fmt.Errorf("unknown dataset %q (want synthetic, handheld_12 or handheld_all)", s)
	}
}

func parseTarget(s string) (dataset.Target, error) {
	switch s {
	case "class":
		return dataset.TargetClass, nil
	case "subgroup":
		return dataset.TargetSubgroup, nil
	case "mineral":
		return dataset.TargetMineral, nil
	default:
		return 0, fmt.Errorf("unknown target %q (want class, subgroup or mineral)", s)
	}
}

func parseMethod(s string) (spectra.Method, error) {
	switch s {
	case "none":
		return spectra.MethodNone, nil
	case "snv":
		return spectra.MethodSNV, nil
	case "minmax":
		return spectra.MethodMinMax, nil
	default:
		return 0, fmt.Errorf("unknown normalization %q (want none, snv or minmax)", s)
	}
}

func parseHidden(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid hidden layer size %q", p)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

func main() {
	configPath := flag.String("config", "datasets.yaml", "dataset configuration file")
	datasetName := flag.String("dataset", "handheld_12", "data source: synthetic, handheld_12 or handheld_all")
	targetName := flag.String("target", "class", "classification target: class, subgroup or mineral")
	normName := flag.String("normalization", "minmax", "intensity normalization: none, snv or minmax")
	hidden := flag.String("hidden", "", "comma-separated hidden layer sizes (default 64,256,256)")
	batchSize := flag.Int("batch-size", 256, "samples per batch")
	epochs := flag.Int("epochs", 10, "training epochs per repetition")
	learningRate := flag.Float64("learning-rate", 0.001, "SGD learning rate")
	repetitions := flag.Int("repetitions", 1, "independent train/evaluate repetitions")
	mixturePct := flag.Float64("mixture-pct", -1, "blend this fraction of synthetic samples per class into the handheld training split (negative disables)")
	baseline := flag.Bool("baseline", false, "apply ALS baseline correction before normalization")
	heatmap := flag.Bool("heatmap", false, "render per-measure-point accuracy heatmaps")
	outDir := flag.String("out", "plots", "output directory for generated plots")
	seed := flag.Int64("seed", 0, "base RNG seed (0 uses time-based seeds)")
	flag.Parse()

	choice, err := parseChoice(*datasetName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	target, err := parseTarget(*targetName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	method, err := parseMethod(*normName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	hiddenSizes, err := parseHidden(*hidden)
	if err != nil {
		log.Fatalf("%v", err)
	}

	cfg, err := dataset.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load dataset config: %v", err)
	}

	opts := dataset.Options{
		Target:              target,
		BatchSize:           *batchSize,
		Normalization:       method,
		TrainShuffleRepeat:  true,
		MeasurePointHeatmap: *heatmap,
		Seed:                *seed,
	}
	if *baseline {
		b := spectra.DefaultBaseline
		opts.Baseline = &b
	}

	var d *dataset.Dataset
	if *mixturePct >= 0 {
		d, err = dataset.PrepareMixture(cfg, *mixturePct, opts)
	} else {
		d, err = dataset.Prepare(cfg, choice, opts)
	}
	if err != nil {
		log.Fatalf("failed to prepare dataset: %v", err)
	}
	log.Print(d.Info())

	// The model input width is the length of one intensity vector; every
	// sample in a split must agree, which the generators enforce.
	first, err := spectra.LoadSample(d.TrainFiles[0])
	if err != nil {
		log.Fatalf("failed to load first training sample: %v", err)
	}
	inputDim := len(first.Intensity())

	// newEval builds a fresh single-pass generator over the test split for
	// each repetition; mixture preparation already provides a constructor.
	newEval := func() (*dataset.BatchGenerator, error) {
		if d.EvalFunc != nil {
			return d.EvalFunc()
		}
		norm, err := spectra.NewNormalizer(method)
		if err != nil {
			return nil, err
		}
		return dataset.NewBatchGenerator(dataset.GeneratorConfig{
			Files:      d.TestFiles,
			Target:     target,
			NumClasses: d.NumClasses,
			BatchSize:  *batchSize,
			Mapping:    d.Mapping,
			Normalizer: norm,
			Baseline:   opts.Baseline,
			Seed:       *seed,
		})
	}

	var (
		accs, balAccs []float64
		lastTrue      []int
		lastPred      []int
	)
	for rep := 0; rep < *repetitions; rep++ {
		modelSeed := *seed
		if modelSeed != 0 {
			modelSeed += int64(rep)
		}
		model, err := mlp.NewModel(inputDim, d.NumClasses, mlp.Config{
			HiddenSizes:  hiddenSizes,
			LearningRate: *learningRate,
			Epochs:       *epochs,
			Seed:         modelSeed,
			ClassWeights: d.ClassWeights,
		})
		if err != nil {
			log.Fatalf("failed to build model: %v", err)
		}

		if err := model.Train(d.Train, d.TrainSteps); err != nil {
			log.Fatalf("repetition %d: training failed: %v", rep, err)
		}

		eval, err := newEval()
		if err != nil {
			log.Fatalf("repetition %d: failed to build eval generator: %v", rep, err)
		}
		yTrue, yPred, _, err := model.Evaluate(eval)
		if err != nil {
			log.Fatalf("repetition %d: evaluation failed: %v", rep, err)
		}

		acc, err := diagnostics.Accuracy(yTrue, yPred)
		if err != nil {
			log.Fatalf("repetition %d: %v", rep, err)
		}
		bal, err := diagnostics.BalancedAccuracy(yTrue, yPred)
		if err != nil {
			log.Fatalf("repetition %d: %v", rep, err)
		}
		log.Printf("repetition %d: accuracy %.4f, balanced accuracy %.4f", rep, acc, bal)
		accs = append(accs, acc)
		balAccs = append(balAccs, bal)
		lastTrue, lastPred = yTrue, yPred
	}

	if len(accs) == 1 {
		log.Printf("accuracy %.4f, balanced accuracy %.4f", accs[0], balAccs[0])
	} else {
		log.Printf("accuracy %.4f +/- %.4f over %d repetitions", stat.Mean(accs, nil), stat.StdDev(accs, nil), len(accs))
		log.Printf("balanced accuracy %.4f +/- %.4f over %d repetitions", stat.Mean(balAccs, nil), stat.StdDev(balAccs, nil), len(balAccs))
	}

	cm, err := diagnostics.ConfusionMatrix(lastTrue, lastPred, d.NumClasses)
	if err != nil {
		log.Fatalf("failed to compute confusion matrix: %v", err)
	}
	var sb strings.Builder
	sb.WriteString("confusion matrix (rows true, columns predicted, row-normalized):\n")
	classes := d.Mapping.Classes()
	for i, row := range cm {
		fmt.Fprintf(&sb, "  %6d:", classes[i])
		for _, v := range row {
			fmt.Fprintf(&sb, " %.3f", v)
		}
		sb.WriteByte('\n')
	}
	log.Print(sb.String())
	cmPath := filepath.Join(*outDir, "confusion.png")
	if err := diagnostics.RenderConfusionMatrix(cm, cmPath); err != nil {
		log.Fatalf("failed to render confusion matrix: %v", err)
	}
	log.Printf("wrote confusion matrix to %s", cmPath)

	if *heatmap {
		if d.HeatmapTM == nil {
			log.Fatalf("heatmap requested but no transition matrix was built")
		}
		// The eval generator walks the sorted test files in order, so the
		// i-th prediction lines up with the i-th transition row.
		perShot := make([]float64, len(lastTrue))
		for i := range lastTrue {
			if lastTrue[i] == lastPred[i] {
				perShot[i] = 1
			}
		}
		grids, err := diagnostics.AccuracyHeatmaps(d.HeatmapTM, perShot)
		if err != nil {
			log.Fatalf("failed to build accuracy heatmaps: %v", err)
		}
		paths, err := diagnostics.RenderHeatmaps(grids, *outDir)
		if err != nil {
			log.Fatalf("failed to render heatmaps: %v", err)
		}
		log.Printf("wrote %d heatmaps to %s", len(paths), *outDir)
	}
}
