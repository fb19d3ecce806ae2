package lr

import (
	"context"
	"fmt"
	"time"

	"go.dedis.ch/onet/v3/log"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

// IterationStats records one completed iteration.
type IterationStats struct {
	Iteration int
	Accuracy  float64
	Cost      float64
	Duration  time.Duration
}

// TimingMetrics accumulates time spent per stage over a run. The one-off
// dataset encryption is kept apart from the per-iteration totals.
type TimingMetrics struct {
	datasetEncryptionTime time.Duration
	totalEncryptionTime   time.Duration
	totalForwardTime      time.Duration
	totalStepTime         time.Duration
	totalRefreshTime      time.Duration
	iterations            int
}

// stageTimes is the average time of each stage of one iteration.
type stageTimes struct {
	Encrypt, Forward, Step, Refresh time.Duration
}

func (tm *TimingMetrics) perIteration() stageTimes {
	if tm.iterations == 0 {
		return stageTimes{}
	}
	n := time.Duration(tm.iterations)
	return stageTimes{
		Encrypt: tm.totalEncryptionTime / n,
		Forward: tm.totalForwardTime / n,
		Step:    tm.totalStepTime / n,
		Refresh: tm.totalRefreshTime / n,
	}
}

func (tm *TimingMetrics) report() {
	if tm.iterations == 0 {
		return
	}
	avg := tm.perIteration()
	log.Lvlf2("dataset encryption %v; average per iteration: encrypt %v, forward %v, step %v, refresh %v",
		tm.datasetEncryptionTime, avg.Encrypt, avg.Forward, avg.Step, avg.Refresh)
}

// Result is the outcome of Trainer.Run.
type Result struct {
	Iterations int // total completed, including resumed ones
	Weights    []float64
	History    []IterationStats
	// Precision compares the final weights with a cleartext run of the same
	// polynomial over the iterations performed in this run.
	Precision *PrecisionStats
}

// Trainer owns the key material, the encrypted dataset and the iteration
// loop. Every iteration runs one Orchestrator step on fresh ciphertexts,
// decrypts the new weights and checkpoints them.
type Trainer struct {
	cfg       RunConfig
	planner   *leveled.Planner
	orch      *Orchestrator
	train     *Dataset
	test      *Dataset
	encrypted *EncryptedDataset
	metrics   *TimingMetrics
}

// NewTrainer loads the data, sets up the scheme and encrypts the dataset.
func NewTrainer(cfg RunConfig) (*Trainer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	reduction, _ := ParseReduction(cfg.Reduction)

	opts := CSVOptions{LabelColumn: cfg.LabelColumn, Bias: cfg.Bias}
	train, err := ReadCSV(cfg.DataPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load training data: %w", err)
	}
	var test *Dataset
	if cfg.TestPath != "" {
		if test, err = ReadCSV(cfg.TestPath, opts); err != nil {
			return nil, fmt.Errorf("failed to load test data: %w", err)
		}
	}
	m, dim := train.Dims()
	log.Lvlf2("loaded %d records with %d features from %s", m, dim, cfg.DataPath)

	heCfg := cfg.HE
	if cfg.HomomorphicForward {
		heCfg.Rotations = mergeRotations(heCfg.Rotations, RotationsFor(dim))
	}

	log.Lvl2("Initializing HE context...")
	he, err := leveled.NewHEContext(heCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize HE context: %w", err)
	}
	planner := leveled.NewPlanner(he)

	orch, err := NewOrchestrator(planner, cfg.Workers, reduction)
	if err != nil {
		return nil, err
	}

	t := &Trainer{
		cfg:     cfg,
		planner: planner,
		orch:    orch,
		train:   train,
		test:    test,
		metrics: &TimingMetrics{},
	}

	start := time.Now()
	if t.encrypted, err = EncryptDataset(planner, train, cfg.Workers); err != nil {
		return nil, err
	}
	t.metrics.datasetEncryptionTime = time.Since(start)
	log.Lvlf2("encrypted %d records in %v", m, time.Since(start))

	return t, nil
}

// Planner exposes the planner, e.g. to evaluate the trained model.
func (t *Trainer) Planner() *leveled.Planner { return t.planner }

// Run trains until cfg.Iterations iterations are complete, resuming from the
// checkpoint when one exists. Cancellation is honoured between iterations
// only; the checkpoint always reflects the last completed iteration.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	_, dim := t.train.Dims()

	start, weights, err := t.resume(dim)
	if err != nil {
		return nil, err
	}
	if start >= t.cfg.Iterations {
		log.Warn("checkpoint already at iteration", start, "of", t.cfg.Iterations, "- nothing to do")
	}
	initial := append([]float64(nil), weights...)

	res := &Result{}
	for it := start; it < t.cfg.Iterations; it++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		iterStart := time.Now()
		if weights, err = t.iterate(it, weights); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", it+1, err)
		}

		if t.cfg.CheckpointPath != "" {
			if err = SaveCheckpoint(t.cfg.CheckpointPath, Checkpoint{Iteration: it + 1, Weights: weights}); err != nil {
				return nil, err
			}
		}

		stats := IterationStats{
			Iteration: it + 1,
			Accuracy:  Accuracy(t.train, weights),
			Cost:      Cost(t.train, weights),
			Duration:  time.Since(iterStart),
		}
		res.History = append(res.History, stats)
		log.Lvlf1("iteration %d/%d: accuracy %.4f, cost %.4f (%v)",
			stats.Iteration, t.cfg.Iterations, stats.Accuracy, stats.Cost, stats.Duration.Round(time.Millisecond))
	}
	t.metrics.report()

	res.Iterations = max(start, t.cfg.Iterations)
	res.Weights = weights

	if len(res.History) > 0 {
		ref := t.reference(initial, start, t.cfg.Iterations)
		ps, err := Precision(weights, ref)
		if err != nil {
			return nil, err
		}
		res.Precision = &ps
		log.Lvl2("precision against cleartext polynomial run:", ps)
	}

	if t.cfg.PlotPath != "" && len(res.History) > 0 {
		if err := PlotHistory(t.cfg.PlotPath, res.History); err != nil {
			log.Error("could not plot training history:", err)
		}
	}

	if t.test != nil {
		acc, err := EncryptedAccuracy(t.planner, t.test, weights, t.cfg.Workers)
		if err != nil {
			return nil, fmt.Errorf("evaluating test set: %w", err)
		}
		log.Lvlf1("test accuracy: %.2f%% (encrypted inference), %.2f%% (cleartext)", acc*100, Accuracy(t.test, weights)*100)
	}

	return res, nil
}

func (t *Trainer) resume(dim int) (int, []float64, error) {
	if t.cfg.CheckpointPath == "" {
		return 0, make([]float64, dim), nil
	}
	ckpt, err := LoadCheckpoint(t.cfg.CheckpointPath)
	if err != nil {
		return 0, nil, err
	}
	if ckpt == nil {
		log.Lvl2("no checkpoint at", t.cfg.CheckpointPath, "- starting from zero weights")
		return 0, make([]float64, dim), nil
	}
	if len(ckpt.Weights) != dim {
		return 0, nil, fmt.Errorf("checkpoint has %d weights, dataset has %d features", len(ckpt.Weights), dim)
	}
	log.Lvl1("resuming from checkpoint at iteration", ckpt.Iteration)
	return ckpt.Iteration, ckpt.Weights, nil
}

// iterate runs iteration it on the cleartext weights w and returns the
// refreshed result.
func (t *Trainer) iterate(it int, w []float64) ([]float64, error) {
	p := t.planner
	idx := t.batchIndices(it)
	samples, labels := t.encrypted.Batch(idx)

	encStart := time.Now()
	encW, err := p.Encrypt(leveled.Vector(w))
	if err != nil {
		return nil, err
	}
	encLR, err := p.Encrypt(leveled.Scalar(t.cfg.LearningRate))
	if err != nil {
		return nil, err
	}
	t.metrics.totalEncryptionTime += time.Since(encStart)

	fwdStart := time.Now()
	var products []leveled.Tagged
	if t.cfg.HomomorphicForward {
		products, err = HomomorphicProducts(p, samples, encW, t.encrypted.Dim, t.cfg.Workers)
	} else {
		batch := t.train.Subset(idx)
		products, err = EncryptProducts(p, Products(batch.Matrix(), w), t.cfg.Workers)
	}
	if err != nil {
		return nil, err
	}
	t.metrics.totalForwardTime += time.Since(fwdStart)

	stepStart := time.Now()
	updated, err := t.orch.Step(StepInput{
		Products:     products,
		Samples:      samples,
		Labels:       labels,
		Weights:      encW,
		LearningRate: encLR,
	})
	if err != nil {
		return nil, err
	}
	t.metrics.totalStepTime += time.Since(stepStart)

	refreshStart := time.Now()
	vals, err := p.Decrypt(updated)
	if err != nil {
		return nil, err
	}
	t.metrics.totalRefreshTime += time.Since(refreshStart)
	t.metrics.iterations++

	return leveled.FirstPeriod(vals, t.encrypted.Dim), nil
}

// batchIndices picks the records of iteration it. Batches walk the dataset
// cyclically so a resumed run sees the same batches as an uninterrupted one.
func (t *Trainer) batchIndices(it int) []int {
	m, _ := t.train.Dims()
	size := t.cfg.BatchSize
	if size == 0 || size >= m {
		size = m
	}
	idx := make([]int, size)
	first := (it * size) % m
	for k := range idx {
		idx[k] = (first + k) % m
	}
	return idx
}

// reference replays iterations [from, to) in cleartext with the same
// polynomial sigmoid and batches.
func (t *Trainer) reference(w []float64, from, to int) []float64 {
	w = append([]float64(nil), w...)
	for it := from; it < to; it++ {
		batch := t.train.Subset(t.batchIndices(it))
		w = PlainStep(batch.Matrix(), batch.Labels, w, t.cfg.LearningRate, DefaultSigmoid.Eval)
	}
	return w
}

func mergeRotations(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var out []int
	for _, k := range append(append([]int(nil), a...), b...) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Run is the main entry point for a training run.
func Run(ctx context.Context, cfg RunConfig) error {
	trainer, err := NewTrainer(cfg)
	if err != nil {
		return err
	}
	res, err := trainer.Run(ctx)
	if err != nil {
		return err
	}
	log.Lvl1("Done. Final weights:", res.Weights)
	return nil
}
