package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.dedis.ch/onet/v3/log"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
	lr "github.com/halilibrahimkanpak/he_logreg/lr_training"
)

// Encrypts a range of inputs, evaluates the degree-5 sigmoid on them and
// prints the result next to the cleartext polynomial and the logistic
// function.
func main() {
	from := flag.Float64("from", -5, "First input")
	to := flag.Float64("to", 5, "Last input")
	step := flag.Float64("step", 0.5, "Distance between inputs")
	logN := flag.Int("logn", leveled.DefaultConfig().LogN, "Ring degree (log2)")
	flag.Parse()

	if *step <= 0 || *to < *from {
		fmt.Println("Error: need from <= to and a positive step")
		os.Exit(1)
	}

	var xs []float64
	for x := *from; x <= *to+1e-9; x += *step {
		xs = append(xs, x)
	}

	cfg := leveled.DefaultConfig()
	cfg.LogN = *logN

	fmt.Println("Initializing HE context...")
	start := time.Now()
	he, err := leveled.NewHEContext(cfg)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
	fmt.Printf("HE context initialized in %v\n", time.Since(start))

	p := leveled.NewPlanner(he)
	if len(xs) > p.Slots() {
		fmt.Printf("Error: %d inputs do not fit in %d slots\n", len(xs), p.Slots())
		os.Exit(1)
	}

	ct, err := p.Encrypt(leveled.Packed(xs))
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}

	start = time.Now()
	s, err := lr.EvalSigmoid(p, ct, lr.DefaultSigmoid)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	got, err := p.Decrypt(s)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}

	want := make([]float64, len(xs))
	for i, x := range xs {
		want[i] = lr.DefaultSigmoid.Eval(x)
	}

	fmt.Printf("%8s %12s %12s %12s\n", "x", "encrypted", "polynomial", "logistic")
	for i, x := range xs {
		fmt.Printf("%8.3f %12.6f %12.6f %12.6f\n", x, got[i], want[i], lr.Sigmoid(x))
	}

	ps, err := lr.Precision(got[:len(xs)], want)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
	fmt.Printf("Evaluated in %v, level %d -> %d, error %v\n", elapsed, ct.Level(), s.Level(), ps)
}
