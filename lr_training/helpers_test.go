package lr

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

func newTestPlanner(t *testing.T) *leveled.Planner {
	t.Helper()
	he, err := leveled.NewHEContext(leveled.TestConfig())
	if err != nil {
		t.Fatalf("Failed to initialize HE context: %v", err)
	}
	return leveled.NewPlanner(he)
}

func encryptOrFail(t *testing.T, p *leveled.Planner, v leveled.Payload) leveled.Tagged {
	t.Helper()
	ct, err := p.Encrypt(v)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	return ct
}

func decryptOrFail(t *testing.T, p *leveled.Planner, ct leveled.Tagged) []float64 {
	t.Helper()
	vals, err := p.Decrypt(ct)
	if err != nil {
		t.Fatalf("Failed to decrypt: %v", err)
	}
	return vals
}

func checkCloseEnough(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	for i := range want {
		if math.Abs(got[i]-want[i]) > eps {
			t.Fatalf("index %d: expected %f, got %f (diff %g > %g)", i, want[i], got[i], math.Abs(got[i]-want[i]), eps)
		}
	}
}

// a small, linearly separable dataset with two features
const testCSV = `x1,x2,label
0.5,1.0,1
1.0,0.5,1
0.8,0.9,1
-0.5,-1.0,0
-1.0,-0.3,0
-0.7,-0.8,0
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func testRunConfig(t *testing.T) RunConfig {
	t.Helper()
	cfg := DefaultRunConfig()
	cfg.DataPath = writeFile(t, "train.csv", testCSV)
	cfg.HE = leveled.TestConfig()
	cfg.Workers = 2
	cfg.Debug = 0
	return cfg
}
