package lr

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ErrDataFormat is matched by every DataFormatError.
var ErrDataFormat = errors.New("malformed dataset")

// DataFormatError points at the offending field of a dataset file. Malformed
// records are rejected, never coerced.
type DataFormatError struct {
	Line   int
	Column int
	Value  string
	Err    error
}

func (e *DataFormatError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %d: %q: %v", e.Line, e.Column+1, e.Value, e.Err)
}

func (e *DataFormatError) Unwrap() error { return e.Err }

func (e *DataFormatError) Is(target error) bool { return target == ErrDataFormat }

// Dataset holds one feature vector and one label per record.
type Dataset struct {
	Features [][]float64
	Labels   []float64
}

// CSVOptions controls how records are split into features and label.
type CSVOptions struct {
	LabelColumn int  // negative counts from the end, -1 is the last column
	Bias        bool // prepend a constant 1.0 coordinate
}

// ReadCSV loads a comma separated file whose first row is a header.
func ReadCSV(path string, opts CSVOptions) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ds, err := ParseCSV(file, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ParseCSV reads records from r, discarding the header row.
func ParseCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &DataFormatError{Line: 1, Column: -1, Err: errors.New("empty file")}
	}
	if err != nil {
		return nil, err
	}
	width := len(header)
	if width < 2 {
		return nil, &DataFormatError{Line: 1, Column: -1, Err: fmt.Errorf("need at least one feature and a label, header has %d columns", width)}
	}

	labelCol := opts.LabelColumn
	if labelCol < 0 {
		labelCol += width
	}
	if labelCol < 0 || labelCol >= width {
		return nil, &DataFormatError{Line: 1, Column: -1, Err: fmt.Errorf("label column %d outside %d columns", opts.LabelColumn, width)}
	}

	ds := &Dataset{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if len(record) != width {
			return nil, &DataFormatError{Line: line, Column: -1, Err: fmt.Errorf("%d fields, header has %d", len(record), width)}
		}

		features := make([]float64, 0, width)
		if opts.Bias {
			features = append(features, 1.0)
		}
		var label float64
		for col, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, &DataFormatError{Line: line, Column: col, Value: field, Err: err}
			}
			if col == labelCol {
				label = v
			} else {
				features = append(features, v)
			}
		}
		ds.Features = append(ds.Features, features)
		ds.Labels = append(ds.Labels, label)
	}

	if len(ds.Features) == 0 {
		return nil, &DataFormatError{Line: 2, Column: -1, Err: errors.New("no records")}
	}
	return ds, nil
}

// Dims returns the number of records and the feature dimension.
func (d *Dataset) Dims() (m, n int) {
	if len(d.Features) == 0 {
		return 0, 0
	}
	return len(d.Features), len(d.Features[0])
}

// Matrix returns the features as an m×n dense matrix.
func (d *Dataset) Matrix() *mat.Dense {
	m, n := d.Dims()
	X := mat.NewDense(m, n, nil)
	for i, row := range d.Features {
		X.SetRow(i, row)
	}
	return X
}

// Subset returns the records at idx, sharing the underlying rows.
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{
		Features: make([][]float64, len(idx)),
		Labels:   make([]float64, len(idx)),
	}
	for k, i := range idx {
		out.Features[k] = d.Features[i]
		out.Labels[k] = d.Labels[i]
	}
	return out
}
