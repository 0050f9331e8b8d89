package persistence

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
)

// SaveState writes a versioned binary snapshot of the field. The write goes
// through a temporary file renamed into place, so an interrupted save never
// leaves a file that VerifyState would accept. Cancellation is honoured
// between center records.
func SaveState(ctx context.Context, f *field.Field, path string) error {
	if err := f.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", field.ErrIO, err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	w := bufio.NewWriter(tmp)
	if err := writeHeader(w, f); err != nil {
		discard()
		return fmt.Errorf("%w: %v", field.ErrIO, err)
	}
	if err := writeMetric(w, f.Metric()); err != nil {
		discard()
		return fmt.Errorf("%w: %v", field.ErrIO, err)
	}
	for _, c := range f.Centers() {
		if err := ctx.Err(); err != nil {
			discard()
			return err
		}
		if err := writeCenter(w, c); err != nil {
			discard()
			return fmt.Errorf("%w: %v", field.ErrIO, err)
		}
	}

	if err := w.Flush(); err != nil {
		discard()
		return fmt.Errorf("%w: %v", field.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", field.ErrIO, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", field.ErrIO, err)
	}
	return nil
}

// LoadState reads a snapshot and returns a freshly constructed field. On any
// validation failure it returns ErrCorruptFile; the caller's state is never
// touched because nothing is written into an existing field.
func LoadState(ctx context.Context, path string) (*field.Field, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", field.ErrIO, path, err)
	}
	defer fh.Close()
	return parse(ctx, bufio.NewReader(fh), true)
}

// VerifyState runs the full parse without materialising a field.
func VerifyState(ctx context.Context, path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", field.ErrIO, path, err)
	}
	defer fh.Close()
	_, err = parse(ctx, bufio.NewReader(fh), false)
	return err
}

func parse(ctx context.Context, r *bufio.Reader, materialise bool) (*field.Field, error) {
	s, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	metric, err := readMetric(r, int(s.Dim))
	if err != nil {
		return nil, err
	}

	var f *field.Field
	if materialise {
		f, err = field.New(int(s.Capacity), field.Kernel(s.Kernel), int(s.Dim))
		if err != nil {
			return nil, corrupt("container: %v", err)
		}
		if metric != nil {
			if err := f.SetMetric(metric); err != nil {
				return nil, corrupt("manifold metric: %v", err)
			}
		}
		f.SetTime(float64(s.Time))
		f.SetNominalDims(float64(s.FractalDim), float64(s.TemporalDim))
	}

	for i := uint32(0); i < s.NCenters; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := readCenter(r, int(s.Dim))
		if err != nil {
			return nil, err
		}
		if materialise {
			if err := f.AddCenterFull(c); err != nil {
				return nil, corrupt("center %d: %v", i, err)
			}
		}
	}

	// Trailing bytes mean the file does not match its declared layout.
	if _, err := r.ReadByte(); err != io.EOF {
		return nil, corrupt("trailing data")
	}
	return f, nil
}
