package corpus

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
)

// ErrRaggedMatrix is returned when matrix rows have differing widths.
var ErrRaggedMatrix = errors.New("matrix rows have differing dimensions")

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	Rows int
	Dim  int
	Data []float32
}

// NewMatrix builds a matrix from rows. All rows must share one width.
func NewMatrix(rows [][]float32) (*Matrix, error) {
	m := &Matrix{Rows: len(rows)}
	if len(rows) == 0 {
		return m, nil
	}
	m.Dim = len(rows[0])
	m.Data = make([]float32, 0, m.Rows*m.Dim)
	for i, r := range rows {
		if len(r) != m.Dim {
			return nil, fmt.Errorf("row %d has %d values, want %d: %w", i, len(r), m.Dim, ErrRaggedMatrix)
		}
		m.Data = append(m.Data, r...)
	}
	return m, nil
}

// Row returns row i as a slice sharing the matrix storage.
func (m *Matrix) Row(i int) []float32 {
	return m.Data[i*m.Dim : (i+1)*m.Dim]
}

// LoadMatrix reads an embedding matrix. Files ending in .npy are read as NumPy
// arrays (2-D, C order, float32 or float64); anything else is read as JSON lines
// with one array of numbers per line.
func LoadMatrix(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".npy") {
		m, err := readNPY(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return m, nil
	}
	m, err := readJSONL(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}

func readNPY(r io.Reader) (*Matrix, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, err
	}
	descr := nr.Header.Descr
	if descr.Fortran {
		return nil, errors.New("fortran-ordered arrays are not supported")
	}
	if len(descr.Shape) != 2 {
		return nil, fmt.Errorf("expected a 2-D array, got shape %v", descr.Shape)
	}
	m := &Matrix{Rows: descr.Shape[0], Dim: descr.Shape[1]}
	switch descr.Type {
	case "<f4", "float32":
		data := make([]float32, m.Rows*m.Dim)
		if err := nr.Read(&data); err != nil {
			return nil, err
		}
		m.Data = data
	case "<f8", "float64":
		data := make([]float64, m.Rows*m.Dim)
		if err := nr.Read(&data); err != nil {
			return nil, err
		}
		m.Data = make([]float32, len(data))
		for i, v := range data {
			m.Data[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("unsupported dtype %q", descr.Type)
	}
	return m, nil
}

func readJSONL(r io.Reader) (*Matrix, error) {
	var rows [][]float32
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var row []float32
		if err := json.Unmarshal([]byte(text), &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewMatrix(rows)
}

// WriteMatrix writes rows as JSON lines, one array per row.
func WriteMatrix(path string, m *Matrix) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < m.Rows; i++ {
		if err := enc.Encode(m.Row(i)); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
