// Package dataset exposes read-only tabular data to agents and dashboard
// clients. The only backing source for now is a directory of CSV files;
// the source indirection keeps the query surface stable when warehouse
// connectors land.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	towerotel "github.com/Kushall-07/Ai-tower/internal/otel"
)

var tracer = towerotel.Tracer("github.com/Kushall-07/Ai-tower/internal/dataset")

// SourceCSV is the only supported backing source.
const SourceCSV = "csv"

// Supported query operations.
const (
	OpPreview = "preview"
	OpFilter  = "filter"
)

const defaultLimit = 50

var (
	ErrUnsupportedSource    = errors.New("unsupported data source")
	ErrUnsupportedOperation = errors.New("unsupported data operation")
	ErrDatasetNotFound      = errors.New("dataset file not found")
)

// Service reads datasets from a directory of CSV files. Dataset names map
// to <name>.csv inside the directory; names never escape it.
type Service struct {
	dir string
}

// NewService creates a dataset service rooted at dir.
func NewService(dir string) *Service {
	return &Service{dir: dir}
}

// QueryRequest describes one dataset query.
type QueryRequest struct {
	Source    string                 `json:"source"`
	Dataset   string                 `json:"dataset"`
	Operation string                 `json:"operation"`
	Filters   map[string]interface{} `json:"filters,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
}

// QueryResult echoes the request parameters alongside the matched rows.
type QueryResult struct {
	Source    string              `json:"source"`
	Dataset   string              `json:"dataset"`
	Operation string              `json:"operation"`
	Limit     int                 `json:"limit"`
	RowCount  int                 `json:"row_count"`
	Rows      []map[string]string `json:"rows"`
}

// Sources lists the available backing sources.
func (s *Service) Sources() []string {
	return []string{SourceCSV}
}

// Datasets lists dataset names for the given source, sorted.
func (s *Service) Datasets(source string) ([]string, error) {
	if source != SourceCSV {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".csv") {
			names = append(names, strings.TrimSuffix(name, ".csv"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Query runs a preview or filter operation against a dataset.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	ctx, span := tracer.Start(ctx, "dataset.query",
		trace.WithAttributes(
			attribute.String("source", req.Source),
			attribute.String("dataset", req.Dataset),
			attribute.String("operation", req.Operation),
		))
	defer span.End()

	if req.Source != SourceCSV {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, req.Source)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var match func(map[string]string) bool
	switch req.Operation {
	case OpPreview:
		match = func(map[string]string) bool { return true }
	case OpFilter:
		match = filterMatcher(req.Filters)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, req.Operation)
	}

	rows, err := s.loadRows(req.Dataset, match, limit)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("row_count", len(rows)))
	return &QueryResult{
		Source:    req.Source,
		Dataset:   req.Dataset,
		Operation: req.Operation,
		Limit:     limit,
		RowCount:  len(rows),
		Rows:      rows,
	}, nil
}

// filterMatcher builds an equality matcher over string-rendered filter
// values. Unknown columns never match.
func filterMatcher(filters map[string]interface{}) func(map[string]string) bool {
	return func(row map[string]string) bool {
		for column, want := range filters {
			got, ok := row[column]
			if !ok || got != fmt.Sprintf("%v", want) {
				return false
			}
		}
		return true
	}
}

func (s *Service) loadRows(dataset string, match func(map[string]string) bool, limit int) ([]map[string]string, error) {
	path, err := s.resolveDataset(dataset)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, dataset)
	}
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err == io.EOF {
		return []map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset header: %w", err)
	}

	rows := []map[string]string{}
	for len(rows) < limit {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading dataset row: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		if match(row) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// resolveDataset maps a dataset name to its CSV path, rejecting names that
// would escape the dataset directory.
func (s *Service) resolveDataset(dataset string) (string, error) {
	if dataset == "" || strings.ContainsAny(dataset, `/\`) || strings.Contains(dataset, "..") {
		return "", fmt.Errorf("%w: %s", ErrDatasetNotFound, dataset)
	}
	return filepath.Join(s.dir, dataset+".csv"), nil
}
