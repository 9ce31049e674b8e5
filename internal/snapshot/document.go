package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"graphd/internal/service"
)

// Document is a graph written by hand or by another tool, loaded with
// LoadDocument and applied with Import.
type Document struct {
	Nodes []service.NodeInput `json:"nodes" yaml:"nodes"`
	Edges []service.EdgeInput `json:"edges" yaml:"edges"`
	// Statuses maps node ids to status names.
	Statuses map[string]string `json:"statuses" yaml:"statuses"`
}

// LoadDocument reads a graph document. Files ending in .json are decoded as
// JSON, anything else as YAML.
func LoadDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var doc Document
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return &doc, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &doc, nil
}

// Importer is the write side of the service an import goes through.
type Importer interface {
	InsertNodes(ctx context.Context, in []service.NodeInput) (int, error)
	InsertEdges(ctx context.Context, in []service.EdgeInput) (int, error)
	SetNodeStatus(ctx context.Context, nodeID, status string) (bool, error)
}

// Result counts what an import wrote.
type Result struct {
	Nodes    int
	Edges    int
	Statuses int
}

// Import inserts nodes, then edges, then statuses. It is not atomic: it stops
// at the first failure and everything written before it stays.
func Import(ctx context.Context, dst Importer, doc *Document, prog *Progress) (Result, error) {
	var (
		res Result
		err error
	)
	if res.Nodes, err = dst.InsertNodes(ctx, doc.Nodes); err != nil {
		return res, err
	}
	prog.Log("Imported %d nodes", res.Nodes)
	if res.Edges, err = dst.InsertEdges(ctx, doc.Edges); err != nil {
		return res, err
	}
	prog.Log("Imported %d edges", res.Edges)

	ids := make([]string, 0, len(doc.Statuses))
	for id := range doc.Statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ok, err := dst.SetNodeStatus(ctx, id, doc.Statuses[id])
		if err != nil {
			return res, fmt.Errorf("status of %s: %w", id, err)
		}
		if !ok {
			return res, fmt.Errorf("status of %s: node does not exist", id)
		}
		res.Statuses++
	}
	prog.Log("Imported %d statuses", res.Statuses)
	return res, nil
}
