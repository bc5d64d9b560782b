// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes a stored cycle to w as YAML.
func (s *Store) ExportYAML(ctx context.Context, id string, w io.Writer) error {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&rec); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes a stored cycle to w as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, id string, w io.Writer) error {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&rec); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}
