package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/ragdex/internal/db"
)

// CreateIndex runs FT.CREATE for def. A taken name yields db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	cmd := s.client.B().Arbitrary("FT.CREATE").Args(createArgs(def)...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if serverErrContains(err, "already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists probes with FT.INFO; an unknown-index reply means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.client.B().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// createArgs renders a validated definition as FT.CREATE arguments:
//
//	name ON HASH [PREFIX n p...] SCHEMA field [AS alias] VECTOR algo nattrs attrs...
func createArgs(def *db.IndexDefinition) []string {
	args := []string{def.Name, "ON", "HASH"}
	if len(def.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(def.Prefixes)))
		args = append(args, def.Prefixes...)
	}

	v := def.Vector
	args = append(args, "SCHEMA", v.Field)
	if v.Alias != "" {
		args = append(args, "AS", v.Alias)
	}

	attrs := vectorAttrs(v)
	args = append(args, "VECTOR", string(v.Algorithm), strconv.Itoa(len(attrs)))
	return append(args, attrs...)
}

func vectorAttrs(v db.VectorField) []string {
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", string(v.Metric),
	}
	if v.Algorithm != db.VectorHNSW {
		return attrs
	}
	if v.M > 0 {
		attrs = append(attrs, "M", strconv.Itoa(v.M))
	}
	if v.EFConstruction > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(v.EFConstruction))
	}
	return attrs
}
