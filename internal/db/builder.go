package db

// IndexBuilder assembles an IndexDefinition fluently.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a definition named name.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix restricts the index to keys with one of the prefixes.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// HNSW indexes field as an HNSW graph. A later HNSW or Flat call replaces it.
func (b *IndexBuilder) HNSW(field string, dim int, metric DistanceMetric, m, efConstruction int) *IndexBuilder {
	b.def.Vector = VectorField{
		Field:          field,
		Dim:            dim,
		Metric:         metric,
		Algorithm:      VectorHNSW,
		M:              m,
		EFConstruction: efConstruction,
	}
	return b
}

// Flat indexes field for brute-force search.
func (b *IndexBuilder) Flat(field string, dim int, metric DistanceMetric) *IndexBuilder {
	b.def.Vector = VectorField{Field: field, Dim: dim, Metric: metric, Algorithm: VectorFlat}
	return b
}

// As names the vector attribute for queries.
func (b *IndexBuilder) As(alias string) *IndexBuilder {
	b.def.Vector.Alias = alias
	return b
}

// Build validates and returns a copy of the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	def.Prefixes = append([]string(nil), b.def.Prefixes...)
	return &def, nil
}
