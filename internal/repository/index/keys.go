package index

import "fmt"

// Key layout under the configured prefix:
//
//	{prefix}meta:{name}     collection metadata hash
//	{prefix}pt:{name}:{id}  one hash per point
//	{prefix}{name}:idx      FT index over the point hashes

const (
	fieldPayload = "payload"
	fieldVector  = "__vector"
	vectorAttr   = "vector"
)

func (r *Repo) metaKey(name string) string {
	return fmt.Sprintf("%smeta:%s", r.prefix, name)
}

func (r *Repo) indexName(name string) string {
	return fmt.Sprintf("%s%s:idx", r.prefix, name)
}

func (r *Repo) pointPrefix(name string) string {
	return fmt.Sprintf("%spt:%s:", r.prefix, name)
}

func (r *Repo) pointKey(name, id string) string {
	return r.pointPrefix(name) + id
}
