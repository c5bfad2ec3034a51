// Package parameters holds the process wide defaults consulted by the mesh
// constructors and the assembly routines. Values can be changed at runtime
// and every setter hands back a func that restores the previous state.
package parameters

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

const (
	PartitionerBlock = "block"
	PartitionerMetis = "metis"
)

// Parameters are the tunable defaults.
type Parameters struct {
	ReorderMeshes         bool   `json:"reorder_meshes" yaml:"reorder_meshes"`
	Partitioner           string `json:"partitioner" yaml:"partitioner"`
	QuadratureDegreeBoost int    `json:"quadrature_degree_boost" yaml:"quadrature_degree_boost"`
}

// Defaults returns the built in parameter set.
func Defaults() Parameters {
	return Parameters{
		ReorderMeshes:         true,
		Partitioner:           PartitionerBlock,
		QuadratureDegreeBoost: 1,
	}
}

var (
	mu      sync.RWMutex
	current = Defaults()
)

// Get returns a copy of the current parameters.
func Get() Parameters {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Set replaces all parameters.
func Set(p Parameters) (restore func(), err error) {
	if err = p.Validate(); err != nil {
		return func() {}, err
	}
	mu.Lock()
	old := current
	current = p
	mu.Unlock()
	return func() {
		mu.Lock()
		current = old
		mu.Unlock()
	}, nil
}

// SetReorderMeshes changes only the default mesh reordering flag.
func SetReorderMeshes(reorder bool) (restore func()) {
	mu.Lock()
	old := current.ReorderMeshes
	current.ReorderMeshes = reorder
	mu.Unlock()
	return func() {
		mu.Lock()
		current.ReorderMeshes = old
		mu.Unlock()
	}
}

func (p Parameters) Validate() error {
	switch p.Partitioner {
	case PartitionerBlock, PartitionerMetis:
	default:
		return fmt.Errorf("unknown partitioner %q, want %q or %q",
			p.Partitioner, PartitionerBlock, PartitionerMetis)
	}
	if p.QuadratureDegreeBoost < 0 {
		return fmt.Errorf("quadrature_degree_boost must be non negative, got %d", p.QuadratureDegreeBoost)
	}
	return nil
}

// SetViperDefaults registers the parameter keys and their defaults.
func SetViperDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("reorder_meshes", d.ReorderMeshes)
	v.SetDefault("partitioner", d.Partitioner)
	v.SetDefault("quadrature_degree_boost", d.QuadratureDegreeBoost)
}

// LoadFromViper installs the parameters found in v, falling back to the
// defaults for keys v does not know.
func LoadFromViper(v *viper.Viper) (restore func(), err error) {
	SetViperDefaults(v)
	p := Parameters{
		ReorderMeshes:         v.GetBool("reorder_meshes"),
		Partitioner:           v.GetString("partitioner"),
		QuadratureDegreeBoost: v.GetInt("quadrature_degree_boost"),
	}
	return Set(p)
}
