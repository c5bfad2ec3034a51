//go:build metis

package mesh

import (
	"fmt"

	metis "github.com/notargets/go-metis"
)

func init() {
	metisPartGraph = partGraphMetis
}

func partGraphMetis(xadj, adjncy, vwgt, adjwgt []int32, nparts int32,
	ubvec []float32, objective string) (part []int32, objval int32, err error) {
	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		return nil, 0, fmt.Errorf("failed to set METIS options: %w", err)
	}
	if objective == "vol" {
		opts[metis.OptionObjType] = metis.ObjTypeVol
	} else {
		opts[metis.OptionObjType] = metis.ObjTypeCut
	}
	return metis.PartGraphKwayWeighted(xadj, adjncy, vwgt, adjwgt, nparts, nil, ubvec, opts)
}
