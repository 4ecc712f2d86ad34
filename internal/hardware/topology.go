package hardware

import "strings"

// hybridTopology is a static core layout for a known heterogeneous CPU
// family. Hyperthread siblings are excluded from the performance list so
// one worker per physical core can be pinned.
type hybridTopology struct {
	match       string // substring of the CPU model name
	performance []int
	efficiency  []int
	lowPower    []int
}

// knownTopologies covers the hybrid Intel Core Ultra (Meteor Lake) family.
// P-cores occupy even ids (odd ids are their SMT siblings), E-cores follow,
// then the two low-power E-cores on the SoC tile.
var knownTopologies = []hybridTopology{
	{
		match:       "Core(TM) Ultra 7 165H",
		performance: []int{0, 2, 4, 6, 8, 10},
		efficiency:  []int{12, 13, 14, 15, 16, 17, 18, 19},
		lowPower:    []int{20, 21},
	},
	{
		match:       "Core(TM) Ultra 5 125H",
		performance: []int{0, 2, 4, 6},
		efficiency:  []int{8, 9, 10, 11, 12, 13, 14, 15},
		lowPower:    []int{16, 17},
	},
}

// partitionCores maps the CPU model to a static topology table. Unrecognized
// topologies collapse into a single performance pool covering every logical
// core, which keeps the engine valid on any host.
func partitionCores(model string, numCPU int) (performance, efficiency, lowPower []int) {
	for _, t := range knownTopologies {
		if strings.Contains(model, t.match) && coreCount(t) <= numCPU {
			return append([]int(nil), t.performance...),
				append([]int(nil), t.efficiency...),
				append([]int(nil), t.lowPower...)
		}
	}

	performance = make([]int, numCPU)
	for i := range performance {
		performance[i] = i
	}
	return performance, nil, nil
}

func coreCount(t hybridTopology) int {
	max := 0
	for _, set := range [][]int{t.performance, t.efficiency, t.lowPower} {
		for _, id := range set {
			if id >= max {
				max = id + 1
			}
		}
	}
	return max
}
