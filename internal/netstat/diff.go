package netstat

import (
	"sort"

	"opcreach/pkg/model"
)

// Diff computes the set difference between two listening-socket snapshots,
// keyed by address:port. Pure function; output slices are sorted.
func Diff(before, after []model.SocketRecord) model.PortDiff {
	b := keySet(before)
	a := keySet(after)

	d := model.PortDiff{
		NewPorts:     []string{},
		RemovedPorts: []string{},
		NetChange:    len(a) - len(b),
	}
	for k := range a {
		if !b[k] {
			d.NewPorts = append(d.NewPorts, k)
		}
	}
	for k := range b {
		if !a[k] {
			d.RemovedPorts = append(d.RemovedPorts, k)
		}
	}
	sort.Strings(d.NewPorts)
	sort.Strings(d.RemovedPorts)
	return d
}

func keySet(records []model.SocketRecord) map[string]bool {
	set := make(map[string]bool, len(records))
	for _, r := range records {
		set[r.Key()] = true
	}
	return set
}
