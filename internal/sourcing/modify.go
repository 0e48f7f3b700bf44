package sourcing

import "fmt"

// Modification is one named transform in the optional modifications pipeline
// (spec.md §4.1): "instance -> instance | drop". Returning ok=false drops
// the instance from the aggregate without aborting the rest of the refresh.
type Modification func(Instance) (out Instance, ok bool, err error)

var modifications = map[string]Modification{}

// RegisterModification adds a named transform to the process-wide registry
// that configuration's "modifications" list is resolved against.
func RegisterModification(name string, m Modification) {
	modifications[name] = m
}

// applyModifications runs the configured, ordered list of named transforms
// over one instance. The first transform to drop the instance (ok=false) or
// error short-circuits the rest — a dropped instance does not need further
// transformation, and an error on this instance must not propagate failure
// to the rest of the refresh (spec.md §4.1: "Failure of a transform on one
// instance drops that instance and records an error; it does not abort the
// refresh").
func applyModifications(names []string, inst Instance) (Instance, bool, error) {
	for _, name := range names {
		m, ok := modifications[name]
		if !ok {
			return Instance{}, false, fmt.Errorf("sourcing: unregistered modification %q", name)
		}
		var err error
		inst, ok, err = m(inst)
		if err != nil {
			return Instance{}, false, fmt.Errorf("sourcing: modification %q: %w", name, err)
		}
		if !ok {
			return Instance{}, false, nil
		}
	}
	return inst, true, nil
}
