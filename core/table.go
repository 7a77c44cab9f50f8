package core

import (
	"fmt"
	"sort"
)

// DispatchTable is the static mapping from each task to its priority level
// and dispatcher slot, plus the derived per-resource priority ceilings.
// It is built once from the declarations and is read-only afterwards.
type DispatchTable struct {
	decls  []TaskDecl
	byName map[string]TaskID

	levels    []Priority       // distinct declared levels, ascending
	slotOf    map[Priority]int // level -> dispatcher slot
	levelCap  map[Priority]int // level -> summed member capacities
	ceilings  map[string]Priority
	accessors map[string]map[TaskID]struct{}
}

// NewDispatchTable validates the declarations and derives the level layout
// and resource ceilings. Every problem found is reported; a non-nil error is
// always a *ConfigurationError. The returned table is immutable.
func NewDispatchTable(tasks []TaskDecl, resources []ResourceDecl) (*DispatchTable, error) {
	var problems []string

	if len(tasks) == 0 {
		problems = append(problems, "no tasks declared")
	}

	declaredResources := make(map[string]struct{}, len(resources))
	for _, res := range resources {
		if res.Name == "" {
			problems = append(problems, "resource declared with empty name")
			continue
		}
		if _, dup := declaredResources[res.Name]; dup {
			problems = append(problems, fmt.Sprintf("resource %q declared more than once", res.Name))
			continue
		}
		declaredResources[res.Name] = struct{}{}
	}

	t := &DispatchTable{
		byName:    make(map[string]TaskID, len(tasks)),
		slotOf:    make(map[Priority]int),
		levelCap:  make(map[Priority]int),
		ceilings:  make(map[string]Priority, len(resources)),
		accessors: make(map[string]map[TaskID]struct{}, len(resources)),
	}

	for _, decl := range tasks {
		if decl.Name == "" {
			problems = append(problems, "task declared with empty name")
			continue
		}
		if _, dup := t.byName[decl.Name]; dup {
			problems = append(problems, fmt.Sprintf("task %q declared more than once", decl.Name))
			continue
		}
		if decl.Priority < 1 || decl.Priority > MaxPriority {
			problems = append(problems, fmt.Sprintf("task %q: priority %d out of range 1..%d", decl.Name, decl.Priority, MaxPriority))
			continue
		}
		if decl.Capacity < 0 {
			problems = append(problems, fmt.Sprintf("task %q: negative capacity %d", decl.Name, decl.Capacity))
			continue
		}
		if decl.Capacity == 0 {
			decl.Capacity = 1
		}

		id := TaskID(len(t.decls))
		t.byName[decl.Name] = id

		for _, resName := range decl.Resources {
			if _, known := declaredResources[resName]; !known {
				problems = append(problems, fmt.Sprintf("task %q: unknown resource %q", decl.Name, resName))
				continue
			}
			if t.accessors[resName] == nil {
				t.accessors[resName] = make(map[TaskID]struct{})
			}
			t.accessors[resName][id] = struct{}{}
			if decl.Priority > t.ceilings[resName] {
				t.ceilings[resName] = decl.Priority
			}
		}

		t.levelCap[decl.Priority] += decl.Capacity
		t.decls = append(t.decls, decl)
	}

	if len(problems) > 0 {
		return nil, &ConfigurationError{Problems: problems}
	}

	for level := range t.levelCap {
		t.levels = append(t.levels, level)
	}
	sort.Slice(t.levels, func(i, j int) bool { return t.levels[i] < t.levels[j] })
	for slot, level := range t.levels {
		t.slotOf[level] = slot
	}

	return t, nil
}

// TaskCount returns the number of declared tasks.
func (t *DispatchTable) TaskCount() int { return len(t.decls) }

// Levels returns the distinct declared priority levels, ascending. Each
// level owns one dispatcher slot (one emulated interrupt line).
func (t *DispatchTable) Levels() []Priority {
	return append([]Priority(nil), t.levels...)
}

// MaxLevel returns the highest declared priority level.
func (t *DispatchTable) MaxLevel() Priority {
	if len(t.levels) == 0 {
		return 0
	}
	return t.levels[len(t.levels)-1]
}

// Lookup maps a task to its (priority level, dispatcher slot) pair.
func (t *DispatchTable) Lookup(id TaskID) (Priority, int) {
	decl := t.decls[id]
	return decl.Priority, t.slotOf[decl.Priority]
}

// TaskByName resolves a declared task name to its ID.
func (t *DispatchTable) TaskByName(name string) (TaskID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// TaskName returns the declared name of id.
func (t *DispatchTable) TaskName(id TaskID) string { return t.decls[id].Name }

// TaskDecl returns the normalized declaration of id.
func (t *DispatchTable) TaskDecl(id TaskID) TaskDecl { return t.decls[id] }

// Ceiling returns the precomputed priority ceiling of a resource: the
// maximum static priority among the tasks that ever lock it.
func (t *DispatchTable) Ceiling(resource string) (Priority, bool) {
	c, ok := t.ceilings[resource]
	return c, ok
}

// Ceilings returns a copy of every resource ceiling.
func (t *DispatchTable) Ceilings() map[string]Priority {
	out := make(map[string]Priority, len(t.ceilings))
	for name, c := range t.ceilings {
		out[name] = c
	}
	return out
}

// mayAccess reports whether the task declared the resource in its access set.
func (t *DispatchTable) mayAccess(resource string, id TaskID) bool {
	set, ok := t.accessors[resource]
	if !ok {
		return false
	}
	_, ok = set[id]
	return ok
}

// levelCapacity returns the ready ring capacity of a level: the summed
// capacities of its member tasks.
func (t *DispatchTable) levelCapacity(level Priority) int {
	return t.levelCap[level]
}
