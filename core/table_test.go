package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// TestNewDispatchTable_LayoutAndCeilings verifies level assignment and
// ceiling derivation
// Given: Three tasks across two levels sharing one resource
// When: The dispatch table is built
// Then: Slots follow ascending level order and ceilings are the max
// accessor priority
func TestNewDispatchTable_LayoutAndCeilings(t *testing.T) {
	table, err := NewDispatchTable(
		[]TaskDecl{
			{Name: "low-a", Priority: 1, Capacity: 2, Resources: []string{"r"}},
			{Name: "low-b", Priority: 1},
			{Name: "high", Priority: 3, Capacity: 1, Resources: []string{"r"}},
		},
		[]ResourceDecl{{Name: "r"}},
	)
	if err != nil {
		t.Fatalf("NewDispatchTable failed: %v", err)
	}

	levels := table.Levels()
	if len(levels) != 2 || levels[0] != 1 || levels[1] != 3 {
		t.Fatalf("Levels() = %v, want [1 3]", levels)
	}
	if table.MaxLevel() != 3 {
		t.Errorf("MaxLevel() = %d, want 3", table.MaxLevel())
	}

	id, ok := table.TaskByName("low-b")
	if !ok {
		t.Fatal("TaskByName(low-b) not found")
	}
	level, slot := table.Lookup(id)
	if level != 1 || slot != 0 {
		t.Errorf("Lookup(low-b) = (%d, %d), want (1, 0)", level, slot)
	}
	// Default capacity is 1
	if got := table.TaskDecl(id).Capacity; got != 1 {
		t.Errorf("low-b capacity = %d, want 1 (default)", got)
	}

	ceiling, ok := table.Ceiling("r")
	if !ok || ceiling != 3 {
		t.Errorf("Ceiling(r) = (%d, %v), want (3, true)", ceiling, ok)
	}

	// Level 1 multiplexes low-a and low-b: capacity 2 + 1
	if got := table.levelCapacity(1); got != 3 {
		t.Errorf("levelCapacity(1) = %d, want 3", got)
	}
}

// TestNewDispatchTable_ProblemsAggregated verifies configuration errors
// Given: Declarations with several independent defects
// When: The dispatch table is built
// Then: A single ConfigurationError names every problem
func TestNewDispatchTable_ProblemsAggregated(t *testing.T) {
	_, err := NewDispatchTable(
		[]TaskDecl{
			{Name: "a", Priority: 1},
			{Name: "a", Priority: 2},                               // duplicate
			{Name: "b", Priority: 0},                               // out of range
			{Name: "c", Priority: 2, Resources: []string{"ghost"}}, // unknown resource
		},
		nil,
	)
	if err == nil {
		t.Fatal("NewDispatchTable succeeded, want ConfigurationError")
	}

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type = %T, want *ConfigurationError", err)
	}
	if len(cfgErr.Problems) != 3 {
		t.Errorf("len(Problems) = %d, want 3: %v", len(cfgErr.Problems), cfgErr.Problems)
	}
	for _, fragment := range []string{"declared more than once", "out of range", "unknown resource"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q does not mention %q", err.Error(), fragment)
		}
	}
}

// TestNewDispatchTable_Empty verifies the no-tasks defect
func TestNewDispatchTable_Empty(t *testing.T) {
	_, err := NewDispatchTable(nil, nil)
	if err == nil {
		t.Fatal("NewDispatchTable(nil) succeeded, want error")
	}
	if !strings.Contains(err.Error(), "no tasks declared") {
		t.Errorf("error = %q, want mention of missing tasks", err.Error())
	}
}

// TestBuild_RegistryParity verifies handler/declaration cross checking
// Given: A declaration without a handler and a handler without a declaration
// When: Build runs
// Then: Both mismatches are reported as configuration problems
func TestBuild_RegistryParity(t *testing.T) {
	reg := NewRegistry()
	RegisterTask(reg, "registered-only", func(ctx context.Context, _ struct{}) {})

	_, err := Build([]TaskDecl{{Name: "declared-only", Priority: 1}}, nil, reg, nil)
	if err == nil {
		t.Fatal("Build succeeded, want ConfigurationError")
	}
	msg := err.Error()
	if !strings.Contains(msg, `task "declared-only" declared but no handler registered`) {
		t.Errorf("error %q missing declared-only problem", msg)
	}
	if !strings.Contains(msg, `handler "registered-only" registered but task not declared`) {
		t.Errorf("error %q missing registered-only problem", msg)
	}
}
