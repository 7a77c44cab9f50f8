package core

// LevelStats represents runtime observability state for one priority level.
type LevelStats struct {
	Level   Priority
	Slot    int
	Depth   int
	Pending bool
	Running bool
}

// AppStats is a point-in-time snapshot of the runtime, suitable for pollers.
type AppStats struct {
	Spawned    int64
	Dispatched int64
	Rejected   int64
	Scheduled  int
	Levels     []LevelStats
}

// Stats snapshots the runtime counters and per-level dispatcher state.
func (a *App) Stats() AppStats {
	stats := AppStats{
		Spawned:    a.spawned.Load(),
		Dispatched: a.dispatched.Load(),
		Rejected:   a.rejected.Load(),
		Scheduled:  a.clock.ScheduledCount(),
	}

	a.gate.mu.Lock()
	for slot, level := range a.table.levels {
		stats.Levels = append(stats.Levels, LevelStats{
			Level:   level,
			Slot:    slot,
			Depth:   a.rings[slot].len(),
			Pending: a.gate.pending[level],
			Running: a.gate.running[level],
		})
	}
	a.gate.mu.Unlock()

	return stats
}
