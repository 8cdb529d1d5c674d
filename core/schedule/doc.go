// Package schedule holds the energy-balance core: the priority allocator,
// the battery ledger, the deficit formula and the advisory warning
// classifier. Every function is pure and synchronous; callers own the state
// and serialise ticks.
package schedule
