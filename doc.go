// Package parley is a deterministic orchestration engine for multi-turn,
// task-oriented dialogues.
//
// Flows are declarative step lists (say, collect, action, branch, confirm,
// while, set) compiled into validated graphs before any conversation starts.
// At runtime the engine keeps all conversation state in a Snapshot value: a
// stack of flow instances for nested digressions, per-flow slot stores, and
// the single pending question. Each turn the host passes the snapshot and the
// user's text; an Understander port turns the text into structured
// instructions, a dispatcher applies them, and the engine drives the active
// flow's graph until it needs the user again.
//
// The engine performs no language understanding and no I/O of its own. Both
// are ports: plug in an LLM-backed Understander and real ActionExecutor in
// production, and the bundled keyword matcher plus an action registry in
// tests.
package parley
