// Package ports declares the interfaces between the engine core and its
// external collaborators: the understanding provider, the action executor,
// snapshot persistence, and distributed locking. Adapters implement them;
// the engine only ever sees the interface.
package ports
