// Package store provides ConfigStore implementations for the typed system
// settings consumed by the sysconf controller.
//
// A store holds one value per dotted key (for example "IPL.LNG" or "BT.SENS").
// Every key has a fixed width once written: bool, uint8, uint32 or a fixed
// length byte array. Reading a key with a different width than the one it was
// written with fails with ErrTypeMismatch.
//
// Scalar writes never fail for a well-formed key. Array writes are checked
// against the declared length of the key and refused with ErrArrayRejected on
// mismatch, which callers surface as a non-fatal diagnostic.
//
// Implementations:
//
//	MemoryStore            in-process map, intended for tests and embedding
//	sqlitestore.Store      persistent store backed by modernc.org/sqlite
//
// The sysconf package owns the consuming interface; this package never imports
// it so adapters can live outside the core.
package store
