// Package ctrie implements a concurrent, lock-free hash array mapped
// trie (a "Ctrie"): a Map that supports get, put, conditional put,
// remove and conditional remove under arbitrary concurrent access
// without taking any lock.
//
// Every node in the trie except the indirection node (iNode) is
// immutable once constructed; mutation happens exclusively through a
// compare-and-swap of an iNode's main-node pointer. Writers that lose
// a CAS race either retry from the root or, if they observe a tomb
// node left behind by a concurrent removal, help contract the trie
// before retrying. This design is described in Prokopec, Bagwell and
// Odersky, "Concurrent Tries with Efficient Non-Blocking Snapshots".
package ctrie
