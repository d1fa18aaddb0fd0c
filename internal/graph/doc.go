// Package graph holds the undirected weighted graph used by the Hopfield
// models: a symmetric adjacency layer, a symmetric weight layer and per-node
// derived views. Values are copied explicitly with Clone; nothing here is
// safe for concurrent mutation.
package graph
