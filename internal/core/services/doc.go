// Package services implements the driving port interfaces.
// Services contain the core pipeline logic - chunking, index
// construction, hybrid retrieval, reranking, parent expansion and
// answer synthesis - and orchestrate calls to driven ports.
//
// Services are pure Go with no external network code of their own;
// all I/O happens behind the driven ports.
package services
