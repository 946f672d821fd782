// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - IndexStore: per-report persistence of chunk sets and indexes
//   - ReportCatalog: report metadata lookup and company resolution
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - EmbeddingService: generates vector embeddings. Without it, dense
//     indexing and retrieval are disabled.
//   - LLMService: language model operations. Without it, reranking and
//     answer synthesis are disabled.
//
// # Import Rules
//
//   - Can Import: domain and the pure index packages only
//   - Cannot Import: Any adapter package
package driven
