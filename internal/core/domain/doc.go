// Package domain defines the core business entities for finqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Report: A parsed annual report identified by content hash
//   - Chunk: A bounded slice of a page, the unit of indexing and retrieval
//   - Question: A natural-language question scoped to companies
//   - Candidate: A scored chunk reference produced per query
//   - AnswerRecord: The validated structured answer for one question
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
