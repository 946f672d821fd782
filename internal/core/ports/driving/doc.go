// Package driving defines the interfaces through which the outside
// world drives the core (primary ports). The CLI adapter depends on
// these interfaces; core services implement them.
package driving
