// Package registry maps the action and condition names used by declarative
// tree definitions to Go implementations.
package registry
