// Package facets compares facet term counts for the same documents across
// several index deployments, typically one collection restored into two
// server versions.
package facets
