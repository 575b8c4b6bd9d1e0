/*
Package readstore gives the aggregator its read-only view of the application
schema: post ownership, user nicknames, and post snippets.

All three lookups treat a missing row as a normal outcome (ok=false) rather
than an error, because events routinely outlive the posts and users they
reference. Snippets come back already rendered to a plaintext preview via
pkg/snippet.

Lookups run outside merge transactions; the notifier resolves recipients and
enrichment first and passes the results into the transaction.
*/
package readstore
