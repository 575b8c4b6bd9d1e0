/*
Package snippet renders stored post snippets into plaintext previews.

Posts store a snippet column holding a serialized structured document:
nested nodes with a type, optional leaf text, and optional child content.
Notification records embed a short plaintext preview of that document, not
the document itself, so clients can render a notification line without
understanding the post format.

# Rendering Rules

  - Parseable documents are flattened depth-first; leaf text joins with
    single spaces
  - Input that does not parse as a document is kept as raw text
  - Whitespace runs collapse to single spaces
  - Output is truncated to MaxRunes runes (rune-safe, never splitting a
    multi-byte character) and terminated with an ellipsis when cut

# Usage

	preview := snippet.Render(rawSnippet)

Render is pure and performs no I/O; callers are responsible for fetching
the raw column value (see pkg/readstore).

# Integration Points

This package integrates with:

  - pkg/readstore: Renders the posts.snippet column on lookup
  - pkg/notifier: Previews land in post-centric aggregate records

# See Also

  - pkg/types for the PostRecord shape carrying the preview
*/
package snippet
