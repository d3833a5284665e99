// Package slide renders slide markup in two phases.
//
// RenderStatic turns parsed blocks into a Tree synchronously. Every fenced
// block is classified by its language tag: diagrams become inert placeholders
// and everything else is rendered as static code markup. Hydrate later walks
// the Tree in document order, hands each placeholder's text to a diagram
// engine and swaps the graphic in, one diagram at a time. A diagram that fails
// keeps its text and is reported to a Sink; its siblings are unaffected.
//
// View ties both phases to a slide's lifetime: Mount renders the static tree
// and schedules hydration, Update remounts only when the markup changed and
// Unmount detaches the tree so late engine results are dropped.
package slide
