// Package rewrite implements deferred tree rewriting.
//
// A Traverser walks the tree depth first and calls per-kind hooks. Hooks
// never mutate the tree while it is being walked; they queue replacements,
// removals and statement insertions instead. Commit applies the queue
// atomically once traversal has finished: either every live edit lands or,
// when one of them no longer matches the tree, none does.
package rewrite
