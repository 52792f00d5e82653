// Package scenario defines the sequential probe suites and runs them.
//
// A [Suite] groups ordered [Step]s under scenario tags. The built-in suites
// cover realistic debugging questions, architecture questions, paraphrase
// groups, temperature variation and max-token variation; [Demo] is a short
// walk through a miss, an exact repeat and paraphrases. Extra suites can be
// loaded from YAML with [LoadFile].
package scenario
