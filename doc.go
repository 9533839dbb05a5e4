// Package cryptii provides a live, bidirectional pipe of content bricks.
//
// # Overview
//
// A Pipe is an ordered sequence of bricks. Between transform bricks sit
// buckets, each holding one immutable chain.Chain:
//
//	[0] text ── caesar-cipher ── [1] text ── base64 ── [2] text
//
// Two kinds of bricks exist:
//
//  1. Transform bricks span two adjacent buckets and translate content
//     between them: encode reads the lower bucket and writes the upper one,
//     decode goes the other way.
//  2. Display bricks attach to a single bucket; they show its content and
//     report local edits back to the pipe.
//
// The number of buckets is always one more than the number of transforms.
//
// # Propagation
//
// Editing any bucket updates every other bucket:
//
//	p := cryptii.New(cryptii.WithFactory(bricks.NewFactory()))
//	_ = p.AddBricks(bricks.NewTextViewer(), bricks.NewCaesarCipher(), bricks.NewTextViewer())
//	_ = p.SetContent(chain.FromString("abc"), 0, nil)
//
//	out, err := p.Await(ctx, 1) // "hij"
//
// A commit to a bucket notifies the displays attached to it and the
// transforms on either side, except the brick that produced the content.
// Results of translations arrive as new commits, so a change spreads
// outward from the edited bucket until no bucket changes anymore. Commits
// of content equal to the current content are dropped, which ends every
// cycle.
//
// Each brick runs at most one operation at a time. A trigger that arrives
// while the brick is busy is dropped; when the running operation returns,
// the pipe compares its input and the brick's settings version with the
// live state and runs it again if either changed. Results of bricks that
// left the pipe are discarded, and a translation whose direction was
// overtaken by an edit on its far side is replaced by one in the opposite
// direction.
//
// # Structure
//
// SpliceBricks and its helpers (AddBricks, RemoveBrick, ReplaceBrick,
// MoveBrick, DuplicateBrick) change the sequence. The selected bucket, the
// last one edited from outside, decides which side of a structural change
// is authoritative.
//
// # Extensions
//
// Extensions wrap brick operations and observe errors, commits and
// splices:
//
//	p := cryptii.New(cryptii.WithExtension(extensions.NewLogging(logger)))
//
// # History
//
// Every content edit, settings change and splice pushes a serialized
// snapshot to a bounded undo history; Undo and Redo restore them.
package cryptii
