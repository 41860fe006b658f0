// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
package ir

import "chococ/utils"

// Pattern matches one operation kind and rewrites it in place.
// MatchAndRewrite returns true if it changed the IR.
type Pattern interface {
	Kind() OpKind
	MatchAndRewrite(op *Operation, rw *Rewriter) bool
}

// Rewriter is the mutation API handed to patterns: replace_op, erase_op,
// insert_before/after, inline_block_after. In recursive mode it records the
// operations it inserts in worklist, but ApplyPatterns does not read that
// list: it reaches a fixed point by re-walking every block of the module
// until a whole pass changes nothing.
type Rewriter struct {
	module    *Module
	worklist  []*Operation
	recursive bool
}

func newRewriter(m *Module, recursive bool) *Rewriter {
	return &Rewriter{module: m, recursive: recursive}
}

func (rw *Rewriter) Module() *Module { return rw.module }

// ReplaceOp detaches old, moving every remaining use of its results onto
// resultMap[i] (nil means "this result must have no remaining uses"), then
// erases old. newOps have already been inserted by the caller (typically
// via InsertBefore) before calling ReplaceOp.
func (rw *Rewriter) ReplaceOp(old *Operation, resultMap []*Value) {
	utils.Assert(len(resultMap) == len(old.Results), "replace_op: result_map length mismatch")
	for i, nv := range resultMap {
		ov := old.Results[i]
		if nv == nil {
			utils.Assert(!ov.HasUses(), "replace_op: result %s still has uses with a nil mapping", ov.String())
			continue
		}
		ov.ReplaceAllUsesWith(nv)
	}
	old.Parent.Erase(old)
}

// EraseOp erases op, which must have no remaining uses on any result.
func (rw *Rewriter) EraseOp(op *Operation) {
	op.Parent.Erase(op)
}

func (rw *Rewriter) InsertBefore(anchor, op *Operation) {
	anchor.Parent.InsertBefore(anchor, op)
	if rw.recursive {
		rw.worklist = append(rw.worklist, op)
	}
}

func (rw *Rewriter) InsertAfter(anchor, op *Operation) {
	anchor.Parent.InsertAfter(anchor, op)
	if rw.recursive {
		rw.worklist = append(rw.worklist, op)
	}
}

// InlineBlockAfter splices every operation out of block (which must not be
// used again afterwards) into anchor's parent block, positioned right after
// anchor, preserving order. No pass in this module calls it at present.
func (rw *Rewriter) InlineBlockAfter(block *Block, anchor *Operation) {
	dest := anchor.Parent
	ops := append([]*Operation(nil), block.Ops...)
	block.Ops = nil
	at := anchor
	for _, op := range ops {
		dest.InsertAfter(at, op)
		at = op
		if rw.recursive {
			rw.worklist = append(rw.worklist, op)
		}
	}
}

// DriverOptions configures ApplyPatterns.
type DriverOptions struct {
	// ApplyRecursively re-checks operations produced by a rewrite, driving
	// to a fixed point, rather than a single linear pass.
	ApplyRecursively bool
	// WalkReverse iterates each block from its last operation backwards;
	// dead-code elimination relies on this so uses disappear before defs.
	WalkReverse bool
	// MaxIterations defensively bounds fixed-point iteration (see the
	// concurrency model: "implementations should cap iteration count
	// defensively").
	MaxIterations int
}

// ApplyPatterns runs patterns (one per operation kind, at most) over every
// block reachable from module.Body, returning whether anything changed.
func ApplyPatterns(module *Module, patterns []Pattern, opts DriverOptions) bool {
	byKind := make(map[OpKind]Pattern, len(patterns))
	for _, p := range patterns {
		byKind[p.Kind()] = p
	}
	maxIter := opts.MaxIterations
	if maxIter == 0 {
		maxIter = 1000
	}
	anyChanged := false
	changed := true
	iter := 0
	for changed && iter < maxIter {
		changed = false
		iter++
		walkRegion(module, module.Body, byKind, opts, &changed)
		if changed {
			anyChanged = true
		}
		if !opts.ApplyRecursively {
			break
		}
	}
	return anyChanged
}

func walkRegion(m *Module, r *Region, byKind map[OpKind]Pattern, opts DriverOptions, changed *bool) {
	for _, b := range r.Blocks {
		walkBlock(m, b, byKind, opts, changed)
	}
}

func walkBlock(m *Module, b *Block, byKind map[OpKind]Pattern, opts DriverOptions, changed *bool) {
	ops := append([]*Operation(nil), b.Ops...)
	if opts.WalkReverse {
		for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
			ops[i], ops[j] = ops[j], ops[i]
		}
	}
	rw := newRewriter(m, opts.ApplyRecursively)
	for _, op := range ops {
		if op.Parent == nil {
			continue // already erased by an earlier rewrite this pass
		}
		for _, region := range op.Regions {
			walkRegion(m, region, byKind, opts, changed)
		}
		if p, ok := byKind[op.Kind]; ok {
			if p.MatchAndRewrite(op, rw) {
				*changed = true
			}
		}
	}
}
