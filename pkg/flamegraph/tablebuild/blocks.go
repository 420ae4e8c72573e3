package tablebuild

import (
	"slices"
	"strings"

	"github.com/yandex/perforator-flame/pkg/flamegraph/collapsed"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
)

const truncatedStack = "(truncated stack)"

////////////////////////////////////////////////////////////////////////////////

type block struct {
	parent *block
	key    string
	frame  collapsed.Frame

	value uint64
	flat  uint64

	timestamp    uint64
	hasTimestamp bool

	children map[string]*block
	ordered  []*block
}

func frameKey(f collapsed.Frame) string {
	return strings.Join([]string{f.Name, f.File, f.Binary}, "\x00")
}

type blocksBuilder struct {
	root        *block
	timeOrdered bool
}

func newBlocksBuilder(rootName string, timeOrdered bool) *blocksBuilder {
	res := &blocksBuilder{timeOrdered: timeOrdered}
	res.root = res.newBlock(nil, "", collapsed.Frame{Name: rootName})
	return res
}

func (b *blocksBuilder) newBlock(parent *block, key string, frame collapsed.Frame) *block {
	res := &block{
		key:    key,
		parent: parent,
		frame:  frame,
	}
	if !b.timeOrdered {
		res.children = make(map[string]*block)
	}
	return res
}

func (b *blocksBuilder) child(blk *block, frame collapsed.Frame) *block {
	key := frameKey(frame)

	if b.timeOrdered {
		// Only the most recent child may absorb a sample; anything else would
		// reorder time.
		if n := len(blk.ordered); n > 0 && blk.ordered[n-1].key == key {
			return blk.ordered[n-1]
		}
		res := b.newBlock(blk, key, frame)
		blk.ordered = append(blk.ordered, res)
		return res
	}

	res, found := blk.children[key]
	if !found {
		res = b.newBlock(blk, key, frame)
		blk.children[key] = res
		blk.ordered = append(blk.ordered, res)
	}
	return res
}

// sortedChildren returns children in layout order: by key for space-ordered
// trees, by first appearance for time-ordered ones.
func (b *blocksBuilder) sortedChildren(blk *block) []*block {
	if b.timeOrdered {
		return blk.ordered
	}
	children := slices.Clone(blk.ordered)
	slices.SortFunc(children, func(lhs, rhs *block) int {
		return strings.Compare(lhs.key, rhs.key)
	})
	return children
}

// Finish flattens the tree into rows in preorder. Children lighter than
// minWeight of the total are merged into one truncated row per parent.
func (b *blocksBuilder) Finish(minWeight float64) []Row {
	minValue := uint64(0)
	if minWeight > 1e-6 {
		minValue = uint64(minWeight * float64(b.root.value))
	}

	rows := make([]Row, 0, 1024)
	var walk func(blk *block, parent int32)
	walk = func(blk *block, parent int32) {
		idx := int32(len(rows))
		rows = append(rows, blockRow(blk, parent))

		var folded *block
		for _, child := range b.sortedChildren(blk) {
			if child.value < minValue {
				if folded == nil {
					folded = &block{frame: collapsed.Frame{Name: truncatedStack}}
				}
				folded.value += child.value
				folded.flat += child.value
				if child.hasTimestamp && !folded.hasTimestamp {
					folded.timestamp, folded.hasTimestamp = child.timestamp, true
				}
				continue
			}
			walk(child, idx)
		}
		if folded != nil {
			rows = append(rows, blockRow(folded, idx))
		}
	}
	walk(b.root, table.NoParent)

	return rows
}

func blockRow(blk *block, parent int32) Row {
	return Row{
		Parent:       parent,
		Cumulative:   blk.value,
		Flat:         blk.flat,
		Timestamp:    blk.timestamp,
		FunctionName: blk.frame.Name,
		Filename:     blk.frame.File,
		Binary:       blk.frame.Binary,
	}
}

////////////////////////////////////////////////////////////////////////////////

type blocksIterator struct {
	builder *blocksBuilder
	block   *block
	value   uint64
	depth   int

	timestamp    uint64
	hasTimestamp bool
}

func (b *blocksBuilder) MakeIterator(value uint64, timestamp uint64, hasTimestamp bool) *blocksIterator {
	i := &blocksIterator{
		builder:      b,
		block:        b.root,
		value:        value,
		timestamp:    timestamp,
		hasTimestamp: hasTimestamp,
	}
	i.add()
	return i
}

func (i *blocksIterator) Advance(frame collapsed.Frame) {
	i.block = i.builder.child(i.block, frame)
	i.add()
	i.depth++
}

func (i *blocksIterator) Depth() int {
	return i.depth
}

// Done attributes the sample to the current block's own value.
func (i *blocksIterator) Done() {
	i.block.flat += i.value
}

func (i *blocksIterator) add() {
	i.block.value += i.value
	if i.hasTimestamp && !i.block.hasTimestamp {
		i.block.timestamp = i.timestamp
		i.block.hasTimestamp = true
	}
}
