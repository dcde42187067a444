package bvh

import (
	"sort"
	"sync"
	"time"

	"github.com/achilleasa/lumen/asset/scene"
	"github.com/achilleasa/lumen/config"
	"github.com/achilleasa/lumen/log"
	"github.com/achilleasa/lumen/types"
)

const (
	// Subtrees with fewer primitives than this value are always built by
	// the goroutine that owns their parent.
	parallelThreshold = 1024

	// Initial node capacity for sequential builds.
	initialNodeCapacity = 64
)

// Options control the tree layout.
type Options struct {
	// The max number of primitives stored in a leaf. Values < 1 select
	// config.DefaultMaxLeafSize.
	MaxLeafSize int

	// Build independent subtrees concurrently. The generated tree is
	// identical to the one produced by a sequential build.
	Parallel bool
}

// Build statistics.
type Stats struct {
	TotalItems       int
	PartitionedItems int
	Nodes            int
	Leafs            int
	MaxDepth         int
	BuildTime        time.Duration
}

// The output of a BVH build.
type Result struct {
	// The tree nodes in pre-order with the root at index 0.
	Nodes []scene.BvhNode

	// Triangle indices reordered so that each leaf references a
	// contiguous run.
	PrimitiveIndices []uint32

	Stats Stats
}

// Per-triangle data used while partitioning.
type primitiveInfo struct {
	index    uint32
	bbox     types.AABB
	centroid types.Vec3
}

type builder struct {
	logger log.Logger

	maxLeafSize int
	prims       []primitiveInfo

	// Bvh nodes stored as a contiguous list. For sequential builds the list
	// grows on demand; parallel builds preallocate it.
	nodes     []scene.BvhNode
	nodeCount int
}

// Construct a BVH over a list of triangles using a median split along the
// axis with the largest centroid extent.
func Build(tris []scene.Triangle, opts Options) Result {
	if opts.MaxLeafSize < 1 {
		opts.MaxLeafSize = config.DefaultMaxLeafSize
	}

	b := &builder{
		logger:      log.New("bvh builder"),
		maxLeafSize: opts.MaxLeafSize,
		prims:       make([]primitiveInfo, len(tris)),
	}

	for i := range tris {
		b.prims[i] = primitiveInfo{
			index:    uint32(i),
			bbox:     tris[i].BBox(),
			centroid: tris[i].Centroid(),
		}
	}

	start := time.Now()
	if opts.Parallel {
		b.nodeCount = subtreeNodes(len(b.prims), b.maxLeafSize)
		b.nodes = make([]scene.BvhNode, b.nodeCount)
		b.partitionParallel(0, len(b.prims), 0)
	} else {
		b.nodes = make([]scene.BvhNode, initialNodeCapacity)
		b.partition(0, len(b.prims))

		// Trim unused slots
		trimmed := make([]scene.BvhNode, b.nodeCount)
		copy(trimmed, b.nodes)
		b.nodes = trimmed
	}

	res := Result{
		Nodes:            b.nodes,
		PrimitiveIndices: make([]uint32, len(b.prims)),
	}
	for i, prim := range b.prims {
		res.PrimitiveIndices[i] = prim.index
	}

	res.Stats = collectStats(res.Nodes)
	res.Stats.TotalItems = len(tris)
	res.Stats.BuildTime = time.Since(start)
	b.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d",
		res.Stats.BuildTime.Nanoseconds()/1e6,
		res.Stats.MaxDepth, res.Stats.Nodes, res.Stats.Leafs,
	)

	return res
}

// Allocate the next node slot, doubling the node list when it is full.
func (b *builder) allocNode() int {
	nodeIndex := b.nodeCount
	if nodeIndex >= len(b.nodes) {
		grown := make([]scene.BvhNode, 2*len(b.nodes))
		copy(grown, b.nodes)
		b.nodes = grown
	}
	b.nodeCount++
	return nodeIndex
}

// Partition primitives in the [start, end) range and return the node index.
func (b *builder) partition(start, end int) int32 {
	nodeIndex := b.allocNode()

	node, mid := b.split(start, end)
	if node.IsLeaf {
		b.nodes[nodeIndex] = node
		return int32(nodeIndex)
	}

	leftNodeIndex := b.partition(start, mid)
	rightNodeIndex := b.partition(mid, end)
	node.SetChildNodes(leftNodeIndex, rightNodeIndex)
	b.nodes[nodeIndex] = node

	return int32(nodeIndex)
}

// Partition primitives in the [start, end) range into the preallocated node
// slot nodeIndex. Left subtrees large enough to be worth it are built in a
// separate goroutine.
func (b *builder) partitionParallel(start, end, nodeIndex int) {
	node, mid := b.split(start, end)
	if !node.IsLeaf {
		leftNodeIndex := nodeIndex + 1
		rightNodeIndex := leftNodeIndex + subtreeNodes(mid-start, b.maxLeafSize)
		node.SetChildNodes(int32(leftNodeIndex), int32(rightNodeIndex))

		if end-start >= parallelThreshold {
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.partitionParallel(start, mid, leftNodeIndex)
			}()
			b.partitionParallel(mid, end, rightNodeIndex)
			wg.Wait()
		} else {
			b.partitionParallel(start, mid, leftNodeIndex)
			b.partitionParallel(mid, end, rightNodeIndex)
		}
	}

	b.nodes[nodeIndex] = node
}

// Calculate the node bbox for the [start, end) range. If the range holds more
// primitives than the leaf limit, sort it along the axis with the largest
// centroid extent and return the split point. Sorting only touches the
// range, so disjoint ranges can be split concurrently.
func (b *builder) split(start, end int) (scene.BvhNode, int) {
	var node scene.BvhNode
	node.BBox = types.EmptyAABB()
	for i := start; i < end; i++ {
		node.BBox = node.BBox.Union(b.prims[i].bbox)
	}

	if end-start <= b.maxLeafSize {
		node.SetPrimitives(int32(start), int32(end-start))
		return node, start
	}

	centroidBBox := types.EmptyAABB()
	for i := start; i < end; i++ {
		centroidBBox = centroidBBox.Expand(b.prims[i].centroid)
	}
	axis := centroidBBox.MaxExtent()

	workList := b.prims[start:end]
	sort.SliceStable(workList, func(i, j int) bool {
		return workList[i].centroid[axis] < workList[j].centroid[axis]
	})

	return node, (start + end) / 2
}

// Get the number of nodes in a subtree over count primitives. The median
// split always sends count/2 primitives to the left child so the subtree
// shape only depends on the primitive count.
func subtreeNodes(count, maxLeafSize int) int {
	if count <= maxLeafSize {
		return 1
	}
	left := count / 2
	return 1 + subtreeNodes(left, maxLeafSize) + subtreeNodes(count-left, maxLeafSize)
}

// Walk the tree and collect node statistics.
func collectStats(nodes []scene.BvhNode) Stats {
	var stats Stats
	if len(nodes) == 0 {
		return stats
	}

	type entry struct {
		node  int32
		depth int
	}
	stack := []entry{{0, 0}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		stats.Nodes++
		if cur.depth > stats.MaxDepth {
			stats.MaxDepth = cur.depth
		}

		node := &nodes[cur.node]
		if node.IsLeaf {
			stats.Leafs++
			stats.PartitionedItems += int(node.Count)
			continue
		}
		stack = append(stack, entry{node.Right, cur.depth + 1}, entry{node.Left, cur.depth + 1})
	}
	return stats
}
