// Package layout3d lifts a 2-D trajectory graph layout into three dimensions.
//
// # Algorithm
//
// [Elevate] keeps each node's 2-D position as the x and y axes and derives z
// from the node's ordering scalar (usually pseudotime):
//
//  1. The ordering is min-max normalized to [0, 1] and stretched to the larger
//     of the x and y spans, so no axis dominates the scene. If every node has
//     the same ordering, z is 0 for all of them.
//  2. Every axis is centered on its mean.
//  3. All axes are divided by the same factor so the largest absolute
//     coordinate is 1. The result fits the [-1, 1] cube the viewer expects.
//
// Equal orderings always produce equal z values. Sums are taken in node ID
// order, so the output does not depend on the order nodes are passed in.
//
// # Bounds
//
// [BoundsOf] reports per-axis extents of a laid-out graph; the export manifest
// records them so the viewer can frame the scene.
package layout3d
