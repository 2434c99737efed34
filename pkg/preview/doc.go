// Package preview draws the laid-out trajectory graph as a flat node-link
// diagram for a quick look outside VR.
//
// # Overview
//
// [ToDOT] projects each node's 3-D layout position onto the x/y plane and
// pins it there, so the picture keeps the shape the viewer will show. Node
// fill follows the ordering axis (z) through the gene colormap: early nodes
// are dark, late ones bright. Edge width follows connectivity weight.
//
//	dot := preview.ToDOT(ds, points, preview.Options{})
//	svg, err := preview.RenderSVG(ctx, dot)
//
// # Dependencies
//
// [RenderSVG] runs Graphviz in-process through [github.com/goccy/go-graphviz]
// with the neato engine, which honors pinned positions.
package preview
