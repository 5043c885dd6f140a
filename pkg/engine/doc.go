// Package engine lays out timeline milestones on a two-dimensional canvas.
//
// # Overview
//
// A layout pass walks a timeline's milestones in order and resolves, for
// each one, a horizontal position from its date and a vertical position for
// its marker and for its label. The result is a DrawPlan: three buffered
// lists of operations that renderers draw in a fixed order.
//
//  1. Connectors - vertical lines from each marker to its label
//  2. Markers - one shape per milestone on the marker tracks
//  3. Labels - one text box per milestone on the label tracks
//
// Later operations sit above earlier ones, so connector lines never cover a
// marker or a label.
//
// # Positioning
//
// The date axis runs from the timeline's start date (day 1) to its end date.
// A day's proportion along the axis maps linearly onto [LeftX, RightX].
// Dates after the end date extrapolate past RightX. Dates before the start
// date are rejected unless the engine is built with EarlyDateClamp.
//
// Tracks are signed integers. Positive tracks lie below the centre line and
// negative tracks above it; TrackLocation converts a track number into a
// vertical coordinate using the timeline's TrackGeometry.
//
// Label boxes are wider than markers, so each label is shifted horizontally
// by EdgeShift. On the first day the label's left edge lines up with the
// marker's left edge and on the last day the right edges line up.
//
// # Track Allocation
//
// Each level alternates between the two sides of the centre line. Its
// marker sits on track (level-1) times the current side, and its label is
// handed a lane by the TrackAllocator. The allocator keeps a cursor per
// horizontal zone (left, middle and right thirds of the canvas) and side,
// and cycles it through 1..NumTextTracks so labels close together on the
// axis spread over different lanes. Explicit track overrides replace the
// computed tracks and never advance the allocator.
//
// # Usage
//
//	eng, err := engine.NewLayoutEngine(cfg, catalog,
//	    engine.WithName("Programme"),
//	    engine.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	plan, err := eng.Layout(ctx, milestones)
//
// Several timelines can be laid out concurrently with Batch; milestones
// within one timeline are always processed sequentially.
package engine
