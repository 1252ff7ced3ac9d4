// Package subtitle defines the segment data model threaded through every
// pipeline stage, the speaker profile registry, and the SRT codec used for
// timestamps and final output rendering.
package subtitle
