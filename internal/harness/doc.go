// Package harness provides a conformance testing framework for the decoder
// generator.
//
// A scenario is a YAML file naming a format module, the top format to
// compile, and assertions over the result:
//
//	name: png_chunks
//	description: "Chunk records share one declaration"
//	module: ../modules/png.cue
//	top: png
//	assertions:
//	  - type: decl_names
//	    names: [PngChunk, Png]
//	  - type: func_shape
//	    func: png
//	    shape: sequential
//	  - type: contains
//	    text: "p.Finish()"
//
// Scenarios with `expect: error` assert that the module is rejected, using
// error_contains assertions on the compile error.
//
// Golden files hold the canonical JSON declaration catalog of a scenario
// (see Snapshot). They are byte-compared, so any change to naming,
// deduplication or emission order shows up as a golden diff.
package harness
