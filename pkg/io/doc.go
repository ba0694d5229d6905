// Package io reads and writes ARGs as JSON tables, and reads node location
// tables produced by external inference tools.
//
// # Graph Format
//
// A graph document holds the node, edge and individual tables plus the
// sequence length:
//
//	{
//	  "format": "spargviz-arg",
//	  "version": 1,
//	  "sequence_length": 3000,
//	  "breakpoints": [0, 1000, 2000, 3000],
//	  "spatial": {"dims": 2, "x_range": 10, "y_range": 10},
//	  "nodes": [
//	    {"id": 0, "time": 0, "role": "sample", "individual": 0},
//	    {"id": 1, "time": 0, "role": "sample"},
//	    {"id": 2, "time": 0.7, "role": "internal"}
//	  ],
//	  "edges": [
//	    {"parent": 2, "child": 0, "left": 0, "right": 3000},
//	    {"parent": 2, "child": 1, "left": 0, "right": 3000}
//	  ],
//	  "individuals": [{"location": [1.5, -2.0]}]
//	}
//
// Node ids must equal their position in the node table. "individual" may
// be omitted for nodes without one. "format" and "version" are optional on
// input and always written on output. Breakpoints are normalised on read.
//
// # Location Tables
//
// Location tables are CSV with one row per node: the node id followed by
// one to three coordinates. A header row is detected and skipped when its
// first field is not an integer.
//
//	node_id,x,y
//	12,0.53,-1.2
//	13,2.1,0.4
package io
