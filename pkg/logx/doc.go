// Package logx is questminder's logging layer over zerolog.
//
// Components take a Logger by value and derive scoped copies with With.
// A Service owns the sinks (stdout console, optional JSON file) and can be
// re-applied on config reload without handing out new loggers.
package logx
