// Package factory instantiates pluggable modules (forecast providers,
// metrics sinks) from configuration. A module is selected by its type name
// and configured from a raw settings map:
//
//	forecast:
//	  type: historical
//	  conf:
//	    path: data/solar_data.csv
//	    method: blend
package factory
