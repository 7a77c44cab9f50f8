// Package config loads static task and resource declarations from HCL
// manifests. A manifest is the declarative twin of the builder API: it
// enumerates tasks, their priorities, capacities, and resource access sets,
// all fixed before the dispatcher starts.
//
// Example manifest:
//
//	task "sampler" {
//	  priority  = 2
//	  capacity  = 4
//	  resources = ["readings"]
//	}
//
//	task "reporter" {
//	  priority  = 1
//	  resources = ["readings"]
//	}
//
//	resource "readings" {}
package config
