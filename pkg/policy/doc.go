// Package policy lints timelines with Open Policy Agent (OPA) Rego rules.
//
// Every policy is a Rego module whose deny set lists violations. The engine
// evaluates each enabled policy against one timeline at a time and, when
// the timeline has been laid out, its draw plan.
//
// # Usage
//
//	eng, err := policy.NewEngine(ctx, logger)
//	if err != nil {
//	    return err
//	}
//	if err := eng.LoadPolicies(ctx, []string{"policies"}); err != nil {
//	    return err
//	}
//
//	result, err := eng.Evaluate(ctx, tl, plan, "validate")
//	if err != nil {
//	    return err
//	}
//	for _, v := range result.Violations {
//	    fmt.Printf("%s: %s\n", v.Policy, v.Message)
//	}
//
// # Input
//
// Policies see a document of the form
//
//	{
//	  "timeline": {
//	    "name": "CPT-Roadmap",
//	    "start_date": "2025-01-01", "end_date": "2025-12-31",
//	    "total_days": 365, "num_text_tracks": 3,
//	    "milestones": [
//	      {"number": 1, "text": "Kick-off", "date": "2025-01-15", "day": 15, "level": 1}
//	    ]
//	  },
//	  "plan": {"id": "...", "summary": {...}, "labels": [{"milestone": 1, "zone": "left", "track": 3, ...}]},
//	  "context": {"operation": "validate", "timestamp": "..."}
//	}
//
// plan is absent when the timeline could not be laid out.
//
// # Custom Policies
//
// Custom policies are .rego files, named after the file, or .json files
// holding a Policy. A deny entry is either a message string or an object
// with "message" and optional "milestone" and "severity" keys:
//
//	# Release milestones must be level 1.
//	# severity: error
//	package custom.releases
//
//	import rego.v1
//
//	deny contains violation if {
//	    some m in input.timeline.milestones
//	    contains(lower(m.text), "release")
//	    m.level != 1
//	    violation := {
//	        "message": sprintf("milestone %d is a release but has level %d", [m.number, m.level]),
//	        "milestone": m.number,
//	    }
//	}
//
// The leading comment block becomes the description and a "severity:" line
// in it sets the default severity (info, warning or error). Only error
// violations make a Result disallowed.
package policy
