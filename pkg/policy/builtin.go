package policy

// BuiltinPolicies returns the policies every engine starts with.
func BuiltinPolicies() []Policy {
	return []Policy{
		labelTextPolicy(),
		dateRangePolicy(),
		labelOverridePolicy(),
		crowdedZonePolicy(),
		emptyTimelinePolicy(),
	}
}

// labelTextPolicy flags label text that will not fit a label box.
func labelTextPolicy() Policy {
	return Policy{
		Name:        "label-text",
		Description: "Milestone text must be present and at most 60 characters",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"labels"},
		Rego: `package milestoner.policies.labels

import rego.v1

max_length := 60

deny contains violation if {
	some m in input.timeline.milestones
	trim_space(m.text) == ""
	violation := {
		"message": sprintf("milestone %d has no text", [m.number]),
		"milestone": m.number,
	}
}

deny contains violation if {
	some m in input.timeline.milestones
	count(m.text) > max_length
	violation := {
		"message": sprintf("milestone %d text is %d characters, longer than %d", [m.number, count(m.text), max_length]),
		"milestone": m.number,
	}
}
`,
	}
}

// dateRangePolicy flags milestones drawn past the right end of the axis.
func dateRangePolicy() Policy {
	return Policy{
		Name:        "date-range",
		Description: "Milestones should fall on or before the end date",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"dates"},
		Rego: `package milestoner.policies.dates

import rego.v1

deny contains violation if {
	some m in input.timeline.milestones
	m.day > input.timeline.total_days
	violation := {
		"message": sprintf("milestone %d is dated %s, after the end date %s", [m.number, m.date, input.timeline.end_date]),
		"milestone": m.number,
	}
}
`,
	}
}

// labelOverridePolicy flags label overrides outside the label lanes.
func labelOverridePolicy() Policy {
	return Policy{
		Name:        "label-override",
		Description: "Label track overrides should name one of the label lanes",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"labels", "overrides"},
		Rego: `package milestoner.policies.overrides

import rego.v1

deny contains violation if {
	some m in input.timeline.milestones
	t := m.label_track_override
	abs(t) > input.timeline.num_text_tracks
	violation := {
		"message": sprintf("milestone %d label track %d is outside the %d label tracks", [m.number, t, input.timeline.num_text_tracks]),
		"milestone": m.number,
	}
}

deny contains violation if {
	some m in input.timeline.milestones
	m.label_track_override == 0
	violation := {
		"message": sprintf("milestone %d label track 0 sits on the centre line", [m.number]),
		"milestone": m.number,
	}
}
`,
	}
}

// crowdedZonePolicy flags zones holding more labels than they have tracks.
func crowdedZonePolicy() Policy {
	return Policy{
		Name:        "crowded-zone",
		Description: "A zone should not hold more labels than it has tracks",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"labels", "layout"},
		Rego: `package milestoner.policies.zones

import rego.v1

capacity := 2 * input.timeline.num_text_tracks

deny contains violation if {
	some zone, n in input.plan.summary.zones
	n > capacity
	violation := {
		"message": sprintf("%d labels in the %s zone share %d tracks", [n, zone, capacity]),
	}
}
`,
	}
}

// emptyTimelinePolicy flags timelines without milestones.
func emptyTimelinePolicy() Policy {
	return Policy{
		Name:        "empty-timeline",
		Description: "Timelines should have at least one milestone",
		Severity:    SeverityInfo,
		Enabled:     true,
		Tags:        []string{"timeline"},
		Rego: `package milestoner.policies.empty

import rego.v1

deny contains msg if {
	count(input.timeline.milestones) == 0
	msg := sprintf("timeline %s has no milestones", [input.timeline.name])
}
`,
	}
}
