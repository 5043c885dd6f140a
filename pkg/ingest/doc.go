// Package ingest reads timeline definitions from spreadsheets and YAML files.
//
// A workbook holds one timeline per sheet whose name starts with a prefix
// (CPT by default). Each sheet has a parameter table with its header on
// row 2 in columns B:D and a milestone table with its header on row 13.
//
// The YAML form carries the same data:
//
//	timelines:
//	  - name: CPT-Programme
//	    parameters:
//	      start_date: 2020-01-01
//	      end_date: 2020-12-31
//	      include_ms_num_in_text: true
//	      milestone_left: 0.75
//	      milestone_right: 34.81
//	      centre_vertical_position: 10
//	      num_text_tracks: 5
//	    milestones:
//	      - number: 1
//	        name: Kick-off
//	        date: 2020-07-01
//	        level: 1
package ingest
