package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milestoner/milestoner/pkg/stores"
)

// execute runs the CLI with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand("test", "none", "today")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), err
}

// workspace initialises a fresh workspace and makes it the working directory.
func workspace(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created milestoner.yaml")
	assert.Contains(t, out, "Initialized run history")
	return dir
}

func TestInitKeepsExistingFiles(t *testing.T) {
	dir := workspace(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles.yaml"), []byte("custom"), 0644))

	out, err := execute(t, "init", "--no-store")
	require.NoError(t, err)
	assert.Contains(t, out, "Kept existing styles.yaml")

	data, err := os.ReadFile(filepath.Join(dir, "styles.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data))

	_, err = execute(t, "init", "--no-store", "--force")
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(dir, "styles.yaml"))
	require.NoError(t, err)
	assert.NotEqual(t, "custom", string(data))
}

func TestValidateAndList(t *testing.T) {
	workspace(t)

	out, err := execute(t, "validate", "timelines.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "1 timelines valid")

	out, err = execute(t, "list", "timelines.yaml", "--json")
	require.NoError(t, err)

	var infos []timelineInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "CPT-Roadmap", infos[0].Name)
	assert.Equal(t, 7, infos[0].Milestones)
	assert.Equal(t, "2025-01-15", infos[0].First)
	assert.Equal(t, "2025-11-03", infos[0].Last)
	assert.Equal(t, []int{1, 2, 3}, infos[0].Levels)
}

func TestValidateReportsProblems(t *testing.T) {
	dir := workspace(t)

	doc := `timelines:
  - name: CPT-Bad
    parameters:
      start_date: 2025-03-01
      end_date: 2025-12-31
      milestone_left: 1
      milestone_right: 30
      centre_vertical_position: 10
      num_text_tracks: 2
    milestones:
      - {number: 1, name: Early, date: 2025-01-10, level: 1}
      - {number: 2, name: Fine, date: 2025-04-10, level: 1}
      - {number: 3, name: Unstyled, date: 2025-05-10, level: 4}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(doc), 0644))

	out, err := execute(t, "validate", "bad.yaml", "--json")
	require.Error(t, err)

	var problems []problem
	require.NoError(t, json.Unmarshal([]byte(out), &problems))

	codes := map[string]int{}
	for _, p := range problems {
		codes[p.Code]++
	}
	assert.Equal(t, 2, codes["MISSING_CATEGORY"], "one problem per missing category")
	assert.Equal(t, 1, codes["DATE_BEFORE_START"])
}

func TestValidatePolicies(t *testing.T) {
	dir := workspace(t)

	rule := `# severity: error
package project.names

import rego.v1

deny contains violation if {
	some m in input.timeline.milestones
	m.text == "Kick-off"
	violation := {"message": "say kickoff", "milestone": m.number}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "names.rego"), []byte(rule), 0644))

	out, err := execute(t, "validate", "timelines.yaml", "--policy", "names.rego", "--json")
	require.Error(t, err)

	var problems []problem
	require.NoError(t, json.Unmarshal([]byte(out), &problems))
	require.Len(t, problems, 1)
	assert.Equal(t, "names", problems[0].Policy)
	assert.Equal(t, "POLICY", problems[0].Code)
	assert.Equal(t, 1, problems[0].Milestone)

	_, err = execute(t, "validate", "timelines.yaml", "--policy", "names.rego", "--no-policies")
	require.NoError(t, err)

	out, err = execute(t, "policies", "--policy", "names.rego")
	require.NoError(t, err)
	assert.Contains(t, out, "names")
	assert.Contains(t, out, "crowded-zone")
	assert.Contains(t, out, "built-in")
}

func TestPlanPrintsJSON(t *testing.T) {
	workspace(t)

	out, err := execute(t, "plan", "timelines.yaml")
	require.NoError(t, err)

	var doc struct {
		Plan struct {
			Timeline string `json:"timeline"`
			Labels   []any  `json:"labels"`
		} `json:"plan"`
		Ops []any `json:"ops"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "CPT-Roadmap", doc.Plan.Timeline)
	assert.Len(t, doc.Plan.Labels, 7)
	assert.NotEmpty(t, doc.Ops)
}

func TestGenerateHistoryReplay(t *testing.T) {
	dir := workspace(t)

	out, err := execute(t, "generate", "timelines.yaml", "--metrics-textfile", "metrics.prom")
	require.NoError(t, err)
	assert.Contains(t, out, "CPT-Roadmap")

	svg := filepath.Join(dir, "out", "CPT-Roadmap_out.svg")
	data, err := os.ReadFile(svg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")

	metrics, err := os.ReadFile(filepath.Join(dir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "milestoner_layouts_started_total")

	out, err = execute(t, "history", "--json")
	require.NoError(t, err)
	var runs []stores.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, "CPT-Roadmap", run.Timeline)
	assert.Equal(t, stores.RunStatusCompleted, run.Status)
	assert.Equal(t, filepath.Join("out", "CPT-Roadmap_out.svg"), run.OutputPath)
	require.NotNil(t, run.PlanID)

	out, err = execute(t, "history", "show", run.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Layout started")
	assert.Contains(t, out, "Layout complete")

	out, err = execute(t, "replay", run.ID, "--format", "json", "--stdout")
	require.NoError(t, err)
	var doc struct {
		Plan struct {
			ID     string `json:"id"`
			Labels []any  `json:"labels"`
		} `json:"plan"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, *run.PlanID, doc.Plan.ID)
	assert.Len(t, doc.Plan.Labels, 7)

	out, err = execute(t, "replay", run.ID, "--output", "replayed")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "replayed", "CPT-Roadmap_out.svg"))
}

func TestGenerateUsesPerTimelineStyles(t *testing.T) {
	dir := workspace(t)

	doc := `timelines:
  - name: CPT-Narrow
    parameters: {start_date: 2025-01-01, end_date: 2025-12-31, milestone_right: 30, centre_vertical_position: 10, num_text_tracks: 2}
    milestones:
      - {number: 1, name: Start, date: 2025-02-01, level: 1}
  - name: CPT-Wide
    parameters: {start_date: 2025-01-01, end_date: 2025-12-31, milestone_right: 30, centre_vertical_position: 10, num_text_tracks: 2}
    milestones:
      - {number: 1, name: Start, date: 2025-02-01, level: 1}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.yaml"), []byte(doc), 0644))

	templates := filepath.Join(dir, "templates")
	require.NoError(t, os.Mkdir(templates, 0755))
	wide := `categories:
  "1": {shape: ellipse, width: 0.6, height: 0.6, fill_color: "#000000"}
  "TEXT 1": {width: 9, height: 1.5}
`
	require.NoError(t, os.WriteFile(filepath.Join(templates, "CPT-Wide.yaml"), []byte(wide), 0644))

	_, err := execute(t, "generate", "two.yaml", "--styles-dir", "templates", "--format", "json", "--no-store")
	require.NoError(t, err)

	labelWidth := func(name string) float64 {
		t.Helper()
		data, err := os.ReadFile(filepath.Join(dir, "out", name+"_out.json"))
		require.NoError(t, err)
		var doc struct {
			Plan struct {
				Labels []struct {
					Width float64 `json:"width"`
				} `json:"labels"`
			} `json:"plan"`
		}
		require.NoError(t, json.Unmarshal(data, &doc))
		require.Len(t, doc.Plan.Labels, 1)
		return doc.Plan.Labels[0].Width
	}
	assert.Equal(t, 4.5, labelWidth("CPT-Narrow"), "falls back to styles.yaml")
	assert.Equal(t, 9.0, labelWidth("CPT-Wide"))
}

func TestGenerateWithoutStore(t *testing.T) {
	dir := workspace(t)

	_, err := execute(t, "generate", "timelines.yaml", "--no-store", "--format", "json", "--json")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "CPT-Roadmap_out.json"))

	out, err := execute(t, "history", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestHistoryShowUnknownRun(t *testing.T) {
	workspace(t)

	_, err := execute(t, "history", "show", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, stores.ErrNotFound)
}
