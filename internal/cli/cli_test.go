package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mamaar/extractor/pkg/report"
)

const billingSource = `package billing

type Report struct {
	items []int
	total int
	title string
}

func (r *Report) Build(prefix string) string {
	sum := 0
	for _, v := range r.items {
		sum += v
	}
	r.total = sum
	label := prefix + r.title
	label = label + "!"
	return label
}
`

func billingDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.go"), []byte(billingSource), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		if c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"mine", "table", "watch", "mcp", "version"}, names)
}

func TestMine_JSON(t *testing.T) {
	out, err := execute(t, "mine", billingDir(t), "Report.Build", "--format", "json", "--evaluate=false", "--limit", "2")
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "Report.Build", r.Unit)
	assert.Equal(t, 7, r.Lines)
	assert.Len(t, r.Candidates, 2)
}

func TestMine_YAML(t *testing.T) {
	out, err := execute(t, "mine", billingDir(t), "Report.Build", "-f", "yaml", "--evaluate=false")
	require.NoError(t, err)

	var r map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &r))
	assert.Equal(t, "Report.Build", r["unit"])
}

func TestMine_Text(t *testing.T) {
	out, err := execute(t, "mine", billingDir(t), "Report.Build", "--evaluate=false", "--color=false")
	require.NoError(t, err)
	assert.Contains(t, out, "extractedMethod")
	assert.NotContains(t, out, "\x1b[")
}

func TestMine_ConfigFile(t *testing.T) {
	dir := billingDir(t)
	cfgPath := filepath.Join(t.TempDir(), "extractor.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output:\n  format: json\n  limit: 1\nevaluate:\n  enabled: false\n"), 0o644))

	out, err := execute(t, "mine", dir, "Report.Build", "--config", cfgPath)
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Len(t, r.Candidates, 1)
}

func TestMine_FlagOverridesConfigFile(t *testing.T) {
	dir := billingDir(t)
	cfgPath := filepath.Join(t.TempDir(), "extractor.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output:\n  format: yaml\n"), 0o644))

	out, err := execute(t, "mine", dir, "Report.Build", "--config", cfgPath, "--format", "json", "--evaluate=false")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestMine_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown target", []string{"mine", billingDir(t), "Report.Missing"}},
		{"missing dir", []string{"mine", filepath.Join(t.TempDir(), "nope"), "Report"}},
		{"bad format", []string{"mine", billingDir(t), "Report", "--format", "xml"}},
		{"no target", []string{"mine"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestTable(t *testing.T) {
	out, err := execute(t, "table", billingDir(t), "Report.Build", "--step", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Symbol table for Report.Build (7 lines)")
	assert.Contains(t, out, "[15,16,17]")
	assert.Contains(t, out, "Merged intervals (step 2)")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "extractor version "+Version+"\n", out)
}

func TestLoadConfig_BindsOnlyKnownFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cmd := &cobra.Command{Use: "probe"}
	addMiningFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().Int("unrelated", 0, "")
	require.NoError(t, cmd.Flags().Set("tolerance", "9"))
	require.NoError(t, cmd.Flags().Set("limit", "4"))

	cfg, err := loadConfig(cmd, &globals{})
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Tolerance)
	assert.Equal(t, 4, cfg.Output.Limit)
	assert.Equal(t, []string{"*_gen.go", "*.pb.go"}, cfg.Exclude)
}

func TestDirAndTarget(t *testing.T) {
	dir, target := dirAndTarget([]string{"Report.Build"})
	assert.Equal(t, ".", dir)
	assert.Equal(t, "Report.Build", target)

	dir, target = dirAndTarget([]string{"./billing", "Report"})
	assert.Equal(t, "./billing", dir)
	assert.Equal(t, "Report", target)
}
