package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	corenumerator "staffnum/internal/core/numerator"
	"staffnum/internal/domain/auth"
	"staffnum/internal/domain/employeeid"
	"staffnum/internal/infrastructure/directory"
)

const testConfig = `{
  "employee_id": {
    "pattern": "{COMPANY_ABBR}-{YY}-{###}",
    "allow_manual_override": true,
    "abbreviations": {"companies": {"Acme Corp": "ACM"}}
  },
  "auth": {"jwt_secret": "cli-secret"}
}`

type cliEnv struct {
	dir       string
	config    string
	counters  string
	directory string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		dir:       dir,
		config:    filepath.Join(dir, "staffnum.json"),
		counters:  filepath.Join(dir, "counters.json"),
		directory: filepath.Join(dir, "directory.yaml"),
	}
	require.NoError(t, os.WriteFile(env.config, []byte(testConfig), 0o644))
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{
		"--config", e.config,
		"--counters", e.counters,
		"--directory", e.directory,
		"--format", "json",
	}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCmd(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "validate", "EMP-{####}")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)

	out, err = env.run(t, "validate", "{FOO}-{BAR}")
	require.Error(t, err)
	assert.Contains(t, out, "UNKNOWN_TOKEN")
	assert.Contains(t, out, "{FOO}")
	assert.Contains(t, out, "{BAR}")
	assert.Contains(t, out, `"known_tokens"`)
	assert.Contains(t, out, `"EMPLOYMENT_TYPE_ABBR"`)
}

func TestGenerateCmd_RecordsEmployees(t *testing.T) {
	env := newCLIEnv(t)

	var numbers []string
	for range 3 {
		out, err := env.run(t, "generate", "--company", "Acme Corp", "--at", "2025-06-01")
		require.NoError(t, err)

		var res employeeid.Result
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		numbers = append(numbers, res.EmployeeNumber)
	}
	assert.Equal(t, []string{"ACM-25-001", "ACM-25-002", "ACM-25-003"}, numbers)

	dir, err := directory.Load(env.directory)
	require.NoError(t, err)
	recorded, err := dir.Numbers(t.Context())
	require.NoError(t, err)
	assert.ElementsMatch(t, numbers, recorded)

	_, err = env.run(t, "generate", "--company", "Acme Corp", "--override", "ACM-25-002")
	require.Error(t, err)
}

func TestPreviewCmd_DoesNotConsume(t *testing.T) {
	env := newCLIEnv(t)

	for range 2 {
		out, err := env.run(t, "preview", "--company", "Acme Corp", "--at", "2025-06-01")
		require.NoError(t, err)
		assert.Contains(t, out, "ACM-25-001")
	}

	out, err := env.run(t, "counters")
	require.NoError(t, err)
	var records []corenumerator.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Empty(t, records)
}

func TestSeedCmd(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(env.directory, []byte(`
employees:
  - employee_number: ACM-25-041
    company: Acme Corp
  - employee_number: LEGACY-7
`), 0o644))

	out, err := env.run(t, "seed")
	require.NoError(t, err)

	var report employeeid.SeedReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Matched)

	out, err = env.run(t, "generate", "--company", "Acme Corp", "--at", "2025-01-15")
	require.NoError(t, err)
	assert.Contains(t, out, "ACM-25-042")
}

func TestCheckCmd(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(env.directory, []byte(`
departments:
  - name: Engineering
    abbr: ENG
  - name: Enterprise Gateway
    abbr: ENG
`), 0o644))

	out, err := env.run(t, "check", "--pattern", "{DEPARTMENT_ABBR}{###}")
	require.NoError(t, err)

	var warnings []employeeid.AbbreviationWarning
	require.NoError(t, json.Unmarshal([]byte(out), &warnings))
	require.Len(t, warnings, 1)
	assert.Equal(t, employeeid.WarnDuplicate, warnings[0].Kind)
}

func TestTokenCmd(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "token", "--subject", "payroll")
	require.NoError(t, err)

	var tok tokenOutput
	require.NoError(t, json.Unmarshal([]byte(out), &tok))

	svc, err := auth.NewJWTService(auth.DefaultJWTConfig("cli-secret"))
	require.NoError(t, err)
	user, err := svc.ValidateToken(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "payroll", user.UserID)
	assert.Equal(t, []string{"hr_admin"}, user.Roles)
}

func TestYAMLOutput(t *testing.T) {
	env := newCLIEnv(t)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", env.config, "--counters", env.counters, "--directory", env.directory,
		"preview", "--company", "Acme Corp", "--at", "2025-06-01"})
	require.NoError(t, cmd.Execute())

	var res map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "ACM-25-001", res["employee_number"])
}
