package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBMICommand(t *testing.T) {
	out, err := run(t, "bmi", "--weight", "70", "--height", "175")
	require.NoError(t, err)
	assert.Contains(t, out, "BMI: 22.86")
	assert.Contains(t, out, "Bình thường theo IDI & WPRO")

	_, err = run(t, "bmi", "--weight", "0", "--height", "175")
	assert.Error(t, err)
}

func TestExportAndPromptCommands(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "record.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"adminDetails":{"fullName":"Phạm D","birthYear":"1990"}}`), 0o644))

	out, err := run(t, "export", "--variant", "internal-med", "--in", in, "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "BenhAn_NoiKhoa_Phạm_D.docx")
	data, err := os.ReadFile(filepath.Join(dir, "BenhAn_NoiKhoa_Phạm_D.docx"))
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))

	out, err = run(t, "prompt", "--variant", "pre-op", "--task", "CHAT", "--in", in)
	require.NoError(t, err)
	assert.Contains(t, out, "Assistant:")

	_, err = run(t, "prompt", "--variant", "post-op", "--task", "PROBLEM", "--in", in)
	assert.Error(t, err)
}
