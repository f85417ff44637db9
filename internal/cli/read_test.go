package cli

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmalab/shotread/internal/shot"
)

func TestParseShotSpec(t *testing.T) {
	tests := []struct {
		in   string
		want shot.Spec
	}{
		{"all", shot.All()},
		{"ALL", shot.All()},
		{"7", shot.Single(7)},
		{"10,20,30", shot.List(10, 20, 30)},
		{" 10 , 20 ", shot.List(10, 20)},
		{"5:40", shot.Range(5, 40)},
		{":40", shot.Range(0, 40)},
		{"5:", shot.Range(5, 0)},
		{":", shot.Range(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShotSpec(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseShotSpecErrors(t *testing.T) {
	for _, in := range []string{"", "x", "1,y", "a:b", "1;2"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseShotSpec(in)
			assert.Error(t, err)
		})
	}
}

func TestSplitDeviceArg(t *testing.T) {
	d, c := splitDeviceArg("Waveform")
	assert.Equal(t, "Waveform", d)
	assert.Equal(t, "", c)

	d, c = splitDeviceArg("6K Compumotor:probe1")
	assert.Equal(t, "6K Compumotor", d)
	assert.Equal(t, "probe1", c)
}

// writeRunFixture builds a small acquisition database and matching device
// definitions for end-to-end command tests.
func writeRunFixture(t *testing.T) (dbPath, defsDir string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "run.db")
	defsDir = filepath.Join(dir, "devices")
	require.NoError(t, os.MkdirAll(defsDir, 0o755))

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE waveform (shotnum INTEGER, gain INTEGER)`)
	require.NoError(t, err)
	for shot := int64(1); shot <= 50; shot++ {
		_, err = db.Exec(`INSERT INTO waveform VALUES (?, ?)`, shot, 100+shot)
		require.NoError(t, err)
	}

	def := `package devices

device: waveform: {
	name:  "Waveform"
	kind:  "control"
	table: "waveform"
	fields: [{
		name: "gain"
		type: "int64"
	}]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(defsDir, "devices.cue"), []byte(def), 0o644))
	return dbPath, defsDir
}

func runCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errw bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errw)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errw.String(), err
}

func TestReadCommand(t *testing.T) {
	dbPath, defsDir := writeRunFixture(t)

	stdout, _, err := runCommand(t,
		"--store", dbPath, "--defs", defsDir,
		"read", "10,20,30", "--device", "Waveform")
	require.NoError(t, err)
	assert.Equal(t, "shotnum\tgain\n10\t110\n20\t120\n30\t130\n", stdout)
}

func TestReadCommandEmptyResult(t *testing.T) {
	dbPath, defsDir := writeRunFixture(t)

	stdout, _, err := runCommand(t,
		"--store", dbPath, "--defs", defsDir,
		"read", "100,200", "--device", "Waveform")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "EMPTY_RESULT")
}

func TestReadCommandUnknownDevice(t *testing.T) {
	dbPath, defsDir := writeRunFixture(t)

	_, _, err := runCommand(t,
		"--store", dbPath, "--defs", defsDir,
		"read", "1", "--device", "Ghost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReadCommandDuplicateDevice(t *testing.T) {
	dbPath, defsDir := writeRunFixture(t)

	_, _, err := runCommand(t,
		"--store", dbPath, "--defs", defsDir,
		"read", "1", "--device", "Waveform", "--device", "Waveform")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twice")
}

func TestReadCommandMissingDatabase(t *testing.T) {
	_, defsDir := writeRunFixture(t)

	_, _, err := runCommand(t,
		"--store", filepath.Join(t.TempDir(), "absent.db"), "--defs", defsDir,
		"read", "1", "--device", "Waveform")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReadCommandRejectsBadFormat(t *testing.T) {
	dbPath, defsDir := writeRunFixture(t)

	_, _, err := runCommand(t,
		"--store", dbPath, "--defs", defsDir, "--format", "xml",
		"read", "1", "--device", "Waveform")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestDevicesCommand(t *testing.T) {
	dbPath, defsDir := writeRunFixture(t)

	stdout, _, err := runCommand(t, "--store", dbPath, "--defs", defsDir, "devices")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Waveform")
	assert.Contains(t, stdout, "waveform")
	assert.Contains(t, stdout, "config01")
}

func TestOverviewCommand(t *testing.T) {
	dbPath, defsDir := writeRunFixture(t)

	stdout, _, err := runCommand(t, "--store", dbPath, "--defs", defsDir, "overview")
	require.NoError(t, err)
	assert.Contains(t, stdout, "waveform")
	assert.Contains(t, stdout, "50")
	assert.Contains(t, stdout, "1..50")
}
