package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaja2302/Palm-counting-AI/internal/buildinfo"
	"github.com/jaja2302/Palm-counting-AI/internal/conf"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	dir := t.TempDir()
	s := &conf.Settings{}
	s.Paths.DataDir = filepath.Join(dir, "data")
	s.Paths.TempDir = dir
	s.Logging = logger.LoggingConfig{
		Console:    &logger.ConsoleOutput{Enabled: true, Level: "debug"},
		FileOutput: &logger.FileOutput{Enabled: true, Level: "debug"},
	}
	s.Metrics.Textfile = filepath.Join(dir, "palm.prom")
	return s
}

func TestOpen_StreamsEventsAndWritesArtifacts(t *testing.T) {
	s := testSettings(t)
	var stdout, stderr bytes.Buffer
	env := &Env{Settings: s, Build: buildinfo.NewContext("1.2.3", ""), Stdout: &stdout, Stderr: &stderr}

	outcome := &Outcome{}
	sess, err := env.Open(t.Context(), true, outcome)
	require.NoError(t, err)

	_, err = sess.App.AddModels(t.Context(), []string{filepath.Join(t.TempDir(), "missing.pt")})
	require.Error(t, err)

	sess.Bus.Emit(events.ProcessingDone, events.DonePayload{Done: true, Total: 3, Successful: 3})
	require.NoError(t, sess.Close())

	var names []string
	sc := bufio.NewScanner(&stdout)
	for sc.Scan() {
		var line struct {
			Event string `json:"event"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		names = append(names, line.Event)
	}
	assert.Equal(t, []string{events.ModelConversionStart, events.ModelConversionError, events.ProcessingDone}, names)

	require.NotNil(t, outcome.Done())
	assert.Equal(t, 3, outcome.Done().Successful)

	assert.FileExists(t, filepath.Join(s.Paths.DataDir, "database.db"))
	assert.FileExists(t, filepath.Join(s.Paths.DataDir, "logs", "palm-counting.log"))

	prom, err := os.ReadFile(s.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `palm_model_imports_total{result="error"} 1`)
	assert.Contains(t, stderr.String(), "event")
}

func TestOpen_NoStream(t *testing.T) {
	s := testSettings(t)
	s.Logging.FileOutput.Enabled = false
	var stdout bytes.Buffer
	env := &Env{Settings: s, Build: buildinfo.NewContext("", ""), Stdout: &stdout, Stderr: io.Discard}

	sess, err := env.Open(t.Context(), false)
	require.NoError(t, err)
	sess.Bus.Emit(events.AIPackDone, nil)
	require.NoError(t, sess.Close())
	assert.Empty(t, stdout.String())
}

func TestOpen_MQTTFailureIsNotFatal(t *testing.T) {
	s := testSettings(t)
	s.MQTT.Enabled = true
	s.MQTT.Broker = "::bad"
	env := &Env{Settings: s, Build: buildinfo.NewContext("", ""), Stdout: io.Discard, Stderr: io.Discard}

	sess, err := env.Open(t.Context(), false)
	require.NoError(t, err)
	require.NoError(t, sess.Close())
}

func TestOpen_RequiresSettings(t *testing.T) {
	_, err := Open(t.Context(), Options{})
	require.Error(t, err)
}

func TestOutcome(t *testing.T) {
	o := &Outcome{}
	require.NoError(t, o.PackErr())
	assert.False(t, o.PackPaused())

	_ = o.ProcessEvent(events.Event{Name: events.AIPackPaused})
	assert.True(t, o.PackPaused())
	_ = o.ProcessEvent(events.Event{Name: events.AIPackError, Payload: "AI pack tidak tersedia (size 0)"})
	require.EqualError(t, o.PackErr(), "AI pack tidak tersedia (size 0)")
	_ = o.ProcessEvent(events.Event{Name: events.AIPackDone})
	assert.False(t, o.PackPaused())
	assert.Nil(t, o.Done())
}
