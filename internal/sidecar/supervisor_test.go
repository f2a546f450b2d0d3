package sidecar

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jaja2302/Palm-counting-AI/internal/cancel"
	"github.com/jaja2302/Palm-counting-AI/internal/datastore"
	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestHelperProcess is not a real test. It is re-executed by helperFactory
// and behaves like infer_worker according to SIDECAR_MODE.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	out := os.Stdout
	switch os.Getenv("SIDECAR_MODE") {
	case "normal":
		fmt.Fprintln(os.Stderr, "loading model")
		fmt.Fprintln(out, `{"processed":1,"total":2,"current_file":"a.tif","status":"ok","abnormal_count":1,"normal_count":9,"successful":1,"failed":0,"output_folder":"/out/a_model"}`)
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "ultralytics banner on stdout")
		fmt.Fprint(out, "   \n")
		fmt.Fprintln(os.Stderr, "   ")
		fmt.Fprintln(out, `{"processed":2,"total":2,"current_file":"b.tif","status":"failed","abnormal_count":0,"normal_count":0,"successful":1,"failed":1}`)
		fmt.Fprintln(out, `{"done":true,"successful":1,"failed":1,"total":2,"total_abnormal":1,"total_normal":9}`)
		fmt.Fprint(os.Stderr, "trailing without newline")
	case "noterminal":
		fmt.Fprintln(out, `{"processed":1,"total":3,"current_file":"a.tif","status":"ok","successful":1,"failed":0}`)
	case "hang":
		fmt.Fprintln(out, `{"processed":1,"total":5,"current_file":"a.tif","status":"ok","successful":1,"failed":0}`)
		time.Sleep(30 * time.Second)
	case "crash":
		fmt.Fprintln(os.Stderr, "Traceback: boom")
		os.Exit(3)
	}
	os.Exit(0)
}

func helperFactory(mode string, seen *[]string) CommandFactory {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if seen != nil {
			*seen = append([]string{name}, args...)
		}
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "SIDECAR_MODE="+mode)
		return cmd
	}
}

func newTestSupervisor(rec events.Emitter, factory CommandFactory) *Supervisor {
	return NewSupervisor(events.NewPublisher(rec),
		logger.NewSlogLogger(io.Discard, logger.LogLevelDebug),
		WithCommandFactory(factory),
		WithPollInterval(20*time.Millisecond))
}

func testRequest() Request {
	return Request{
		Executable: "/opt/palm/binaries/infer_worker",
		Files:      []string{"/data/a.tif", "/data/b.tif"},
		ModelPath:  "/models/palm.pt",
		ModelName:  "palm",
		Config:     ConfigFromApp(datastore.DefaultConfig()),
	}
}

func TestRun_RelaysProgressAndTerminal(t *testing.T) {
	rec := &events.Recorder{}
	var argv []string
	sup := newTestSupervisor(rec, helperFactory("normal", &argv))

	done, err := sup.Run(t.Context(), testRequest(), cancel.New())
	require.NoError(t, err)

	want := events.DonePayload{Done: true, Successful: 1, Failed: 1, Total: 2, TotalAbnormal: 1, TotalNormal: 9}
	assert.Equal(t, want, done)

	progress := rec.Named(events.ProcessingProgress)
	require.Len(t, progress, 2, "one progress event per progress line")
	first := progress[0].(events.ProgressPayload)
	assert.Equal(t, "a.tif", first.CurrentFile)
	assert.Equal(t, "/out/a_model", first.OutputFolder)
	assert.Equal(t, 9, first.NormalCount)
	assert.Equal(t, "failed", progress[1].(events.ProgressPayload).Status)

	assert.Equal(t, []any{want}, rec.Named(events.ProcessingDone))
	names := rec.Names()
	assert.Equal(t, events.ProcessingDone, names[len(names)-1])

	logs := rec.Named(events.ProcessingLog)
	assert.Contains(t, logs, "Starting processing of 2 files...")
	assert.Contains(t, logs, "loading model")
	assert.Contains(t, logs, "trailing without newline")
	assert.Contains(t, logs, "Done. 1 succeeded, 1 failed.")
	assert.NotContains(t, logs, "ultralytics banner on stdout", "stdout noise is not forwarded")
	for _, l := range logs {
		assert.NotEmpty(t, strings.TrimSpace(l.(string)))
	}

	require.Len(t, argv, 6)
	assert.Equal(t, "/opt/palm/binaries/infer_worker", argv[0])
	assert.Equal(t, InferFilesFlag, argv[1])
	assert.JSONEq(t, `["/data/a.tif","/data/b.tif"]`, argv[2])
	assert.Equal(t, "/models/palm.pt", argv[3])
	assert.Equal(t, "palm", argv[4])
	assert.JSONEq(t, `{"imgsz":"12800","conf":"0.2","iou":"0.2","max_det":"10000","device":"auto",
		"convert_kml":"false","convert_shp":"true","save_annotated":"true","line_width":"3",
		"show_labels":"true","show_conf":"false"}`, argv[5])
}

func TestRun_SynthesizesTerminal(t *testing.T) {
	rec := &events.Recorder{}
	sup := newTestSupervisor(rec, helperFactory("noterminal", nil))

	done, err := sup.Run(t.Context(), testRequest(), cancel.New())
	require.NoError(t, err)

	assert.Equal(t, events.DonePayload{Done: true, Successful: 1, Total: 3}, done)
	assert.Equal(t, 1, rec.Count(events.ProcessingDone))
}

func TestRun_CancelKillsSilentChild(t *testing.T) {
	flag := cancel.New()
	rec := &events.Recorder{}
	em := events.EmitterFunc(func(name string, payload any) {
		rec.Emit(name, payload)
		if name == events.ProcessingProgress {
			flag.Set()
		}
	})
	sup := newTestSupervisor(em, helperFactory("hang", nil))

	start := time.Now()
	done, err := sup.Run(t.Context(), testRequest(), flag)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 10*time.Second, "child must be killed, not waited for")
	assert.Equal(t, 1, rec.Count(events.ProcessingProgress))
	assert.Equal(t, 1, rec.Count(events.ProcessingDone))
	assert.Contains(t, rec.Named(events.ProcessingLog), "Cancelled.")
	assert.Equal(t, 1, done.Successful)
}

func TestRun_PreSetFlagEmitsNoProgress(t *testing.T) {
	flag := cancel.New()
	flag.Set()
	rec := &events.Recorder{}
	sup := newTestSupervisor(rec, helperFactory("normal", nil))

	done, err := sup.Run(t.Context(), testRequest(), flag)
	require.NoError(t, err)

	assert.Zero(t, rec.Count(events.ProcessingProgress))
	assert.Equal(t, events.DonePayload{Done: true}, done)
	assert.Contains(t, rec.Named(events.ProcessingLog), "Cancelled.")
}

func TestRun_ChildCrash(t *testing.T) {
	rec := &events.Recorder{}
	sup := newTestSupervisor(rec, helperFactory("crash", nil))

	done, err := sup.Run(t.Context(), testRequest(), cancel.New())
	require.NoError(t, err)
	assert.Equal(t, events.DonePayload{Done: true}, done)

	logs := rec.Named(events.ProcessingLog)
	assert.Contains(t, logs, "Traceback: boom")
	var sawExit bool
	for _, l := range logs {
		if strings.HasPrefix(l.(string), "infer_worker exited abnormally") {
			sawExit = true
		}
	}
	assert.True(t, sawExit)
}

func TestRun_LaunchFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	dir := t.TempDir()
	notExec := filepath.Join(dir, "infer_worker")
	require.NoError(t, os.WriteFile(notExec, []byte("#!/bin/sh\necho hi\n"), 0o644))

	rec := &events.Recorder{}
	sup := NewSupervisor(events.NewPublisher(rec), logger.NewSlogLogger(io.Discard, logger.LogLevelDebug))

	req := testRequest()
	req.Executable = notExec
	_, err := sup.Run(t.Context(), req, cancel.New())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategorySidecarLaunch))
	assert.Contains(t, err.Error(), "permission denied")

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.NotNil(t, ee.GetContext()["os_error_code"])
	assert.Zero(t, rec.Count(events.ProcessingDone), "no terminal event when nothing was started")
}
