package install

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/adbpush/internal/adberrors"
	"github.com/marmos91/adbpush/internal/admetrics"
	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream is an in-memory StreamConn recording everything written to it
// and replaying a scripted terminal reply, mirroring how sync_test.go's
// memConn exercises the lower layer.
type fakeStream struct {
	sent       bytes.Buffer
	reply      bytes.Buffer
	readAllOut string
	readAllErr error
	closeErr   error
	closed     bool
}

func (f *fakeStream) Write(b []byte) error        { f.sent.Write(b); return nil }
func (f *fakeStream) Read(p []byte) (int, error)  { return f.reply.Read(p) }
func (f *fakeStream) ReadAll() ([]byte, error)     { return []byte(f.readAllOut), f.readAllErr }
func (f *fakeStream) Close() error                 { f.closed = true; return f.closeErr }

// fakeOpener hands out one scripted fakeStream per service, recorded by
// the service string requested.
type fakeOpener struct {
	streams  map[string]*fakeStream
	requests []string
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{streams: map[string]*fakeStream{}}
}

func (o *fakeOpener) on(service string, s *fakeStream) {
	o.streams[service] = s
}

func (o *fakeOpener) OpenStream(service string) (StreamConn, error) {
	o.requests = append(o.requests, service)
	if s, ok := o.streams[service]; ok {
		return s, nil
	}
	return nil, adberrors.New(adberrors.StreamClosed, "no script for "+service)
}

func writeTempAPK(t *testing.T, size int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.apk")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestRunHappyPath(t *testing.T) {
	opener := newFakeOpener()

	syncStream := &fakeStream{}
	syncStream.reply.Write([]byte("OKAY"))
	opener.on("sync:", syncStream)

	installStream := &fakeStream{readAllOut: "Success\n"}
	opener.on("shell:pm install -r /data/local/tmp/payload.apk", installStream)

	rmStream := &fakeStream{}
	opener.on("shell:rm /data/local/tmp/payload.apk", rmStream)

	apkPath := writeTempAPK(t, 1024)

	var progressLines []string
	result, err := Run(opener, 4096, apkPath, func(line string) {
		progressLines = append(progressLines, line)
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, Done, result.State)
	assert.Equal(t, "Success", result.ShellOutput)

	assert.Contains(t, progressLines, "Uploading APK...")
	assert.Contains(t, progressLines, "Installing APK...")
	assert.Contains(t, progressLines, "Install complete.")

	assert.True(t, syncStream.closed)
	assert.True(t, installStream.closed)
	assert.True(t, rmStream.closed)
}

func TestRunFailsWhenUploadFails(t *testing.T) {
	opener := newFakeOpener()

	syncStream := &fakeStream{}
	syncStream.reply.Write([]byte("FAIL\x05\x00\x00\x00nospc"))
	opener.on("sync:", syncStream)

	apkPath := writeTempAPK(t, 10)

	result, err := Run(opener, 4096, apkPath, nil, nil)
	require.Error(t, err)
	assert.Equal(t, Failed, result.State)

	code, ok := adberrors.Code(err)
	require.True(t, ok)
	assert.Equal(t, adberrors.SyncFailed, code)
}

func TestRunSwallowsCleanupFailure(t *testing.T) {
	opener := newFakeOpener()

	syncStream := &fakeStream{}
	syncStream.reply.Write([]byte("OKAY"))
	opener.on("sync:", syncStream)

	installStream := &fakeStream{readAllOut: "Success"}
	opener.on("shell:pm install -r /data/local/tmp/payload.apk", installStream)
	// No script registered for the rm command: OpenStream fails, and Run
	// must still report Done.

	apkPath := writeTempAPK(t, 16)

	result, err := Run(opener, 4096, apkPath, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Done, result.State)
}

func TestRunRecordsBytesSentOnUpload(t *testing.T) {
	opener := newFakeOpener()

	syncStream := &fakeStream{}
	syncStream.reply.Write([]byte("OKAY"))
	opener.on("sync:", syncStream)

	installStream := &fakeStream{readAllOut: "Success"}
	opener.on("shell:pm install -r /data/local/tmp/payload.apk", installStream)
	opener.on("shell:rm /data/local/tmp/payload.apk", &fakeStream{})

	apkPath := writeTempAPK(t, 2048)

	reg := prometheus.NewRegistry()
	metrics := admetrics.NewMetrics(reg)

	_, err := Run(opener, 4096, apkPath, nil, metrics)
	require.NoError(t, err)

	var metric io_prometheus_client.Metric
	require.NoError(t, metrics.BytesSentTotal.Write(&metric))
	assert.Equal(t, float64(2048), metric.GetCounter().GetValue())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Uploading", Uploading.String())
	assert.Equal(t, "Done", Done.String())
	assert.Equal(t, "Unknown", State(99).String())
}
