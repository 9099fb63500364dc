package tester

import (
	"Global_SpeedTest_Go/internal/catalog"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadServer(t *testing.T, size int, withLength bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if withLength {
			w.Header().Set("Content-Length", strconv.Itoa(size))
		}
		buf := make([]byte, 32*1024)
		for written := 0; written < size; {
			n := len(buf)
			if size-written < n {
				n = size - written
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return
			}
			written += n
			if f, ok := w.(http.Flusher); ok && !withLength {
				f.Flush()
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// steppingClock 每次调用前进固定的时长
func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := time.Unix(1700000000, 0)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(step)
		return cur
	}
}

func TestMeasureFullDownload(t *testing.T) {
	srv := payloadServer(t, 256*1024, true)
	d := NewDownloader(5*time.Second, 0)

	out, err := d.Measure(context.Background(), DownloadRequest{URL: srv.URL + "/vultr.com.100MB.bin", Size: catalog.Size100MB})
	require.NoError(t, err)
	assert.Equal(t, int64(256*1024), out.Downloaded)
	assert.Equal(t, int64(256*1024), out.Total)
	assert.Equal(t, StopComplete, out.Stop)
	assert.Greater(t, out.Elapsed, time.Duration(0))
	assert.Greater(t, out.Mbps, 0.0)
	assert.InDelta(t, ThroughputMbps(out.Downloaded, out.Elapsed), out.Mbps, 1e-9)
}

func TestMeasureWithoutContentLengthUsesFallbackSize(t *testing.T) {
	srv := payloadServer(t, 64*1024, false)
	d := NewDownloader(5*time.Second, 0)

	out, err := d.Measure(context.Background(), DownloadRequest{URL: srv.URL + "/test_250m.zip", Size: catalog.Size100MB})
	require.NoError(t, err)
	assert.Equal(t, int64(250*mib), out.Total)
	assert.Equal(t, int64(64*1024), out.Downloaded)
	assert.Equal(t, StopEOF, out.Stop)
}

func TestMeasureQuickStopWithSteppingClock(t *testing.T) {
	srv := payloadServer(t, 4*mib, true)
	d := NewDownloader(30*time.Second, 0)
	d.now = steppingClock(50 * time.Millisecond)

	out, err := d.Measure(context.Background(), DownloadRequest{URL: srv.URL, Size: catalog.Size1GB, Quick: true})
	require.NoError(t, err)
	assert.Equal(t, StopQuick, out.Stop)
	assert.GreaterOrEqual(t, out.Downloaded, int64(mib))
	assert.Less(t, out.Downloaded, int64(4*mib))
}

func TestMeasureShortDuration(t *testing.T) {
	srv := payloadServer(t, 16*1024, true)
	d := NewDownloader(5*time.Second, 0)
	frozen := time.Unix(1700000000, 0)
	d.now = func() time.Time { return frozen }

	_, err := d.Measure(context.Background(), DownloadRequest{URL: srv.URL, Size: catalog.Size100MB})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShortDuration)
	assert.Equal(t, "short_duration", Kind(err))
}

func TestMeasureBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	d := NewDownloader(5*time.Second, 0)

	_, err := d.Measure(context.Background(), DownloadRequest{URL: srv.URL, Size: catalog.Size100MB})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDownload)
	assert.Contains(t, err.Error(), "404")
}

func closedPortURL(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "http://" + addr + "/"
}

func TestMeasureConnectionRefusedIsTCPFailure(t *testing.T) {
	d := NewDownloader(2*time.Second, 0)

	_, err := d.Measure(context.Background(), DownloadRequest{URL: closedPortURL(t), Size: catalog.Size100MB})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTCP)
	assert.False(t, IsInterrupted(err))
}

func TestMeasureInterruptedMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(100*mib))
		w.Write(make([]byte, ChunkSize))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	d := NewDownloader(10*time.Second, 0)
	_, err := d.Measure(ctx, DownloadRequest{URL: srv.URL, Size: catalog.Size100MB})
	require.Error(t, err)
	assert.True(t, IsInterrupted(err))
}

func TestMeasureStalledBodyIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(100*mib))
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	d := NewDownloader(300*time.Millisecond, 0)
	out, err := d.Measure(context.Background(), DownloadRequest{URL: srv.URL + "/vultr.com.100MB.bin", Size: catalog.Size100MB})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrDownload)
	assert.False(t, IsInterrupted(err))
	assert.Equal(t, "download", Kind(err))
}

func TestMeasureAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDownloader(time.Second, 0)

	_, err := d.Measure(ctx, DownloadRequest{URL: "http://127.0.0.1:1/"})
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestMeasureWithRateLimit(t *testing.T) {
	srv := payloadServer(t, 64*1024, true)
	d := NewDownloader(5*time.Second, 1)

	out, err := d.Measure(context.Background(), DownloadRequest{URL: srv.URL, Size: catalog.Size100MB})
	require.NoError(t, err)
	assert.Equal(t, int64(64*1024), out.Downloaded)
}

func TestNewLimiterBurstCoversChunk(t *testing.T) {
	d := &Downloader{RateLimitMB: 0.001}
	l := d.newLimiter()
	require.NotNil(t, l)
	assert.GreaterOrEqual(t, l.Burst(), ChunkSize)

	assert.Nil(t, (&Downloader{}).newLimiter())
}

func TestFallbackSize(t *testing.T) {
	tests := []struct {
		url  string
		want int64
	}{
		{"http://http.speed.hinet.net/test_250m.zip", 250 * mib},
		{"http://http.speed.hinet.net/TEST_2048M.zip", 2048 * mib},
		{"http://x/vultr.com.1000MB.bin", 1000 * mib},
		{"http://x/1GB.bin", 1000 * mib},
		{"http://x/1gb.bin", 100 * mib},
		{"http://x/vultr.com.100MB.bin", 100 * mib},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FallbackSize(tt.url), tt.url)
	}
}
