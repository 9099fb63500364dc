package tester

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linuxPing = `PING hnd-jp-ping.vultr.com (108.61.201.151) 56(84) bytes of data.
64 bytes from 108.61.201.151: icmp_seq=1 ttl=52 time=35.2 ms
64 bytes from 108.61.201.151: icmp_seq=2 ttl=52 time=34.9 ms
64 bytes from 108.61.201.151: icmp_seq=3 ttl=52 time=36.1 ms

--- hnd-jp-ping.vultr.com ping statistics ---
3 packets transmitted, 3 received, 0% packet loss, time 2003ms
rtt min/avg/max/mdev = 34.912/35.400/36.100/0.512 ms
`

const macPing = `--- sgp-ping.vultr.com ping statistics ---
3 packets transmitted, 3 packets received, 0.0% packet loss
round-trip min/avg/max/stddev = 70.101/72.250/75.003/2.001 ms
`

const windowsPing = `Ping statistics for 108.61.201.151:
    Packets: Sent = 3, Received = 3, Lost = 0 (0% loss),
Approximate round trip times in milli-seconds:
    Minimum = 34ms, Maximum = 37ms, Average = 35ms
`

func fakeRunner(out string, err error, calls *[]string) CommandRunner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if calls != nil {
			*calls = append(*calls, name)
			*calls = append(*calls, args...)
		}
		return []byte(out), err
	}
}

func TestParsePingAverage(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want float64
		ok   bool
	}{
		{"linux", linuxPing, 35.4, true},
		{"mac", macPing, 72.25, true},
		{"windows", windowsPing, 35, true},
		{"busybox", "round-trip min/avg/max = 1.0/2.5/4.0 ms\n", 2.5, true},
		{"other avg line", "avg latency 12.5 ms\n", 12.5, true},
		{"no summary", "Request timeout for icmp_seq 0\n", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePingAverage(tt.out)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPingerMeasure(t *testing.T) {
	var calls []string
	p := NewPinger(3, time.Second)
	p.Run = fakeRunner(linuxPing, nil, &calls)

	ms, err := p.Measure(context.Background(), "hnd-jp-ping.vultr.com")
	require.NoError(t, err)
	assert.InDelta(t, 35.4, ms, 1e-9)
	require.NotEmpty(t, calls)
	assert.Equal(t, "ping", calls[0])
	assert.Contains(t, calls, "3")
	assert.Equal(t, "hnd-jp-ping.vultr.com", calls[len(calls)-1])
}

func TestPingerUnmeasurable(t *testing.T) {
	p := NewPinger(0, 0)
	assert.Equal(t, DefaultPingCount, p.Count)
	assert.Equal(t, DefaultPingTimeout, p.Timeout)

	p.Run = fakeRunner(linuxPing, errors.New("exit status 1"), nil)
	ms, err := p.Measure(context.Background(), "unreachable.example")
	require.NoError(t, err)
	assert.Equal(t, Unmeasurable, ms)

	p.Run = fakeRunner("garbage", nil, nil)
	ms, err = p.Measure(context.Background(), "unreachable.example")
	require.NoError(t, err)
	assert.Equal(t, Unmeasurable, ms)
}

func TestPingerInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPinger(3, time.Second)
	p.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ms, err := p.Measure(ctx, "tokyo")
	assert.Equal(t, Unmeasurable, ms)
	assert.True(t, IsInterrupted(err))
}
