package engine

import (
	"Global_SpeedTest_Go/pkg/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeExample(t *testing.T) {
	results := []model.ProbeResult{
		{Key: "a1", DownloadMbps: 50, Region: "A", PingMs: 10, ElapsedSeconds: 4},
		{Key: "a2", DownloadMbps: 150, Region: "A", PingMs: -1, ElapsedSeconds: 6},
		{Key: "bad", DownloadMbps: 10, ErrorMessage: "x"},
	}
	s := Summarize(results)

	avg, ok := s.Average()
	require.True(t, ok)
	assert.InDelta(t, 100.0, avg, 1e-9)
	require.NotNil(t, s.Fastest)
	assert.Equal(t, 150.0, s.Fastest.DownloadMbps)
	require.Len(t, s.Regions, 1)
	assert.Equal(t, "A", s.Regions[0].Region)
	assert.Equal(t, 2, s.Regions[0].Count)
	assert.Equal(t, 1, s.Regions[0].PingSamples)
	assert.Equal(t, 10.0, s.Regions[0].AvgPingMs)
	assert.Equal(t, 5.0, s.Regions[0].AvgElapsedSeconds)
	assert.Equal(t, 100.0, s.Regions[0].AvgMbps)
	assert.Equal(t, 1, s.Failed())
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	_, ok := s.Average()
	assert.False(t, ok)
	assert.Nil(t, s.Fastest)
	assert.Empty(t, s.Regions)
}

func TestSummarizeStableFastestAndRegionOrder(t *testing.T) {
	results := []model.ProbeResult{
		{Key: "first", DownloadMbps: 80, Region: "europe", PingMs: -1},
		{Key: "second", DownloadMbps: 80, Region: "asia", PingMs: 30},
		{Key: "third", DownloadMbps: 20, Region: "europe", PingMs: 50},
	}
	s := Summarize(results)
	assert.Equal(t, "first", s.Fastest.Key)
	require.Len(t, s.Regions, 2)
	assert.Equal(t, "europe", s.Regions[0].Region)
	assert.Equal(t, "asia", s.Regions[1].Region)
	assert.Equal(t, 50.0, s.Regions[0].AvgPingMs)

	only := Summarize([]model.ProbeResult{{Key: "x", DownloadMbps: 1, Region: "r", PingMs: -1}})
	assert.Equal(t, -1.0, only.Regions[0].AvgPingMs)
	assert.Zero(t, only.Regions[0].PingSamples)
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	results := []model.ProbeResult{{Key: "a", DownloadMbps: 1}, {Key: "b", DownloadMbps: 2}}
	_ = Summarize(results)
	_ = Rank(results)
	assert.Equal(t, "a", results[0].Key)
	assert.Equal(t, "b", results[1].Key)
}

func TestRank(t *testing.T) {
	results := []model.ProbeResult{
		{Key: "slow", DownloadMbps: 10},
		{Key: "tie1", DownloadMbps: 90},
		{Key: "failed", ErrorMessage: "boom"},
		{Key: "tie2", DownloadMbps: 90},
		{Key: "fast", DownloadMbps: 200},
	}
	ranked := Rank(results)
	var keys []string
	for _, r := range ranked {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"fast", "tie1", "tie2", "slow"}, keys)
}

func TestSummarizeConnectivity(t *testing.T) {
	results := []model.ConnectivityResult{
		{Label: "London", Region: "Europe", Success: true, TotalMs: 200},
		{Label: "Tokyo", Region: "Asia", Success: true, TotalMs: 40},
		{Label: "Down", Region: "Asia", ErrorMessage: "DNS resolution failed"},
		{Label: "Paris", Region: "Europe", Success: true, TotalMs: 100},
		{Label: "Seoul", Region: "Asia", Success: true, TotalMs: 40},
	}
	s := SummarizeConnectivity(results)
	assert.Equal(t, 5, s.Total)
	require.Len(t, s.Ranked, 4)
	assert.Equal(t, "Tokyo", s.Ranked[0].Label)
	assert.Equal(t, "Seoul", s.Ranked[1].Label)
	assert.Equal(t, "London", s.Ranked[3].Label)
	require.NotNil(t, s.Best)
	assert.Equal(t, "Tokyo", s.Best.Label)

	require.Len(t, s.Regions, 2)
	assert.Equal(t, "Europe", s.Regions[0].Region)
	assert.Equal(t, 150.0, s.Regions[0].AvgLatencyMs)
	assert.Equal(t, "Asia", s.Regions[1].Region)
	assert.Equal(t, 2, s.Regions[1].Count)
	assert.Equal(t, 40.0, s.Regions[1].AvgLatencyMs)

	assert.Nil(t, SummarizeConnectivity(nil).Best)
}
