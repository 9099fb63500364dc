package engine

import (
	"Global_SpeedTest_Go/pkg/model"
	"sort"
)

// Summary 是对一次批量测试结果的统计，不会修改原始结果
type Summary struct {
	Total     int
	Successes []model.ProbeResult
	Fastest   *model.ProbeResult
	Regions   []model.RegionStat
	mbpsSum   float64
}

// Average 返回成功结果的平均速度，没有成功结果时第二个返回值为 false
func (s Summary) Average() (float64, bool) {
	if len(s.Successes) == 0 {
		return 0, false
	}
	return s.mbpsSum / float64(len(s.Successes)), true
}

// Failed 返回失败的数量
func (s Summary) Failed() int {
	return s.Total - len(s.Successes)
}

type regionAcc struct {
	stat       model.RegionStat
	pingSum    float64
	elapsedSum float64
	mbpsSum    float64
}

// Summarize 统计成功结果：平均速度、最快的服务器和按区域分组的数据。
// 区域按首次出现的顺序排列，平均延迟只统计测量成功的 ping。
func Summarize(results []model.ProbeResult) Summary {
	s := Summary{Total: len(results)}
	byRegion := make(map[string]*regionAcc)
	var order []string

	for i := range results {
		r := results[i]
		if !r.Succeeded() {
			continue
		}
		s.Successes = append(s.Successes, r)
		s.mbpsSum += r.DownloadMbps
		// 严格大于，速度相同时保留先出现的
		if s.Fastest == nil || r.DownloadMbps > s.Fastest.DownloadMbps {
			fastest := r
			s.Fastest = &fastest
		}

		acc, ok := byRegion[r.Region]
		if !ok {
			acc = &regionAcc{stat: model.RegionStat{Region: r.Region}}
			byRegion[r.Region] = acc
			order = append(order, r.Region)
		}
		acc.stat.Count++
		acc.elapsedSum += r.ElapsedSeconds
		acc.mbpsSum += r.DownloadMbps
		if r.PingMeasured() {
			acc.stat.PingSamples++
			acc.pingSum += r.PingMs
		}
	}

	for _, region := range order {
		acc := byRegion[region]
		n := float64(acc.stat.Count)
		acc.stat.AvgElapsedSeconds = acc.elapsedSum / n
		acc.stat.AvgMbps = acc.mbpsSum / n
		if acc.stat.PingSamples > 0 {
			acc.stat.AvgPingMs = acc.pingSum / float64(acc.stat.PingSamples)
		} else {
			acc.stat.AvgPingMs = -1
		}
		s.Regions = append(s.Regions, acc.stat)
	}
	return s
}

// Rank 返回按速度从高到低排序的成功结果，速度相同时保持原顺序
func Rank(results []model.ProbeResult) []model.ProbeResult {
	var ranked []model.ProbeResult
	for _, r := range results {
		if r.Succeeded() {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DownloadMbps > ranked[j].DownloadMbps
	})
	return ranked
}

// ConnectivitySummary 是连接测试的统计
type ConnectivitySummary struct {
	Total   int
	Ranked  []model.ConnectivityResult // 成功的结果，按总延迟从低到高
	Best    *model.ConnectivityResult
	Regions []model.RegionStat
}

// SummarizeConnectivity 对成功的连接测试按总延迟排序并按区域计算平均延迟
func SummarizeConnectivity(results []model.ConnectivityResult) ConnectivitySummary {
	s := ConnectivitySummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Ranked = append(s.Ranked, r)
		}
	}
	sort.SliceStable(s.Ranked, func(i, j int) bool {
		return s.Ranked[i].TotalMs < s.Ranked[j].TotalMs
	})
	if len(s.Ranked) > 0 {
		best := s.Ranked[0]
		s.Best = &best
	}

	sums := make(map[string]float64)
	idx := make(map[string]int)
	for _, r := range results {
		if !r.Success {
			continue
		}
		i, ok := idx[r.Region]
		if !ok {
			i = len(s.Regions)
			idx[r.Region] = i
			s.Regions = append(s.Regions, model.RegionStat{Region: r.Region})
		}
		s.Regions[i].Count++
		sums[r.Region] += r.TotalMs
	}
	for i := range s.Regions {
		s.Regions[i].AvgLatencyMs = sums[s.Regions[i].Region] / float64(s.Regions[i].Count)
	}
	return s
}
