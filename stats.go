package aqmsim

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Summary condenses a trace into counts and queue statistics
type Summary struct {
	Produced  int `json:"produced" yaml:"produced"`
	Arrivals  int `json:"arrivals" yaml:"arrivals"`
	Admitted  int `json:"admitted" yaml:"admitted"`
	Discarded int `json:"discarded" yaml:"discarded"`
	Lost      int `json:"lost" yaml:"lost"`
	Consumed  int `json:"consumed" yaml:"consumed"`

	// fraction of arrivals that reached the queue
	AcceptRatio float64 `json:"acceptratio" yaml:"acceptratio"`

	// queue length seen after each arrival
	MeanQueueLen float64 `json:"meanqlen" yaml:"meanqlen"`
	StdQueueLen  float64 `json:"stdqlen" yaml:"stdqlen"`
	MaxQueueLen  int     `json:"maxqlen" yaml:"maxqlen"`

	// smoothed queue length reported by the policy at each arrival
	MeanAverage  float64 `json:"meanavg" yaml:"meanavg"`
	MeanDropProb float64 `json:"meandropprob" yaml:"meandropprob"`
}

// SummaryCollector builds a Summary as events are observed.  Queue lengths
// are kept as a histogram, so memory is bounded by the queue capacity and
// not by the length of the run.
type SummaryCollector struct {
	mu  sync.Mutex
	sum Summary

	// qlenCounts[n] is the number of arrivals that left n packets queued
	qlenCounts []float64

	avgTotal   float64
	pdropTotal float64
}

// CreateSummaryCollector is a constructor
func CreateSummaryCollector() *SummaryCollector {
	sc := new(SummaryCollector)
	sc.qlenCounts = make([]float64, 0)
	return sc
}

// Observe makes the SummaryCollector an Observer
func (sc *SummaryCollector) Observe(evt Event) {
	sc.add(recordOf(evt))
}

func (sc *SummaryCollector) add(rec TraceRecord) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	switch rec.Kind {
	case Produced.String():
		sc.sum.Produced += 1
	case Consumed.String():
		sc.sum.Consumed += 1
	case Arrival.String():
		sc.sum.Arrivals += 1
		switch rec.Outcome {
		case Admitted.String():
			sc.sum.Admitted += 1
		case Discarded.String():
			sc.sum.Discarded += 1
		case Lost.String():
			sc.sum.Lost += 1
		}

		qlen := rec.QueueLen
		if qlen < 0 {
			qlen = 0
		}
		for len(sc.qlenCounts) <= qlen {
			sc.qlenCounts = append(sc.qlenCounts, 0.0)
		}
		sc.qlenCounts[qlen] += 1.0
		if qlen > sc.sum.MaxQueueLen {
			sc.sum.MaxQueueLen = qlen
		}
		sc.avgTotal += rec.Average
		sc.pdropTotal += rec.DropProb
	}
}

// Summary returns the statistics of everything observed so far
func (sc *SummaryCollector) Summary() Summary {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sum := sc.sum
	if sum.Arrivals == 0 {
		return sum
	}
	n := float64(sum.Arrivals)
	sum.AcceptRatio = float64(sum.Admitted) / n
	sum.MeanAverage = sc.avgTotal / n
	sum.MeanDropProb = sc.pdropTotal / n

	lens := make([]float64, len(sc.qlenCounts))
	for idx := range lens {
		lens[idx] = float64(idx)
	}

	// histogram counts act as frequency weights; sample deviation needs two points
	if sum.Arrivals > 1 {
		sum.MeanQueueLen, sum.StdQueueLen = stat.MeanStdDev(lens, sc.qlenCounts)
	} else {
		sum.MeanQueueLen = stat.Mean(lens, sc.qlenCounts)
	}
	return sum
}

// Summarize computes a Summary over recs, as a SummaryCollector would have
// over the events they record
func Summarize(recs []TraceRecord) Summary {
	sc := CreateSummaryCollector()
	for _, rec := range recs {
		sc.add(rec)
	}
	return sc.Summary()
}
