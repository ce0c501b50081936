package output

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Alain-L/lognorm/analysis"
	"github.com/Alain-L/lognorm/severity"
)

const histogramWidth = 40

// histogram is a list of labelled counts in display order.
type histogram struct {
	labels []string
	values []int

	// scaleFactor is the number of units per bar character.
	scaleFactor int
}

func (h histogram) empty() bool {
	for _, v := range h.values {
		if v > 0 {
			return false
		}
	}
	return true
}

// bar returns the bar of the i-th value. Any non-zero value gets at least
// one character.
func (h histogram) bar(i int, glyph string) string {
	n := h.values[i] / h.scaleFactor
	if n == 0 && h.values[i] > 0 {
		n = 1
	}
	return strings.Repeat(glyph, n)
}

// scale computes the scale factor so that the largest value fits in width
// characters.
func scale(values []int, width int) int {
	maxValue := 0
	for _, v := range values {
		if v > maxValue {
			maxValue = v
		}
	}
	if width < 1 {
		width = histogramWidth
	}
	factor := int(math.Ceil(float64(maxValue) / float64(width)))
	if factor < 1 {
		factor = 1
	}
	return factor
}

// computeTimelineHistogram divides the time range of the run into numBuckets
// equal buckets and sums the per-minute counts in each.
func computeTimelineHistogram(m analysis.AggregatedMetrics, numBuckets, width int) histogram {
	if len(m.Timeline) == 0 || numBuckets < 1 {
		return histogram{}
	}

	start := m.Timeline[0].Start
	end := m.Timeline[len(m.Timeline)-1].Start.Add(time.Minute)
	bucketDuration := end.Sub(start) / time.Duration(numBuckets)
	if bucketDuration < time.Minute {
		bucketDuration = time.Minute
		numBuckets = int(end.Sub(start) / time.Minute)
	}

	layout := "15:04"
	if end.Sub(start) > 24*time.Hour {
		layout = "01-02 15:04"
	}

	h := histogram{
		labels: make([]string, numBuckets),
		values: make([]int, numBuckets),
	}
	for i := 0; i < numBuckets; i++ {
		from := start.Add(time.Duration(i) * bucketDuration)
		to := start.Add(time.Duration(i+1) * bucketDuration)
		h.labels[i] = fmt.Sprintf("%s - %s", from.Format(layout), to.Format(layout))
	}
	for _, b := range m.Timeline {
		i := int(b.Start.Sub(start) / bucketDuration)
		if i >= numBuckets {
			i = numBuckets - 1
		}
		h.values[i] += b.Count
	}
	h.scaleFactor = scale(h.values, width)
	return h
}

// computeSeverityHistogram lists the severities present in the run, most
// severe first.
func computeSeverityHistogram(m analysis.AggregatedMetrics, width int) histogram {
	var h histogram
	for _, e := range m.Events {
		h.labels = append(h.labels, severity.Name(e.Severity))
		h.values = append(h.values, e.Count)
	}
	h.scaleFactor = scale(h.values, width)
	return h
}
