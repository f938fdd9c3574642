package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsSplitsRunsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	finished := time.Date(2026, 4, 2, 3, 0, 0, 0, time.UTC)

	m.ObserveRun("notification_retention", 2*time.Second, finished, nil)
	m.ObserveRun("notification_retention", time.Second, finished.Add(time.Hour), errors.New("db gone"))
	m.IncSkipped()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	ok, err := fetchCounterValue(mfs, "tollwatch_cron_job_runs_total", "result", "ok")
	require.NoError(t, err)
	assert.Equal(t, 1.0, ok)
	failed, err := fetchCounterValue(mfs, "tollwatch_cron_job_runs_total", "result", "error")
	require.NoError(t, err)
	assert.Equal(t, 1.0, failed)

	sum, err := fetchHistogramSum(mfs, "tollwatch_cron_job_duration_seconds", "job", "notification_retention")
	require.NoError(t, err)
	assert.Equal(t, 3.0, sum)

	last := findMetricFamily(mfs, "tollwatch_cron_job_last_success_timestamp_seconds")
	require.NotNil(t, last)
	assert.Equal(t, float64(finished.Unix()), last.GetMetric()[0].GetGauge().GetValue())

	skipped := findMetricFamily(mfs, "tollwatch_cron_cycles_skipped_total")
	require.NotNil(t, skipped)
	assert.Equal(t, 1.0, skipped.GetMetric()[0].GetCounter().GetValue())
}

func TestCronJobMetricsLabelsUnnamedJobs(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCronJobMetrics(reg).ObserveRun("", time.Millisecond, time.Now(), nil)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	_, err = fetchHistogramSum(mfs, "tollwatch_cron_job_duration_seconds", "job", "unnamed")
	assert.NoError(t, err)
}

func TestCronJobMetricsWithoutRegisterer(t *testing.T) {
	var nilMetrics *CronJobMetrics
	nilMetrics.ObserveRun("x", time.Second, time.Now(), nil)
	nilMetrics.IncSkipped()

	noop := NewCronJobMetrics(nil)
	noop.ObserveRun("x", time.Second, time.Now(), errors.New("boom"))
	noop.IncSkipped()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findLabeled(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return metric.GetCounter().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findLabeled(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleSum(), nil
}

func findLabeled(mfs []*dto.MetricFamily, name, label, value string) (*dto.Metric, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return nil, fmt.Errorf("family %s not gathered", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric, nil
			}
		}
	}
	return nil, fmt.Errorf("%s has no series with %s=%q", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
