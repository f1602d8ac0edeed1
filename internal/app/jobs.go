package app

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"

	"github.com/talkincode/toughcrm/internal/domain"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// JobInfo describes one scheduled job
type JobInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev"`
}

type jobSpec struct {
	id       cron.EntryID
	name     string
	schedule string
}

func (a *Application) addJob(name, schedule string, fn func()) error {
	id, err := a.sched.AddFunc(schedule, fn)
	if err != nil {
		zap.S().Errorf("init job %s error %s", name, err.Error())
		return err
	}
	a.jobs = append(a.jobs, jobSpec{id: id, name: name, schedule: schedule})
	return nil
}

func (a *Application) initJob(loc *time.Location) error {
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	if err := a.addJob("monitor", "@every 30s", a.SchedMonitorTask); err != nil {
		return err
	}

	if a.snapshots != nil {
		if err := a.addJob("snapshot", a.appConfig.Database.Interval, a.SchedSnapshotTask); err != nil {
			return err
		}
	}

	a.sched.Start()
	return nil
}

// Jobs lists the scheduled jobs with their next and previous run times
func (a *Application) Jobs() []JobInfo {
	jobs := make([]JobInfo, 0, len(a.jobs))
	for _, j := range a.jobs {
		entry := a.sched.Entry(j.id)
		jobs = append(jobs, JobInfo{Name: j.name, Schedule: j.schedule, Next: entry.Next, Prev: entry.Prev})
	}
	return jobs
}

// RunJob runs a scheduled job immediately in the calling goroutine
func (a *Application) RunJob(name string) error {
	for _, j := range a.jobs {
		if j.name == name {
			a.sched.Entry(j.id).Job.Run()
			return nil
		}
	}
	return errors.Wrapf(domain.ErrNotFound, "job %s", name)
}

// gaugeSampler reads a set of gauge values; a sampler error drops only its
// own readings.
type gaugeSampler func() (map[string]int64, error)

// recordGauges runs every sampler and stores what it returns. Values are
// percentages times 100 or megabytes.
func (a *Application) recordGauges(samplers ...gaugeSampler) {
	for _, sample := range samplers {
		values, err := safeSample(sample)
		if err != nil {
			zap.L().Debug("gauge sample failed", zap.Error(err))
		}
		for name, v := range values {
			if err := a.metrics.SetGauge(name, v); err != nil {
				zap.L().Warn("gauge write failed", zap.String("metric", name), zap.Error(err))
			}
		}
	}
}

func safeSample(sample gaugeSampler) (values map[string]int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			values, err = nil, errors.Errorf("sampler panic: %v", r)
		}
	}()
	return sample()
}

// SchedMonitorTask samples host, process and registry gauges
func (a *Application) SchedMonitorTask() {
	a.recordGauges(sampleHost, sampleProcess, a.sampleRegistries)
}

func sampleHost() (map[string]int64, error) {
	out := make(map[string]int64, 2)
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		out["system_cpuuse"] = int64(pct[0] * 100)
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return out, errors.Wrap(err, "host memory")
	}
	out["system_memuse"] = int64(vm.Used >> 20) //nolint:gosec // MB fits in int64
	return out, nil
}

func sampleProcess() (map[string]int64, error) {
	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // PID is within int32 range
	if err != nil {
		return nil, errors.Wrap(err, "open process")
	}
	out := make(map[string]int64, 2)
	if pct, err := p.CPUPercent(); err == nil {
		out["toughcrm_cpuuse"] = int64(pct * 100)
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return out, errors.Wrap(err, "process memory")
	}
	out["toughcrm_memuse"] = int64(info.RSS >> 20) //nolint:gosec // MB fits in int64
	return out, nil
}

func (a *Application) sampleRegistries() (map[string]int64, error) {
	return map[string]int64{
		"registry_" + domain.TableUsers:    int64(a.users.Len()),
		"registry_" + domain.TableClients:  int64(a.clients.Len()),
		"registry_" + domain.TableInvoices: int64(a.invoices.Len()),
		"registry_" + domain.TableProducts: int64(a.products.Len()),
	}, nil
}

// SchedSnapshotTask flushes registries to the snapshot store
func (a *Application) SchedSnapshotTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	start := time.Now()
	if err := a.SaveSnapshot(); err != nil {
		zap.L().Error("snapshot failed", zap.Error(err))
		return
	}
	zap.L().Debug("snapshot saved", zap.Duration("elapsed", time.Since(start)))
}
