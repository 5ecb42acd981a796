// Package scheduler fires tasks into a worker pool on cron schedules.
//
// A Scheduler wraps robfig/cron and turns each firing into a pool
// submission, so scheduled work flows through the same bounded queue
// and worker lifecycle as directly submitted tasks. Submissions that
// the pool rejects (shutdown, submit timeout) are counted as misfires
// and reported through the OnSubmitError callback; the entry keeps
// firing on schedule.
//
// Basic usage:
//
//	pool, _ := workerpool.New(4, 100)
//	sched, _ := scheduler.New(pool)
//
//	sched.Schedule("*/5 * * * * *", workerpool.TaskFunc(func(ctx context.Context) error {
//		return refreshCache(ctx)
//	}))
//
//	sched.Start()
//	defer func() {
//		<-sched.Stop().Done()
//		<-pool.Shutdown()
//	}()
package scheduler
