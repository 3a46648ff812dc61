// Package scheduler повторяет обработку таблицы по расписанию.
//
// Расписание задаётся cron-выражением (robfig/cron) или фиксированным
// интервалом. Между запусками Scheduler просто ждёт; пакеты никогда не
// выполняются параллельно.
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Schedule: scheduler.Schedule{Cron: "0 * * * *"},
//	    Job:      runBatch,
//	    Logger:   logger,
//	})
//	err = sched.Run(ctx)
package scheduler
