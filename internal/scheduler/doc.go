// Package scheduler периодически пересобирает графы сцен.
//
// На каждом тике Scheduler находит файлы сцен в каталоге, собирает и
// проверяет граф каждой сцены, снимает снимок и сохраняет его, если
// отпечаток изменился. О результате публикуются события graph.validated
// и graph.failed.
//
// Структура:
//   - scheduler.go — основная логика Scheduler (Run, Tick, processScene)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Dir:       "scenes",
//	    Cron:      "*/5 * * * *",
//	    Store:     store,
//	    Publisher: publisher, // опционально
//	    Logger:    logger,
//	})
//
//	// Блокируется до отмены ctx
//	err = sched.Run(ctx)
package scheduler
