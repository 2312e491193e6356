package main

import (
	"os"
	"runtime/debug"

	"nf-tickets-sol/internal/pkg/logger"
)

func main() {
	os.Exit(guarded(execute))
}

// guarded 捕获 panic，把堆栈写入 logger（含轮转日志文件）后以内部错误退出
func guarded(run func() int) (code int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[Main] panic: %+v\nstack: %s", r, debug.Stack())
			logger.Sync()
			code = exitInternal
		}
	}()
	return run()
}
