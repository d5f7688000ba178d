// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/q191201771/naza/pkg/nazalog"
)

// runSignalHandler 收到SIGINT或SIGTERM后停止合并，已经输出的内容会被刷到文件
func runSignalHandler(cancel func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	s := <-c
	log.Infof("recv signal. s=%+v", s)
	cancel()
}
