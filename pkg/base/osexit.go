// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
)

// 单元测试中替换
var (
	osExit           = os.Exit
	goos             = runtime.GOOS
	stdin  io.Reader = os.Stdin
	stderr io.Writer = os.Stderr
)

// OsExitAndWaitPressIfWindows 退出进程，退出前把日志刷到磁盘
//
// windows下双击运行tilemerge时，等待回车后再退出，否则控制台窗口直接关闭，看不到出错信息
//
func OsExitAndWaitPressIfWindows(code int) {
	Log.Sync()
	if goos == "windows" {
		_, _ = fmt.Fprintf(stderr, "Press Enter to exit. code=%d\n", code)
		_, _ = bufio.NewReader(stdin).ReadByte()
	}
	osExit(code)
}
