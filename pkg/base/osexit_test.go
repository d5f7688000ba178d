// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"bytes"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/q191201771/naza/pkg/assert"
)

func TestOsExitAndWaitPressIfWindows(t *testing.T) {
	defer func() {
		osExit = os.Exit
		goos = runtime.GOOS
		stdin = os.Stdin
		stderr = os.Stderr
	}()

	var codes []int
	osExit = func(code int) {
		codes = append(codes, code)
	}
	var out bytes.Buffer
	stderr = &out
	in := strings.NewReader("\n")
	stdin = in

	goos = "linux"
	OsExitAndWaitPressIfWindows(1)
	assert.Equal(t, []int{1}, codes)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, 1, in.Len())

	// windows下读取一个回车后才退出
	goos = "windows"
	OsExitAndWaitPressIfWindows(0)
	assert.Equal(t, []int{1, 0}, codes)
	assert.Equal(t, "Press Enter to exit. code=0\n", out.String())
	assert.Equal(t, 0, in.Len())
}
